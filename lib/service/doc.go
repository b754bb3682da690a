// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package service implements the CBOR request/response protocol that
// wsmaster components speak over Unix sockets. A machine daemon serves
// its exec capability with [SocketServer]; launchers reach it with
// [ServiceClient].
//
// Each connection carries exactly one exchange. The client writes one
// CBOR map containing an "action" field plus action-specific fields;
// the server answers with a [Response] envelope:
//
//	{ok: true, data: <cbor>}   or   {ok: false, error: "..."}
//
// CBOR is self-delimiting, so no framing is needed.
package service

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for wsmaster packages.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// safety valve so individual tests never call time.After themselves.
// [SocketDir] creates a short temporary directory for Unix sockets,
// whose paths are limited to 108 bytes.
//
// All helpers fail the test with t.Fatalf rather than returning errors.
package testutil

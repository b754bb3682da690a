// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides bounded HTTP response helpers.
//
// Health endpoints are polled repeatedly while an agent boots, so a
// misbehaving endpoint must not be able to make each probe read an
// unbounded body. Every helper here caps its read at MaxBodySize.
package netutil

import (
	"io"
	"strings"
)

// MaxBodySize bounds how much of a response body is read for
// diagnostics or draining: 64 KB.
const MaxBodySize int64 = 64 << 10

// ErrorBody reads up to MaxBodySize bytes of body and returns them as
// a trimmed string for error messages. Read errors are ignored; a
// partial body is still useful.
func ErrorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, MaxBodySize))
	return strings.TrimSpace(string(data))
}

// DrainAndClose discards up to MaxBodySize bytes of body and closes
// it so the underlying connection can be reused by the next probe.
func DrainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, MaxBodySize))
	body.Close()
}

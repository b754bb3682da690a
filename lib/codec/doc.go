// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the CBOR configuration shared by every wsmaster
// internal protocol. The exec socket between the launcher and a
// machine daemon is the main consumer.
//
// Encoding uses Core Deterministic Encoding (RFC 8949 §4.2), so the
// same value always produces the same bytes. Decoding ignores unknown
// fields and decodes untyped maps as map[string]any.
//
// Types that only travel over CBOR carry `cbor` struct tags. Types
// that are also printed as JSON (machine descriptors, CLI output)
// carry `json` tags, which fxamacker/cbor honors as a fallback.
package codec

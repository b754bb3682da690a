// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command tree behind the wsmaster binary: a
// [Command] type with pflag-based flag parsing, typo suggestions for
// unknown commands and flags, structured help output, and the
// [NewCommandLogger] constructor every command uses for slog output.
package cli

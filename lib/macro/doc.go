// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package macro expands ${...} placeholders in command templates.
//
// A [Registry] maps macro names (the full token, braces included, such
// as "${server.4401/tcp}") to [Provider] values. Any component that
// knows something about the runtime contributes providers: a machine's
// server map becomes "${server.<ref>}" and "${server.<ref>.protocol}"
// through [ServerMacros], and operator-defined values arrive as
// [StaticProvider] or [FuncProvider].
//
// An [Expander] resolves every registered token in a template
// concurrently and splices the values back in their original
// positions. Tokens nobody registered are left alone: a command line
// often carries ${...} syntax meant for the remote shell. A provider
// that fails leaves its token unexpanded and logs a warning; it never
// fails the whole template.
//
// Providers are evaluated on every expansion, once per occurrence.
// Nothing is cached between occurrences or between calls, so a
// provider whose value changes over time may yield different values
// for two occurrences in the same template.
package macro

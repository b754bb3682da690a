// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package readiness decides whether a freshly started process has
// become usable by probing it until it answers or a deadline passes.
//
// [Poll] is transport-agnostic: it takes a [Probe] and drives the
// Polling → Ready | Exhausted | Cancelled state machine with an
// injected [clock.Clock], so deadlines are testable without real
// sleeps. [HTTPProbe] is the probe used for agent health endpoints: a
// GET that counts only HTTP 200 as healthy.
//
// Probe failures are expected while a process boots. They are logged
// at debug level and never surface individually; only the overall
// outcome does.
package readiness

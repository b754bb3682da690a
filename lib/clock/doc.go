// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction so that
// deadline-driven loops (agent readiness polling in particular) can be
// tested without wall-clock sleeps.
//
// Production code holds a [Clock] and calls Now, After, or Sleep on it
// instead of the time package. [Real] forwards to the time package.
// [Fake] returns a [FakeClock] whose time only moves when Advance is
// called:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go poll(ctx, c)
//	c.WaitForTimers(1)         // poll goroutine is now waiting
//	c.Advance(2 * time.Second) // release it deterministically
//
// WaitForTimers closes the race between a goroutine registering a
// timer and the test advancing past it.
//
// This package has no dependencies on other wsmaster packages.
package clock

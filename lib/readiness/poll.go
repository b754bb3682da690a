// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package readiness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bureau-foundation/wsmaster/lib/clock"
)

// State is the position of a poll in its lifecycle.
type State int

const (
	// Polling is the state from the first probe until a verdict.
	Polling State = iota

	// Ready means a probe reported healthy before the deadline.
	Ready

	// Exhausted means the deadline passed without a healthy probe.
	Exhausted

	// Cancelled means the caller's context ended first.
	Cancelled
)

func (s State) String() string {
	switch s {
	case Polling:
		return "polling"
	case Ready:
		return "ready"
	case Exhausted:
		return "exhausted"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrExhausted is returned by Poll when the deadline passes without a
// healthy probe.
var ErrExhausted = errors.New("readiness deadline exhausted")

// Probe performs one readiness check. It reports true only when the
// target is healthy. An error means "not yet healthy" and is logged,
// not propagated. A probe must return promptly once ctx is done.
type Probe func(ctx context.Context) (bool, error)

// Options bounds a poll.
type Options struct {
	// MaxDuration is the total time allowed, measured from the start
	// of Poll. No probe starts at or after the deadline.
	MaxDuration time.Duration

	// Delay is the pause after each unhealthy probe.
	Delay time.Duration
}

// Validate rejects options that would never probe or would spin.
func (o Options) Validate() error {
	if o.MaxDuration <= 0 {
		return fmt.Errorf("readiness max duration must be positive, got %s", o.MaxDuration)
	}
	if o.Delay <= 0 {
		return fmt.Errorf("readiness delay must be positive, got %s", o.Delay)
	}
	return nil
}

// Result is the outcome of a poll.
type Result struct {
	State   State
	Probes  int
	Elapsed time.Duration
}

// Poll calls probe until it reports healthy, the deadline passes, or
// ctx is done.
//
// Each iteration first checks the deadline, then probes, then waits
// Delay, cut short at the deadline. With a probe that never succeeds
// this makes ceil(MaxDuration / Delay) probes (fewer if probes
// themselves are slow) and returns Exhausted once MaxDuration has
// elapsed, without waiting out a delay that starts past the deadline.
//
// Returns a nil error with State Ready, ErrExhausted with State
// Exhausted, or ctx.Err() with State Cancelled. Cancellation
// interrupts the wait between probes and is checked after every
// probe, so it is never reported as exhaustion.
func Poll(ctx context.Context, clk clock.Clock, probe Probe, options Options, logger *slog.Logger) (Result, error) {
	if err := options.Validate(); err != nil {
		return Result{}, err
	}

	start := clk.Now()
	deadline := start.Add(options.MaxDuration)
	result := Result{State: Polling}

	finish := func(state State, err error) (Result, error) {
		result.State = state
		result.Elapsed = clk.Now().Sub(start)
		return result, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return finish(Cancelled, err)
		}
		if !clk.Now().Before(deadline) {
			return finish(Exhausted, ErrExhausted)
		}

		result.Probes++
		healthy, err := probe(ctx)
		if healthy && err == nil {
			return finish(Ready, nil)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return finish(Cancelled, ctxErr)
		}
		if err != nil {
			logger.Debug("readiness probe failed",
				"attempt", result.Probes,
				"error", err,
			)
		}

		// A slow probe may overrun the deadline, and the wait never
		// extends past it.
		now := clk.Now()
		if !now.Before(deadline) {
			return finish(Exhausted, ErrExhausted)
		}
		wait := min(options.Delay, deadline.Sub(now))

		select {
		case <-ctx.Done():
			return finish(Cancelled, ctx.Err())
		case <-clk.After(wait):
		}
	}
}

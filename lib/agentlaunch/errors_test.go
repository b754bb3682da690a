// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agentlaunch

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestLaunchErrorMatching(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")
	tests := []struct {
		err      *LaunchError
		sentinel error
		message  string
	}{
		{
			err:      &LaunchError{Kind: EndpointNotFound, Message: "server 4401/tcp not found"},
			sentinel: ErrEndpointNotFound,
			message:  "server 4401/tcp not found",
		},
		{
			err:      &LaunchError{Kind: DispatchFailed, Message: "dispatching workspace agent", Err: cause},
			sentinel: ErrDispatchFailed,
			message:  "dispatching workspace agent: connection reset",
		},
		{
			err:      &LaunchError{Kind: Timeout, Message: "Timeout. Try again later.", Err: errors.New("exhausted")},
			sentinel: ErrLaunchTimeout,
			message:  "Timeout. Try again later.",
		},
		{
			err:      &LaunchError{Kind: Cancelled, Message: "cancelled", Err: context.Canceled},
			sentinel: ErrCancelled,
			message:  "cancelled: context canceled",
		},
	}
	for _, test := range tests {
		wrapped := fmt.Errorf("starting workspace: %w", test.err)
		if !errors.Is(wrapped, test.sentinel) {
			t.Errorf("%s: errors.Is(%v) = false", test.err.Kind, test.sentinel)
		}
		if KindOf(wrapped) != test.err.Kind {
			t.Errorf("%s: KindOf = %s", test.err.Kind, KindOf(wrapped))
		}
		if test.err.Error() != test.message {
			t.Errorf("%s: Error() = %q, want %q", test.err.Kind, test.err.Error(), test.message)
		}
		for _, other := range []error{ErrEndpointNotFound, ErrDispatchFailed, ErrLaunchTimeout, ErrCancelled} {
			if other != test.sentinel && errors.Is(test.err, other) {
				t.Errorf("%s also matches %v", test.err.Kind, other)
			}
		}
	}

	if KindOf(errors.New("plain")) != 0 {
		t.Error("KindOf(plain error) != 0")
	}
	if got := ErrorKind(9).String(); got != "ErrorKind(9)" {
		t.Errorf("String() = %q", got)
	}
}

func TestAttemptID(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	id := AttemptID("workspace-1", "dev-machine", "catalina.sh run", start)

	if len(id) != 32 {
		t.Errorf("len(AttemptID) = %d, want 32 hex characters", len(id))
	}
	if again := AttemptID("workspace-1", "dev-machine", "catalina.sh run", start); again != id {
		t.Errorf("AttemptID not deterministic: %s vs %s", id, again)
	}

	variants := []string{
		AttemptID("workspace-2", "dev-machine", "catalina.sh run", start),
		AttemptID("workspace-1", "other", "catalina.sh run", start),
		AttemptID("workspace-1", "dev-machine", "catalina.sh stop", start),
		AttemptID("workspace-1", "dev-machine", "catalina.sh run", start.Add(time.Nanosecond)),
		// Same concatenated bytes, different field boundaries.
		AttemptID("workspace-1dev", "-machine", "catalina.sh run", start),
	}
	for i, variant := range variants {
		if variant == id {
			t.Errorf("variant %d collides with the base attempt ID", i)
		}
	}
}

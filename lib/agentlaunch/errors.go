// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agentlaunch

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a launch failure.
type ErrorKind int

const (
	// EndpointNotFound: the machine has no health server for the
	// agent. A configuration problem; retrying will not help.
	EndpointNotFound ErrorKind = iota + 1

	// DispatchFailed: the machine refused or could not accept the
	// launch command.
	DispatchFailed

	// Timeout: the agent did not answer its health check before the
	// start deadline.
	Timeout

	// Cancelled: the caller's context ended before a verdict.
	Cancelled
)

func (k ErrorKind) String() string {
	switch k {
	case EndpointNotFound:
		return "endpoint not found"
	case DispatchFailed:
		return "dispatch failed"
	case Timeout:
		return "launch timeout"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Sentinels matched by errors.Is against a *LaunchError of the
// corresponding kind.
var (
	ErrEndpointNotFound = errors.New("agent endpoint not found")
	ErrDispatchFailed   = errors.New("agent launch dispatch failed")
	ErrLaunchTimeout    = errors.New("agent launch timed out")
	ErrCancelled        = errors.New("agent launch cancelled")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case EndpointNotFound:
		return ErrEndpointNotFound
	case DispatchFailed:
		return ErrDispatchFailed
	case Timeout:
		return ErrLaunchTimeout
	case Cancelled:
		return ErrCancelled
	default:
		return nil
	}
}

// LaunchError is the error returned by Launch.
type LaunchError struct {
	Kind        ErrorKind
	Agent       string
	WorkspaceID string
	MachineID   string

	// Message is the human-readable failure. For Timeout it is the
	// configured timeout message, returned by Error unchanged so it
	// can be shown to end users as-is.
	Message string

	// Err is the underlying cause: the executor's error for
	// DispatchFailed, the context error for Cancelled.
	Err error
}

func (e *LaunchError) Error() string {
	if e.Kind == Timeout || e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

// Unwrap exposes both the kind's sentinel and the cause to errors.Is
// and errors.As.
func (e *LaunchError) Unwrap() []error {
	var wrapped []error
	if sentinel := e.Kind.sentinel(); sentinel != nil {
		wrapped = append(wrapped, sentinel)
	}
	if e.Err != nil {
		wrapped = append(wrapped, e.Err)
	}
	return wrapped
}

// KindOf returns the Kind of the first *LaunchError in err's chain, or
// 0 if there is none.
func KindOf(err error) ErrorKind {
	var launchError *LaunchError
	if errors.As(err, &launchError) {
		return launchError.Kind
	}
	return 0
}

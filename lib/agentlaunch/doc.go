// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package agentlaunch starts long-running agents on machines and
// supervises them until they are ready or have failed.
//
// A [Launcher] serves one (agent name, machine kind) pair; a [Set]
// routes between them. [WorkspaceAgentLauncher] is the launcher for
// the workspace agent on docker machines: it finds the agent's health
// server on the machine, dispatches the bootstrap script followed by
// the run command, and polls the health URL through
// [readiness.Poll] until it answers 200 or the start deadline passes.
//
// Failures are reported as *[LaunchError] values whose Kind places
// them in a fixed taxonomy. Each kind also matches a sentinel through
// errors.Is:
//
//	err := launcher.Launch(ctx, m, agent)
//	switch {
//	case errors.Is(err, agentlaunch.ErrLaunchTimeout):
//		// the agent never became healthy
//	case errors.Is(err, agentlaunch.ErrCancelled):
//		// ctx ended; errors.Is(err, context.Canceled) also holds
//	}
//
// Dispatch is never retried. Only the health probe is repeated, and
// only until the deadline.
package agentlaunch

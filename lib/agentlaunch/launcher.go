// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agentlaunch

import (
	"context"

	"github.com/bureau-foundation/wsmaster/lib/machine"
)

// Agent is the launchable part of an agent definition.
type Agent struct {
	// Name identifies the agent. Informational: the launcher's own
	// AgentName is what gets dispatched.
	Name string

	// Script is the bootstrap script run before the agent itself
	// (installing files, exporting environment).
	Script string

	// RunCommand overrides the launcher's run command when non-empty.
	RunCommand string
}

// Launcher starts one kind of agent on one kind of machine and waits
// for it to become ready. Launch blocks until the agent is healthy or
// the launch has failed; failures are *LaunchError values.
//
// Implementations must be safe for concurrent Launch calls against
// different machines.
type Launcher interface {
	AgentName() string
	MachineKind() string
	Launch(ctx context.Context, target *machine.Machine, agent Agent) error
}

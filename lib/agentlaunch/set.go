// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agentlaunch

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/bureau-foundation/wsmaster/lib/machine"
)

type launcherKey struct {
	agent       string
	machineKind string
}

// Set routes launches to the Launcher registered for an agent name and
// machine kind. Safe for concurrent use.
type Set struct {
	mu        sync.RWMutex
	launchers map[launcherKey]Launcher
}

// NewSet returns a set containing launchers. It fails if two of them
// serve the same agent and machine kind.
func NewSet(launchers ...Launcher) (*Set, error) {
	set := &Set{launchers: make(map[launcherKey]Launcher)}
	for _, launcher := range launchers {
		if err := set.Register(launcher); err != nil {
			return nil, err
		}
	}
	return set, nil
}

// Register adds launcher. Registering a second launcher for the same
// agent and machine kind is an error.
func (s *Set) Register(launcher Launcher) error {
	key := launcherKey{agent: launcher.AgentName(), machineKind: launcher.MachineKind()}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.launchers[key]; exists {
		return fmt.Errorf("launcher for agent %q on %q machines already registered", key.agent, key.machineKind)
	}
	s.launchers[key] = launcher
	return nil
}

// Lookup returns the launcher for agentName on machineKind machines.
func (s *Set) Lookup(agentName, machineKind string) (Launcher, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	launcher, exists := s.launchers[launcherKey{agent: agentName, machineKind: machineKind}]
	return launcher, exists
}

// Launch launches agentName on target using the launcher registered
// for target's kind.
func (s *Set) Launch(ctx context.Context, target *machine.Machine, agentName string, agent Agent) error {
	launcher, exists := s.Lookup(agentName, target.Kind)
	if !exists {
		return fmt.Errorf("no launcher for agent %q on %q machines", agentName, target.Kind)
	}
	return launcher.Launch(ctx, target, agent)
}

// Agents returns "agent/kind" for every registered launcher, sorted.
func (s *Set) Agents() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	agents := make([]string, 0, len(s.launchers))
	for key := range s.launchers {
		agents = append(agents, key.agent+"/"+key.machineKind)
	}
	sort.Strings(agents)
	return agents
}

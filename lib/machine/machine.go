// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package machine

import (
	"context"
	"fmt"
	"sort"
)

// Server is one network endpoint exposed by a machine.
type Server struct {
	// Protocol is the URL scheme ("http", "ws"). Optional: raw TCP
	// endpoints have none.
	Protocol string `json:"protocol,omitempty"`

	// Address is the externally reachable host:port.
	Address string `json:"address"`

	// Properties carries addressing used from inside the platform.
	Properties ServerProperties `json:"properties"`
}

// ServerProperties holds the internal addressing of a server.
type ServerProperties struct {
	// InternalAddress is the host:port reachable from the workspace
	// master.
	InternalAddress string `json:"internal_address,omitempty"`

	// InternalURL is the URL used for health checks and API calls
	// from the workspace master.
	InternalURL string `json:"internal_url,omitempty"`
}

// Runtime is the live state of a machine.
type Runtime struct {
	// Servers maps server references ("4401/tcp", "8080/tcp") to
	// their endpoints.
	Servers map[string]Server `json:"servers"`
}

// Machine is a single execution target within a workspace.
type Machine struct {
	ID          string  `json:"id"`
	WorkspaceID string  `json:"workspace_id"`
	Kind        string  `json:"kind"`
	Runtime     Runtime `json:"runtime"`
}

// Server returns the server registered under ref.
func (m *Machine) Server(ref string) (Server, bool) {
	server, exists := m.Runtime.Servers[ref]
	return server, exists
}

// ServerRefs returns the server references in sorted order.
func (m *Machine) ServerRefs() []string {
	refs := make([]string, 0, len(m.Runtime.Servers))
	for ref := range m.Runtime.Servers {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}

// Validate checks the fields every consumer relies on.
func (m *Machine) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("machine id is required")
	}
	if m.WorkspaceID == "" {
		return fmt.Errorf("machine %s: workspace_id is required", m.ID)
	}
	for ref, server := range m.Runtime.Servers {
		if ref == "" {
			return fmt.Errorf("machine %s: server with empty reference", m.ID)
		}
		if server.Address == "" && server.Properties.InternalURL == "" {
			return fmt.Errorf("machine %s: server %q has neither address nor internal_url", m.ID, ref)
		}
	}
	return nil
}

// Command is a command line submitted for execution on a machine.
type Command struct {
	// Name identifies the submitter, e.g. the agent name.
	Name string `json:"name"`

	// CommandLine is passed to the machine's shell verbatim.
	CommandLine string `json:"command_line"`

	// Type marks the command for observers tracking it (for example
	// the workspace agent process marker).
	Type string `json:"type"`
}

// Executor submits commands to machines. Exec returns once the
// command has been accepted for execution; it does not wait for the
// command to finish. Output is published on outputChannel.
//
// Implementations must be safe for concurrent use.
type Executor interface {
	Exec(ctx context.Context, workspaceID, machineID string, command Command, outputChannel string) error
}

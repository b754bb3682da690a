// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package macro

import (
	"strings"
	"sync"

	"github.com/bureau-foundation/wsmaster/lib/machine"
)

const (
	serverDescription         = "Returns protocol, hostname and port of an internal server"
	serverProtocolDescription = "Returns protocol of a server registered by name"
)

// ServerProviders builds the server macros for a machine's runtime.
// For each server reference ref:
//
//   - ${server.<ref>} expands to "<protocol>://<address>/", or just the
//     address when the server has no protocol.
//   - ${server.<ref>.protocol} expands to the protocol. Only servers
//     with a protocol get one.
//
// References ending in "/tcp" also get both macros under the bare port
// ("${server.8080}" alongside "${server.8080/tcp}").
//
// Values are captured when ServerProviders is called; rebuild the set
// when the runtime changes.
func ServerProviders(servers map[string]machine.Server) []Provider {
	var providers []Provider
	for ref, server := range servers {
		names := []string{ref}
		if port, isTCP := strings.CutSuffix(ref, "/tcp"); isTCP {
			names = append(names, port)
		}

		address := server.Address
		if server.Protocol != "" {
			address = server.Protocol + "://" + server.Address + "/"
		}

		for _, name := range names {
			providers = append(providers,
				NewStaticProvider("${server."+name+"}", address, serverDescription))
			if server.Protocol != "" {
				providers = append(providers,
					NewStaticProvider("${server."+name+".protocol}", server.Protocol, serverProtocolDescription))
			}
		}
	}
	return providers
}

// ServerMacros keeps a registry's server macros in step with one
// machine. Each Bind replaces the previous machine's macros.
type ServerMacros struct {
	registry *Registry

	mu    sync.Mutex
	bound []Provider
}

// NewServerMacros returns a binding that registers into registry.
func NewServerMacros(registry *Registry) *ServerMacros {
	return &ServerMacros{registry: registry}
}

// Bind unregisters the macros of any previously bound machine and
// registers the server macros of m. Names already owned by another
// component stay with that component.
func (s *ServerMacros) Bind(m *machine.Machine) {
	providers := ServerProviders(m.Runtime.Servers)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.unbindLocked()
	s.registry.Register(providers...)

	// Only keep the providers that actually won registration, so a
	// later Unbind does not remove another component's macro.
	for _, provider := range providers {
		if registered, exists := s.registry.Provider(provider.Name()); exists && registered == provider {
			s.bound = append(s.bound, provider)
		}
	}
}

// Unbind removes the macros registered by the last Bind.
func (s *ServerMacros) Unbind() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unbindLocked()
}

func (s *ServerMacros) unbindLocked() {
	for _, provider := range s.bound {
		s.registry.Unregister(provider)
	}
	s.bound = nil
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package macro

import (
	"context"
	"reflect"
	"testing"

	"github.com/bureau-foundation/wsmaster/lib/machine"
)

func providerValues(t *testing.T, providers []Provider) map[string]string {
	t.Helper()
	values := make(map[string]string, len(providers))
	for _, provider := range providers {
		value, err := provider.Expand(context.Background())
		if err != nil {
			t.Fatalf("%s: %v", provider.Name(), err)
		}
		values[provider.Name()] = value
	}
	return values
}

func TestServerProviders(t *testing.T) {
	t.Parallel()

	providers := ServerProviders(map[string]machine.Server{
		"4401/tcp": {Protocol: "http", Address: "localhost:32768"},
		"22/tcp":   {Address: "localhost:32769"},
		"9000/udp": {Protocol: "udp", Address: "localhost:32770"},
	})

	want := map[string]string{
		"${server.4401/tcp}":          "http://localhost:32768/",
		"${server.4401/tcp.protocol}": "http",
		"${server.4401}":              "http://localhost:32768/",
		"${server.4401.protocol}":     "http",
		"${server.22/tcp}":            "localhost:32769",
		"${server.22}":                "localhost:32769",
		"${server.9000/udp}":          "udp://localhost:32770/",
		"${server.9000/udp.protocol}": "udp",
	}
	if got := providerValues(t, providers); !reflect.DeepEqual(got, want) {
		t.Errorf("server macros = %v, want %v", got, want)
	}
}

func TestServerMacrosBind(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(discardLogger())
	expander := NewExpander(registry, discardLogger())
	binding := NewServerMacros(registry)

	// Owned by someone else: Bind must not take it over or remove it.
	foreign := NewStaticProvider("${server.22}", "foreign", "")
	registry.Register(foreign)

	first := &machine.Machine{ID: "m1", WorkspaceID: "w", Runtime: machine.Runtime{Servers: map[string]machine.Server{
		"4401/tcp": {Protocol: "http", Address: "host-a:1"},
		"22/tcp":   {Address: "host-a:2"},
	}}}
	binding.Bind(first)

	template := "${server.4401} ${server.22} ${server.8080}"
	if got, want := expander.Expand(context.Background(), template), "http://host-a:1/ foreign ${server.8080}"; got != want {
		t.Errorf("after first Bind: %q, want %q", got, want)
	}

	second := &machine.Machine{ID: "m1", WorkspaceID: "w", Runtime: machine.Runtime{Servers: map[string]machine.Server{
		"8080/tcp": {Protocol: "http", Address: "host-b:3"},
	}}}
	binding.Bind(second)
	if got, want := expander.Expand(context.Background(), template), "${server.4401} foreign http://host-b:3/"; got != want {
		t.Errorf("after rebind: %q, want %q", got, want)
	}

	binding.Unbind()
	if got, want := registry.Keys(), []string{"${server.22}"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Keys after Unbind = %v, want %v", got, want)
	}
}

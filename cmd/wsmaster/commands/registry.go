// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/bureau-foundation/wsmaster/lib/machine"
	"github.com/bureau-foundation/wsmaster/lib/macro"
)

const definedMacroDescription = "Defined on the command line"

// parseDefinition turns a --define argument into a provider.
// "project.path=/projects/demo" and "${project.path}=/projects/demo"
// both define ${project.path}.
func parseDefinition(definition string) (macro.Provider, error) {
	name, value, found := strings.Cut(definition, "=")
	if !found || name == "" {
		return nil, fmt.Errorf("invalid --define %q: expected NAME=VALUE", definition)
	}
	if !strings.HasPrefix(name, "${") {
		name = "${" + name + "}"
	}
	if !macro.IsToken(name) {
		return nil, fmt.Errorf("invalid --define %q: %s is not a valid macro name", definition, name)
	}
	return macro.NewStaticProvider(name, value, definedMacroDescription), nil
}

// buildRegistry registers the command-line definitions, then the
// server macros of target. Definitions are registered first, so they
// take precedence over server macros of the same name.
func buildRegistry(logger *slog.Logger, target *machine.Machine, definitions []string) (*macro.Registry, error) {
	registry := macro.NewRegistry(logger)
	for _, definition := range definitions {
		provider, err := parseDefinition(definition)
		if err != nil {
			return nil, err
		}
		registry.Register(provider)
	}
	if target != nil {
		macro.NewServerMacros(registry).Bind(target)
	}
	return registry, nil
}

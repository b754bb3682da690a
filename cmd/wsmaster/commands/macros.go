// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/wsmaster/cmd/wsmaster/cli"
	"github.com/bureau-foundation/wsmaster/lib/machine"
	"github.com/bureau-foundation/wsmaster/lib/macro"
)

type macroEntry struct {
	Name        string `json:"name"`
	Value       string `json:"value"`
	Description string `json:"description"`
	Error       string `json:"error,omitempty"`
}

func macrosCommand(stdout io.Writer) *cli.Command {
	var (
		machinePath string
		definitions []string
		jsonOutput  bool
	)

	return &cli.Command{
		Name:    "macros",
		Summary: "List the command macros available for a machine",
		Description: `List every registered command macro with its current value.

Server macros come from the machine descriptor's runtime servers;
--define adds operator macros (which win over server macros of the
same name).`,
		Examples: []cli.Example{
			{
				Description: "List the macros of a dev machine",
				Command:     "wsmaster macros --machine dev-machine.jsonc",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("macros", pflag.ContinueOnError)
			flagSet.StringVar(&machinePath, "machine", "", "machine descriptor file (JSONC)")
			flagSet.StringArrayVar(&definitions, "define", nil, "define a macro as NAME=VALUE (repeatable)")
			flagSet.BoolVar(&jsonOutput, "json", false, "write JSON instead of a table")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected arguments: %v", args)
			}
			logger := cli.NewCommandLogger(slog.LevelWarn)

			var target *machine.Machine
			if machinePath != "" {
				loaded, err := machine.LoadFile(machinePath)
				if err != nil {
					return err
				}
				target = loaded
			}
			registry, err := buildRegistry(logger, target, definitions)
			if err != nil {
				return err
			}

			entries := listMacros(ctx, registry, logger)
			if jsonOutput {
				encoder := json.NewEncoder(stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(entries)
			}

			table := tabwriter.NewWriter(stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintf(table, "MACRO\tVALUE\tDESCRIPTION\n")
			for _, entry := range entries {
				fmt.Fprintf(table, "%s\t%s\t%s\n", entry.Name, entry.Value, entry.Description)
			}
			return table.Flush()
		},
	}
}

// listMacros evaluates every registered provider, in name order. A
// provider that fails keeps its token verbatim as the value and
// records the error; the other entries are unaffected.
func listMacros(ctx context.Context, registry *macro.Registry, logger *slog.Logger) []macroEntry {
	providers := registry.Providers()
	entries := make([]macroEntry, 0, len(providers))
	for _, provider := range providers {
		entry := macroEntry{
			Name:        provider.Name(),
			Description: provider.Description(),
		}
		value, err := provider.Expand(ctx)
		if err != nil {
			logger.Warn("command macro expansion failed",
				"macro", provider.Name(),
				"error", err,
			)
			entry.Value = provider.Name()
			entry.Error = err.Error()
		} else {
			entry.Value = value
		}
		entries = append(entries, entry)
	}
	return entries
}

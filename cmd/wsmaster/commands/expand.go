// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/wsmaster/cmd/wsmaster/cli"
	"github.com/bureau-foundation/wsmaster/lib/machine"
	"github.com/bureau-foundation/wsmaster/lib/macro"
)

func expandCommand(stdout io.Writer) *cli.Command {
	var (
		machinePath  string
		definitions  []string
		templateFile string
	)

	return &cli.Command{
		Name:    "expand",
		Summary: "Expand command macros in a template",
		Usage:   "wsmaster expand [flags] TEMPLATE...",
		Description: `Expand registered ${...} macros in a command template and print the
result. Arguments are joined with spaces; --file reads the template
from a file ("-" for stdin) instead.

Unregistered tokens such as ${HOME} are left for the shell. A macro
whose provider fails is left unexpanded and logged.`,
		Examples: []cli.Example{
			{
				Description: "Build a curl command against the workspace agent",
				Command:     "wsmaster expand --machine dev-machine.jsonc 'curl ${server.4401}api/'",
			},
			{
				Description: "Expand a script with an operator-defined macro",
				Command:     "wsmaster expand --define project.path=/projects/demo --file build.sh",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("expand", pflag.ContinueOnError)
			flagSet.StringVar(&machinePath, "machine", "", "machine descriptor file (JSONC)")
			flagSet.StringArrayVar(&definitions, "define", nil, "define a macro as NAME=VALUE (repeatable)")
			flagSet.StringVar(&templateFile, "file", "", `read the template from a file ("-" for stdin)`)
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			template, err := readTemplate(args, templateFile)
			if err != nil {
				return err
			}
			logger := cli.NewCommandLogger(slog.LevelWarn)

			var target *machine.Machine
			if machinePath != "" {
				if target, err = machine.LoadFile(machinePath); err != nil {
					return err
				}
			}
			registry, err := buildRegistry(logger, target, definitions)
			if err != nil {
				return err
			}

			expanded := macro.NewExpander(registry, logger).Expand(ctx, template)
			if !strings.HasSuffix(expanded, "\n") {
				expanded += "\n"
			}
			_, err = io.WriteString(stdout, expanded)
			return err
		},
	}
}

func readTemplate(args []string, templateFile string) (string, error) {
	switch {
	case templateFile != "" && len(args) > 0:
		return "", errors.New("pass the template as arguments or --file, not both")
	case templateFile == "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading template from stdin: %w", err)
		}
		return string(data), nil
	case templateFile != "":
		data, err := os.ReadFile(templateFile)
		if err != nil {
			return "", fmt.Errorf("reading template: %w", err)
		}
		return string(data), nil
	case len(args) == 0:
		return "", errors.New("template required")
	default:
		return strings.Join(args, " "), nil
	}
}

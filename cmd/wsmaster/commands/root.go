// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands defines the wsmaster command tree.
package commands

import (
	"io"
	"os"

	"github.com/bureau-foundation/wsmaster/cmd/wsmaster/cli"
)

// Root returns the wsmaster root command writing results to stdout.
func Root() *cli.Command {
	return rootCommand(os.Stdout)
}

func rootCommand(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "wsmaster",
		Summary: "Workspace master: command macros and agent launch",
		Description: `Workspace master tools.

Inspect and expand the ${...} command macros a machine contributes, and
launch the workspace agent on a machine, waiting until its health
endpoint answers.`,
		Subcommands: []*cli.Command{
			macrosCommand(stdout),
			expandCommand(stdout),
			launchCommand(stdout),
		},
	}
}

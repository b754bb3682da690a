// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Wsmaster is the operator CLI for workspace command macros and agent
// launch. See "wsmaster --help".
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bureau-foundation/wsmaster/cmd/wsmaster/commands"
	"github.com/bureau-foundation/wsmaster/lib/process"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return commands.Root().Execute(ctx, os.Args[1:])
}

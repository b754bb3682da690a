// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Wsmaster-machine is the exec daemon for one machine. It serves the
// machine's descriptor and accepts commands over a CBOR Unix socket,
// running each in its own process group with output captured per
// channel under paths.output.
//
// Usage:
//
//	wsmaster-machine --config wsmaster.yaml [--socket PATH] [--descriptor FILE]
//
// On SIGINT or SIGTERM the daemon stops accepting requests, sends
// SIGTERM to every running command, and escalates to SIGKILL after
// --shutdown-timeout.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/wsmaster/lib/config"
	"github.com/bureau-foundation/wsmaster/lib/machine"
	"github.com/bureau-foundation/wsmaster/lib/outputlog"
	"github.com/bureau-foundation/wsmaster/lib/process"
	"github.com/bureau-foundation/wsmaster/lib/service"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

type daemonFlags struct {
	configPath      string
	socketPath      string
	descriptorPath  string
	shutdownTimeout time.Duration
}

func parseFlags(args []string) (daemonFlags, error) {
	var flags daemonFlags
	flagSet := pflag.NewFlagSet("wsmaster-machine", pflag.ContinueOnError)
	flagSet.StringVar(&flags.configPath, "config", "", "config file (default: $WSMASTER_CONFIG)")
	flagSet.StringVar(&flags.socketPath, "socket", "", "socket to serve (default: machine.socket_path)")
	flagSet.StringVar(&flags.descriptorPath, "descriptor", "", "machine descriptor (default: machine.descriptor, else machine.jsonc in paths.state)")
	flagSet.DurationVar(&flags.shutdownTimeout, "shutdown-timeout", 10*time.Second, "grace period before running commands are killed")
	if err := flagSet.Parse(args); err != nil {
		return daemonFlags{}, err
	}
	if flagSet.NArg() > 0 {
		return daemonFlags{}, fmt.Errorf("unexpected arguments: %v", flagSet.Args())
	}
	return flags, nil
}

// daemonSettings is the resolved configuration the daemon runs with.
type daemonSettings struct {
	socketPath      string
	machine         *machine.Machine
	runner          machine.LocalRunnerConfig
	shutdownTimeout time.Duration
}

func resolveSettings(flags daemonFlags) (daemonSettings, error) {
	var (
		cfg *config.Config
		err error
	)
	if flags.configPath != "" {
		cfg, err = config.LoadFile(flags.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return daemonSettings{}, err
	}
	if err := cfg.Validate(); err != nil {
		return daemonSettings{}, fmt.Errorf("invalid configuration: %w", err)
	}

	settings := daemonSettings{
		socketPath:      cfg.Machine.SocketPath,
		shutdownTimeout: flags.shutdownTimeout,
	}
	if flags.socketPath != "" {
		settings.socketPath = flags.socketPath
	}

	descriptorPath := cfg.DescriptorPath()
	if flags.descriptorPath != "" {
		descriptorPath = flags.descriptorPath
	}
	if descriptorPath == "" {
		return daemonSettings{}, errors.New("no machine descriptor: set machine.descriptor or paths.state, or pass --descriptor")
	}
	if settings.machine, err = machine.LoadFile(descriptorPath); err != nil {
		return daemonSettings{}, err
	}

	compression, err := outputlog.ParseCompression(cfg.Machine.OutputCompression)
	if err != nil {
		return daemonSettings{}, err
	}
	if err := cfg.EnsurePaths(); err != nil {
		return daemonSettings{}, err
	}
	if err := os.MkdirAll(filepath.Dir(settings.socketPath), 0o755); err != nil {
		return daemonSettings{}, fmt.Errorf("creating socket directory: %w", err)
	}
	settings.runner = machine.LocalRunnerConfig{
		Shell:           cfg.Machine.Shell,
		OutputDirectory: cfg.Paths.Output,
		Compression:     compression,
	}
	return settings, nil
}

func run(args []string) error {
	flags, err := parseFlags(args)
	if err != nil {
		return err
	}
	settings, err := resolveSettings(flags)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})).With(
		"workspace_id", settings.machine.WorkspaceID,
		"machine_id", settings.machine.ID,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, settings, logger)
}

// serve runs the daemon until ctx is done, then drains running
// commands.
func serve(ctx context.Context, settings daemonSettings, logger *slog.Logger) error {
	runner := machine.NewLocalRunner(settings.runner, logger)
	server := service.NewSocketServer(settings.socketPath, logger)
	machine.NewExecHandler(settings.machine, runner, logger).Register(server)

	serveDone := make(chan error, 1)
	go func() {
		serveDone <- server.Serve(ctx)
	}()

	logger.Info("machine daemon running",
		"socket", settings.socketPath,
		"servers", settings.machine.ServerRefs(),
		"output_directory", settings.runner.OutputDirectory,
	)

	var serveError error
	select {
	case serveError = <-serveDone:
		// Serve only returns early on a listen failure.
	case <-ctx.Done():
		logger.Info("shutting down")
		serveError = <-serveDone
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), settings.shutdownTimeout)
	defer cancel()
	if err := runner.Shutdown(shutdownCtx); err != nil {
		logger.Warn("running commands killed after shutdown timeout", "error", err)
	}
	return serveError
}

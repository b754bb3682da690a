// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/wsmaster/cmd/wsmaster/cli"
	"github.com/bureau-foundation/wsmaster/lib/agentlaunch"
	"github.com/bureau-foundation/wsmaster/lib/config"
	"github.com/bureau-foundation/wsmaster/lib/machine"
	"github.com/bureau-foundation/wsmaster/lib/macro"
)

type launchOptions struct {
	configPath  string
	machinePath string
	socketPath  string
	scriptPath  string
	runCommand  string
	definitions []string
	verbose     bool
}

func launchCommand(stdout io.Writer) *cli.Command {
	var options launchOptions

	return &cli.Command{
		Name:    "launch",
		Summary: "Launch the workspace agent on a machine and wait until it is ready",
		Description: `Dispatch the workspace agent to a machine daemon and poll the agent's
health endpoint until it answers 200 or launcher.max_start_time passes.

The machine is read from --machine, or fetched from the daemon when
--machine is omitted. The dispatched command is the --script file, a
newline, then the run command, with command macros expanded.

Exit status is non-zero when the agent server is missing from the
machine, the daemon refuses the command, the deadline passes, or the
launch is interrupted.`,
		Examples: []cli.Example{
			{
				Description: "Launch with the configured run command",
				Command:     "wsmaster launch --config wsmaster.yaml --script agent-setup.sh",
			},
			{
				Description: "Launch against an explicit descriptor and daemon socket",
				Command:     "wsmaster launch --machine dev-machine.jsonc --socket /run/wsmaster/dev.sock --run-command '/opt/agent/run.sh'",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("launch", pflag.ContinueOnError)
			flagSet.StringVar(&options.configPath, "config", "", "config file (default: $WSMASTER_CONFIG)")
			flagSet.StringVar(&options.machinePath, "machine", "", "machine descriptor file (JSONC); default: ask the daemon")
			flagSet.StringVar(&options.socketPath, "socket", "", "machine daemon socket (default: machine.socket_path)")
			flagSet.StringVar(&options.scriptPath, "script", "", "agent bootstrap script file")
			flagSet.StringVar(&options.runCommand, "run-command", "", "override the agent run command")
			flagSet.StringArrayVar(&options.definitions, "define", nil, "define a macro as NAME=VALUE (repeatable)")
			flagSet.BoolVarP(&options.verbose, "verbose", "v", false, "log each probe")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected arguments: %v", args)
			}
			level := slog.LevelInfo
			if options.verbose {
				level = slog.LevelDebug
			}
			if err := runLaunch(ctx, options, cli.NewCommandLogger(level)); err != nil {
				return err
			}
			_, err := fmt.Fprintln(stdout, "workspace agent ready")
			return err
		},
	}
}

func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runLaunch(ctx context.Context, options launchOptions, logger *slog.Logger) error {
	cfg, err := loadConfig(options.configPath)
	if err != nil {
		return err
	}

	socketPath := options.socketPath
	if socketPath == "" {
		socketPath = cfg.Machine.SocketPath
	}
	executor := machine.NewSocketExecutor(socketPath)

	var target *machine.Machine
	if options.machinePath != "" {
		target, err = machine.LoadFile(options.machinePath)
	} else {
		target, err = executor.Describe(ctx)
	}
	if err != nil {
		return fmt.Errorf("resolving machine: %w", err)
	}

	var script string
	if options.scriptPath != "" {
		data, err := os.ReadFile(options.scriptPath)
		if err != nil {
			return fmt.Errorf("reading agent script: %w", err)
		}
		script = string(data)
	}

	registry, err := buildRegistry(logger, target, options.definitions)
	if err != nil {
		return err
	}

	launcher, err := agentlaunch.NewWorkspaceAgentLauncher(agentlaunch.WorkspaceAgentConfig{
		MaxStartTime:          cfg.Launcher.MaxStartTime,
		PingDelay:             cfg.Launcher.PingDelay,
		PingConnectionTimeout: cfg.Launcher.PingConnectionTimeout,
		PingTimedOutMessage:   cfg.Launcher.PingTimedOutMessage,
		RunCommand:            cfg.Launcher.RunCommand,
		Executor:              executor,
		Expander:              macro.NewExpander(registry, logger),
		Logger:                logger,
	})
	if err != nil {
		return err
	}
	launchers, err := agentlaunch.NewSet(launcher)
	if err != nil {
		return err
	}

	return launchers.Launch(ctx, target, agentlaunch.WorkspaceAgentName, agentlaunch.Agent{
		Name:       agentlaunch.WorkspaceAgentName,
		Script:     script,
		RunCommand: options.runCommand,
	})
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agentlaunch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bureau-foundation/wsmaster/lib/clock"
	"github.com/bureau-foundation/wsmaster/lib/machine"
	"github.com/bureau-foundation/wsmaster/lib/macro"
	"github.com/bureau-foundation/wsmaster/lib/readiness"
)

// Workspace agent identity and conventions.
const (
	WorkspaceAgentName = "org.eclipse.che.ws-agent"
	DockerMachineKind  = "docker"

	// WorkspaceAgentServerRef is the server whose internal URL is the
	// agent's health endpoint.
	WorkspaceAgentServerRef = "4401/tcp"

	// WorkspaceAgentCommandType marks the dispatched command so
	// observers of the machine can recognize the agent process.
	WorkspaceAgentCommandType = "ws-agent"

	DefaultWorkspaceAgentRunCommand = "~/che/ws-agent/bin/catalina.sh run"
)

// WorkspaceAgentOutputChannel is the channel the agent's output is
// published on.
func WorkspaceAgentOutputChannel(workspaceID string) string {
	return fmt.Sprintf("workspace:%s:ext-server:output", workspaceID)
}

// WorkspaceAgentConfig configures a WorkspaceAgentLauncher.
type WorkspaceAgentConfig struct {
	// MaxStartTime bounds the wait for the first healthy probe.
	MaxStartTime time.Duration

	// PingDelay separates consecutive health probes.
	PingDelay time.Duration

	// PingConnectionTimeout bounds each health probe.
	PingConnectionTimeout time.Duration

	// PingTimedOutMessage is the Error text of a Timeout failure.
	// Empty selects a message naming MaxStartTime.
	PingTimedOutMessage string

	// RunCommand starts the agent after its script. Empty selects
	// DefaultWorkspaceAgentRunCommand. An Agent's own RunCommand takes
	// precedence over both.
	RunCommand string

	// Executor dispatches the launch command. Required.
	Executor machine.Executor

	// Expander, if set, expands macros in the composed command before
	// dispatch.
	Expander *macro.Expander

	// HTTPClient performs health probes. Nil uses http.DefaultClient.
	HTTPClient *http.Client

	// Clock drives the start deadline and probe spacing. Nil uses the
	// real clock.
	Clock clock.Clock

	Logger *slog.Logger
}

// WorkspaceAgentLauncher launches the workspace agent on docker
// machines.
type WorkspaceAgentLauncher struct {
	config WorkspaceAgentConfig
}

// NewWorkspaceAgentLauncher validates config and returns a launcher.
func NewWorkspaceAgentLauncher(config WorkspaceAgentConfig) (*WorkspaceAgentLauncher, error) {
	if config.Executor == nil {
		return nil, errors.New("workspace agent launcher: executor is required")
	}
	if config.Logger == nil {
		return nil, errors.New("workspace agent launcher: logger is required")
	}
	if err := (readiness.Options{MaxDuration: config.MaxStartTime, Delay: config.PingDelay}).Validate(); err != nil {
		return nil, fmt.Errorf("workspace agent launcher: %w", err)
	}
	if config.PingConnectionTimeout <= 0 {
		return nil, fmt.Errorf("workspace agent launcher: ping connection timeout must be positive, got %s", config.PingConnectionTimeout)
	}
	if config.PingTimedOutMessage == "" {
		config.PingTimedOutMessage = fmt.Sprintf("workspace agent did not become ready within %s", config.MaxStartTime)
	}
	if config.RunCommand == "" {
		config.RunCommand = DefaultWorkspaceAgentRunCommand
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.HTTPClient == nil {
		config.HTTPClient = http.DefaultClient
	}
	return &WorkspaceAgentLauncher{config: config}, nil
}

func (l *WorkspaceAgentLauncher) AgentName() string   { return WorkspaceAgentName }
func (l *WorkspaceAgentLauncher) MachineKind() string { return DockerMachineKind }

// ComposeCommand returns the command line dispatched for agent: the
// bootstrap script, a newline, then the run command. An empty script
// contributes nothing.
func (l *WorkspaceAgentLauncher) ComposeCommand(agent Agent) string {
	runCommand := agent.RunCommand
	if runCommand == "" {
		runCommand = l.config.RunCommand
	}
	if agent.Script == "" {
		return runCommand
	}
	return agent.Script + "\n" + runCommand
}

// Launch dispatches the workspace agent to target and waits until its
// health endpoint answers 200.
func (l *WorkspaceAgentLauncher) Launch(ctx context.Context, target *machine.Machine, agent Agent) error {
	start := l.config.Clock.Now()
	logger := l.config.Logger.With(
		"workspace_id", target.WorkspaceID,
		"machine_id", target.ID,
		"agent", WorkspaceAgentName,
	)
	fail := func(kind ErrorKind, message string, cause error) error {
		return &LaunchError{
			Kind:        kind,
			Agent:       WorkspaceAgentName,
			WorkspaceID: target.WorkspaceID,
			MachineID:   target.ID,
			Message:     message,
			Err:         cause,
		}
	}

	healthURL, err := l.healthURL(target)
	if err != nil {
		logger.Error("workspace agent server not found",
			"server_ref", WorkspaceAgentServerRef,
			"servers", target.ServerRefs(),
		)
		return fail(EndpointNotFound, err.Error(), nil)
	}

	commandLine := l.ComposeCommand(agent)
	if l.config.Expander != nil {
		commandLine = l.config.Expander.Expand(ctx, commandLine)
	}
	attemptID := AttemptID(target.WorkspaceID, target.ID, commandLine, start)
	logger = logger.With("attempt_id", attemptID)

	command := machine.Command{
		Name:        WorkspaceAgentName,
		CommandLine: commandLine,
		Type:        WorkspaceAgentCommandType,
	}
	if err := l.config.Executor.Exec(ctx, target.WorkspaceID, target.ID, command, WorkspaceAgentOutputChannel(target.WorkspaceID)); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fail(Cancelled, "workspace agent launch cancelled during dispatch", ctxErr)
		}
		logger.Error("dispatching workspace agent failed", "error", err)
		return fail(DispatchFailed, "dispatching workspace agent", err)
	}

	logger.Debug("pinging workspace agent", "url", healthURL)
	probe := readiness.HTTPProbe(l.config.HTTPClient, healthURL, l.config.PingConnectionTimeout)
	result, err := readiness.Poll(ctx, l.config.Clock, probe, readiness.Options{
		MaxDuration: l.config.MaxStartTime,
		Delay:       l.config.PingDelay,
	}, logger)

	switch result.State {
	case readiness.Ready:
		logger.Info("workspace agent ready",
			"url", healthURL,
			"probes", result.Probes,
			"elapsed", result.Elapsed,
		)
		return nil
	case readiness.Exhausted:
		logger.Error("workspace agent did not become ready",
			"url", healthURL,
			"probes", result.Probes,
			"elapsed", result.Elapsed,
		)
		return fail(Timeout, l.config.PingTimedOutMessage, err)
	case readiness.Cancelled:
		logger.Info("workspace agent launch cancelled", "probes", result.Probes)
		return fail(Cancelled, "workspace agent launch cancelled while waiting for readiness", err)
	default:
		return fmt.Errorf("polling workspace agent: %w", err)
	}
}

// healthURL returns the normalized internal URL of the agent server.
func (l *WorkspaceAgentLauncher) healthURL(target *machine.Machine) (string, error) {
	server, exists := target.Server(WorkspaceAgentServerRef)
	if !exists {
		return "", fmt.Errorf("workspace agent server %s not found in machine %s", WorkspaceAgentServerRef, target.ID)
	}
	if server.Properties.InternalURL == "" {
		return "", fmt.Errorf("workspace agent server %s of machine %s has no internal URL", WorkspaceAgentServerRef, target.ID)
	}
	return readiness.NormalizeHealthURL(server.Properties.InternalURL), nil
}

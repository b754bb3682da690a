// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package machine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/wsmaster/lib/codec"
	"github.com/bureau-foundation/wsmaster/lib/service"
)

// Socket actions served by the machine daemon.
const (
	ActionExec     = "exec"
	ActionDescribe = "describe"
)

// ExecResult describes a command accepted by a machine.
type ExecResult struct {
	// PID is the process ID of the command's shell on the machine.
	PID int `cbor:"pid"`

	// OutputPath is where the machine captures the command's output.
	// Empty when capture could not be set up.
	OutputPath string `cbor:"output_path,omitempty"`
}

// execRequest is the wire form of an exec call.
type execRequest struct {
	WorkspaceID   string  `cbor:"workspace_id"`
	MachineID     string  `cbor:"machine_id"`
	Command       Command `cbor:"command"`
	OutputChannel string  `cbor:"output_channel"`
}

// SocketExecutor is an Executor that forwards commands to a machine
// daemon over its Unix socket.
type SocketExecutor struct {
	client *service.ServiceClient
}

// NewSocketExecutor returns an executor for the daemon listening on
// socketPath.
func NewSocketExecutor(socketPath string) *SocketExecutor {
	return &SocketExecutor{client: service.NewServiceClient(socketPath)}
}

// Exec submits command to the machine. A refusal from the daemon is
// returned as a *service.ServiceError; an unreachable daemon as a
// plain transport error.
func (e *SocketExecutor) Exec(ctx context.Context, workspaceID, machineID string, command Command, outputChannel string) error {
	_, err := e.Start(ctx, workspaceID, machineID, command, outputChannel)
	return err
}

// Start is Exec that also reports where the machine started the
// command.
func (e *SocketExecutor) Start(ctx context.Context, workspaceID, machineID string, command Command, outputChannel string) (ExecResult, error) {
	var result ExecResult
	err := e.client.Call(ctx, ActionExec, map[string]any{
		"workspace_id":   workspaceID,
		"machine_id":     machineID,
		"command":        command,
		"output_channel": outputChannel,
	}, &result)
	return result, err
}

// Describe fetches the machine's current description, including its
// live server map.
func (e *SocketExecutor) Describe(ctx context.Context) (*Machine, error) {
	var machine Machine
	if err := e.client.Call(ctx, ActionDescribe, nil, &machine); err != nil {
		return nil, err
	}
	return &machine, nil
}

// Runner starts commands locally on behalf of an ExecHandler.
type Runner interface {
	Start(ctx context.Context, command Command, outputChannel string) (ExecResult, error)
}

// ExecHandler serves one machine's exec and describe actions.
type ExecHandler struct {
	machine *Machine
	runner  Runner
	logger  *slog.Logger
}

// NewExecHandler returns a handler serving machine through runner.
func NewExecHandler(machine *Machine, runner Runner, logger *slog.Logger) *ExecHandler {
	return &ExecHandler{machine: machine, runner: runner, logger: logger}
}

// Register installs the handler's actions on server.
func (h *ExecHandler) Register(server *service.SocketServer) {
	server.Handle(ActionExec, h.handleExec)
	server.Handle(ActionDescribe, h.handleDescribe)
}

func (h *ExecHandler) handleExec(ctx context.Context, raw []byte) (any, error) {
	var request execRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid exec request: %w", err)
	}
	if request.WorkspaceID != h.machine.WorkspaceID || request.MachineID != h.machine.ID {
		return nil, fmt.Errorf("machine %s/%s is not served here (this socket serves %s/%s)",
			request.WorkspaceID, request.MachineID, h.machine.WorkspaceID, h.machine.ID)
	}
	if request.Command.CommandLine == "" {
		return nil, fmt.Errorf("command %q has an empty command line", request.Command.Name)
	}

	result, err := h.runner.Start(ctx, request.Command, request.OutputChannel)
	if err != nil {
		return nil, fmt.Errorf("starting command %q: %w", request.Command.Name, err)
	}

	h.logger.Info("command started",
		"workspace_id", request.WorkspaceID,
		"machine_id", request.MachineID,
		"command", request.Command.Name,
		"type", request.Command.Type,
		"output_channel", request.OutputChannel,
		"pid", result.PID,
	)
	return result, nil
}

func (h *ExecHandler) handleDescribe(ctx context.Context, raw []byte) (any, error) {
	return h.machine, nil
}

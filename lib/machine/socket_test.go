// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package machine

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/wsmaster/lib/service"
	"github.com/bureau-foundation/wsmaster/lib/testutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type recordingRunner struct {
	mu       sync.Mutex
	commands []Command
	channels []string
	err      error
}

func (r *recordingRunner) Start(ctx context.Context, command Command, outputChannel string) (ExecResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return ExecResult{}, r.err
	}
	r.commands = append(r.commands, command)
	r.channels = append(r.channels, outputChannel)
	return ExecResult{PID: 4242, OutputPath: "/var/lib/wsmaster/output/x.log.zst"}, nil
}

func serveMachine(t *testing.T, machine *Machine, runner Runner) *SocketExecutor {
	t.Helper()
	socketPath := filepath.Join(testutil.SocketDir(t), "machine.sock")
	server := service.NewSocketServer(socketPath, testLogger())
	NewExecHandler(machine, runner, testLogger()).Register(server)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx) }()
	testutil.RequireClosed(t, server.Ready(), 5*time.Second, "machine socket did not start")
	t.Cleanup(func() {
		cancel()
		testutil.RequireReceive(t, done, 5*time.Second, "machine socket did not stop")
	})
	return NewSocketExecutor(socketPath)
}

func testMachine() *Machine {
	return &Machine{
		ID:          "dev-machine",
		WorkspaceID: "workspace-1",
		Kind:        "docker",
		Runtime: Runtime{Servers: map[string]Server{
			"4401/tcp": {Protocol: "http", Address: "localhost:32768",
				Properties: ServerProperties{InternalURL: "http://172.17.0.2:4401/api"}},
		}},
	}
}

func TestSocketExecutorExec(t *testing.T) {
	runner := &recordingRunner{}
	executor := serveMachine(t, testMachine(), runner)

	command := Command{Name: "org.eclipse.che.ws-agent", CommandLine: "echo start\ncatalina.sh run", Type: "ws-agent"}
	result, err := executor.Start(context.Background(), "workspace-1", "dev-machine", command, "workspace:workspace-1:ext-server:output")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if result.PID != 4242 {
		t.Errorf("PID = %d, want 4242", result.PID)
	}

	runner.mu.Lock()
	defer runner.mu.Unlock()
	if len(runner.commands) != 1 {
		t.Fatalf("runner received %d commands, want 1", len(runner.commands))
	}
	if runner.commands[0] != command {
		t.Errorf("command = %+v, want %+v", runner.commands[0], command)
	}
	if runner.channels[0] != "workspace:workspace-1:ext-server:output" {
		t.Errorf("output channel = %q", runner.channels[0])
	}
}

func TestSocketExecutorRejections(t *testing.T) {
	t.Run("wrong machine", func(t *testing.T) {
		executor := serveMachine(t, testMachine(), &recordingRunner{})
		err := executor.Exec(context.Background(), "workspace-1", "other-machine",
			Command{Name: "agent", CommandLine: "true"}, "channel")
		var serviceError *service.ServiceError
		if !errors.As(err, &serviceError) {
			t.Fatalf("error = %v, want *service.ServiceError", err)
		}
		if !strings.Contains(serviceError.Message, "not served here") {
			t.Errorf("Message = %q", serviceError.Message)
		}
	})

	t.Run("empty command line", func(t *testing.T) {
		executor := serveMachine(t, testMachine(), &recordingRunner{})
		err := executor.Exec(context.Background(), "workspace-1", "dev-machine",
			Command{Name: "agent"}, "channel")
		if err == nil || !strings.Contains(err.Error(), "empty command line") {
			t.Errorf("error = %v, want empty command line rejection", err)
		}
	})

	t.Run("runner failure", func(t *testing.T) {
		executor := serveMachine(t, testMachine(), &recordingRunner{err: ErrRunnerClosed})
		err := executor.Exec(context.Background(), "workspace-1", "dev-machine",
			Command{Name: "agent", CommandLine: "true"}, "channel")
		if err == nil || !strings.Contains(err.Error(), ErrRunnerClosed.Error()) {
			t.Errorf("error = %v, want runner failure", err)
		}
	})
}

func TestSocketExecutorDescribe(t *testing.T) {
	executor := serveMachine(t, testMachine(), &recordingRunner{})

	machine, err := executor.Describe(context.Background())
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if machine.ID != "dev-machine" || machine.WorkspaceID != "workspace-1" {
		t.Errorf("identity = %s/%s", machine.WorkspaceID, machine.ID)
	}
	server, exists := machine.Server("4401/tcp")
	if !exists {
		t.Fatal("4401/tcp missing from described runtime")
	}
	if server.Properties.InternalURL != "http://172.17.0.2:4401/api" {
		t.Errorf("InternalURL = %q", server.Properties.InternalURL)
	}
}

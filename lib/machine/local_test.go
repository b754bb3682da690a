// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package machine

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/bureau-foundation/wsmaster/lib/outputlog"
)

func TestLocalRunnerCapturesOutput(t *testing.T) {
	runner := NewLocalRunner(LocalRunnerConfig{
		OutputDirectory: t.TempDir(),
		Compression:     outputlog.CompressionZstd,
	}, testLogger())

	result, err := runner.Start(context.Background(),
		Command{Name: "agent", CommandLine: "echo stdout-line; echo stderr-line >&2"},
		"workspace:workspace-1:ext-server:output")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if result.PID <= 0 {
		t.Errorf("PID = %d, want positive", result.PID)
	}
	if result.OutputPath == "" {
		t.Fatal("OutputPath is empty")
	}

	runner.Wait()
	if running := runner.Running(); len(running) != 0 {
		t.Errorf("Running() = %v after Wait, want empty", running)
	}

	reader, err := outputlog.Open(result.OutputPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if got := string(data); got != "stdout-line\nstderr-line\n" {
		t.Errorf("captured output = %q", got)
	}
}

func TestLocalRunnerShutdown(t *testing.T) {
	runner := NewLocalRunner(LocalRunnerConfig{
		OutputDirectory: t.TempDir(),
		Compression:     outputlog.CompressionNone,
	}, testLogger())

	// The shell forks sleep into the same process group; both must go.
	if _, err := runner.Start(context.Background(),
		Command{Name: "agent", CommandLine: "sleep 60; echo unreachable"}, "channel"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if running := runner.Running(); len(running) != 1 {
		t.Fatalf("Running() = %v, want one process", running)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := runner.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if running := runner.Running(); len(running) != 0 {
		t.Errorf("Running() = %v after Shutdown, want empty", running)
	}

	_, err := runner.Start(context.Background(), Command{Name: "agent", CommandLine: "true"}, "channel")
	if !errors.Is(err, ErrRunnerClosed) {
		t.Errorf("Start after Shutdown error = %v, want ErrRunnerClosed", err)
	}
}

func TestLocalRunnerCancelledContext(t *testing.T) {
	runner := NewLocalRunner(LocalRunnerConfig{OutputDirectory: t.TempDir()}, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := runner.Start(ctx, Command{Name: "agent", CommandLine: "true"}, "channel"); !errors.Is(err, context.Canceled) {
		t.Errorf("Start error = %v, want context.Canceled", err)
	}
}

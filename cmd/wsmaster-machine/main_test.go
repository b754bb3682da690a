// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/wsmaster/lib/machine"
	"github.com/bureau-foundation/wsmaster/lib/outputlog"
	"github.com/bureau-foundation/wsmaster/lib/testutil"
)

const testDescriptor = `{
  "id": "dev-machine",
  "workspace_id": "workspace-1",
  "kind": "docker",
  "runtime": {"servers": {"4401/tcp": {"protocol": "http", "address": "localhost:32768"}}},
}`

func writeTestConfig(t *testing.T, compression string) (configPath, root string) {
	t.Helper()
	root = t.TempDir()
	descriptor := filepath.Join(root, "dev-machine.jsonc")
	if err := os.WriteFile(descriptor, []byte(testDescriptor), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	configPath = filepath.Join(root, "wsmaster.yaml")
	content := fmt.Sprintf(`
environment: development
paths:
  root: %s
  state: ${WSMASTER_ROOT}/state
  output: ${WSMASTER_ROOT}/output
machine:
  socket_path: %s
  descriptor: %s
  output_compression: %s
`, root, filepath.Join(testutil.SocketDir(t), "machine.sock"), descriptor, compression)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return configPath, root
}

func TestParseFlags(t *testing.T) {
	flags, err := parseFlags([]string{"--config", "/etc/wsmaster.yaml", "--socket", "/tmp/m.sock", "--shutdown-timeout", "3s"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if flags.configPath != "/etc/wsmaster.yaml" || flags.socketPath != "/tmp/m.sock" || flags.shutdownTimeout != 3*time.Second {
		t.Errorf("flags = %+v", flags)
	}

	if _, err := parseFlags([]string{"stray"}); err == nil {
		t.Error("positional argument accepted")
	}
	if _, err := parseFlags([]string{"--bogus"}); err == nil {
		t.Error("unknown flag accepted")
	}
}

func TestResolveSettings(t *testing.T) {
	configPath, root := writeTestConfig(t, "lz4")

	settings, err := resolveSettings(daemonFlags{configPath: configPath, shutdownTimeout: time.Second})
	if err != nil {
		t.Fatalf("resolveSettings: %v", err)
	}
	if settings.machine.ID != "dev-machine" {
		t.Errorf("machine = %+v", settings.machine)
	}
	if settings.runner.Compression != outputlog.CompressionLZ4 {
		t.Errorf("compression = %s, want lz4", settings.runner.Compression)
	}
	if settings.runner.OutputDirectory != filepath.Join(root, "output") {
		t.Errorf("output directory = %s", settings.runner.OutputDirectory)
	}
	if info, err := os.Stat(settings.runner.OutputDirectory); err != nil || !info.IsDir() {
		t.Errorf("output directory not created: %v", err)
	}

	override := filepath.Join(t.TempDir(), "other.sock")
	settings, err = resolveSettings(daemonFlags{configPath: configPath, socketPath: override})
	if err != nil {
		t.Fatalf("resolveSettings with --socket: %v", err)
	}
	if settings.socketPath != override {
		t.Errorf("socket = %s, want %s", settings.socketPath, override)
	}

	_, err = resolveSettings(daemonFlags{configPath: configPath, descriptorPath: filepath.Join(root, "missing.jsonc")})
	if err == nil || !strings.Contains(err.Error(), "missing.jsonc") {
		t.Errorf("missing descriptor error = %v", err)
	}
}

func TestResolveSettingsDescriptorInStateDirectory(t *testing.T) {
	root := t.TempDir()
	stateDir := filepath.Join(root, "state")
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(stateDir, "machine.jsonc"), []byte(testDescriptor), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	configPath := filepath.Join(root, "wsmaster.yaml")
	content := fmt.Sprintf(`
environment: development
paths:
  root: %s
  state: ${WSMASTER_ROOT}/state
  output: ${WSMASTER_ROOT}/output
machine:
  socket_path: %s
`, root, filepath.Join(testutil.SocketDir(t), "machine.sock"))
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	settings, err := resolveSettings(daemonFlags{configPath: configPath})
	if err != nil {
		t.Fatalf("resolveSettings: %v", err)
	}
	if settings.machine.ID != "dev-machine" {
		t.Errorf("machine = %+v, want the descriptor from the state directory", settings.machine)
	}
}

func TestServe(t *testing.T) {
	configPath, _ := writeTestConfig(t, "zstd")
	settings, err := resolveSettings(daemonFlags{configPath: configPath, shutdownTimeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("resolveSettings: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, settings, slog.New(slog.DiscardHandler)) }()

	executor := machine.NewSocketExecutor(settings.socketPath)
	var described *machine.Machine
	deadline := time.Now().Add(5 * time.Second)
	for {
		described, err = executor.Describe(context.Background())
		if err == nil || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if described.WorkspaceID != "workspace-1" {
		t.Errorf("described workspace = %s", described.WorkspaceID)
	}

	result, err := executor.Start(context.Background(), "workspace-1", "dev-machine",
		machine.Command{Name: "agent", CommandLine: "sleep 60"}, "workspace:workspace-1:ext-server:output")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !strings.HasSuffix(result.OutputPath, ".log.zst") {
		t.Errorf("output path = %s, want zstd capture", result.OutputPath)
	}

	// Shutdown terminates the still-running command within the grace
	// period.
	cancel()
	if err := testutil.RequireReceive(t, done, 10*time.Second, "daemon did not shut down"); err != nil {
		t.Errorf("serve: %v", err)
	}
}

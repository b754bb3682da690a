// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wsmaster.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Environment != Development {
		t.Errorf("expected environment=development, got %s", cfg.Environment)
	}
	if cfg.Launcher.MaxStartTime != 60*time.Second {
		t.Errorf("expected max_start_time=60s, got %s", cfg.Launcher.MaxStartTime)
	}
	if cfg.Launcher.PingDelay != 2*time.Second || cfg.Launcher.PingConnectionTimeout != 2*time.Second {
		t.Errorf("expected 2s ping delay and timeout, got %s / %s", cfg.Launcher.PingDelay, cfg.Launcher.PingConnectionTimeout)
	}
	if cfg.Machine.OutputCompression != "zstd" {
		t.Errorf("expected output_compression=zstd, got %s", cfg.Machine.OutputCompression)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestLoad_RequiresConfigVariable(t *testing.T) {
	t.Setenv("WSMASTER_CONFIG", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when WSMASTER_CONFIG not set, got nil")
	}
	if !strings.HasPrefix(err.Error(), "WSMASTER_CONFIG environment variable not set") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoad_WithConfigVariable(t *testing.T) {
	path := writeConfig(t, `
environment: staging
paths:
  root: /test/root
`)
	t.Setenv("WSMASTER_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Environment != Staging {
		t.Errorf("expected environment=staging, got %s", cfg.Environment)
	}
	if cfg.Paths.Root != "/test/root" {
		t.Errorf("expected root=/test/root, got %s", cfg.Paths.Root)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
environment: production

paths:
  root: /srv/wsmaster
  output: ${WSMASTER_ROOT}/output

machine:
  socket_path: /run/wsmaster/dev.sock
  descriptor: ${WSMASTER_ROOT}/machines/dev.jsonc
  shell: /bin/bash
  output_compression: lz4

launcher:
  max_start_time: 3m
  ping_delay: 500ms
  ping_connection_timeout: 1s
  ping_timed_out_message: "Workspace agent did not start."
  run_command: /opt/agent/bin/run.sh
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Paths.Output != "/srv/wsmaster/output" {
		t.Errorf("expected output=/srv/wsmaster/output, got %s", cfg.Paths.Output)
	}
	if cfg.Machine.Descriptor != "/srv/wsmaster/machines/dev.jsonc" {
		t.Errorf("expected expanded descriptor path, got %s", cfg.Machine.Descriptor)
	}
	if cfg.Machine.Shell != "/bin/bash" || cfg.Machine.OutputCompression != "lz4" {
		t.Errorf("machine section = %+v", cfg.Machine)
	}

	launcher := cfg.Launcher
	if launcher.MaxStartTime != 3*time.Minute {
		t.Errorf("expected max_start_time=3m, got %s", launcher.MaxStartTime)
	}
	if launcher.PingDelay != 500*time.Millisecond {
		t.Errorf("expected ping_delay=500ms, got %s", launcher.PingDelay)
	}
	if launcher.PingConnectionTimeout != time.Second {
		t.Errorf("expected ping_connection_timeout=1s, got %s", launcher.PingConnectionTimeout)
	}
	if launcher.PingTimedOutMessage != "Workspace agent did not start." {
		t.Errorf("unexpected ping_timed_out_message %q", launcher.PingTimedOutMessage)
	}
	if launcher.RunCommand != "/opt/agent/bin/run.sh" {
		t.Errorf("unexpected run_command %q", launcher.RunCommand)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadFile_EnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, `
environment: development

launcher:
  max_start_time: 60s
  ping_delay: 2s

development:
  launcher:
    max_start_time: 5m
  machine:
    output_compression: none

production:
  launcher:
    max_start_time: 10s
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Launcher.MaxStartTime != 5*time.Minute {
		t.Errorf("development override not applied: max_start_time=%s", cfg.Launcher.MaxStartTime)
	}
	if cfg.Launcher.PingDelay != 2*time.Second {
		t.Errorf("empty override field replaced the base value: ping_delay=%s", cfg.Launcher.PingDelay)
	}
	if cfg.Machine.OutputCompression != "none" {
		t.Errorf("machine override not applied: %s", cfg.Machine.OutputCompression)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := writeConfig(t, "launcher:\n  max_start_time: soon\n")
	if _, err := LoadFile(path); err == nil {
		t.Error("expected error for unparseable duration")
	}
}

func TestExpandVars(t *testing.T) {
	t.Setenv("WSMASTER_TEST_VAR", "from-env")

	vars := map[string]string{"WSMASTER_ROOT": "/root-dir"}
	tests := []struct {
		input string
		want  string
	}{
		{"${WSMASTER_ROOT}/state", "/root-dir/state"},
		{"${WSMASTER_TEST_VAR}/x", "from-env/x"},
		{"${WSMASTER_UNSET_VAR:-/fallback}/x", "/fallback/x"},
		{"${WSMASTER_UNSET_VAR}/x", "/x"},
		{"/plain/path", "/plain/path"},
	}
	for _, test := range tests {
		if got := expandVars(test.input, vars); got != test.want {
			t.Errorf("expandVars(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Environment = "qa"
	cfg.Machine.OutputCompression = "gzip"
	cfg.Launcher.PingDelay = 0
	cfg.Launcher.MaxStartTime = -time.Second

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{
		"invalid environment: qa",
		"machine.output_compression",
		"launcher.ping_delay",
		"launcher.max_start_time",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("validation error missing %q:\n%v", want, err)
		}
	}
}

func TestDescriptorPath(t *testing.T) {
	cfg := Default()
	cfg.Paths.State = "/var/lib/wsmaster/state"

	if got, want := cfg.DescriptorPath(), "/var/lib/wsmaster/state/machine.jsonc"; got != want {
		t.Errorf("DescriptorPath() = %s, want %s", got, want)
	}

	cfg.Machine.Descriptor = "/etc/wsmaster/dev.jsonc"
	if got := cfg.DescriptorPath(); got != "/etc/wsmaster/dev.jsonc" {
		t.Errorf("DescriptorPath() = %s, want the configured descriptor", got)
	}

	cfg.Machine.Descriptor = ""
	cfg.Paths.State = ""
	if got := cfg.DescriptorPath(); got != "" {
		t.Errorf("DescriptorPath() = %s, want empty with no descriptor or state", got)
	}
}

func TestEnsurePaths(t *testing.T) {
	root := t.TempDir()
	cfg := Default()
	cfg.Paths = PathsConfig{
		Root:   filepath.Join(root, "wsmaster"),
		State:  filepath.Join(root, "wsmaster", "state"),
		Output: filepath.Join(root, "wsmaster", "output"),
	}

	if err := cfg.EnsurePaths(); err != nil {
		t.Fatalf("EnsurePaths: %v", err)
	}
	for _, path := range []string{cfg.Paths.Root, cfg.Paths.State, cfg.Paths.Output} {
		if info, err := os.Stat(path); err != nil || !info.IsDir() {
			t.Errorf("%s not created: %v", path, err)
		}
	}
}

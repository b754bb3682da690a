// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config is the master configuration for wsmaster.
type Config struct {
	// Environment identifies the deployment type (development, staging, production).
	Environment Environment `yaml:"environment"`

	// Paths configures directory locations.
	Paths PathsConfig `yaml:"paths"`

	// Machine configures the machine exec daemon.
	Machine MachineConfig `yaml:"machine"`

	// Launcher configures agent launch and readiness polling.
	Launcher LauncherConfig `yaml:"launcher"`

	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
// Only non-empty values replace the base configuration.
type ConfigOverrides struct {
	Paths    *PathsConfig    `yaml:"paths,omitempty"`
	Machine  *MachineConfig  `yaml:"machine,omitempty"`
	Launcher *LauncherConfig `yaml:"launcher,omitempty"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// Root is the base directory for wsmaster data.
	Root string `yaml:"root"`

	// State holds the machine daemon's runtime state, including its
	// machine descriptor unless machine.descriptor names another file.
	State string `yaml:"state"`

	// Output is where the machine daemon captures command output.
	Output string `yaml:"output"`
}

// MachineConfig configures the machine exec daemon.
type MachineConfig struct {
	// SocketPath is the Unix socket the daemon serves exec requests on.
	// Default: /run/wsmaster/machine.sock
	SocketPath string `yaml:"socket_path"`

	// Descriptor is the JSONC machine descriptor the daemon serves.
	// Default: <paths.state>/machine.jsonc
	Descriptor string `yaml:"descriptor"`

	// Shell runs each command line as `shell -c <line>`.
	// Default: sh
	Shell string `yaml:"shell"`

	// OutputCompression is the capture format: none, zstd, or lz4.
	// Default: zstd
	OutputCompression string `yaml:"output_compression"`
}

// LauncherConfig configures agent launch supervision.
type LauncherConfig struct {
	// MaxStartTime bounds how long an agent may take to answer its
	// health check. Default: 60s
	MaxStartTime time.Duration `yaml:"max_start_time"`

	// PingDelay separates consecutive health probes. Default: 2s
	PingDelay time.Duration `yaml:"ping_delay"`

	// PingConnectionTimeout bounds each health probe. Default: 2s
	PingConnectionTimeout time.Duration `yaml:"ping_connection_timeout"`

	// PingTimedOutMessage is reported to users when an agent misses
	// MaxStartTime.
	PingTimedOutMessage string `yaml:"ping_timed_out_message"`

	// RunCommand overrides the agent's default run command.
	RunCommand string `yaml:"run_command"`
}

// DefaultPingTimedOutMessage is the user-facing text of a launch
// timeout when the config file sets none.
const DefaultPingTimedOutMessage = "Timeout reached. The workspace agent has not started within the configured start time."

// Default returns the default configuration.
// These defaults are used as a base before loading the config file.
// They exist so every field has a sensible value, not as a fallback:
// the config file is required.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".cache", "wsmaster")

	return &Config{
		Environment: Development,
		Paths: PathsConfig{
			Root:   defaultRoot,
			State:  filepath.Join(defaultRoot, "state"),
			Output: filepath.Join(defaultRoot, "output"),
		},
		Machine: MachineConfig{
			SocketPath:        "/run/wsmaster/machine.sock",
			Shell:             "sh",
			OutputCompression: "zstd",
		},
		Launcher: LauncherConfig{
			MaxStartTime:          60 * time.Second,
			PingDelay:             2 * time.Second,
			PingConnectionTimeout: 2 * time.Second,
			PingTimedOutMessage:   DefaultPingTimedOutMessage,
		},
	}
}

// Load loads configuration from the file named by WSMASTER_CONFIG.
// There is no default location: if WSMASTER_CONFIG is unset, Load fails.
func Load() (*Config, error) {
	configPath := os.Getenv("WSMASTER_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("WSMASTER_CONFIG environment variable not set; " +
			"set it to the path of your wsmaster.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path, applies the
// section for the configured environment, and expands path variables.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}

	if overrides == nil {
		return
	}

	if paths := overrides.Paths; paths != nil {
		override(&c.Paths.Root, paths.Root)
		override(&c.Paths.State, paths.State)
		override(&c.Paths.Output, paths.Output)
	}

	if machine := overrides.Machine; machine != nil {
		override(&c.Machine.SocketPath, machine.SocketPath)
		override(&c.Machine.Descriptor, machine.Descriptor)
		override(&c.Machine.Shell, machine.Shell)
		override(&c.Machine.OutputCompression, machine.OutputCompression)
	}

	if launcher := overrides.Launcher; launcher != nil {
		override(&c.Launcher.MaxStartTime, launcher.MaxStartTime)
		override(&c.Launcher.PingDelay, launcher.PingDelay)
		override(&c.Launcher.PingConnectionTimeout, launcher.PingConnectionTimeout)
		override(&c.Launcher.PingTimedOutMessage, launcher.PingTimedOutMessage)
		override(&c.Launcher.RunCommand, launcher.RunCommand)
	}
}

func override[T comparable](target *T, value T) {
	var zero T
	if value != zero {
		*target = value
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"WSMASTER_ROOT": c.Paths.Root,
		"HOME":          os.Getenv("HOME"),
	}

	c.Paths.Root = expandVars(c.Paths.Root, vars)
	vars["WSMASTER_ROOT"] = c.Paths.Root

	c.Paths.State = expandVars(c.Paths.State, vars)
	c.Paths.Output = expandVars(c.Paths.Output, vars)
	c.Machine.SocketPath = expandVars(c.Machine.SocketPath, vars)
	c.Machine.Descriptor = expandVars(c.Machine.Descriptor, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns. vars is
// consulted before the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name, defaultValue := parts[1], parts[2]

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Paths.Root == "" {
		errs = append(errs, fmt.Errorf("paths.root is required"))
	}
	if c.Paths.Output == "" {
		errs = append(errs, fmt.Errorf("paths.output is required"))
	}

	if c.Machine.SocketPath == "" {
		errs = append(errs, fmt.Errorf("machine.socket_path is required"))
	}
	switch c.Machine.OutputCompression {
	case "none", "zstd", "lz4":
	default:
		errs = append(errs, fmt.Errorf("machine.output_compression must be one of none, zstd, lz4; got %q", c.Machine.OutputCompression))
	}

	if c.Launcher.MaxStartTime <= 0 {
		errs = append(errs, fmt.Errorf("launcher.max_start_time must be positive"))
	}
	if c.Launcher.PingDelay <= 0 {
		errs = append(errs, fmt.Errorf("launcher.ping_delay must be positive"))
	}
	if c.Launcher.PingConnectionTimeout <= 0 {
		errs = append(errs, fmt.Errorf("launcher.ping_connection_timeout must be positive"))
	}

	return errors.Join(errs...)
}

// DefaultDescriptorName is the descriptor file looked up in
// paths.state when machine.descriptor is unset.
const DefaultDescriptorName = "machine.jsonc"

// DescriptorPath returns the machine descriptor the daemon serves:
// machine.descriptor when set, otherwise DefaultDescriptorName in
// paths.state. Empty when neither is configured.
func (c *Config) DescriptorPath() string {
	if c.Machine.Descriptor != "" {
		return c.Machine.Descriptor
	}
	if c.Paths.State == "" {
		return ""
	}
	return filepath.Join(c.Paths.State, DefaultDescriptorName)
}

// EnsurePaths creates all configured directories if they don't exist.
func (c *Config) EnsurePaths() error {
	for _, path := range []string{c.Paths.Root, c.Paths.State, c.Paths.Output} {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}
	return nil
}

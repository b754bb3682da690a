// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for wsmaster
// components.
//
// Configuration is loaded from a single file specified by either the
// WSMASTER_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There are no fallbacks and no automatic file
// search.
//
// The file may contain environment-specific sections (development,
// staging, production) whose non-empty fields override the base
// values when [Config].Environment matches.
//
// Path fields are expanded after loading: ${HOME}, ${WSMASTER_ROOT},
// and ${VAR:-default}. Nothing else reads the environment.
//
// The launcher section is the agent launch configuration surface:
// max_start_time, ping_delay, ping_connection_timeout (Go duration
// strings), ping_timed_out_message, and run_command.
//
// This package depends on no other wsmaster packages.
package config

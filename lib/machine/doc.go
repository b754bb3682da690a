// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package machine models a workspace machine: an execution context
// that exposes named network servers and accepts commands for
// out-of-band execution.
//
// A [Machine] is identified by workspace ID and machine ID. Its
// [Runtime] maps server references such as "4401/tcp" to a [Server]
// carrying protocol, address, and the internal URL other components
// use to reach it. Machines are described on disk as JSONC files (see
// [Parse]) and served over a Unix socket by the machine daemon.
//
// Command execution goes through the [Executor] interface. Two sides
// of the socket transport live here:
//
//   - [SocketExecutor] is the client a launcher holds. It implements
//     Executor and can fetch the live machine description.
//   - [ExecHandler] registers the "exec" and "describe" actions on a
//     service.SocketServer and hands accepted commands to a
//     [LocalRunner], which starts them in their own process group and
//     captures output per channel through lib/outputlog.
//
// Exec is fire-and-forget: it returns once the command has been
// started. Whether the started process ever becomes useful is for the
// caller to determine (see lib/agentlaunch).
package machine

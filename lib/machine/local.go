// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package machine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/wsmaster/lib/outputlog"
)

// ErrRunnerClosed is returned by Start after Shutdown has begun.
var ErrRunnerClosed = errors.New("runner is shutting down")

// LocalRunnerConfig configures a LocalRunner.
type LocalRunnerConfig struct {
	// Shell runs each command line as `Shell -c <command line>`.
	// Resolved through PATH. Default: "sh".
	Shell string

	// OutputDirectory receives one capture file per started command.
	OutputDirectory string

	// Compression selects the capture file format.
	Compression outputlog.Compression
}

// LocalRunner starts commands on the local host, each in its own
// process group, and captures their combined stdout and stderr.
// Commands outlive the request that started them; Shutdown stops
// whatever is still running.
type LocalRunner struct {
	config LocalRunnerConfig
	logger *slog.Logger

	mu      sync.Mutex
	closed  bool
	running map[int]*exec.Cmd
	waiters sync.WaitGroup
}

// NewLocalRunner returns a runner for config.
func NewLocalRunner(config LocalRunnerConfig, logger *slog.Logger) *LocalRunner {
	if config.Shell == "" {
		config.Shell = "sh"
	}
	if config.Compression == "" {
		config.Compression = outputlog.CompressionZstd
	}
	return &LocalRunner{
		config:  config,
		logger:  logger,
		running: make(map[int]*exec.Cmd),
	}
}

// Start launches command and returns as soon as the process exists.
func (r *LocalRunner) Start(ctx context.Context, command Command, outputChannel string) (ExecResult, error) {
	if err := ctx.Err(); err != nil {
		return ExecResult{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ExecResult{}, ErrRunnerClosed
	}

	pipeReader, pipeWriter, err := os.Pipe()
	if err != nil {
		return ExecResult{}, fmt.Errorf("creating output pipe: %w", err)
	}

	cmd := exec.Command(r.config.Shell, "-c", command.CommandLine)
	cmd.Stdout = pipeWriter
	cmd.Stderr = pipeWriter
	// Own process group: signals must reach the agent's children, not
	// just the shell.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		pipeReader.Close()
		pipeWriter.Close()
		return ExecResult{}, err
	}
	pipeWriter.Close()
	pid := cmd.Process.Pid

	var sink io.Writer = io.Discard
	var capture *outputlog.Writer
	capture, err = outputlog.Create(r.config.OutputDirectory, outputChannel, pid, r.config.Compression)
	if err != nil {
		r.logger.Warn("output capture unavailable, discarding command output",
			"command", command.Name,
			"pid", pid,
			"error", err,
		)
		capture = nil
	} else {
		sink = capture
	}

	r.running[pid] = cmd
	r.waiters.Add(1)
	go r.wait(command, pid, cmd, pipeReader, sink, capture)

	result := ExecResult{PID: pid}
	if capture != nil {
		result.OutputPath = capture.Path()
	}
	return result, nil
}

func (r *LocalRunner) wait(command Command, pid int, cmd *exec.Cmd, output *os.File, sink io.Writer, capture *outputlog.Writer) {
	defer r.waiters.Done()

	if _, err := io.Copy(sink, output); err != nil {
		r.logger.Warn("copying command output", "command", command.Name, "pid", pid, "error", err)
	}
	output.Close()

	waitError := cmd.Wait()
	if capture != nil {
		if err := capture.Close(); err != nil {
			r.logger.Warn("closing output capture", "command", command.Name, "pid", pid, "error", err)
		}
	}

	r.mu.Lock()
	delete(r.running, pid)
	r.mu.Unlock()

	exitCode := 0
	var exitError *exec.ExitError
	if errors.As(waitError, &exitError) {
		exitCode = exitError.ExitCode()
	} else if waitError != nil {
		exitCode = -1
	}
	r.logger.Info("command exited",
		"command", command.Name,
		"pid", pid,
		"exit_code", exitCode,
	)
}

// Running returns the PIDs of commands that have not exited yet.
func (r *LocalRunner) Running() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	pids := make([]int, 0, len(r.running))
	for pid := range r.running {
		pids = append(pids, pid)
	}
	sort.Ints(pids)
	return pids
}

// Wait blocks until every command started so far has exited and its
// output capture is closed.
func (r *LocalRunner) Wait() {
	r.waiters.Wait()
}

// Shutdown refuses new commands, sends SIGTERM to every running
// process group, and waits for them to exit. If ctx ends first, the
// groups are sent SIGKILL and ctx's error is returned.
func (r *LocalRunner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.signalAll(unix.SIGTERM)

	done := make(chan struct{})
	go func() {
		r.waiters.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		r.signalAll(unix.SIGKILL)
		return ctx.Err()
	}
}

func (r *LocalRunner) signalAll(signal syscall.Signal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for pid := range r.running {
		// ESRCH means the group already exited between Wait and the
		// map update.
		if err := unix.Kill(-pid, signal); err != nil && !errors.Is(err, unix.ESRCH) {
			r.logger.Warn("signalling process group", "pid", pid, "signal", signal.String(), "error", err)
		}
	}
}

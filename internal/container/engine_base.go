// SPDX-License-Identifier: MPL-2.0

package container

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const (
	removeAttempts = 3
	removeBackoff  = 200 * time.Millisecond
)

type (
	// ExecCommandFunc is the function signature for creating exec.Cmd.
	// This allows injection of mock implementations for testing.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// BaseCLIEngineOption configures a BaseCLIEngine.
	BaseCLIEngineOption func(*BaseCLIEngine)

	// BaseCLIEngine implements Engine for any docker-compatible CLI. Docker
	// and Podman engines embed it and override the version query.
	BaseCLIEngine struct {
		name        string
		binaryPath  string
		execCommand ExecCommandFunc
	}
)

// WithName sets the engine name used in error messages.
func WithName(name string) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		e.name = name
	}
}

// WithExecCommand sets a custom exec command function for testing.
func WithExecCommand(fn ExecCommandFunc) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		e.execCommand = fn
	}
}

// NewBaseCLIEngine creates an engine driving the CLI at binaryPath.
func NewBaseCLIEngine(binaryPath string, opts ...BaseCLIEngineOption) *BaseCLIEngine {
	e := &BaseCLIEngine{
		name:        binaryPath,
		binaryPath:  binaryPath,
		execCommand: exec.CommandContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the engine name used in error messages.
func (e *BaseCLIEngine) Name() string { return e.name }

// BinaryPath returns the path to the container engine binary.
func (e *BaseCLIEngine) BinaryPath() string { return e.binaryPath }

// Available checks that the CLI exists and answers a version query.
func (e *BaseCLIEngine) Available(ctx context.Context) bool {
	if e.binaryPath == "" {
		return false
	}
	return e.RunCommandStatus(ctx, "version") == nil
}

// Version returns the first line of the CLI's version output.
func (e *BaseCLIEngine) Version(ctx context.Context) (string, error) {
	out, err := e.RunCommandWithOutput(ctx, "--version")
	if err != nil {
		return "", fmt.Errorf("failed to get %s version: %w", e.name, err)
	}
	line, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	return line, nil
}

// KillArgs constructs arguments for a container kill command.
func (e *BaseCLIEngine) KillArgs(name string) []string {
	return []string{"kill", name}
}

// RemoveArgs constructs arguments for a forced container remove command.
func (e *BaseCLIEngine) RemoveArgs(name string) []string {
	return []string{"rm", "-f", name}
}

// Kill stops the named container. A container that is already gone is not
// an error.
func (e *BaseCLIEngine) Kill(ctx context.Context, name string) error {
	return e.retryLifecycle(ctx, e.KillArgs(name))
}

// Remove force-removes the named container. A container that is already gone
// is not an error.
func (e *BaseCLIEngine) Remove(ctx context.Context, name string) error {
	return e.retryLifecycle(ctx, e.RemoveArgs(name))
}

func (e *BaseCLIEngine) retryLifecycle(ctx context.Context, args []string) error {
	return RetryWithBackoff(ctx, removeAttempts, removeBackoff, func(int) (bool, error) {
		out, err := e.RunCommandCombined(ctx, args...)
		if err == nil || IsContainerGone(out) {
			return false, nil
		}
		return IsTransientError(err), err
	})
}

// RunCommandCombined executes a command and returns combined stdout/stderr.
func (e *BaseCLIEngine) RunCommandCombined(ctx context.Context, args ...string) ([]byte, error) {
	cmd := e.CreateCommand(ctx, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("command %s %v failed: %w", e.binaryPath, args, err)
	}
	return out, nil
}

// RunCommandStatus executes a command and returns only the error status.
func (e *BaseCLIEngine) RunCommandStatus(ctx context.Context, args ...string) error {
	cmd := e.CreateCommand(ctx, args...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("command %s %v failed: %w", e.binaryPath, args, err)
	}
	return nil
}

// RunCommandWithOutput executes a command with stdout captured to a buffer.
func (e *BaseCLIEngine) RunCommandWithOutput(ctx context.Context, args ...string) (string, error) {
	cmd := e.CreateCommand(ctx, args...)
	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("command %s %v failed: %w", e.binaryPath, args, err)
	}

	return out.String(), nil
}

// CreateCommand creates an exec.Cmd for the given arguments.
func (e *BaseCLIEngine) CreateCommand(ctx context.Context, args ...string) *exec.Cmd {
	return e.execCommand(ctx, e.binaryPath, args...)
}

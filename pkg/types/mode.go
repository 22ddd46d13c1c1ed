// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

const (
	// ExecutionModeAnsibleCommands marks an invocation of one of the
	// automation tool's own subcommands (ansible, ansible-playbook, ...).
	ExecutionModeAnsibleCommands ExecutionMode = "ansible-commands"
	// ExecutionModeGenericCommands marks any other executable.
	ExecutionModeGenericCommands ExecutionMode = "generic-commands"

	// RunnerModeInteractive supervises the child under a pseudo-terminal
	// and answers prompts.
	RunnerModeInteractive RunnerMode = "pexpect"
	// RunnerModeSubprocess supervises the child with plain pipes and keeps
	// stdout and stderr apart.
	RunnerModeSubprocess RunnerMode = "subprocess"

	automationToolPrefix = "ansible"
)

var (
	// ErrInvalidExecutionMode is the sentinel error wrapped by InvalidExecutionModeError.
	ErrInvalidExecutionMode = errors.New("invalid execution mode")
	// ErrInvalidRunnerMode is the sentinel error wrapped by InvalidRunnerModeError.
	ErrInvalidRunnerMode = errors.New("invalid runner mode")
)

type (
	// ExecutionMode governs which environment defaults are mandatory and how
	// the command line is shaped.
	ExecutionMode string

	// InvalidExecutionModeError is returned when an ExecutionMode is not recognized.
	InvalidExecutionModeError struct {
		Value ExecutionMode
	}

	// RunnerMode selects how the child process is supervised.
	RunnerMode string

	// InvalidRunnerModeError is returned when a RunnerMode is not recognized.
	InvalidRunnerModeError struct {
		Value RunnerMode
	}
)

// ExecutionModeFor classifies an executable by its base name.
func ExecutionModeFor(executable string) ExecutionMode {
	if strings.HasPrefix(filepath.Base(executable), automationToolPrefix) {
		return ExecutionModeAnsibleCommands
	}
	return ExecutionModeGenericCommands
}

// Error implements the error interface.
func (e *InvalidExecutionModeError) Error() string {
	return fmt.Sprintf("invalid execution mode %q (valid: ansible-commands, generic-commands)", e.Value)
}

// Unwrap returns ErrInvalidExecutionMode for errors.Is() compatibility.
func (e *InvalidExecutionModeError) Unwrap() error { return ErrInvalidExecutionMode }

// Validate returns an error if the ExecutionMode is not one of the defined modes.
func (m ExecutionMode) Validate() error {
	switch m {
	case ExecutionModeAnsibleCommands, ExecutionModeGenericCommands:
		return nil
	default:
		return &InvalidExecutionModeError{Value: m}
	}
}

// String returns the string representation of the ExecutionMode.
func (m ExecutionMode) String() string { return string(m) }

// Error implements the error interface.
func (e *InvalidRunnerModeError) Error() string {
	return fmt.Sprintf("invalid runner mode %q (valid: pexpect, subprocess)", e.Value)
}

// Unwrap returns ErrInvalidRunnerMode for errors.Is() compatibility.
func (e *InvalidRunnerModeError) Unwrap() error { return ErrInvalidRunnerMode }

// Validate returns an error if the RunnerMode is not one of the defined modes.
func (m RunnerMode) Validate() error {
	switch m {
	case RunnerModeInteractive, RunnerModeSubprocess:
		return nil
	default:
		return &InvalidRunnerModeError{Value: m}
	}
}

// String returns the string representation of the RunnerMode.
func (m RunnerMode) String() string { return string(m) }

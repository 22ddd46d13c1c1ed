// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"testing"
)

func TestStatusIsTerminal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status Status
		want   bool
	}{
		{StatusUnstarted, false},
		{StatusStarting, false},
		{StatusRunning, false},
		{StatusSuccessful, true},
		{StatusFailed, true},
		{StatusTimeout, true},
		{StatusCanceled, true},
		{StatusError, true},
	}

	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.want {
			t.Errorf("Status(%q).IsTerminal() = %v, want %v", tt.status, got, tt.want)
		}
		if err := tt.status.Validate(); err != nil {
			t.Errorf("Status(%q).Validate() unexpected error: %v", tt.status, err)
		}
	}
}

func TestStatusValidateRejectsUnknown(t *testing.T) {
	t.Parallel()

	err := Status("done").Validate()
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("Validate() error = %v, want ErrInvalidStatus", err)
	}
}

func TestExecutionModeFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		executable string
		want       ExecutionMode
	}{
		{"ansible-playbook", ExecutionModeAnsibleCommands},
		{"/usr/bin/ansible-doc", ExecutionModeAnsibleCommands},
		{"ansible", ExecutionModeAnsibleCommands},
		{"whoami", ExecutionModeGenericCommands},
		{"/opt/ansible/bin/python", ExecutionModeGenericCommands},
	}

	for _, tt := range tests {
		if got := ExecutionModeFor(tt.executable); got != tt.want {
			t.Errorf("ExecutionModeFor(%q) = %q, want %q", tt.executable, got, tt.want)
		}
	}
}

func TestRunnerModeValidate(t *testing.T) {
	t.Parallel()

	for _, m := range []RunnerMode{RunnerModeInteractive, RunnerModeSubprocess} {
		if err := m.Validate(); err != nil {
			t.Errorf("RunnerMode(%q).Validate() unexpected error: %v", m, err)
		}
	}
	if err := RunnerMode("threads").Validate(); !errors.Is(err, ErrInvalidRunnerMode) {
		t.Errorf("expected ErrInvalidRunnerMode, got %v", err)
	}
}

func TestIdentValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ident     Ident
		wantValid bool
	}{
		{"foo", true},
		{NewIdent(), true},
		{"", false},
		{"  ", false},
		{"a/b", false},
		{"..", false},
	}

	for _, tt := range tests {
		err := tt.ident.Validate()
		if (err == nil) != tt.wantValid {
			t.Errorf("Ident(%q).Validate() error = %v, wantValid %v", tt.ident, err, tt.wantValid)
		}
		if err != nil && !errors.Is(err, ErrInvalidIdent) {
			t.Errorf("error does not wrap ErrInvalidIdent: %v", err)
		}
	}
}

func TestNewIdentIsUnique(t *testing.T) {
	t.Parallel()

	if NewIdent() == NewIdent() {
		t.Error("NewIdent() returned the same value twice")
	}
}

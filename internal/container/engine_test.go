// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"slices"
	"testing"
)

func TestEngineKillAndRemoveArgs(t *testing.T) {
	t.Parallel()

	mock := &mockCLI{}
	e := NewPodmanEngine("/usr/bin/podman", WithExecCommand(mock.command))

	ctx := context.Background()
	if err := e.Kill(ctx, "ansible_runner_foo"); err != nil {
		t.Fatalf("Kill() error: %v", err)
	}
	if err := e.Remove(ctx, "ansible_runner_foo"); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}

	want := [][]string{
		{"kill", "ansible_runner_foo"},
		{"rm", "-f", "ansible_runner_foo"},
	}
	got := mock.calls()
	if len(got) != len(want) {
		t.Fatalf("invocations = %q, want %q", got, want)
	}
	for i := range want {
		if !slices.Equal(got[i], want[i]) {
			t.Errorf("invocation %d = %q, want %q", i, got[i], want[i])
		}
	}
	if e.Name() != "podman" {
		t.Errorf("Name() = %q", e.Name())
	}
}

func TestEngineKillGoneContainer(t *testing.T) {
	t.Parallel()

	mock := &mockCLI{results: []mockResult{{exitCode: 1, stderr: "Error response from daemon: No such container: x"}}}
	e := NewDockerEngine("/usr/bin/docker", WithExecCommand(mock.command))

	if err := e.Kill(context.Background(), "x"); err != nil {
		t.Errorf("Kill() of a gone container error: %v", err)
	}
	if n := len(mock.calls()); n != 1 {
		t.Errorf("invocations = %d, want 1", n)
	}
}

func TestEngineRemoveRetriesTransient(t *testing.T) {
	t.Parallel()

	mock := &mockCLI{results: []mockResult{
		{exitCode: 125, stderr: "Error: database is locked"},
		{exitCode: 0},
	}}
	e := NewPodmanEngine("/usr/bin/podman", WithExecCommand(mock.command))

	if err := e.Remove(context.Background(), "x"); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	if n := len(mock.calls()); n != 2 {
		t.Errorf("invocations = %d, want 2", n)
	}
}

func TestEngineRemovePermanentFailure(t *testing.T) {
	t.Parallel()

	mock := &mockCLI{results: []mockResult{{exitCode: 1, stderr: "Error: permission denied"}}}
	e := NewBaseCLIEngine("/usr/local/bin/nerdctl", WithExecCommand(mock.command))

	if err := e.Remove(context.Background(), "x"); err == nil {
		t.Fatal("Remove() expected error")
	}
	if n := len(mock.calls()); n != 1 {
		t.Errorf("invocations = %d, want 1", n)
	}
}

func TestEngineVersion(t *testing.T) {
	t.Parallel()

	mock := &mockCLI{results: []mockResult{{stdout: "4.9.3\n"}}}
	e := NewPodmanEngine("/usr/bin/podman", WithExecCommand(mock.command))

	v, err := e.Version(context.Background())
	if err != nil {
		t.Fatalf("Version() error: %v", err)
	}
	if v != "4.9.3" {
		t.Errorf("Version() = %q", v)
	}
	if !e.Available(context.Background()) {
		t.Error("Available() = false")
	}
}

func TestTypeOf(t *testing.T) {
	t.Parallel()

	tests := map[string]EngineType{
		"podman":             EngineTypePodman,
		"/usr/bin/docker":    EngineTypeDocker,
		"nerdctl":            "",
		"/opt/podman-remote": "",
	}
	for in, want := range tests {
		if got := TypeOf(in); got != want {
			t.Errorf("TypeOf(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewEngineMissingRuntime(t *testing.T) {
	t.Parallel()

	_, err := NewEngine("playrun-no-such-runtime")
	if !errors.Is(err, ErrEngineNotAvailable) {
		t.Errorf("NewEngine() error = %v, want ErrEngineNotAvailable", err)
	}
}

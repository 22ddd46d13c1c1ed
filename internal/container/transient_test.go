// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"testing"
)

func TestIsTransientError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "canceled", err: fmt.Errorf("kill: %w", context.Canceled), want: false},
		{name: "deadline", err: context.DeadlineExceeded, want: false},
		{name: "permission denied", err: errors.New("permission denied"), want: false},
		{name: "exit 1", err: newExitError(t, 1), want: false},
		{name: "engine exit 125", err: fmt.Errorf("rm: %w", newExitError(t, 125)), want: true},
		{name: "rootless race", err: errors.New("reading /proc/sys/net/ipv4/ping_group_range"), want: true},
		{name: "libpod lock", err: errors.New("database is locked"), want: true},
		{name: "overlay", err: errors.New("error creating overlay mount to /var/lib/containers"), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsTransientError(tt.err); got != tt.want {
				t.Errorf("IsTransientError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsContainerGone(t *testing.T) {
	t.Parallel()

	tests := []struct {
		out  string
		want bool
	}{
		{"Error response from daemon: No such container: ansible_runner_foo", true},
		{"Error: no container with name or ID \"ansible_runner_foo\" found", true},
		{"Error response from daemon: Container abc is not running", true},
		{"Error: permission denied", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsContainerGone([]byte(tt.out)); got != tt.want {
			t.Errorf("IsContainerGone(%q) = %v, want %v", tt.out, got, tt.want)
		}
	}
}

func newExitError(t *testing.T, code int) error {
	t.Helper()
	err := exec.CommandContext(context.Background(), "sh", "-c", fmt.Sprintf("exit %d", code)).Run()
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("sh exit %d: %v", code, err)
	}
	return exitErr
}

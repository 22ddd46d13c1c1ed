// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/playrun/playrun/internal/config"
	"github.com/playrun/playrun/pkg/types"
)

type staticConfig struct {
	cfg *config.Config
	err error
}

func (s staticConfig) Load(context.Context, config.LoadOptions) (*config.Config, error) {
	return s.cfg, s.err
}

// newTestApp returns an App whose runs land under a temporary directory.
func newTestApp(t *testing.T) (app *App, stdout, stderr *bytes.Buffer) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.PrivateDataBase = t.TempDir()
	stdout, stderr = &bytes.Buffer{}, &bytes.Buffer{}
	app = NewApp(Dependencies{
		Config:  staticConfig{cfg: cfg},
		Stdout:  stdout,
		Stderr:  stderr,
		Environ: func() []string { return []string{"PATH=/usr/bin:/bin"} },
	})
	return app, stdout, stderr
}

func execute(t *testing.T, app *App, args ...string) error {
	t.Helper()
	root := NewRootCommand(app)
	root.SetArgs(args)
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	return root.ExecuteContext(t.Context())
}

func TestGetVersionString(t *testing.T) {
	// Not parallel: subtests mutate package-level Version/Commit/BuildDate vars.

	t.Run("ldflags version", func(t *testing.T) {
		origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
		t.Cleanup(func() {
			Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
		})

		Version = "v1.2.3"
		Commit = "abc1234"
		BuildDate = "2025-06-15T10:00:00Z"

		want := "v1.2.3 (commit: abc1234, built: 2025-06-15T10:00:00Z)"
		if got := getVersionString(); got != want {
			t.Errorf("getVersionString() = %q, want %q", got, want)
		}
	})

	t.Run("dev build", func(t *testing.T) {
		origVersion := Version
		t.Cleanup(func() { Version = origVersion })

		Version = "dev"
		if got := getVersionString(); got != "dev (built from source)" {
			t.Errorf("getVersionString() = %q", got)
		}
	})
}

func TestCommandExitStatus(t *testing.T) {
	t.Parallel()

	app, stdout, _ := newTestApp(t)
	err := execute(t, app, "command", "--", "sh", "-c", "echo hello; exit 3")

	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 3 {
		t.Fatalf("execute() error = %v, want exit status 3", err)
	}
	if !strings.Contains(stdout.String(), "hello") {
		t.Errorf("stdout = %q, want the child's output", stdout.String())
	}
}

func TestCommandQuiet(t *testing.T) {
	t.Parallel()

	app, stdout, stderr := newTestApp(t)
	if err := execute(t, app, "command", "--quiet", "--", "sh", "-c", "echo hello"); err != nil {
		t.Fatalf("execute() error = %v", err)
	}
	if stdout.Len() != 0 {
		t.Errorf("stdout = %q, want nothing with --quiet", stdout.String())
	}
	if !strings.Contains(stderr.String(), "status=successful rc=0") {
		t.Errorf("stderr = %q, want a plain summary", stderr.String())
	}
}

func TestCommandNotFound(t *testing.T) {
	t.Parallel()

	app, _, stderr := newTestApp(t)
	err := execute(t, app, "command", "--", "no-such-tool-xyz")

	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 1 {
		t.Fatalf("execute() error = %v, want exit status 1", err)
	}
	if !strings.Contains(stderr.String(), "no-such-tool-xyz") {
		t.Errorf("stderr = %q, want the missing executable named", stderr.String())
	}
}

func TestRunRejectsTwoTargets(t *testing.T) {
	t.Parallel()

	app, _, _ := newTestApp(t)
	if err := execute(t, app, "run", "--playbook", "site.yml", "--module", "ping"); err == nil {
		t.Fatal("execute() error = nil, want mutually exclusive flags error")
	}
}

func TestStatusCommand(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "status"), []byte("failed"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "rc"), []byte("2"), 0o600); err != nil {
		t.Fatal(err)
	}

	app, stdout, _ := newTestApp(t)
	err := execute(t, app, "status", dir)

	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != types.ExitCode(2) {
		t.Fatalf("execute() error = %v, want exit status 2", err)
	}
	if !strings.Contains(stdout.String(), "failed") || !strings.Contains(stdout.String(), "rc 2") {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestConfigLoadFailureFallsBack(t *testing.T) {
	t.Parallel()

	stderr := &bytes.Buffer{}
	app := NewApp(Dependencies{
		Config: staticConfig{err: errors.New("broken config")},
		Stdout: &bytes.Buffer{},
		Stderr: stderr,
	})
	if err := execute(t, app, "config", "path"); err != nil {
		t.Fatalf("execute() error = %v", err)
	}
	if !strings.Contains(stderr.String(), "broken config") {
		t.Errorf("stderr = %q, want the load failure reported", stderr.String())
	}
	if app.cfg == nil || app.cfg.Container.Image != config.DefaultContainerImage {
		t.Errorf("cfg = %+v, want defaults", app.cfg)
	}
}

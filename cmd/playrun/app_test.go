// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"io"
	"slices"
	"testing"

	"github.com/playrun/playrun/internal/config"
	"github.com/playrun/playrun/pkg/runner"

	"github.com/charmbracelet/log"
)

func TestDefaultSettings(t *testing.T) {
	t.Parallel()

	t.Run("defaults leave switches unset", func(t *testing.T) {
		t.Parallel()

		s := defaultSettings(config.DefaultConfig())
		if s.ProcessIsolation != nil || s.InheritEnv != nil || s.IdleTimeout != nil || s.JobTimeout != nil {
			t.Errorf("defaultSettings() = %+v, want unset switches and timeouts", s)
		}
		if s.ProcessIsolationExecutable == nil || *s.ProcessIsolationExecutable != "podman" {
			t.Errorf("runtime = %v, want podman", s.ProcessIsolationExecutable)
		}
		if s.PexpectTimeout == nil || *s.PexpectTimeout != config.DefaultPexpectTimeout {
			t.Errorf("pexpect timeout = %v", s.PexpectTimeout)
		}
		if s.ContainerVolumeMounts != nil || s.ContainerOptions != nil {
			t.Errorf("empty lists must stay nil so they never mask env/settings")
		}
	})

	t.Run("configured values", func(t *testing.T) {
		t.Parallel()

		cfg := config.DefaultConfig()
		cfg.InheritEnv = true
		cfg.Container.Enabled = true
		cfg.Container.Runtime = config.ContainerRuntimeDocker
		cfg.Container.Image = "example.com/ee:1"
		cfg.Container.VolumeMounts = []string{"/data:/data:ro"}
		cfg.Timeouts.Idle = 30
		cfg.Timeouts.Job = 600

		s := defaultSettings(cfg)
		if s.InheritEnv == nil || !*s.InheritEnv || s.ProcessIsolation == nil || !*s.ProcessIsolation {
			t.Errorf("switches = %v %v, want both on", s.InheritEnv, s.ProcessIsolation)
		}
		if *s.ProcessIsolationExecutable != "docker" || *s.ContainerImage != "example.com/ee:1" {
			t.Errorf("container = %s %s", *s.ProcessIsolationExecutable, *s.ContainerImage)
		}
		if !slices.Equal(s.ContainerVolumeMounts, cfg.Container.VolumeMounts) {
			t.Errorf("mounts = %v", s.ContainerVolumeMounts)
		}
		if *s.IdleTimeout != 30 || *s.JobTimeout != 600 {
			t.Errorf("timeouts = %d %d", *s.IdleTimeout, *s.JobTimeout)
		}
	})
}

func TestRunnerOptionsApply(t *testing.T) {
	t.Parallel()

	environ := func() []string { return []string{"PATH=/usr/bin:/bin"} }
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		environ func() []string
		want    int
	}{
		{
			name: "defaults",
			want: 2,
		},
		{
			name:    "environment snapshot",
			environ: environ,
			want:    3,
		},
		{
			name: "every setting",
			mutate: func(cfg *config.Config) {
				cfg.PrivateDataBase = "/srv/playrun"
				cfg.RotateArtifacts = 3
				cfg.EnvAllowlist = []string{"HTTP_PROXY"}
			},
			environ: environ,
			want:    6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.DefaultConfig()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			opts := runnerOptions(cfg, log.New(io.Discard), tt.environ)
			if len(opts) != tt.want {
				t.Errorf("runnerOptions() = %d options, want %d", len(opts), tt.want)
			}
			if runner.New(opts...) == nil {
				t.Fatal("runner.New() = nil")
			}
		})
	}
}

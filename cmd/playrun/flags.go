// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/playrun/playrun/internal/envbuild"
	"github.com/playrun/playrun/pkg/runner"
	"github.com/playrun/playrun/pkg/types"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"mvdan.cc/sh/v3/shell"
)

// requestFlags are the flags every launching command shares: where the run
// lives, its environment and isolation.
type requestFlags struct {
	privateDataDir string
	ident          string
	artifactDir    string
	projectDir     string
	rotate         int
	envVars        []string
	sshKeyFile     string
	silenceSSHAdd  bool
	timeout        time.Duration
	runnerMode     string
	cwd            string
	quiet          bool

	isolation     bool
	runtime       string
	image         string
	volumeMounts  []string
	containerOpts []string
}

func (f *requestFlags) register(cmd *cobra.Command, withPrivateDataDir bool) {
	fs := cmd.Flags()
	if withPrivateDataDir {
		fs.StringVar(&f.privateDataDir, "private-data-dir", "", "private data directory (default: a temporary one)")
	}
	fs.StringVar(&f.ident, "ident", "", "artifact directory name (default: a random UUID)")
	fs.StringVar(&f.artifactDir, "artifact-dir", "", "artifacts root (default: <private-data-dir>/artifacts)")
	fs.StringVar(&f.projectDir, "project-dir", "", "project directory (default: <private-data-dir>/project)")
	fs.IntVar(&f.rotate, "rotate-artifacts", 0, "keep at most this many artifact directories")
	fs.StringArrayVar(&f.envVars, "env", nil, "set KEY=VALUE in the child environment (repeatable)")
	fs.StringVar(&f.sshKeyFile, "ssh-key", "", "private key file to load into a per-run ssh-agent")
	fs.BoolVar(&f.silenceSSHAdd, "silence-ssh-add", false, "discard ssh-add diagnostics")
	fs.DurationVar(&f.timeout, "timeout", 0, "stop the run after this long")
	fs.StringVar(&f.runnerMode, "runner-mode", "", "pexpect or subprocess (default depends on the command)")
	fs.StringVar(&f.cwd, "cwd", "", "working directory of host runs")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "do not echo the child's output")

	fs.BoolVar(&f.isolation, "process-isolation", false, "run inside a container")
	fs.StringVar(&f.runtime, "container-runtime", "", "podman or docker")
	fs.StringVar(&f.image, "container-image", "", "execution environment image")
	fs.StringArrayVar(&f.volumeMounts, "container-volume-mount", nil, "extra host:container[:mode] mount (repeatable)")
	fs.StringArrayVar(&f.containerOpts, "container-option", nil, "extra option for the container run (repeatable)")
}

// apply copies the flags onto req. Only flags given on the command line
// become settings, so env/settings and user configuration still apply.
func (f *requestFlags) apply(cmd *cobra.Command, app *App, req *runner.Request) error {
	if f.privateDataDir != "" {
		req.PrivateDataDir = f.privateDataDir
	}
	req.Ident = types.Ident(f.ident)
	req.ArtifactDir = f.artifactDir
	req.ProjectDir = f.projectDir
	req.RotateArtifacts = f.rotate
	req.Timeout = f.timeout
	req.RunnerMode = types.RunnerMode(f.runnerMode)
	req.Cwd = f.cwd
	req.SilenceSSHAdd = f.silenceSSHAdd

	if len(f.envVars) > 0 {
		vars, err := parseAssignments(f.envVars, false)
		if err != nil {
			return err
		}
		req.EnvVars = vars
	}
	if f.sshKeyFile != "" {
		key, err := os.ReadFile(f.sshKeyFile)
		if err != nil {
			return fmt.Errorf("read ssh key: %w", err)
		}
		req.SSHKey = string(key)
	}

	changed := cmd.Flags().Changed
	if changed("process-isolation") {
		req.Settings.ProcessIsolation = envbuild.Ptr(f.isolation)
	}
	if changed("container-runtime") {
		req.Settings.ProcessIsolationExecutable = envbuild.Ptr(f.runtime)
	}
	if changed("container-image") {
		req.Settings.ContainerImage = envbuild.Ptr(f.image)
	}
	if changed("container-volume-mount") {
		req.Settings.ContainerVolumeMounts = f.volumeMounts
	}
	if changed("container-option") {
		req.Settings.ContainerOptions = f.containerOpts
	}

	if !f.quiet {
		req.Stdout = app.stdout
		req.Stderr = app.stderr
	}
	return nil
}

// parseAssignments parses KEY=VALUE words. With typed set, values are read
// as YAML scalars so port=80 yields a number; otherwise they stay strings.
func parseAssignments(words []string, typed bool) (map[string]any, error) {
	out := make(map[string]any, len(words))
	for _, w := range words {
		k, v, ok := strings.Cut(w, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid assignment %q: want KEY=VALUE", w)
		}
		if !typed {
			out[k] = v
			continue
		}
		var val any
		if err := yaml.Unmarshal([]byte(v), &val); err != nil || val == nil {
			val = v
		}
		out[k] = val
	}
	return out, nil
}

// splitCmdline splits extra arguments with POSIX shell word rules, the same
// way env/cmdline is read.
func splitCmdline(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	fields, err := shell.Fields(s, os.Getenv)
	if err != nil {
		return nil, fmt.Errorf("parse --cmdline: %w", err)
	}
	return fields, nil
}

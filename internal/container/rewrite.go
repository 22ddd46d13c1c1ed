// SPDX-License-Identifier: MPL-2.0

package container

import (
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/playrun/playrun/internal/artifact"
	"github.com/playrun/playrun/internal/command"
	"github.com/playrun/playrun/internal/envbuild"
	"github.com/playrun/playrun/internal/issue"
	"github.com/playrun/playrun/pkg/types"

	"github.com/charmbracelet/log"
)

// NamePrefix starts every container name.
const NamePrefix = "ansible_runner_"

var (
	invalidNameChars = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

	// pathOptions take a host path that must be visible inside the container.
	pathOptions = []string{
		"-i", "--inventory", "--inventory-file",
		"--vault-password-file", "--vault-pass-file",
		"--private-key", "--key-file",
	}

	// valueOptions take a value that is not a playbook.
	valueOptions = []string{
		"-e", "--extra-vars", "-l", "--limit", "-f", "--forks", "-t", "--tags",
		"--skip-tags", "-u", "--user", "-c", "--connection", "-M", "--module-path",
		"--vault-id", "--start-at-task", "-T", "--timeout", "--become-user",
		"--become-method", "--ssh-common-args", "--ssh-extra-args", "--scp-extra-args",
		"--sftp-extra-args",
	}
)

type (
	// Descriptor is the isolation request of one invocation.
	Descriptor struct {
		// Runtime is the container CLI, a bare name or a path.
		Runtime      string
		Image        string
		Workdir      string
		VolumeMounts []string
		Options      []string
		RunnerMode   types.RunnerMode
		// Ambient is the host environment; HOME and SSH_AUTH_SOCK come from it
		// and mount sources expand against it.
		Ambient envbuild.Snapshot
		// BaseDir resolves relative mount sources; the project directory.
		BaseDir string
		// UID is the user docker runs the container as.
		UID int
	}

	// Request is what gets re-written.
	Request struct {
		// Argv is the final host argv, possibly wrapped by ssh-agent.
		Argv []string
		// Command is the unwrapped command, scanned for option paths.
		Command command.Vector
		// Env is the child's environment; it goes to env.list.
		Env    envbuild.Snapshot
		Layout artifact.Layout
	}

	// Rewritten is the container run command line.
	Rewritten struct {
		Vector command.Vector
		// Env is what was written to env.list.
		Env envbuild.Snapshot
		// Name is the container name, for kill and rm.
		Name string
	}

	// Rewriter turns host command lines into container run command lines.
	Rewriter struct {
		lookPath func(string) (string, error)
		logger   *log.Logger
	}

	// RewriterOption configures a Rewriter.
	RewriterOption func(*Rewriter)
)

// WithLookPath replaces the runtime lookup; exec.LookPath by default.
func WithLookPath(fn func(string) (string, error)) RewriterOption {
	return func(r *Rewriter) { r.lookPath = fn }
}

// WithLogger sets the rewriter's logger.
func WithLogger(l *log.Logger) RewriterOption {
	return func(r *Rewriter) { r.logger = l }
}

// NewRewriter creates a Rewriter.
func NewRewriter(opts ...RewriterOption) *Rewriter {
	r := &Rewriter{lookPath: exec.LookPath}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = log.New(io.Discard)
	}
	return r
}

// ContainerName derives the container name from an invocation identifier.
func ContainerName(ident types.Ident) string {
	return NamePrefix + invalidNameChars.ReplaceAllString(string(ident), "_")
}

// Rewrite produces the container run command line for req and writes the
// child's environment to env.list in the artifact directory.
func (r *Rewriter) Rewrite(req Request, d Descriptor) (Rewritten, error) {
	if _, err := r.lookPath(d.Runtime); err != nil {
		return Rewritten{}, issue.NewErrorContext().
			WithKind(issue.ErrConfiguration).
			WithIssue(issue.ContainerRuntimeNotFoundId).
			WithOperation("resolve container runtime").
			WithResource(d.Runtime).
			WithSuggestion("Install podman or docker, or set process_isolation_executable").
			Wrap(err).
			BuildError()
	}

	workdir := d.Workdir
	if workdir == "" {
		workdir = artifact.ContainerProjectDir
	}
	home, _ := d.Ambient.Get("HOME")
	mounts := &mountSet{
		workdir: workdir,
		baseDir: d.BaseDir,
		expand: func(s string) string {
			if s == "~" || strings.HasPrefix(s, "~/") {
				s = home + s[1:]
			}
			return os.Expand(s, func(k string) string {
				v, _ := d.Ambient.Get(k)
				return v
			})
		},
	}
	strategy := StrategyFor(d.Runtime)
	layout := req.Layout

	args := []string{"run", "--rm"}
	if d.RunnerMode != types.RunnerModeSubprocess {
		args = append(args, "--tty")
	}
	args = append(args, "--interactive", "--workdir", workdir)

	for _, p := range optionPaths(req.Command) {
		if err := mounts.add(p, "", ""); err != nil {
			return Rewritten{}, err
		}
	}
	if home != "" {
		sshDir := filepath.Join(home, ".ssh")
		for _, dst := range []string{"/home/runner/.ssh/", "/root/.ssh/"} {
			if err := mounts.add(sshDir, dst, ""); err != nil {
				return Rewritten{}, err
			}
		}
	}
	if sock, ok := d.Ambient.Get("SSH_AUTH_SOCK"); ok && sock != "" {
		if err := mounts.add(sock, "", ""); err != nil {
			return Rewritten{}, err
		}
	}
	args = append(args, mounts.flags...)
	mounts.flags = nil

	args = append(args, strategy.PreMountFlags(d)...)

	if err := mounts.add(layout.ArtifactRoot, artifact.ContainerArtifactRoot, "Z"); err != nil {
		return Rewritten{}, err
	}
	if err := mounts.add(layout.PrivateDataDir, artifact.ContainerRunnerDir, "Z"); err != nil {
		return Rewritten{}, err
	}
	for _, spec := range d.VolumeMounts {
		if err := mounts.addSpec(spec); err != nil {
			return Rewritten{}, err
		}
	}
	args = append(args, mounts.flags...)

	env := strategy.Env(req.Env)
	if err := layout.WriteFile(artifact.EnvListFile, env.EnvList()); err != nil {
		return Rewritten{}, issue.NewErrorContext().
			WithKind(issue.ErrSetup).
			WithIssue(issue.ArtifactDirUnusableId).
			WithOperation("write container env file").
			WithResource(layout.Path(artifact.EnvListFile)).
			Wrap(err).
			BuildError()
	}
	args = append(args, "--env-file", layout.Path(artifact.EnvListFile))
	args = append(args, strategy.PostEnvFlags(d)...)

	name := ContainerName(layout.Ident)
	args = append(args, "--name", name)
	args = append(args, d.Options...)
	args = append(args, d.Image)
	args = append(args, req.Argv...)

	r.logger.Debug("container command", "runtime", d.Runtime, "name", name, "mounts", countMounts(args))

	return Rewritten{
		Vector: command.Vector{
			Executable: d.Runtime,
			Args:       args,
			Mode:       req.Command.Mode,
		},
		Env:  env,
		Name: name,
	}, nil
}

// optionPaths returns the host paths named by the command that the container
// needs to see: the playbook of an ansible-playbook run and the values of
// inventory, vault password and private key options.
func optionPaths(v command.Vector) []string {
	if v.Mode != types.ExecutionModeAnsibleCommands || slices.Contains(v.Args, "-h") || slices.Contains(v.Args, "--help") {
		return nil
	}

	var paths, positional []string
	for i := 0; i < len(v.Args); i++ {
		arg := v.Args[i]
		if name, value, ok := strings.Cut(arg, "="); ok && strings.HasPrefix(name, "--") {
			if slices.Contains(pathOptions, name) {
				paths = append(paths, splitInventory(name, value)...)
			}
			continue
		}
		switch {
		case slices.Contains(pathOptions, arg):
			if i+1 < len(v.Args) {
				paths = append(paths, splitInventory(arg, v.Args[i+1])...)
				i++
			}
		case slices.Contains(valueOptions, arg):
			i++
		case !strings.HasPrefix(arg, "-"):
			positional = append(positional, arg)
		}
	}

	if filepath.Base(v.Executable) == command.PlaybookExecutable && len(positional) > 0 {
		paths = append([]string{positional[len(positional)-1]}, paths...)
	}
	return paths
}

// splitInventory expands a comma-separated host list into nothing: such
// values name hosts, not files.
func splitInventory(option, value string) []string {
	if (option == "-i" || strings.HasPrefix(option, "--inventory")) && strings.Contains(value, ",") {
		return nil
	}
	return []string{value}
}

func countMounts(args []string) int {
	n := 0
	for _, a := range args {
		if a == "-v" {
			n++
		}
	}
	return n
}

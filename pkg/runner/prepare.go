// SPDX-License-Identifier: MPL-2.0

package runner

import (
	"context"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/playrun/playrun/internal/artifact"
	"github.com/playrun/playrun/internal/command"
	"github.com/playrun/playrun/internal/config"
	"github.com/playrun/playrun/internal/container"
	"github.com/playrun/playrun/internal/envbuild"
	"github.com/playrun/playrun/internal/issue"
	"github.com/playrun/playrun/internal/secret"
	"github.com/playrun/playrun/internal/supervisor"
	"github.com/playrun/playrun/pkg/types"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"
)

// Files written to the artifact directory from inline request data.
const (
	playbookFile  = "playbook.yml"
	inventoryFile = "inventory"

	rolesPathKey = "ANSIBLE_ROLES_PATH"
)

// invocation is a fully prepared run: every stage's output, immutable once
// built.
type invocation struct {
	layout  artifact.Layout
	env     *envbuild.Environment
	command command.Vector
	spec    supervisor.Spec
}

// release undoes preparation for a run that never started.
func (inv *invocation) release(logger *log.Logger) {
	for _, fn := range inv.spec.Finalizers {
		if err := fn(); err != nil {
			logger.Warn("finalizer failed", "err", err)
		}
	}
	if err := inv.layout.Discard(); err != nil {
		logger.Warn("rejected run not removed", "err", err)
	}
}

// prepare runs the pipeline stages in order: layout, inputs, environment,
// command line, secret wrap, isolation rewrite.
func (r *Runner) prepare(ctx context.Context, req *Request) (inv *invocation, err error) {
	t, err := req.target()
	if err != nil {
		return nil, err
	}
	if req.RunnerMode != "" {
		if err := req.RunnerMode.Validate(); err != nil {
			return nil, issue.Configuration("validate request", string(req.RunnerMode), err)
		}
	}

	ident := req.Ident
	if ident == "" {
		ident = types.NewIdent()
	}
	layout, err := artifact.Resolve(artifact.Options{
		PrivateDataDir: req.PrivateDataDir,
		AutoCreateBase: r.privateDataBase,
		ArtifactRoot:   req.ArtifactDir,
		Ident:          ident,
		ProjectDir:     req.ProjectDir,
	})
	if err != nil {
		return nil, err
	}
	inv = &invocation{layout: layout}
	defer func() {
		if err != nil {
			inv.release(r.logger)
		}
	}()

	mode := req.runnerMode(t)
	ambient := r.environ()

	envVars := maps.Clone(req.EnvVars)
	if t == targetRole {
		if _, ok := envVars[rolesPathKey]; !ok {
			if envVars == nil {
				envVars = make(map[string]any, 1)
			}
			roles := append(slices.Clone(req.RolesPath), filepath.Join(layout.ProjectDir, "roles"))
			envVars[rolesPathKey] = strings.Join(roles, string(os.PathListSeparator))
		}
	}

	env, err := envbuild.NewBuilder(envbuild.WithLogger(r.logger.WithPrefix("envbuild"))).Build(envbuild.Input{
		Layout:        layout,
		ExecutionMode: executionMode(t, req),
		RunnerMode:    mode,
		Ambient:       ambient,
		Allowlist:     slices.Concat(r.allowlist, req.EnvAllowlist),
		EnvVars:       envVars,
		Settings:      req.Settings,
		Timeout:       req.Timeout,
		SSHKey:        req.SSHKey,
		FactCacheType: req.FactCacheType,
		Cwd:           req.Cwd,
		Defaults:      r.defaults,
	})
	if err != nil {
		return inv, err
	}
	inv.env = env
	isolated := env.Isolation.Enabled

	vec, err := r.compose(t, req, layout, env)
	if err != nil {
		return inv, err
	}
	inv.command = vec

	hostPATH, _ := env.Env.Get("PATH")
	if !isolated {
		if vec, err = command.LookPath(vec, hostPATH); err != nil {
			return inv, err
		}
	}

	final := vec
	var finalizers []func() error
	if env.SSHKey != "" {
		keyPath := layout.Path(artifact.SSHKeyDataFile)
		ch, err := secret.OpenChannel(ctx, keyPath, []byte(env.SSHKey))
		if err != nil {
			return inv, err
		}
		finalizers = append(finalizers, ch.Close)
		inv.spec.Finalizers = finalizers

		if isolated {
			keyPath = layout.InContainer(keyPath)
		}
		wrapped, err := secret.WrapWithSSHAgent(vec.Argv(), keyPath, "", req.SilenceSSHAdd)
		if err != nil {
			return inv, issue.Configuration("wrap command with ssh-agent", vec.Executable, err)
		}
		final = command.Vector{Executable: wrapped[0], Args: wrapped[1:], Mode: vec.Mode}
		if !isolated {
			if final, err = command.LookPath(final, hostPATH); err != nil {
				return inv, err
			}
		}
	}

	procEnv := env.Env
	var containerName string
	var killer supervisor.ContainerKiller
	if isolated {
		ambientEnv := envbuild.NewSnapshot(envbuild.ParseEnviron(ambient))
		rw, err := r.rewriter().Rewrite(container.Request{
			Argv:    final.Argv(),
			Command: vec,
			Env:     env.Env,
			Layout:  layout,
		}, container.Descriptor{
			Runtime:      env.Isolation.Runtime,
			Image:        orDefault(env.Isolation.Image, config.DefaultContainerImage),
			Workdir:      env.Isolation.Workdir,
			VolumeMounts: env.Isolation.VolumeMounts,
			Options:      env.Isolation.Options,
			RunnerMode:   mode,
			Ambient:      ambientEnv,
			BaseDir:      layout.ProjectDir,
			UID:          os.Getuid(),
		})
		if err != nil {
			return inv, err
		}
		ambientPATH, _ := ambientEnv.Get("PATH")
		if final, err = command.LookPath(rw.Vector, ambientPATH); err != nil {
			return inv, err
		}
		procEnv = ambientEnv
		containerName = rw.Name
		if engine, err := r.engineFor(env.Isolation.Runtime); err != nil {
			r.logger.Warn("container cleanup unavailable", "runtime", env.Isolation.Runtime, "err", err)
		} else {
			killer = engine
		}
	}

	timeout, idle := env.JobTimeout, env.IdleTimeout
	if mode == types.RunnerModeSubprocess {
		timeout, idle = env.SubprocessTimeout, 0
	}
	stdout, stderr := req.Stdout, req.Stderr
	if isSet(env.Settings.SuppressAnsibleOutput) {
		stdout, stderr = nil, nil
	}

	inv.spec = supervisor.Spec{
		Command:            final,
		Env:                procEnv,
		Cwd:                env.Cwd,
		Mode:               mode,
		Prompts:            env.Prompts,
		IdleTimeout:        idle,
		Timeout:            timeout,
		PollInterval:       env.PollInterval,
		Layout:             layout,
		SuppressOutputFile: isSet(env.Settings.SuppressOutputFile),
		Stdout:             stdout,
		Stderr:             stderr,
		Container:          containerName,
		Killer:             killer,
		StatusHandler:      req.StatusHandler,
		Finalizers:         finalizers,
	}

	// Older runs are only rotated away once this one is certain to start.
	keep := req.RotateArtifacts
	if keep == 0 {
		keep = r.rotate
	}
	if removed, err := artifact.Rotate(layout.ArtifactRoot, keep, ident); err != nil {
		r.logger.Warn("artifact rotation failed", "err", err)
	} else if len(removed) > 0 {
		r.logger.Debug("rotated artifacts", "removed", len(removed))
	}
	return inv, nil
}

// compose builds the automation command line for t. Paths handed to an
// isolated run are mapped to where the container sees them.
func (r *Runner) compose(t target, req *Request, layout artifact.Layout, env *envbuild.Environment) (command.Vector, error) {
	visible := func(p string) string {
		if env.Isolation.Enabled {
			return layout.InContainer(p)
		}
		return p
	}

	cmdline := env.CmdlineArgs
	if req.Cmdline != nil {
		cmdline = req.Cmdline
	}

	switch t {
	case targetComposed:
		return *req.composed, nil
	case targetExecutable:
		return command.Generic(req.Executable, req.Args, cmdline), nil
	}

	inventories := slices.Clone(req.Inventory)
	if req.InventoryData != "" {
		if err := writeInput(layout, inventoryFile, []byte(req.InventoryData)); err != nil {
			return command.Vector{}, err
		}
		inventories = append(inventories, visible(layout.Path(inventoryFile)))
	}
	if len(inventories) == 0 {
		if _, err := os.Stat(layout.InventoryPath()); err == nil {
			inventories = []string{visible(layout.InventoryPath())}
		}
	}

	opts := command.RunOptions{
		CmdlineArgs: cmdline,
		Inventories: inventories,
		Limit:       req.Limit,
		ExtraVars:   req.ExtraVars,
		Verbosity:   req.Verbosity,
		Tags:        req.Tags,
		SkipTags:    req.SkipTags,
		Forks:       req.Forks,
	}
	if env.ExtraVarsFile != "" {
		opts.ExtraVarsFile = visible(env.ExtraVarsFile)
	}

	switch t {
	case targetModule:
		return command.AdHoc(command.AdHocOptions{
			RunOptions:  opts,
			Module:      req.Module,
			ModuleArgs:  req.ModuleArgs,
			HostPattern: req.HostPattern,
		})
	case targetPlays, targetRole:
		plays := req.Plays
		if t == targetRole {
			plays = rolePlays(req)
		}
		data, err := yaml.Marshal(plays)
		if err != nil {
			return command.Vector{}, issue.Configuration("encode inline playbook", "", err)
		}
		if err := writeInput(layout, playbookFile, data); err != nil {
			return command.Vector{}, err
		}
		return command.Playbook(command.PlaybookOptions{RunOptions: opts, Playbook: visible(layout.Path(playbookFile))})
	default:
		return command.Playbook(command.PlaybookOptions{RunOptions: opts, Playbook: req.Playbook})
	}
}

// rolePlays is the one-play playbook that applies req.Role.
func rolePlays(req *Request) []map[string]any {
	role := map[string]any{"name": req.Role}
	if len(req.RoleVars) > 0 {
		role["vars"] = req.RoleVars
	}
	hosts := orDefault(req.Hosts, "all")
	return []map[string]any{{
		"hosts":        hosts,
		"gather_facts": !req.SkipFacts,
		"roles":        []any{role},
	}}
}

func writeInput(layout artifact.Layout, name string, data []byte) error {
	if err := layout.WriteFile(name, data); err != nil {
		return issue.NewErrorContext().
			WithKind(issue.ErrSetup).
			WithIssue(issue.ArtifactDirUnusableId).
			WithOperation("write " + name).
			WithResource(layout.Path(name)).
			Wrap(err).
			BuildError()
	}
	return nil
}

func executionMode(t target, req *Request) types.ExecutionMode {
	switch t {
	case targetComposed:
		return req.composed.Mode
	case targetExecutable:
		return types.ExecutionModeFor(req.Executable)
	default:
		return types.ExecutionModeAnsibleCommands
	}
}

func (r *Runner) rewriter() *container.Rewriter {
	opts := []container.RewriterOption{container.WithLogger(r.logger.WithPrefix("container"))}
	if r.lookPath != nil {
		opts = append(opts, container.WithLookPath(r.lookPath))
	}
	return container.NewRewriter(opts...)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func isSet(b *bool) bool { return b != nil && *b }

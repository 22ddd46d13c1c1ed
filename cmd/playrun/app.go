// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/playrun/playrun/internal/config"
	"github.com/playrun/playrun/internal/envbuild"
	"github.com/playrun/playrun/pkg/runner"

	"github.com/charmbracelet/log"
)

type (
	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// App wires CLI services and shared dependencies. Cobra handlers receive
	// an App and build their runner through it.
	App struct {
		Config  ConfigProvider
		stdout  io.Writer
		stderr  io.Writer
		environ func() []string

		cfg        *config.Config
		configPath string
		verbose    bool
		logger     *log.Logger
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config  ConfigProvider
		Stdout  io.Writer
		Stderr  io.Writer
		Environ func() []string
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Environ == nil {
		deps.Environ = os.Environ
	}
	return &App{
		Config:  deps.Config,
		stdout:  deps.Stdout,
		stderr:  deps.Stderr,
		environ: deps.Environ,
		cfg:     config.DefaultConfig(),
		logger:  log.New(io.Discard),
	}
}

// configure loads configuration and sets up logging. A configuration that
// fails to load is reported and replaced by the defaults.
func (a *App) configure(ctx context.Context, flags *rootFlags) error {
	a.configPath = flags.configPath
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: flags.configPath})
	if err != nil {
		fmt.Fprintln(a.stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, flags.verbose))
		cfg = config.DefaultConfig()
	}
	a.cfg = cfg
	a.verbose = flags.verbose || cfg.UI.Verbose

	level := log.WarnLevel
	if a.verbose {
		level = log.DebugLevel
	}
	a.logger = log.NewWithOptions(a.stderr, log.Options{
		Level:           level,
		Prefix:          "playrun",
		ReportTimestamp: a.verbose,
	})
	return nil
}

// runner builds a Runner from the loaded configuration.
func (a *App) runner() *runner.Runner {
	return runner.New(runnerOptions(a.cfg, a.logger, a.environ)...)
}

// runnerOptions maps user configuration onto Runner defaults. Per-run
// env/settings and flags still take precedence over everything here.
func runnerOptions(cfg *config.Config, logger *log.Logger, environ func() []string) []runner.Option {
	opts := []runner.Option{
		runner.WithLogger(logger.WithPrefix("runner")),
		runner.WithDefaults(defaultSettings(cfg)),
	}
	if environ != nil {
		opts = append(opts, runner.WithEnviron(environ))
	}
	if cfg.PrivateDataBase != "" {
		opts = append(opts, runner.WithPrivateDataBase(cfg.PrivateDataBase))
	}
	if cfg.RotateArtifacts > 0 {
		opts = append(opts, runner.WithRotateArtifacts(cfg.RotateArtifacts))
	}
	if len(cfg.EnvAllowlist) > 0 {
		opts = append(opts, runner.WithEnvAllowlist(cfg.EnvAllowlist...))
	}
	return opts
}

// defaultSettings are the settings implied by cfg. Zero timeouts and
// disabled switches stay unset so they never mask env/settings.
func defaultSettings(cfg *config.Config) envbuild.Settings {
	var s envbuild.Settings
	if cfg.InheritEnv {
		s.InheritEnv = envbuild.Ptr(true)
	}
	if cfg.Container.Enabled {
		s.ProcessIsolation = envbuild.Ptr(true)
	}
	if cfg.Container.Runtime != "" {
		s.ProcessIsolationExecutable = envbuild.Ptr(cfg.Container.Runtime.String())
	}
	if cfg.Container.Image != "" {
		s.ContainerImage = envbuild.Ptr(cfg.Container.Image)
	}
	if len(cfg.Container.VolumeMounts) > 0 {
		s.ContainerVolumeMounts = cfg.Container.VolumeMounts
	}
	if len(cfg.Container.Options) > 0 {
		s.ContainerOptions = cfg.Container.Options
	}
	if cfg.Timeouts.Idle > 0 {
		s.IdleTimeout = envbuild.Ptr(cfg.Timeouts.Idle)
	}
	if cfg.Timeouts.Job > 0 {
		s.JobTimeout = envbuild.Ptr(cfg.Timeouts.Job)
	}
	if cfg.Timeouts.Pexpect > 0 {
		s.PexpectTimeout = envbuild.Ptr(float64(cfg.Timeouts.Pexpect))
	}
	return s
}

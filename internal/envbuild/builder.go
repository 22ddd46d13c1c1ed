// SPDX-License-Identifier: MPL-2.0

package envbuild

import (
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/playrun/playrun/internal/artifact"
	"github.com/playrun/playrun/pkg/types"

	"github.com/charmbracelet/log"
)

// Fixed defaults of automation-tool invocations.
const (
	DefaultStdoutCallback = "awx_display"
	DefaultFactCacheType  = "jsonfile"
	DefaultPexpectTimeout = 5 * time.Second
	DefaultRuntime        = "podman"

	// LibDirKey names the directory holding the runner's own callback plugins.
	LibDirKey = "AWX_LIB_DIRECTORY"
	// CallbacksDir is the library directory under the private data directory
	// used when LibDirKey is unset.
	CallbacksDir = "callbacks"
)

var (
	// DefaultAllowlist is the ambient variables copied into host runs.
	DefaultAllowlist = []string{
		"PATH", "HOME", "USER", "LOGNAME", "LANG", "LC_ALL", "LC_CTYPE",
		"TERM", "TMPDIR", "SHELL", "SSH_AUTH_SOCK",
	}

	// AdditiveKeys are path lists concatenated across layers instead of
	// replaced: the module search path and the extra plugin library path.
	AdditiveKeys = []string{"PYTHONPATH", "ANSIBLE_CALLBACK_PLUGINS"}
)

type (
	// Input is everything one build reads. Nothing is taken from the process
	// environment; callers capture Ambient once per invocation.
	Input struct {
		Layout        artifact.Layout
		ExecutionMode types.ExecutionMode
		RunnerMode    types.RunnerMode
		// Ambient is an os.Environ()-style snapshot.
		Ambient []string
		// Allowlist extends DefaultAllowlist.
		Allowlist []string
		// EnvVars are explicit overrides; values are coerced to strings.
		EnvVars map[string]any
		// Settings are explicit settings layered over env/settings.
		Settings Settings
		// Timeout is the explicit overall limit: the job timeout in
		// interactive mode, the subprocess timeout otherwise.
		Timeout time.Duration
		// SSHKey is explicit key material; it wins over env/ssh_key.
		SSHKey string
		// FactCacheType defaults to jsonfile.
		FactCacheType string
		// Cwd overrides the host working directory.
		Cwd string
		// Defaults seed settings below env/settings (e.g. from user config).
		Defaults Settings
	}

	// Environment is the immutable output of one build.
	Environment struct {
		Env       Snapshot
		Prompts   PromptRules
		Settings  Settings
		Isolation Isolation

		IdleTimeout       time.Duration
		JobTimeout        time.Duration
		SubprocessTimeout time.Duration
		PollInterval      time.Duration

		// SSHKey is handed to secret delivery and never enters Env.
		SSHKey string
		// CmdlineArgs come from env/cmdline.
		CmdlineArgs []string
		// ExtraVarsFile is env/extravars when it exists.
		ExtraVarsFile string
		// Cwd is the host working directory of the child.
		Cwd string
	}

	// Builder assembles Environments.
	Builder struct {
		logger *log.Logger
	}

	// Option configures a Builder.
	Option func(*Builder)
)

// WithLogger sets the logger used for warnings.
func WithLogger(l *log.Logger) Option {
	return func(b *Builder) {
		b.logger = l
	}
}

// NewBuilder creates a Builder. Without WithLogger, warnings are discarded.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = log.New(io.Discard)
	}
	return b
}

// Build produces the Environment for one invocation. Malformed per-run files
// yield a configuration error before anything is spawned.
func (b *Builder) Build(in Input) (*Environment, error) {
	layout := in.Layout
	ambient := ParseEnviron(in.Ambient)

	fileSettings, err := loadSettings(layout.EnvFile(SettingsFile))
	if err != nil {
		return nil, err
	}
	settings := in.Defaults.Over(fileSettings).Over(in.Settings)
	isolation := resolveIsolation(settings)

	fileVars, err := loadEnvVars(layout.EnvFile(EnvVarsFile))
	if err != nil {
		return nil, err
	}
	explicit := StringifyMap(in.EnvVars)

	env := make(map[string]string)
	if !isolation.Enabled {
		if boolValue(settings.InheritEnv) {
			for k, v := range ambient {
				env[k] = v
			}
		} else {
			for _, k := range slices.Concat(DefaultAllowlist, in.Allowlist) {
				if v, ok := ambient[k]; ok {
					env[k] = v
				}
			}
		}
	}
	for k, v := range fileVars {
		env[k] = v
	}
	for k, v := range explicit {
		env[k] = v
	}

	libDir := explicit[LibDirKey]
	if libDir == "" {
		libDir = ambient[LibDirKey]
	}
	if libDir == "" && in.Layout.PrivateDataDir != "" {
		dir := filepath.Join(in.Layout.PrivateDataDir, CallbacksDir)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			libDir = dir
		}
	}
	for _, key := range AdditiveKeys {
		layers := []string{fileVars[key], explicit[key]}
		if !isolation.Enabled {
			layers = append([]string{ambient[key]}, layers...)
			layers = append(layers, libDir)
		}
		if joined := joinPathLists(layers...); joined != "" {
			env[key] = joined
		} else {
			delete(env, key)
		}
	}

	artifactDir := layout.ArtifactDir
	if isolation.Enabled {
		artifactDir = layout.ContainerArtifactDir()
		env["LAUNCHED_BY_RUNNER"] = "1"
	}

	setDefault := func(k, v string) {
		if _, ok := env[k]; !ok {
			env[k] = v
		}
	}
	setDefault("RUNNER_OMIT_EVENTS", pyBool(boolValue(settings.OmitEventData)))
	setDefault("RUNNER_ONLY_FAILED_EVENTS", pyBool(boolValue(settings.OnlyFailedEventData)))

	if in.ExecutionMode == types.ExecutionModeAnsibleCommands {
		setDefault("ANSIBLE_STDOUT_CALLBACK", DefaultStdoutCallback)
		setDefault("ANSIBLE_RETRY_FILES_ENABLED", "False")
		setDefault("ANSIBLE_HOST_KEY_CHECKING", "False")
		setDefault("AWX_ISOLATED_DATA_DIR", artifactDir)

		factCache := in.FactCacheType
		if factCache == "" {
			factCache = DefaultFactCacheType
		}
		if factCache == DefaultFactCacheType {
			setDefault("ANSIBLE_CACHE_PLUGIN", DefaultFactCacheType)
			setDefault("ANSIBLE_CACHE_PLUGIN_CONNECTION", filepath.Join(artifactDir, artifact.FactCacheDir))
		}
	}

	prompts := WithSentinels(loadPasswords(layout.EnvFile(PasswordsFile), b.logger))

	sshKey := in.SSHKey
	if sshKey == "" {
		if sshKey, err = loadSSHKey(layout.EnvFile(SSHKeyFile)); err != nil {
			return nil, err
		}
	}

	snapshot := NewSnapshot(env)
	cmdline, err := loadCmdline(layout.EnvFile(CmdlineFile), func(name string) string {
		v, _ := snapshot.Get(name)
		return v
	})
	if err != nil {
		return nil, err
	}

	out := &Environment{
		Env:           snapshot,
		Prompts:       prompts,
		Settings:      settings,
		Isolation:     isolation,
		IdleTimeout:   seconds(settings.IdleTimeout),
		JobTimeout:    seconds(settings.JobTimeout),
		PollInterval:  DefaultPexpectTimeout,
		SSHKey:        sshKey,
		CmdlineArgs:   cmdline,
		ExtraVarsFile: existingFile(layout.EnvFile(ExtraVarsFile)),
		Cwd:           resolveCwd(in.Cwd, layout),
	}
	out.SubprocessTimeout = seconds(settings.SubprocessTimeout)
	if settings.PexpectTimeout != nil && *settings.PexpectTimeout > 0 {
		out.PollInterval = time.Duration(*settings.PexpectTimeout * float64(time.Second))
	}
	if in.Timeout > 0 {
		if in.RunnerMode == types.RunnerModeSubprocess {
			out.SubprocessTimeout = in.Timeout
		} else {
			out.JobTimeout = in.Timeout
		}
	}

	return out, nil
}

func resolveIsolation(s Settings) Isolation {
	iso := Isolation{
		Enabled:      boolValue(s.ProcessIsolation),
		Runtime:      stringValue(s.ProcessIsolationExecutable, DefaultRuntime),
		Image:        stringValue(s.ContainerImage, ""),
		VolumeMounts: slices.Clone(s.ContainerVolumeMounts),
		Options:      slices.Clone(s.ContainerOptions),
		Workdir:      stringValue(s.ContainerWorkdir, artifact.ContainerProjectDir),
	}
	return iso
}

func resolveCwd(explicit string, layout artifact.Layout) string {
	if explicit != "" {
		return explicit
	}
	if info, err := os.Stat(layout.ProjectDir); err == nil && info.IsDir() {
		return layout.ProjectDir
	}
	return layout.PrivateDataDir
}

// joinPathLists concatenates ':'-separated lists in order, dropping empty
// entries. Repeated entries are kept so each layer's value appears intact.
func joinPathLists(lists ...string) string {
	var parts []string
	for _, list := range lists {
		for _, p := range strings.Split(list, string(os.PathListSeparator)) {
			if p != "" {
				parts = append(parts, p)
			}
		}
	}
	return strings.Join(parts, string(os.PathListSeparator))
}

func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

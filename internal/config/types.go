// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// ContainerRuntimePodman runs isolated invocations with Podman.
	ContainerRuntimePodman ContainerRuntime = "podman"
	// ContainerRuntimeDocker runs isolated invocations with Docker.
	ContainerRuntimeDocker ContainerRuntime = "docker"

	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	// DefaultContainerImage is the execution environment image used when
	// isolation is on and no image is configured.
	DefaultContainerImage = "quay.io/ansible/ansible-runner:devel"
	// DefaultPexpectTimeout is the prompt polling interval in seconds.
	DefaultPexpectTimeout = 5
)

var (
	// ErrInvalidContainerRuntime is returned when a ContainerRuntime value is not recognized.
	ErrInvalidContainerRuntime = errors.New("invalid container runtime")
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ContainerRuntime names the container runtime executable.
	ContainerRuntime string

	// InvalidContainerRuntimeError is returned when a ContainerRuntime value is not recognized.
	InvalidContainerRuntimeError struct {
		Value ContainerRuntime
	}

	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// InvalidConfigError aggregates field errors of a Config.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config is the user-level configuration of the playrun CLI. Per-run
	// settings in <private_data_dir>/env/settings still override it.
	Config struct {
		// PrivateDataBase is where auto-created private data directories go.
		// Empty means the OS temp dir.
		PrivateDataBase string `json:"private_data_base" mapstructure:"private_data_base"`
		// RotateArtifacts keeps at most this many artifact directories; 0 keeps all.
		RotateArtifacts int `json:"rotate_artifacts" mapstructure:"rotate_artifacts"`
		// InheritEnv propagates the whole ambient environment to host runs.
		InheritEnv bool `json:"inherit_env" mapstructure:"inherit_env"`
		// EnvAllowlist extends the ambient keys copied into host runs.
		EnvAllowlist []string `json:"env_allowlist" mapstructure:"env_allowlist"`
		// Container configures process isolation defaults.
		Container ContainerConfig `json:"container" mapstructure:"container"`
		// Timeouts holds default supervision timeouts in seconds.
		Timeouts TimeoutConfig `json:"timeouts" mapstructure:"timeouts"`
		// UI configures the user interface
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// ContainerConfig configures process isolation defaults.
	ContainerConfig struct {
		// Enabled turns process isolation on for every run.
		Enabled bool `json:"enabled" mapstructure:"enabled"`
		// Runtime is "podman" or "docker".
		Runtime ContainerRuntime `json:"runtime" mapstructure:"runtime"`
		// Image is the execution environment image.
		Image string `json:"image" mapstructure:"image"`
		// VolumeMounts are extra host:container[:mode] mounts.
		VolumeMounts []string `json:"volume_mounts" mapstructure:"volume_mounts"`
		// Options are passed to "<runtime> run" before the image.
		Options []string `json:"options" mapstructure:"options"`
	}

	// TimeoutConfig holds default supervision timeouts in seconds. Zero disables
	// idle and job timeouts.
	TimeoutConfig struct {
		Idle    int `json:"idle" mapstructure:"idle"`
		Job     int `json:"job" mapstructure:"job"`
		Pexpect int `json:"pexpect" mapstructure:"pexpect"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// ColorScheme sets the color scheme
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		// Verbose enables verbose output
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}
)

// Error implements the error interface.
func (e *InvalidContainerRuntimeError) Error() string {
	return fmt.Sprintf("invalid container runtime %q (valid: podman, docker)", e.Value)
}

// Unwrap returns ErrInvalidContainerRuntime for errors.Is() compatibility.
func (e *InvalidContainerRuntimeError) Unwrap() error { return ErrInvalidContainerRuntime }

// Validate returns an error if the ContainerRuntime is not a supported runtime.
func (r ContainerRuntime) Validate() error {
	switch r {
	case ContainerRuntimePodman, ContainerRuntimeDocker:
		return nil
	default:
		return &InvalidContainerRuntimeError{Value: r}
	}
}

// String returns the string representation of the ContainerRuntime.
func (r ContainerRuntime) String() string { return string(r) }

// Error implements the error interface.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns ErrInvalidColorScheme for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

// Validate returns an error if the ColorScheme is not one of the defined schemes.
func (c ColorScheme) Validate() error {
	switch c {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return nil
	default:
		return &InvalidColorSchemeError{Value: c}
	}
}

// String returns the string representation of the ColorScheme.
func (c ColorScheme) String() string { return string(c) }

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, fe := range e.FieldErrors {
		msgs = append(msgs, fe.Error())
	}
	return "invalid config: " + strings.Join(msgs, "; ")
}

// Unwrap returns the sentinel and every field error.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// Validate checks constraints CUE cannot express on decoded values.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Container.Runtime.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.UI.ColorScheme.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.RotateArtifacts < 0 {
		errs = append(errs, fmt.Errorf("rotate_artifacts must not be negative, got %d", c.RotateArtifacts))
	}
	for name, v := range map[string]int{"idle": c.Timeouts.Idle, "job": c.Timeouts.Job, "pexpect": c.Timeouts.Pexpect} {
		if v < 0 {
			errs = append(errs, fmt.Errorf("timeouts.%s must not be negative, got %d", name, v))
		}
	}
	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		EnvAllowlist: []string{},
		Container: ContainerConfig{
			Runtime:      ContainerRuntimePodman,
			Image:        DefaultContainerImage,
			VolumeMounts: []string{},
			Options:      []string{},
		},
		Timeouts: TimeoutConfig{
			Pexpect: DefaultPexpectTimeout,
		},
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
		},
	}
}

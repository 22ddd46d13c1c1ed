// SPDX-License-Identifier: MPL-2.0

package envbuild

import "time"

// Settings are the scalar per-run options read from env/settings and from
// the caller. Nil fields are unset, so two Settings can be layered.
type Settings struct {
	IdleTimeout       *int     `yaml:"idle_timeout"`
	JobTimeout        *int     `yaml:"job_timeout"`
	PexpectTimeout    *float64 `yaml:"pexpect_timeout"`
	SubprocessTimeout *int     `yaml:"subprocess_timeout"`

	SuppressOutputFile    *bool `yaml:"suppress_output_file"`
	SuppressAnsibleOutput *bool `yaml:"suppress_ansible_output"`
	InheritEnv            *bool `yaml:"inherit_env"`
	OmitEventData         *bool `yaml:"omit_event_data"`
	OnlyFailedEventData   *bool `yaml:"only_failed_event_data"`

	ProcessIsolation           *bool    `yaml:"process_isolation"`
	ProcessIsolationExecutable *string  `yaml:"process_isolation_executable"`
	ContainerImage             *string  `yaml:"container_image"`
	ContainerVolumeMounts      []string `yaml:"container_volume_mounts"`
	ContainerOptions           []string `yaml:"container_options"`
	ContainerWorkdir           *string  `yaml:"container_workdir"`
}

// Isolation is the resolved process-isolation request of one invocation.
type Isolation struct {
	Enabled      bool
	Runtime      string
	Image        string
	VolumeMounts []string
	Options      []string
	Workdir      string
}

// Over returns s with every field set in over taking precedence.
func (s Settings) Over(over Settings) Settings {
	out := s
	pick(&out.IdleTimeout, over.IdleTimeout)
	pick(&out.JobTimeout, over.JobTimeout)
	pick(&out.PexpectTimeout, over.PexpectTimeout)
	pick(&out.SubprocessTimeout, over.SubprocessTimeout)
	pick(&out.SuppressOutputFile, over.SuppressOutputFile)
	pick(&out.SuppressAnsibleOutput, over.SuppressAnsibleOutput)
	pick(&out.InheritEnv, over.InheritEnv)
	pick(&out.OmitEventData, over.OmitEventData)
	pick(&out.OnlyFailedEventData, over.OnlyFailedEventData)
	pick(&out.ProcessIsolation, over.ProcessIsolation)
	pick(&out.ProcessIsolationExecutable, over.ProcessIsolationExecutable)
	pick(&out.ContainerImage, over.ContainerImage)
	pick(&out.ContainerWorkdir, over.ContainerWorkdir)
	if over.ContainerVolumeMounts != nil {
		out.ContainerVolumeMounts = over.ContainerVolumeMounts
	}
	if over.ContainerOptions != nil {
		out.ContainerOptions = over.ContainerOptions
	}
	return out
}

func pick[T any](dst **T, src *T) {
	if src != nil {
		*dst = src
	}
}

// Ptr returns a pointer to v, for building Settings literals.
func Ptr[T any](v T) *T { return &v }

func seconds(v *int) time.Duration {
	if v == nil || *v <= 0 {
		return 0
	}
	return time.Duration(*v) * time.Second
}

func boolValue(v *bool) bool { return v != nil && *v }

func stringValue(v *string, def string) string {
	if v == nil || *v == "" {
		return def
	}
	return *v
}

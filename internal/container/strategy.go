// SPDX-License-Identifier: MPL-2.0

package container

import (
	"strconv"

	"github.com/playrun/playrun/internal/envbuild"
)

// UnsafeWritesKey lets the automation tool fall back to non-atomic writes,
// needed on podman's rootless overlay storage.
const UnsafeWritesKey = "ANSIBLE_UNSAFE_WRITES"

type (
	// Strategy holds the runtime-specific parts of a container run.
	Strategy struct {
		// PreMountFlags go right before the artifact and private-dir mounts.
		PreMountFlags func(d Descriptor) []string
		// PostEnvFlags go right after --env-file.
		PostEnvFlags func(d Descriptor) []string
		// Env adjusts the child's environment before env.list is written.
		Env func(env envbuild.Snapshot) envbuild.Snapshot
	}
)

var strategies = map[EngineType]Strategy{
	EngineTypePodman: {
		PreMountFlags: func(Descriptor) []string {
			return []string{"--group-add=root", "--ipc=host"}
		},
		PostEnvFlags: func(Descriptor) []string {
			return []string{"--quiet"}
		},
		Env: func(env envbuild.Snapshot) envbuild.Snapshot {
			if _, ok := env.Get(UnsafeWritesKey); ok {
				return env
			}
			return env.With(UnsafeWritesKey, "1")
		},
	},
	EngineTypeDocker: {
		PostEnvFlags: func(d Descriptor) []string {
			return []string{"--user=" + strconv.Itoa(d.UID)}
		},
	},
}

// StrategyFor returns the strategy of runtime. Unknown runtimes get one that
// adds nothing.
func StrategyFor(runtime string) Strategy {
	s := strategies[TypeOf(runtime)]
	if s.PreMountFlags == nil {
		s.PreMountFlags = func(Descriptor) []string { return nil }
	}
	if s.PostEnvFlags == nil {
		s.PostEnvFlags = func(Descriptor) []string { return nil }
	}
	if s.Env == nil {
		s.Env = func(env envbuild.Snapshot) envbuild.Snapshot { return env }
	}
	return s
}

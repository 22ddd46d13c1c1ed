// SPDX-License-Identifier: MPL-2.0

// Package container re-writes a composed command so that it runs inside a
// container started by a docker-compatible CLI, and drives that CLI for the
// few lifecycle operations a supervised run needs (availability, kill, rm).
//
// The container run command line follows a fixed order:
//
//	<runtime> run --rm [--tty] --interactive --workdir <wd>
//	  [option-path mounts] [ssh mounts] [runtime pre-mount flags]
//	  -v <artifacts>/:/runner/artifacts/:Z -v <pdd>/:/runner/:Z
//	  [caller mounts] --env-file <artifact dir>/env.list
//	  [runtime post-env flags] --name ansible_runner_<ident>
//	  [container options] <image> <argv...>
//
// The child's variables travel in env.list only; no -e flags are emitted.
package container

// SPDX-License-Identifier: MPL-2.0

// Package supervisor runs one child process to completion and reports how it
// ended.
//
// Interactive runs get a pseudo-terminal; output is matched against ordered
// prompt rules and the first matching rule's response is typed back. Idle
// and overall timeouts apply. Subprocess runs use plain pipes and keep
// stdout and stderr apart.
//
// The lifecycle is created, starting, running, then exactly one terminal
// status. Timeouts and cancellation terminate the child's process group
// (SIGTERM, then SIGKILL after a grace period) and, for isolated runs, kill
// the container. The rc and status artifacts are written and finalizers run
// on every exit path.
package supervisor

// SPDX-License-Identifier: MPL-2.0

package runner

import (
	"sync"
	"time"

	"github.com/playrun/playrun/internal/artifact"
	"github.com/playrun/playrun/internal/command"
	"github.com/playrun/playrun/internal/envbuild"
	"github.com/playrun/playrun/internal/supervisor"
	"github.com/playrun/playrun/pkg/types"
)

type (
	// Result is the outcome of a finished invocation.
	Result struct {
		Ident  types.Ident
		Status types.Status
		RC     types.ExitCode
		// Err explains error, timeout and canceled outcomes.
		Err         error
		ArtifactDir string
		// Command is the command line that was spawned, after secret
		// wrapping and isolation.
		Command command.Vector
		// Env is the prepared environment of the automation command.
		Env      envbuild.Snapshot
		Started  time.Time
		Finished time.Time

		stdout []byte
		stderr []byte
		layout artifact.Layout
	}

	// Handle follows a run started by RunAsync.
	Handle struct {
		inv  *invocation
		proc *supervisor.Process

		once   sync.Once
		result *Result
	}
)

// Stdout returns the captured standard output. Interactive runs capture the
// combined terminal stream here.
func (r *Result) Stdout() string { return string(r.stdout) }

// Stderr returns the captured standard error of subprocess runs.
func (r *Result) Stderr() string { return string(r.stderr) }

// Elapsed is the time from spawn to exit.
func (r *Result) Elapsed() time.Duration { return r.Finished.Sub(r.Started) }

// Successful reports whether the child exited with code zero.
func (r *Result) Successful() bool { return r.Status == types.StatusSuccessful }

// Cleanup removes the private data directory when it was created for this
// run. Caller-supplied directories are left alone.
func (r *Result) Cleanup() error { return r.layout.Cleanup() }

// Ident returns the invocation identifier.
func (h *Handle) Ident() types.Ident { return h.inv.layout.Ident }

// ArtifactDir returns where the run's artifacts are written.
func (h *Handle) ArtifactDir() string { return h.inv.layout.ArtifactDir }

// Status returns the current status.
func (h *Handle) Status() types.Status { return h.proc.Status() }

// Done is closed when the run has finished and its artifacts are written.
func (h *Handle) Done() <-chan struct{} { return h.proc.Done() }

// Cancel stops the run. Calling it after the run finished does nothing.
func (h *Handle) Cancel() { h.proc.Cancel() }

// Stdout returns the output produced so far.
func (h *Handle) Stdout() []byte { return h.proc.Stdout() }

// Stderr returns the standard error produced so far.
func (h *Handle) Stderr() []byte { return h.proc.Stderr() }

// Wait blocks until the run finishes and returns its Result.
func (h *Handle) Wait() *Result {
	res := h.proc.Wait()
	h.once.Do(func() {
		h.result = &Result{
			Ident:       h.inv.layout.Ident,
			Status:      res.Status,
			RC:          res.RC,
			Err:         res.Err,
			ArtifactDir: h.inv.layout.ArtifactDir,
			Command:     h.inv.spec.Command,
			Env:         h.inv.env.Env,
			Started:     res.Started,
			Finished:    res.Finished,
			stdout:      h.proc.Stdout(),
			stderr:      h.proc.Stderr(),
			layout:      h.inv.layout,
		}
	})
	return h.result
}

// Result returns the Result once the run has finished, nil before.
func (h *Handle) Result() *Result {
	select {
	case <-h.proc.Done():
		return h.Wait()
	default:
		return nil
	}
}

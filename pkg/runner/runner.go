// SPDX-License-Identifier: MPL-2.0

package runner

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/playrun/playrun/internal/container"
	"github.com/playrun/playrun/internal/envbuild"
	"github.com/playrun/playrun/internal/supervisor"

	"github.com/charmbracelet/log"
)

type (
	// Runner launches invocations. Its fields are defaults shared by every
	// Request; a Runner is safe for concurrent use.
	Runner struct {
		logger          *log.Logger
		environ         func() []string
		defaults        envbuild.Settings
		allowlist       []string
		privateDataBase string
		rotate          int
		gracePeriod     time.Duration
		engineFor       func(runtime string) (container.Engine, error)
		lookPath        func(string) (string, error)
	}

	// Option configures a Runner.
	Option func(*Runner)
)

// WithLogger sets the logger; components log under their own prefixes.
func WithLogger(l *log.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithEnviron replaces the ambient environment source, os.Environ by default.
// It is read once per invocation.
func WithEnviron(fn func() []string) Option {
	return func(r *Runner) { r.environ = fn }
}

// WithDefaults sets settings that sit below env/settings.
func WithDefaults(s envbuild.Settings) Option {
	return func(r *Runner) { r.defaults = s }
}

// WithEnvAllowlist extends the ambient variables copied into host runs.
func WithEnvAllowlist(keys ...string) Option {
	return func(r *Runner) { r.allowlist = append(r.allowlist, keys...) }
}

// WithPrivateDataBase sets where temporary private data directories go.
func WithPrivateDataBase(dir string) Option {
	return func(r *Runner) { r.privateDataBase = dir }
}

// WithRotateArtifacts keeps at most n artifact directories unless a Request
// says otherwise.
func WithRotateArtifacts(n int) Option {
	return func(r *Runner) { r.rotate = n }
}

// WithGracePeriod sets the delay between SIGTERM and SIGKILL on interrupt.
func WithGracePeriod(d time.Duration) Option {
	return func(r *Runner) { r.gracePeriod = d }
}

// WithEngineFactory replaces how container engines are found for cleanup of
// interrupted isolated runs.
func WithEngineFactory(fn func(runtime string) (container.Engine, error)) Option {
	return func(r *Runner) { r.engineFor = fn }
}

// WithRuntimeLookPath replaces the container runtime lookup.
func WithRuntimeLookPath(fn func(string) (string, error)) Option {
	return func(r *Runner) { r.lookPath = fn }
}

// New creates a Runner.
func New(opts ...Option) *Runner {
	r := &Runner{
		environ:     os.Environ,
		gracePeriod: supervisor.DefaultGracePeriod,
		engineFor: func(runtime string) (container.Engine, error) {
			return container.NewEngine(runtime)
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = log.New(io.Discard)
	}
	return r
}

var defaultRunner = New()

// Run executes req with a default Runner and waits for it.
func Run(ctx context.Context, req Request) (*Result, error) {
	return defaultRunner.Run(ctx, req)
}

// RunAsync starts req with a default Runner.
func RunAsync(ctx context.Context, req Request) (*Handle, error) {
	return defaultRunner.RunAsync(ctx, req)
}

// Run executes req and waits for it. The error is non-nil only when the run
// could not be prepared; how the child ended is in the Result.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	h, err := r.RunAsync(ctx, req)
	if err != nil {
		return nil, err
	}
	return h.Wait(), nil
}

// RunAsync prepares req and starts it in the background.
func (r *Runner) RunAsync(ctx context.Context, req Request) (*Handle, error) {
	inv, err := r.prepare(ctx, &req)
	if err != nil {
		return nil, err
	}

	proc := supervisor.New(inv.spec,
		supervisor.WithLogger(r.logger.WithPrefix("supervisor")),
		supervisor.WithGracePeriod(r.gracePeriod),
	)
	h := &Handle{inv: inv, proc: proc}
	if err := proc.Start(ctx); err != nil {
		inv.release(r.logger)
		return nil, err
	}
	r.logger.Debug("started", "ident", inv.layout.Ident, "command", inv.spec.Command.String())
	return h, nil
}

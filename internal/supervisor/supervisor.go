// SPDX-License-Identifier: MPL-2.0

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/playrun/playrun/internal/artifact"
	"github.com/playrun/playrun/internal/command"
	"github.com/playrun/playrun/internal/envbuild"
	"github.com/playrun/playrun/pkg/types"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultGracePeriod separates SIGTERM from SIGKILL.
	DefaultGracePeriod = 5 * time.Second

	// maxWindow bounds the unmatched output kept for prompt matching.
	maxWindow = 64 << 10

	// containerKillTimeout bounds the runtime kill issued on interrupt.
	containerKillTimeout = 30 * time.Second

	ptyCols = 200
	ptyRows = 24
)

var (
	// ErrCanceled is the cancellation cause of Process.Cancel.
	ErrCanceled = errors.New("run canceled")
	// ErrAlreadyStarted is returned by Start on a second call.
	ErrAlreadyStarted = errors.New("process already started")

	errIdleTimeout  = errors.New("no output within the idle timeout")
	errJobTimeout   = errors.New("job timeout exceeded")
	errTerminalLost = errors.New("terminal read failed")
)

type (
	// ContainerKiller stops a named container. container.Engine satisfies it.
	ContainerKiller interface {
		Kill(ctx context.Context, name string) error
	}

	// Spec is everything one supervised run needs. It is not modified.
	Spec struct {
		Command command.Vector
		Env     envbuild.Snapshot
		Cwd     string
		Mode    types.RunnerMode
		Prompts envbuild.PromptRules

		// IdleTimeout ends an interactive run that produced no output for
		// that long. Zero disables it.
		IdleTimeout time.Duration
		// Timeout ends the run that long after spawn. Zero disables it.
		Timeout time.Duration
		// PollInterval bounds how long output is drained after the child
		// exited while something still holds its terminal open.
		PollInterval time.Duration

		Layout artifact.Layout
		// SuppressOutputFile keeps output in memory only.
		SuppressOutputFile bool
		// Stdout and Stderr receive a copy of the output. In interactive
		// mode both streams arrive combined on Stdout.
		Stdout io.Writer
		Stderr io.Writer

		// Container names the container of an isolated run; Killer stops it
		// on timeout or cancel.
		Container string
		Killer    ContainerKiller

		// StatusHandler is called on each transition, in order.
		StatusHandler func(types.Status)
		// Finalizers run once the child is gone, on every exit path.
		Finalizers []func() error
	}

	// Result is how a run ended.
	Result struct {
		Status types.Status
		RC     types.ExitCode
		// Err explains error, timeout and canceled outcomes.
		Err      error
		Started  time.Time
		Finished time.Time
	}

	// Process supervises one child.
	Process struct {
		spec        Spec
		logger      *log.Logger
		gracePeriod time.Duration

		state   atomic.Int32
		started atomic.Bool

		stdout Buffer
		stderr Buffer

		cancel context.CancelCauseFunc
		done   chan struct{}

		mu     sync.Mutex
		result Result
	}

	// Option configures a Process.
	Option func(*Process)

	// exitInfo is what waiting on the child produced.
	exitInfo struct {
		state *os.ProcessState
		err   error
	}
)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Process) { p.logger = l }
}

// WithGracePeriod sets the delay between SIGTERM and SIGKILL.
func WithGracePeriod(d time.Duration) Option {
	return func(p *Process) { p.gracePeriod = d }
}

// New creates a Process for spec. Nothing runs until Start.
func New(spec Spec, opts ...Option) *Process {
	p := &Process{
		spec:        spec,
		gracePeriod: DefaultGracePeriod,
		done:        make(chan struct{}),
		cancel:      func(error) {},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = log.New(io.Discard)
	}
	p.state.Store(int32(stateCreated))
	return p
}

// Start launches supervision in the background. Cancelling ctx cancels the run.
func (p *Process) Start(ctx context.Context) error {
	if !p.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	runCtx, cancel := context.WithCancelCause(ctx)
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()

	go func() {
		defer cancel(nil)
		p.run(runCtx)
	}()
	return nil
}

// Run starts the process and waits for its result.
func (p *Process) Run(ctx context.Context) (Result, error) {
	if err := p.Start(ctx); err != nil {
		return Result{}, err
	}
	return p.Wait(), nil
}

// Cancel asks a running process to stop. It is a no-op once terminal.
func (p *Process) Cancel() {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	cancel(ErrCanceled)
}

// Status returns the current lifecycle status.
func (p *Process) Status() types.Status { return state(p.state.Load()).Status() }

// Done is closed once the result is final and artifacts are written.
func (p *Process) Done() <-chan struct{} { return p.done }

// Wait blocks until the run is over.
func (p *Process) Wait() Result {
	<-p.done
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.result
}

// Stdout returns the output captured so far. In interactive mode this is the
// combined terminal stream.
func (p *Process) Stdout() []byte { return p.stdout.Bytes() }

// Stderr returns the standard error captured so far (subprocess mode only).
func (p *Process) Stderr() []byte { return p.stderr.Bytes() }

func (p *Process) run(ctx context.Context) {
	res := Result{Started: time.Now()}
	p.transition(stateCreated, stateStarting)

	defer func() {
		res.Finished = time.Now()
		p.finalize(&res)
	}()

	if err := context.Cause(ctx); err != nil {
		res.Status, res.RC, res.Err = types.StatusCanceled, types.ExitCodeInterrupted, err
		return
	}

	if err := p.spec.Layout.WriteCommand(p.spec.Command.Argv(), p.spec.Cwd, p.spec.Env.Map()); err != nil {
		p.logger.Warn("command artifact not written", "err", err)
	}

	stdout, stderr, err := p.openSinks()
	if err != nil {
		res.Status, res.RC, res.Err = types.StatusError, types.ExitCodeSupervisionFault, err
		return
	}
	defer func() {
		_ = stdout.Close()
		_ = stderr.Close()
	}()

	cmd := exec.Command(p.spec.Command.Executable, p.spec.Command.Args...) //nolint:gosec // the vector is the caller's command
	cmd.Env = p.spec.Env.Environ()
	cmd.Dir = p.spec.Cwd

	var exit exitInfo
	var cause error
	if p.spec.Mode == types.RunnerModeSubprocess {
		exit, cause = p.superviseSubprocess(ctx, cmd, stdout, stderr)
	} else {
		exit, cause = p.superviseInteractive(ctx, cmd, stdout)
	}
	res.Status, res.RC, res.Err = outcome(exit, cause)
}

// openSinks prepares the output fan-out. Artifact files are opened unless
// output files are suppressed; stderr only exists in subprocess mode.
func (p *Process) openSinks() (*sink, *sink, error) {
	stdout := &sink{name: artifact.StdoutFile, buf: &p.stdout, tee: p.spec.Stdout, logger: p.logger}
	stderr := &sink{name: artifact.StderrFile, buf: &p.stderr, tee: p.spec.Stderr, logger: p.logger}
	if p.spec.SuppressOutputFile {
		return stdout, stderr, nil
	}

	f, err := p.spec.Layout.OpenOutput(artifact.StdoutFile)
	if err != nil {
		return nil, nil, err
	}
	stdout.file = f
	if p.spec.Mode == types.RunnerModeSubprocess {
		f, err := p.spec.Layout.OpenOutput(artifact.StderrFile)
		if err != nil {
			_ = stdout.Close()
			return nil, nil, err
		}
		stderr.file = f
	}
	return stdout, stderr, nil
}

// superviseSubprocess runs cmd with pipes until it exits, times out or is
// canceled.
func (p *Process) superviseSubprocess(ctx context.Context, cmd *exec.Cmd, stdout, stderr io.Writer) (exitInfo, error) {
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = p.pollInterval()
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		return exitInfo{err: fmt.Errorf("start %s: %w", cmd.Path, err)}, nil
	}
	p.transition(stateStarting, stateRunning)
	p.logger.Debug("spawned", "pid", cmd.Process.Pid, "mode", types.RunnerModeSubprocess)

	exited := make(chan exitInfo, 1)
	var g errgroup.Group
	g.Go(func() error {
		err := cmd.Wait()
		exited <- exitInfo{state: cmd.ProcessState, err: err}
		return nil
	})

	var cause error
	var exit exitInfo
	jobTimer := newTimer(p.spec.Timeout)
	defer jobTimer.Stop()

	select {
	case exit = <-exited:
	case <-jobTimer.C():
		cause = errJobTimeout
	case <-ctx.Done():
		cause = context.Cause(ctx)
	}
	if cause != nil {
		p.interrupt(cmd.Process.Pid)
		exit = <-exited
	}
	_ = g.Wait()
	return exit, cause
}

// superviseInteractive runs cmd on a terminal, answering prompts, until it
// exits, times out or is canceled.
func (p *Process) superviseInteractive(ctx context.Context, cmd *exec.Cmd, out io.Writer) (exitInfo, error) {
	ptmx, err := startPty(cmd, ptyCols, ptyRows)
	if err != nil {
		return exitInfo{err: fmt.Errorf("start %s on a terminal: %w", cmd.Path, err)}, nil
	}
	defer ptmx.Close()
	p.transition(stateStarting, stateRunning)
	p.logger.Debug("spawned", "pid", cmd.Process.Pid, "mode", types.RunnerModeInteractive)

	// The reader is not waited for: a background process holding the
	// terminal open keeps it blocked until the terminal is closed.
	chunks := make(chan []byte)
	stopReading := make(chan struct{})
	defer close(stopReading)
	readErr := make(chan error, 1)
	go func() { readErr <- readTerminal(ptmx, chunks, stopReading) }()

	exited := make(chan exitInfo, 1)
	var g errgroup.Group
	g.Go(func() error {
		err := cmd.Wait()
		exited <- exitInfo{state: cmd.ProcessState, err: err}
		return nil
	})

	jobTimer := newTimer(p.spec.Timeout)
	defer jobTimer.Stop()
	idleTimer := newTimer(p.spec.IdleTimeout)
	defer idleTimer.Stop()

	var (
		window []byte
		cause  error
		exit   exitInfo
		drain  <-chan time.Time
		isDone bool
	)
	for !isDone {
		// Once the child is gone only the drain bounds the loop.
		var idleC, jobC <-chan time.Time
		var ctxDone <-chan struct{}
		if exited != nil {
			idleC, jobC, ctxDone = idleTimer.C(), jobTimer.C(), ctx.Done()
		}
		select {
		case chunk, ok := <-chunks:
			if !ok {
				chunks = nil
				if err := <-readErr; err != nil {
					cause = err
					isDone = true
					continue
				}
				if drain != nil {
					isDone = true
				}
				continue
			}
			_, _ = out.Write(chunk)
			idleTimer.Reset(p.spec.IdleTimeout)
			window = p.answerPrompts(ptmx, append(window, chunk...))
		case exit = <-exited:
			exited = nil
			if chunks == nil {
				isDone = true
				continue
			}
			drain = time.After(p.pollInterval())
		case <-drain:
			isDone = true
		case <-idleC:
			cause = errIdleTimeout
			isDone = true
		case <-jobC:
			cause = errJobTimeout
			isDone = true
		case <-ctxDone:
			cause = context.Cause(ctx)
			isDone = true
		}
	}

	if exited != nil {
		p.interrupt(cmd.Process.Pid)
		exit = <-exited
	}
	_ = g.Wait()
	return exit, cause
}

// answerPrompts types the response of the first rule matching window and
// returns what is left to match. Several prompts in one chunk are answered
// in turn.
func (p *Process) answerPrompts(w io.Writer, window []byte) []byte {
	for {
		rule, end, ok := p.spec.Prompts.Match(window)
		if !ok {
			break
		}
		p.logger.Debug("answering prompt", "pattern", rule.Pattern.String())
		if _, err := io.WriteString(w, rule.Response+"\n"); err != nil {
			p.logger.Warn("prompt response not delivered", "err", err)
		}
		window = window[end:]
		if end == 0 {
			// An empty match would loop forever.
			break
		}
	}
	if len(window) > maxWindow {
		window = window[len(window)-maxWindow:]
	}
	return window
}

// readTerminal forwards terminal output until the terminal closes. It
// returns an error only when reading failed for another reason.
func readTerminal(r io.Reader, chunks chan<- []byte, stop <-chan struct{}) error {
	defer close(chunks)
	buf := make([]byte, 32<<10)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			select {
			case chunks <- slices.Clone(buf[:n]):
			case <-stop:
				return nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || isTerminalEOF(err) {
				return nil
			}
			return fmt.Errorf("%w: %w", errTerminalLost, err)
		}
	}
}

// interrupt terminates the process group led by pid, escalating to SIGKILL
// after the grace period, and kills the container of an isolated run.
func (p *Process) interrupt(pid int) {
	p.logger.Debug("interrupting", "pid", pid)
	if err := signalGroup(pid, sigTerm); err != nil {
		p.logger.Warn("SIGTERM failed", "pid", pid, "err", err)
	}
	grace := time.AfterFunc(p.gracePeriod, func() {
		if err := signalGroup(pid, sigKill); err != nil {
			p.logger.Warn("SIGKILL failed", "pid", pid, "err", err)
		}
	})
	// Stopped once the child is reaped; the caller waits right after.
	go func() {
		<-p.done
		grace.Stop()
	}()

	if p.spec.Container != "" && p.spec.Killer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), containerKillTimeout)
		defer cancel()
		if err := p.spec.Killer.Kill(ctx, p.spec.Container); err != nil {
			p.logger.Warn("container kill failed", "container", p.spec.Container, "err", err)
		}
	}
}

// finalize records the result, runs finalizers and publishes the terminal
// status. It runs exactly once.
func (p *Process) finalize(res *Result) {
	if err := p.spec.Layout.WriteResult(res.Status, res.RC); err != nil {
		p.logger.Warn("result artifacts not written", "err", err)
	}
	for _, fn := range p.spec.Finalizers {
		if err := fn(); err != nil {
			p.logger.Warn("finalizer failed", "err", err)
		}
	}

	p.mu.Lock()
	p.result = *res
	p.mu.Unlock()

	to := terminalState(res.Status)
	if !p.transition(stateRunning, to) {
		p.transition(stateStarting, to)
	}
	close(p.done)
	p.logger.Debug("finished", "status", res.Status, "rc", res.RC, "elapsed", res.Finished.Sub(res.Started))
}

// timer is a time.Timer that never fires when created with a non-positive
// duration.
type timer struct{ t *time.Timer }

func newTimer(d time.Duration) *timer {
	if d <= 0 {
		return &timer{}
	}
	return &timer{t: time.NewTimer(d)}
}

func (t *timer) C() <-chan time.Time {
	if t.t == nil {
		return nil
	}
	return t.t.C
}

func (t *timer) Reset(d time.Duration) {
	if t.t != nil {
		t.t.Reset(d)
	}
}

func (t *timer) Stop() {
	if t.t != nil {
		t.t.Stop()
	}
}

func (p *Process) pollInterval() time.Duration {
	if p.spec.PollInterval > 0 {
		return p.spec.PollInterval
	}
	return envbuild.DefaultPexpectTimeout
}

// outcome maps how the child ended to a status and return code.
func outcome(exit exitInfo, cause error) (types.Status, types.ExitCode, error) {
	switch {
	case errors.Is(cause, errIdleTimeout), errors.Is(cause, errJobTimeout), errors.Is(cause, context.DeadlineExceeded):
		return types.StatusTimeout, types.ExitCodeInterrupted, cause
	case errors.Is(cause, errTerminalLost):
		return types.StatusError, types.ExitCodeSupervisionFault, cause
	case cause != nil:
		return types.StatusCanceled, types.ExitCodeInterrupted, cause
	}

	if exit.state == nil {
		err := exit.err
		if err == nil {
			err = errors.New("child state unknown")
		}
		return types.StatusError, types.ExitCodeSupervisionFault, err
	}

	code := exit.state.ExitCode()
	if code < 0 {
		if sigCode, ok := signalExitCode(exit.state); ok {
			code = sigCode
		} else {
			return types.StatusError, types.ExitCodeSupervisionFault, exit.err
		}
	}
	rc := types.ExitCode(code)
	if rc.IsSuccess() {
		return types.StatusSuccessful, rc, nil
	}
	return types.StatusFailed, rc, nil
}

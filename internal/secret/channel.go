// SPDX-License-Identifier: MPL-2.0

package secret

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/playrun/playrun/internal/issue"
)

// pollInterval is how often the writer retries opening the pipe while no
// reader is connected.
const pollInterval = 10 * time.Millisecond

// ErrUnsupported is returned on platforms without named pipes.
var ErrUnsupported = errors.New("named pipes are not supported on this platform")

// Channel is a named pipe that hands its secret to the first reader.
type Channel struct {
	path   string
	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	err       error
	delivered bool
	closeOnce sync.Once
}

// OpenChannel creates a named pipe at path and starts writing data into it
// as soon as a reader opens it. The pipe never falls back to a regular file;
// failure to create it is a setup error.
func OpenChannel(ctx context.Context, path string, data []byte) (*Channel, error) {
	if err := mkfifo(path); err != nil {
		return nil, issue.NewErrorContext().
			WithKind(issue.ErrSetup).
			WithIssue(issue.SecretChannelFailedId).
			WithOperation("create ssh key pipe").
			WithResource(path).
			Wrap(err).
			BuildError()
	}

	ctx, cancel := context.WithCancel(ctx)
	c := &Channel{
		path:   path,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	payload := append([]byte(nil), data...)
	go c.serve(ctx, payload)
	return c, nil
}

// Path returns the pipe's location.
func (c *Channel) Path() string { return c.path }

// Done is closed once the writer has finished or given up.
func (c *Channel) Done() <-chan struct{} { return c.done }

// Delivered reports whether a reader received the secret.
func (c *Channel) Delivered() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.delivered
}

// Err returns the writer's error, if any, once Done is closed.
func (c *Channel) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close stops the writer and removes the pipe. It is safe to call more than once.
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		<-c.done
		if rmErr := os.Remove(c.path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			err = rmErr
		}
	})
	return err
}

func (c *Channel) serve(ctx context.Context, data []byte) {
	defer close(c.done)
	defer clear(data)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		f, err := openWriter(c.path)
		switch {
		case err == nil:
			_, werr := f.Write(data)
			cerr := f.Close()
			c.finish(errors.Join(werr, cerr))
			return
		case errors.Is(err, errNoReader):
		default:
			c.finish(err)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (c *Channel) finish(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
	c.delivered = err == nil
}

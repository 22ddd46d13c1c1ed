// SPDX-License-Identifier: MPL-2.0

package supervisor

import (
	"bytes"
	"io"
	"sync"

	"github.com/charmbracelet/log"
)

type (
	// Buffer is an in-memory copy of one output stream that can be read
	// while the child is still writing.
	Buffer struct {
		mu  sync.Mutex
		buf bytes.Buffer
	}

	// sink fans one stream out to the in-memory buffer, the artifact file
	// and the caller's writer. Only the buffer is authoritative: a failing
	// file or caller writer is logged once and then skipped.
	sink struct {
		name   string
		buf    *Buffer
		file   io.WriteCloser
		tee    io.Writer
		logger *log.Logger

		mu        sync.Mutex
		fileBroke bool
		teeBroke  bool
	}
)

// Write appends p.
func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// Bytes returns a copy of everything written so far.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bytes.Clone(b.buf.Bytes())
}

// String returns everything written so far.
func (b *Buffer) String() string { return string(b.Bytes()) }

// Len returns the number of bytes written so far.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}

func (s *sink) Write(p []byte) (int, error) {
	_, _ = s.buf.Write(p)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file != nil && !s.fileBroke {
		if _, err := s.file.Write(p); err != nil {
			s.fileBroke = true
			s.logger.Warn("artifact output stopped", "stream", s.name, "err", err)
		}
	}
	if s.tee != nil && !s.teeBroke {
		if _, err := s.tee.Write(p); err != nil {
			s.teeBroke = true
			s.logger.Warn("output writer stopped", "stream", s.name, "err", err)
		}
	}
	return len(p), nil
}

func (s *sink) Close() error {
	if s.file == nil {
		return nil
	}
	return s.file.Close()
}

// SPDX-License-Identifier: MPL-2.0

//go:build unix

package secret

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

var errNoReader = unix.ENXIO

func mkfifo(path string) error {
	if err := unix.Mkfifo(path, 0o600); err != nil {
		return fmt.Errorf("mkfifo %s: %w", path, err)
	}
	return nil
}

// openWriter opens the write end without blocking. Until a reader is
// attached the kernel answers ENXIO.
func openWriter(path string) (*os.File, error) {
	fd, err := unix.Open(path, unix.O_WRONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		if errors.Is(err, unix.ENXIO) {
			return nil, errNoReader
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := unix.SetNonblock(fd, false); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("set blocking %s: %w", path, err)
	}
	return os.NewFile(uintptr(fd), path), nil
}

// SPDX-License-Identifier: MPL-2.0

//go:build !unix

package secret

import "os"

var errNoReader = ErrUnsupported

func mkfifo(string) error { return ErrUnsupported }

func openWriter(string) (*os.File, error) { return nil, ErrUnsupported }

// SPDX-License-Identifier: MPL-2.0

//go:build !unix

package supervisor

import (
	"errors"
	"os"
	"os/exec"
)

type signal int

const (
	sigTerm signal = 15
	sigKill signal = 9
)

func startPty(*exec.Cmd, uint16, uint16) (*os.File, error) { return nil, errors.ErrUnsupported }

func setProcessGroup(*exec.Cmd) {}

func signalGroup(int, signal) error { return errors.ErrUnsupported }

func isTerminalEOF(err error) bool { return errors.Is(err, os.ErrClosed) }

func signalExitCode(*os.ProcessState) (int, bool) { return 0, false }

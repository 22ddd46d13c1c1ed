// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
)

const (
	// StatusUnstarted is the status of an invocation that has not spawned yet.
	StatusUnstarted Status = "unstarted"
	// StatusStarting is reported while the child process is being spawned.
	StatusStarting Status = "starting"
	// StatusRunning is reported while the child process is alive.
	StatusRunning Status = "running"
	// StatusSuccessful means the child exited with code zero.
	StatusSuccessful Status = "successful"
	// StatusFailed means the child exited with a non-zero code.
	StatusFailed Status = "failed"
	// StatusTimeout means an idle or job timeout ended the run.
	StatusTimeout Status = "timeout"
	// StatusCanceled means the caller canceled the run.
	StatusCanceled Status = "canceled"
	// StatusError means supervision itself failed.
	StatusError Status = "error"
)

// ErrInvalidStatus is the sentinel error wrapped by InvalidStatusError.
var ErrInvalidStatus = errors.New("invalid status")

type (
	// Status is the lifecycle tag of one invocation. Terminal statuses never
	// change once reached.
	Status string

	// InvalidStatusError is returned when a Status is not a recognized tag.
	InvalidStatusError struct {
		Value Status
	}
)

// Error implements the error interface.
func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid status %q", e.Value)
}

// Unwrap returns ErrInvalidStatus for errors.Is() compatibility.
func (e *InvalidStatusError) Unwrap() error { return ErrInvalidStatus }

// Validate returns an error if the Status is not a known tag.
func (s Status) Validate() error {
	switch s {
	case StatusUnstarted, StatusStarting, StatusRunning,
		StatusSuccessful, StatusFailed, StatusTimeout, StatusCanceled, StatusError:
		return nil
	default:
		return &InvalidStatusError{Value: s}
	}
}

// IsTerminal reports whether no further transitions can follow s.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSuccessful, StatusFailed, StatusTimeout, StatusCanceled, StatusError:
		return true
	default:
		return false
	}
}

// String returns the string representation of the Status.
func (s Status) String() string { return string(s) }

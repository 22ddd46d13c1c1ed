// SPDX-License-Identifier: MPL-2.0

package container

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
)

// engineInternalExitCode is what docker and podman exit with when the engine
// itself, not the container, failed.
const engineInternalExitCode = 125

var goneMarkers = [][]byte{
	[]byte("no such container"),
	[]byte("no container with name or id"),
	[]byte("is not running"),
}

// IsTransientError reports whether a failed kill or rm may succeed when
// repeated: engine-internal failures, rootless podman lock races and storage
// glitches. Cancellation is never transient.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	msg := err.Error()
	for _, marker := range []string{
		"ping_group_range",
		"OCI runtime error",
		"error creating overlay mount",
		"error mounting layer",
		"database is locked",
		"resource temporarily unavailable",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}

	var exitErr *exec.ExitError
	return errors.As(err, &exitErr) && exitErr.ExitCode() == engineInternalExitCode
}

// IsContainerGone reports whether CLI output says the container no longer
// exists or already stopped, which makes kill and rm no-ops.
func IsContainerGone(output []byte) bool {
	lower := bytes.ToLower(output)
	for _, m := range goneMarkers {
		if bytes.Contains(lower, m) {
			return true
		}
	}
	return false
}

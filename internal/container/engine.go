// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
)

const (
	// EngineTypePodman identifies the podman CLI.
	EngineTypePodman EngineType = "podman"
	// EngineTypeDocker identifies the docker CLI.
	EngineTypeDocker EngineType = "docker"
)

// ErrEngineNotAvailable is returned when no usable container CLI is found.
var ErrEngineNotAvailable = errors.New("container engine not available")

type (
	// Engine is the lifecycle surface of a container CLI used around a
	// supervised run.
	Engine interface {
		// Name returns the engine name (e.g., "docker", "podman").
		Name() string
		// BinaryPath returns the resolved CLI path, empty when not installed.
		BinaryPath() string
		// Available reports whether the CLI answers.
		Available(ctx context.Context) bool
		// Version returns the engine version string.
		Version(ctx context.Context) (string, error)
		// Kill stops a running container by name.
		Kill(ctx context.Context, name string) error
		// Remove force-removes a container by name.
		Remove(ctx context.Context, name string) error
	}

	// EngineType identifies a container CLI by its base name.
	EngineType string

	// EngineNotAvailableError names the engine that could not be used.
	EngineNotAvailableError struct {
		Engine string
		Reason string
	}
)

// Error implements the error interface.
func (e *EngineNotAvailableError) Error() string {
	return fmt.Sprintf("container engine %q not available: %s", e.Engine, e.Reason)
}

// Unwrap returns ErrEngineNotAvailable for errors.Is() compatibility.
func (e *EngineNotAvailableError) Unwrap() error { return ErrEngineNotAvailable }

// TypeOf classifies a runtime executable by its base name. Unknown runtimes
// return an empty EngineType.
func TypeOf(runtime string) EngineType {
	switch EngineType(filepath.Base(runtime)) {
	case EngineTypePodman:
		return EngineTypePodman
	case EngineTypeDocker:
		return EngineTypeDocker
	default:
		return ""
	}
}

// NewEngine returns the engine for runtime, which may be a bare name or a
// path. Docker and podman get their dedicated engines; any other
// docker-compatible CLI gets the generic one.
func NewEngine(runtime string, opts ...BaseCLIEngineOption) (Engine, error) {
	path, err := exec.LookPath(runtime)
	if err != nil {
		return nil, &EngineNotAvailableError{Engine: runtime, Reason: err.Error()}
	}
	opts = append([]BaseCLIEngineOption{WithName(filepath.Base(runtime))}, opts...)
	switch TypeOf(runtime) {
	case EngineTypePodman:
		return NewPodmanEngine(path, opts...), nil
	case EngineTypeDocker:
		return NewDockerEngine(path, opts...), nil
	default:
		return NewBaseCLIEngine(path, opts...), nil
	}
}

// AutoDetectEngine returns the first available engine, trying podman first.
func AutoDetectEngine(ctx context.Context) (Engine, error) {
	for _, t := range []EngineType{EngineTypePodman, EngineTypeDocker} {
		e, err := NewEngine(string(t))
		if err != nil {
			continue
		}
		if e.Available(ctx) {
			return e, nil
		}
	}
	return nil, &EngineNotAvailableError{Engine: "podman or docker", Reason: "neither CLI responded"}
}

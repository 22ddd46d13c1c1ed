// SPDX-License-Identifier: MPL-2.0

package command

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/playrun/playrun/internal/issue"
	"github.com/playrun/playrun/pkg/types"
)

// ErrExecutableNotFound is returned when an executable is not on the PATH.
var ErrExecutableNotFound = errors.New("executable not found")

// Vector is a composed command line. Args never pass through a shell.
type Vector struct {
	Executable string
	Args       []string
	Mode       types.ExecutionMode
}

// Argv returns the executable followed by its arguments.
func (v Vector) Argv() []string {
	return append([]string{v.Executable}, v.Args...)
}

// String renders the vector for logs.
func (v Vector) String() string {
	return strings.Join(v.Argv(), " ")
}

// WithArgs returns a copy of v with extra arguments appended.
func (v Vector) WithArgs(args ...string) Vector {
	v.Args = slices.Concat(v.Args, args)
	return v
}

// LookPath resolves the vector's executable against path, a list in PATH
// format taken from the child's environment rather than the process's own.
// Names containing a separator are only checked for existence.
func LookPath(v Vector, path string) (Vector, error) {
	resolved, err := lookPath(v.Executable, path)
	if err != nil {
		return Vector{}, issue.NewErrorContext().
			WithKind(issue.ErrConfiguration).
			WithIssue(issue.ExecutableNotFoundId).
			WithOperation("resolve executable").
			WithResource(v.Executable).
			WithSuggestion("Install it or add its directory to PATH in env/envvars").
			Wrap(err).
			BuildError()
	}
	v.Executable = resolved
	return v, nil
}

func lookPath(name, path string) (string, error) {
	if name == "" {
		return "", ErrExecutableNotFound
	}
	if strings.ContainsRune(name, os.PathSeparator) {
		if isExecutable(name) {
			return name, nil
		}
		return "", ErrExecutableNotFound
	}
	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			dir = "."
		}
		candidate := filepath.Join(dir, name)
		if isExecutable(candidate) {
			return candidate, nil
		}
	}
	return "", ErrExecutableNotFound
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir() && info.Mode().Perm()&0o111 != 0
}

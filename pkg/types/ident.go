// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidIdent is the sentinel error wrapped by InvalidIdentError.
var ErrInvalidIdent = errors.New("invalid invocation identifier")

type (
	// Ident namespaces one invocation's artifact directory and container name.
	// It must stay stable for the lifetime of the invocation.
	Ident string

	// InvalidIdentError is returned when an Ident is empty or would escape the
	// artifact root.
	InvalidIdentError struct {
		Value Ident
	}
)

// NewIdent returns a random identifier.
func NewIdent() Ident {
	return Ident(uuid.NewString())
}

// Error implements the error interface.
func (e *InvalidIdentError) Error() string {
	return fmt.Sprintf("invalid invocation identifier %q: must be non-empty and contain no path separators", e.Value)
}

// Unwrap returns ErrInvalidIdent for errors.Is() compatibility.
func (e *InvalidIdentError) Unwrap() error { return ErrInvalidIdent }

// Validate returns an error if the Ident cannot name a directory.
func (i Ident) Validate() error {
	s := string(i)
	if strings.TrimSpace(s) == "" || strings.ContainsAny(s, `/\`) || s == "." || s == ".." {
		return &InvalidIdentError{Value: i}
	}
	return nil
}

// String returns the string representation of the Ident.
func (i Ident) String() string { return string(i) }

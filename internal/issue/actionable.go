// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration classifies malformed or contradictory inputs found
	// before any child process is spawned: corrupt per-run files, invalid
	// settings, an unresolvable container runtime.
	ErrConfiguration = errors.New("configuration error")

	// ErrSetup classifies resource-creation failures before spawn, such as a
	// secret delivery channel or artifact directory that cannot be created.
	ErrSetup = errors.New("setup error")
)

type (
	// ActionableError is an error with context for user-facing error messages.
	// It records what operation failed, what resource was involved, which
	// failure class it belongs to, and suggestions for how to fix the issue.
	//
	// Use the ErrorContext builder for convenient construction:
	//
	//	err := issue.NewErrorContext().
	//		WithKind(issue.ErrConfiguration).
	//		WithOperation("load per-run settings").
	//		WithResource("/srv/run/env/settings").
	//		WithSuggestion("Check that the file is a YAML mapping").
	//		Wrap(originalErr).
	//		BuildError()
	ActionableError struct {
		// Operation describes what was being attempted (e.g., "load envvars", "create ssh key pipe").
		Operation string

		// Resource identifies the file, path, or entity involved (optional).
		Resource string

		// Kind is ErrConfiguration, ErrSetup, or nil for unclassified errors.
		Kind error

		// Issue links the error to a catalog entry with longer guidance (optional).
		Issue Id

		// Suggestions provides hints on how to fix the issue (optional).
		Suggestions []string

		// Cause is the underlying error that triggered this error (optional).
		Cause error
	}

	// ErrorContext is a builder for constructing ActionableError instances.
	ErrorContext struct {
		operation   string
		resource    string
		kind        error
		issue       Id
		suggestions []string
		cause       error
	}
)

// --- Constructors ---

// NewErrorContext creates a new ErrorContext builder.
func NewErrorContext() *ErrorContext {
	return &ErrorContext{}
}

// Configuration is a shorthand for a configuration-class error.
func Configuration(operation, resource string, cause error, suggestions ...string) error {
	return NewErrorContext().
		WithKind(ErrConfiguration).
		WithOperation(operation).
		WithResource(resource).
		WithSuggestions(suggestions...).
		Wrap(cause).
		BuildError()
}

// Setup is a shorthand for a setup-class error.
func Setup(operation, resource string, cause error, suggestions ...string) error {
	return NewErrorContext().
		WithKind(ErrSetup).
		WithOperation(operation).
		WithResource(resource).
		WithSuggestions(suggestions...).
		Wrap(cause).
		BuildError()
}

// WrapWithContext wraps an error with operation and resource context.
func WrapWithContext(err error, operation, resource string) *ActionableError {
	if err == nil {
		return nil
	}
	return &ActionableError{
		Operation: operation,
		Resource:  resource,
		Cause:     err,
	}
}

// IsConfiguration reports whether err is a configuration-class error.
func IsConfiguration(err error) bool { return errors.Is(err, ErrConfiguration) }

// IsSetup reports whether err is a setup-class error.
func IsSetup(err error) bool { return errors.Is(err, ErrSetup) }

// --- ActionableError Methods ---

// Error implements the error interface.
// Returns a concise error message suitable for default (non-verbose) output.
func (e *ActionableError) Error() string {
	var msg strings.Builder

	msg.WriteString("failed to ")
	msg.WriteString(e.Operation)

	if e.Resource != "" {
		msg.WriteString(": ")
		msg.WriteString(e.Resource)
	}

	if e.Cause != nil {
		msg.WriteString(": ")
		msg.WriteString(e.Cause.Error())
	}

	return msg.String()
}

// Unwrap exposes both the failure class and the cause to errors.Is/As.
func (e *ActionableError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// Format returns a formatted error message with optional verbosity.
//
// When verbose is false:
//
//	failed to <operation>: <resource>: <cause message>
//	  • <suggestion 1>
//	  • <suggestion 2>
//
// When verbose is true, additionally includes the full error chain.
func (e *ActionableError) Format(verbose bool) string {
	var msg strings.Builder

	msg.WriteString(e.Error())

	if len(e.Suggestions) > 0 {
		msg.WriteString("\n")
		for _, suggestion := range e.Suggestions {
			msg.WriteString("\n  • ")
			msg.WriteString(suggestion)
		}
	}

	if verbose && e.Cause != nil {
		msg.WriteString("\n\nError chain:")
		err := e.Cause
		depth := 1
		for err != nil {
			fmt.Fprintf(&msg, "\n  %d. %s", depth, err.Error())
			err = nextCause(err)
			depth++
		}
	}

	return msg.String()
}

// nextCause steps one link down an error chain. An ActionableError continues
// with its Cause, never its Kind; other errors with several wrapped errors
// end the chain.
func nextCause(err error) error {
	if ae, ok := err.(*ActionableError); ok {
		return ae.Cause
	}
	return errors.Unwrap(err)
}

// HasSuggestions returns true if the error has any suggestions.
func (e *ActionableError) HasSuggestions() bool {
	return len(e.Suggestions) > 0
}

// --- ErrorContext Methods ---

// WithOperation sets the operation being performed, as a verb phrase.
func (c *ErrorContext) WithOperation(op string) *ErrorContext {
	c.operation = op
	return c
}

// WithResource sets the resource (file, path, entity) involved.
func (c *ErrorContext) WithResource(res string) *ErrorContext {
	c.resource = res
	return c
}

// WithKind sets the failure class (ErrConfiguration or ErrSetup).
func (c *ErrorContext) WithKind(kind error) *ErrorContext {
	c.kind = kind
	return c
}

// WithIssue links a catalog entry.
func (c *ErrorContext) WithIssue(id Id) *ErrorContext {
	c.issue = id
	return c
}

// WithSuggestion adds a suggestion for how to fix the issue.
func (c *ErrorContext) WithSuggestion(sug string) *ErrorContext {
	c.suggestions = append(c.suggestions, sug)
	return c
}

// WithSuggestions adds multiple suggestions at once.
func (c *ErrorContext) WithSuggestions(sugs ...string) *ErrorContext {
	c.suggestions = append(c.suggestions, sugs...)
	return c
}

// Wrap wraps an underlying error as the cause.
func (c *ErrorContext) Wrap(err error) *ErrorContext {
	c.cause = err
	return c
}

// Build creates an ActionableError from the context.
// Returns nil if no operation is set (operation is required).
func (c *ErrorContext) Build() *ActionableError {
	if c.operation == "" {
		return nil
	}

	return &ActionableError{
		Operation:   c.operation,
		Resource:    c.resource,
		Kind:        c.kind,
		Issue:       c.issue,
		Suggestions: c.suggestions,
		Cause:       c.cause,
	}
}

// BuildError creates an ActionableError and returns it as an error interface.
// Returns nil if no operation is set.
func (c *ErrorContext) BuildError() error {
	ae := c.Build()
	if ae == nil {
		return nil
	}
	return ae
}

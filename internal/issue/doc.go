// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// Errors raised before a child process is spawned carry a failure class
// (ErrConfiguration or ErrSetup) and optionally link a Markdown catalog entry
// that the CLI renders with remediation steps.
package issue

// SPDX-License-Identifier: MPL-2.0

// Package command composes the argument vector of an invocation from its
// request: playbook runs, ad-hoc module runs, arbitrary executables, and the
// documentation, configuration and inventory helpers of the automation tool.
//
// Composition is pure. Executable resolution against a PATH is a separate
// step (LookPath) because isolated runs resolve inside the image.
package command

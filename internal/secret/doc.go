// SPDX-License-Identifier: MPL-2.0

// Package secret delivers SSH key material to a child process without it
// ever resting in a regular file: the key is written once into a named pipe
// that ssh-add reads, inside an ssh-agent wrapper that removes the pipe.
package secret

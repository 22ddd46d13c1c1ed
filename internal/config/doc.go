// SPDX-License-Identifier: MPL-2.0

// Package config handles playrun's user-level configuration: a CUE file
// validated against an embedded schema, merged into Viper with defaults and
// PLAYRUN_* environment overrides.
package config

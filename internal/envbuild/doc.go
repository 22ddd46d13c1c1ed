// SPDX-License-Identifier: MPL-2.0

// Package envbuild assembles the environment of one invocation: variables,
// prompt rules, timeouts and secrets, from the ambient snapshot, the optional
// files under <private_data_dir>/env/, explicit overrides and computed
// defaults.
//
// Layering, lowest first: allow-listed ambient variables, env/envvars,
// explicit variables, then defaults that only fill gaps. PYTHONPATH and
// ANSIBLE_CALLBACK_PLUGINS are concatenated across layers instead.
//
// Per-run files, absent versus malformed:
//
//	envvars    absent: ignored          malformed: configuration error
//	passwords  absent: sentinels only   malformed: sentinels only, warning
//	settings   absent: no settings      malformed: configuration error
//	ssh_key    absent/empty: no key     unreadable: configuration error
//	cmdline    absent: no extra args    unsplittable: configuration error
package envbuild

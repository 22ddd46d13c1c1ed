// SPDX-License-Identifier: MPL-2.0

// Package runner is the public entry point for launching automation runs.
//
// A Request describes what to run: a playbook (by path, inline plays or a
// role), an ad-hoc module, or any executable. Run blocks until the child is
// done; RunAsync returns a Handle that reports status, exposes output while
// it is produced and can cancel the run. The query helpers (RunCommand,
// GetPluginDocs, GetPluginList, GetAnsibleConfig, GetInventory) are thin
// wrappers that pick the right command line and runner mode.
//
// Preparation errors (bad input files, missing executables, unsafe mounts,
// unusable directories) are returned as errors before anything is spawned.
// Everything that happens to a spawned child is reported in the Result.
package runner

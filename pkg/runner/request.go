// SPDX-License-Identifier: MPL-2.0

package runner

import (
	"errors"
	"io"
	"time"

	"github.com/playrun/playrun/internal/command"
	"github.com/playrun/playrun/internal/envbuild"
	"github.com/playrun/playrun/internal/issue"
	"github.com/playrun/playrun/pkg/types"
)

// ErrAmbiguousTarget is returned when a Request names more than one thing to run.
var ErrAmbiguousTarget = errors.New("exactly one of playbook, inline plays, role, module or executable must be set")

// Request describes one invocation. The zero value of every field means
// "not set".
type Request struct {
	// Ident names the artifact directory; a random one is generated when empty.
	Ident types.Ident
	// PrivateDataDir holds env/, project/ and artifacts/. When empty a
	// temporary one is created and removed by Result.Cleanup.
	PrivateDataDir string
	// ArtifactDir overrides <private_data_dir>/artifacts.
	ArtifactDir string
	// ProjectDir overrides <private_data_dir>/project.
	ProjectDir string
	// RotateArtifacts keeps at most this many artifact directories.
	RotateArtifacts int

	// Playbook is a path relative to the project directory unless absolute.
	Playbook string
	// Plays is an inline playbook, written to the artifact directory.
	Plays []map[string]any
	// Role runs one role through a generated playbook.
	Role      string
	RoleVars  map[string]any
	RolesPath []string
	SkipFacts bool
	// Hosts targets the generated role playbook; "all" when empty.
	Hosts string

	// Module runs one module against HostPattern.
	Module      string
	ModuleArgs  string
	HostPattern string

	// Executable runs any command with literal Args.
	Executable string
	Args       []string

	// Inventory lists inventory sources. InventoryData is inline inventory
	// text written to the artifact directory. With neither,
	// <private_data_dir>/inventory is used when it exists.
	Inventory     []string
	InventoryData string

	Limit     string
	Verbosity int
	Forks     int
	Tags      string
	SkipTags  string
	ExtraVars map[string]any
	// Cmdline replaces the words of env/cmdline when non-nil.
	Cmdline []string

	// EnvVars are explicit environment overrides.
	EnvVars map[string]any
	// Settings override env/settings, including process isolation.
	Settings envbuild.Settings
	// EnvAllowlist extends the ambient variables copied into host runs.
	EnvAllowlist []string
	// SSHKey is private key material; it wins over env/ssh_key.
	SSHKey string
	// SilenceSSHAdd discards ssh-add's diagnostics.
	SilenceSSHAdd bool
	// FactCacheType selects the fact cache plugin; jsonfile by default.
	FactCacheType string
	// Timeout limits the whole run.
	Timeout time.Duration
	// RunnerMode defaults to interactive for playbook and module runs and to
	// subprocess for everything else.
	RunnerMode types.RunnerMode
	// Cwd overrides the working directory of host runs.
	Cwd string

	// StatusHandler is called on each status change.
	StatusHandler func(types.Status)
	// Stdout and Stderr receive a copy of the output unless
	// suppress_ansible_output is set.
	Stdout io.Writer
	Stderr io.Writer

	// composed is a command line prepared by a query helper.
	composed *command.Vector
}

type target int

const (
	targetPlaybook target = iota
	targetPlays
	targetRole
	targetModule
	targetExecutable
	targetComposed
)

// target reports what req runs.
func (req *Request) target() (target, error) {
	if req.composed != nil {
		return targetComposed, nil
	}
	var found []target
	if req.Playbook != "" {
		found = append(found, targetPlaybook)
	}
	if len(req.Plays) > 0 {
		found = append(found, targetPlays)
	}
	if req.Role != "" {
		found = append(found, targetRole)
	}
	if req.Module != "" {
		found = append(found, targetModule)
	}
	if req.Executable != "" {
		found = append(found, targetExecutable)
	}
	switch len(found) {
	case 1:
		return found[0], nil
	case 0:
		return 0, issue.Configuration("validate request", "", command.ErrMissingTarget)
	default:
		return 0, issue.Configuration("validate request", "", ErrAmbiguousTarget)
	}
}

// runnerMode returns the explicit runner mode or the default for t.
func (req *Request) runnerMode(t target) types.RunnerMode {
	if req.RunnerMode != "" {
		return req.RunnerMode
	}
	switch t {
	case targetPlaybook, targetPlays, targetRole, targetModule:
		return types.RunnerModeInteractive
	default:
		return types.RunnerModeSubprocess
	}
}

// SPDX-License-Identifier: MPL-2.0

package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/playrun/playrun/internal/issue"
	"github.com/playrun/playrun/pkg/types"
)

// Executables of the automation tool.
const (
	PlaybookExecutable  = "ansible-playbook"
	AdHocExecutable     = "ansible"
	DocExecutable       = "ansible-doc"
	ConfigExecutable    = "ansible-config"
	InventoryExecutable = "ansible-inventory"
)

var (
	// ErrMissingTarget is returned when neither a playbook nor a module is named.
	ErrMissingTarget = errors.New("a playbook or a module is required")
	// ErrUnknownAction is returned for config and inventory actions the tool does not have.
	ErrUnknownAction = errors.New("unknown action")
	// ErrUnsupportedFormat is returned for an output format the action cannot produce.
	ErrUnsupportedFormat = errors.New("unsupported response format")
	// ErrMissingHost is returned for an inventory host query without a host.
	ErrMissingHost = errors.New("inventory host action requires a host")
	// ErrMissingPluginNames is returned for a docs query without names.
	ErrMissingPluginNames = errors.New("at least one plugin name is required")
	// ErrOnlyChanged is returned when only-changed is combined with an action other than dump.
	ErrOnlyChanged = errors.New("only-changed applies to the dump action")
)

type (
	// RunOptions are the options shared by playbook and ad-hoc runs, in the
	// order they appear on the command line.
	RunOptions struct {
		// CmdlineArgs are the words of env/cmdline; they lead the options.
		CmdlineArgs   []string
		Inventories   []string
		Limit         string
		ExtraVarsFile string
		ExtraVars     map[string]any
		Verbosity     int
		Tags          string
		SkipTags      string
		Forks         int
	}

	// PlaybookOptions describe an ansible-playbook run.
	PlaybookOptions struct {
		RunOptions
		// Playbook is relative to the project directory unless absolute.
		Playbook string
	}

	// AdHocOptions describe a single-module run against a host pattern.
	AdHocOptions struct {
		RunOptions
		Module      string
		ModuleArgs  string
		HostPattern string
	}

	// DocsOptions describe a plugin documentation query.
	DocsOptions struct {
		Names       []string
		Type        string
		Format      string
		Snippet     bool
		PlaybookDir string
		ModulePath  string
	}

	// ListOptions describe a plugin listing.
	ListOptions struct {
		ListFiles   bool
		Type        string
		Format      string
		PlaybookDir string
		ModulePath  string
	}

	// ConfigOptions describe an ansible-config query.
	ConfigOptions struct {
		Action      string
		ConfigFile  string
		OnlyChanged bool
	}

	// InventoryOptions describe an ansible-inventory query.
	InventoryOptions struct {
		Action            string
		Host              string
		Inventories       []string
		Format            string
		PlaybookDir       string
		VaultIDs          []string
		VaultPasswordFile string
		OutputFile        string
		Export            bool
		Vars              bool
	}
)

// Playbook composes an ansible-playbook invocation.
func Playbook(opts PlaybookOptions) (Vector, error) {
	if opts.Playbook == "" {
		return Vector{}, invalid("compose playbook command", "", ErrMissingTarget)
	}
	args, err := opts.RunOptions.args()
	if err != nil {
		return Vector{}, err
	}
	return Vector{
		Executable: PlaybookExecutable,
		Args:       append(args, opts.Playbook),
		Mode:       types.ExecutionModeAnsibleCommands,
	}, nil
}

// AdHoc composes an ansible invocation running one module.
func AdHoc(opts AdHocOptions) (Vector, error) {
	if opts.Module == "" {
		return Vector{}, invalid("compose ad-hoc command", "", ErrMissingTarget)
	}
	args, err := opts.RunOptions.args()
	if err != nil {
		return Vector{}, err
	}
	args = append(args, "-m", opts.Module)
	if opts.ModuleArgs != "" {
		args = append(args, "-a", opts.ModuleArgs)
	}
	if opts.HostPattern != "" {
		args = append(args, opts.HostPattern)
	}
	return Vector{
		Executable: AdHocExecutable,
		Args:       args,
		Mode:       types.ExecutionModeAnsibleCommands,
	}, nil
}

// Generic composes an arbitrary executable with literal arguments. The
// execution mode follows the executable's base name; env/cmdline words are
// appended only to the automation tool's own commands.
func Generic(executable string, args, cmdlineArgs []string) Vector {
	v := Vector{
		Executable: executable,
		Args:       slices.Clone(args),
		Mode:       types.ExecutionModeFor(executable),
	}
	if v.Mode == types.ExecutionModeAnsibleCommands {
		v.Args = append(v.Args, cmdlineArgs...)
	}
	return v
}

// PluginDocs composes an ansible-doc query for the named plugins.
func PluginDocs(opts DocsOptions) (Vector, error) {
	if len(opts.Names) == 0 {
		return Vector{}, invalid("compose plugin docs command", "", ErrMissingPluginNames)
	}
	var args []string
	if opts.Format == "json" {
		args = append(args, "-j")
	} else if opts.Format != "" {
		return Vector{}, invalid("compose plugin docs command", opts.Format, ErrUnsupportedFormat)
	}
	if opts.Snippet {
		args = append(args, "-s")
	}
	args = appendDocScope(args, opts.Type, opts.PlaybookDir, opts.ModulePath)
	args = append(args, opts.Names...)
	return Vector{Executable: DocExecutable, Args: args, Mode: types.ExecutionModeAnsibleCommands}, nil
}

// PluginList composes an ansible-doc listing.
func PluginList(opts ListOptions) (Vector, error) {
	args := []string{"-l"}
	if opts.ListFiles {
		args = []string{"-F"}
	}
	if opts.Format == "json" {
		args = append(args, "-j")
	} else if opts.Format != "" {
		return Vector{}, invalid("compose plugin list command", opts.Format, ErrUnsupportedFormat)
	}
	args = appendDocScope(args, opts.Type, opts.PlaybookDir, opts.ModulePath)
	return Vector{Executable: DocExecutable, Args: args, Mode: types.ExecutionModeAnsibleCommands}, nil
}

// Config composes an ansible-config query. Action is list, dump or view.
func Config(opts ConfigOptions) (Vector, error) {
	const op = "compose config command"
	switch opts.Action {
	case "list", "dump", "view":
	default:
		return Vector{}, invalid(op, opts.Action, ErrUnknownAction)
	}
	args := []string{opts.Action}
	if opts.ConfigFile != "" {
		args = append(args, "-c", opts.ConfigFile)
	}
	if opts.OnlyChanged {
		if opts.Action != "dump" {
			return Vector{}, invalid(op, opts.Action, ErrOnlyChanged)
		}
		args = append(args, "--only-changed")
	}
	return Vector{Executable: ConfigExecutable, Args: args, Mode: types.ExecutionModeAnsibleCommands}, nil
}

// Inventory composes an ansible-inventory query. Action is list, graph or
// host; Format is json (the tool's default), yaml or toml.
func Inventory(opts InventoryOptions) (Vector, error) {
	const op = "compose inventory command"
	switch opts.Action {
	case "list", "graph", "host":
	default:
		return Vector{}, invalid(op, opts.Action, ErrUnknownAction)
	}
	if opts.Action == "host" && opts.Host == "" {
		return Vector{}, invalid(op, opts.Action, ErrMissingHost)
	}
	switch opts.Format {
	case "", "json":
	case "yaml", "toml":
		if opts.Action == "graph" {
			return Vector{}, invalid(op, opts.Format, fmt.Errorf("%w: graph output is text", ErrUnsupportedFormat))
		}
	default:
		return Vector{}, invalid(op, opts.Format, ErrUnsupportedFormat)
	}

	args := []string{"--" + opts.Action}
	if opts.Action == "host" {
		args = append(args, opts.Host)
	}
	for _, inv := range opts.Inventories {
		args = append(args, "-i", inv)
	}
	if opts.Format == "yaml" || opts.Format == "toml" {
		args = append(args, "--"+opts.Format)
	}
	if opts.PlaybookDir != "" {
		args = append(args, "--playbook-dir", opts.PlaybookDir)
	}
	for _, id := range opts.VaultIDs {
		args = append(args, "--vault-id", id)
	}
	if opts.VaultPasswordFile != "" {
		args = append(args, "--vault-password-file", opts.VaultPasswordFile)
	}
	if opts.OutputFile != "" {
		args = append(args, "--output", opts.OutputFile)
	}
	if opts.Export {
		args = append(args, "--export")
	}
	if opts.Vars && opts.Action == "graph" {
		args = append(args, "--vars")
	}
	return Vector{Executable: InventoryExecutable, Args: args, Mode: types.ExecutionModeAnsibleCommands}, nil
}

func (o RunOptions) args() ([]string, error) {
	args := slices.Clone(o.CmdlineArgs)
	for _, inv := range o.Inventories {
		args = append(args, "-i", inv)
	}
	if o.Limit != "" {
		args = append(args, "--limit", o.Limit)
	}
	if o.ExtraVarsFile != "" {
		args = append(args, "-e", "@"+o.ExtraVarsFile)
	}
	if len(o.ExtraVars) > 0 {
		data, err := json.Marshal(o.ExtraVars)
		if err != nil {
			return nil, invalid("encode extra vars", "", err)
		}
		args = append(args, "-e", string(data))
	}
	if o.Verbosity > 0 {
		args = append(args, "-"+strings.Repeat("v", o.Verbosity))
	}
	if o.Tags != "" {
		args = append(args, "--tags", o.Tags)
	}
	if o.SkipTags != "" {
		args = append(args, "--skip-tags", o.SkipTags)
	}
	if o.Forks > 0 {
		args = append(args, "--forks", strconv.Itoa(o.Forks))
	}
	return args, nil
}

func appendDocScope(args []string, pluginType, playbookDir, modulePath string) []string {
	if pluginType != "" {
		args = append(args, "-t", pluginType)
	}
	if playbookDir != "" {
		args = append(args, "--playbook-dir", playbookDir)
	}
	if modulePath != "" {
		args = append(args, "-M", modulePath)
	}
	return args
}

func invalid(op, resource string, err error) error {
	return issue.Configuration(op, resource, err)
}

// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/playrun/playrun/pkg/runner"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// runFlags select what `playrun run` executes.
type runFlags struct {
	requestFlags

	playbook    string
	inline      string
	module      string
	moduleArgs  string
	hostPattern string
	role        string
	roleVars    []string
	rolesPath   []string
	hosts       string
	skipFacts   bool

	inventory     []string
	inventoryFile string
	limit         string
	extraVars     []string
	verbosity     int
	forks         int
	tags          string
	skipTags      string
	cmdline       string
}

func newRunCommand(app *App) *cobra.Command {
	return bindRunCommand(app, &runFlags{})
}

// bindRunCommand builds `playrun run` with its flags parsed into flags.
func bindRunCommand(app *App, flags *runFlags) *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run [private-data-dir]",
		Short: "Run a playbook, a role or a single module",
		Long: `Run a playbook, a role or a single module under supervision.

Per-run inputs are read from <private-data-dir>/env (envvars, passwords,
settings, ssh_key, cmdline, extravars) and the outcome is written to
<private-data-dir>/artifacts/<ident>. Without a private data directory a
temporary one is used. The exit status is the child's return code, 254 on
timeout or interrupt.`,
		Example: `  playrun run ./demo -p site.yml --limit web
  playrun run ./demo -m shell -a 'uptime' --hosts all
  playrun run ./demo --role nginx --role-var port=8080
  playrun run ./demo -p site.yml --process-isolation --container-runtime docker`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				flags.privateDataDir = args[0]
			}
			req, err := flags.request(cmd, app)
			if err != nil {
				return err
			}
			res, err := app.runner().Run(cmd.Context(), req)
			if err != nil {
				return app.prepareFailed(cmd, err)
			}
			return app.finish(cmd, res)
		},
	}

	fs := runCmd.Flags()
	fs.StringVarP(&flags.playbook, "playbook", "p", "", "playbook path, relative to the project directory")
	fs.StringVar(&flags.inline, "plays", "", "YAML file holding an inline playbook to copy into the artifact directory")
	fs.StringVarP(&flags.module, "module", "m", "", "module to run ad hoc")
	fs.StringVarP(&flags.moduleArgs, "module-args", "a", "", "module arguments")
	fs.StringVar(&flags.hostPattern, "host-pattern", "", "hosts targeted by an ad hoc module (default: all)")
	fs.StringVar(&flags.role, "role", "", "role to run through a generated playbook")
	fs.StringArrayVar(&flags.roleVars, "role-var", nil, "role variable KEY=VALUE (repeatable)")
	fs.StringArrayVar(&flags.rolesPath, "roles-path", nil, "extra role search directory (repeatable)")
	fs.StringVar(&flags.hosts, "hosts", "", "hosts targeted by the generated role playbook (default: all)")
	fs.BoolVar(&flags.skipFacts, "skip-facts", false, "do not gather facts in the generated role playbook")

	fs.StringArrayVarP(&flags.inventory, "inventory", "i", nil, "inventory source (repeatable)")
	fs.StringVar(&flags.inventoryFile, "inventory-data", "", "file whose content is used as inline inventory")
	fs.StringVarP(&flags.limit, "limit", "l", "", "limit to a host pattern")
	fs.StringArrayVarP(&flags.extraVars, "extra-var", "e", nil, "extra variable KEY=VALUE (repeatable)")
	fs.IntVar(&flags.verbosity, "verbosity", 0, "automation tool verbosity (number of -v)")
	fs.IntVarP(&flags.forks, "forks", "f", 0, "parallel processes")
	fs.StringVarP(&flags.tags, "tags", "t", "", "only run plays and tasks tagged with these values")
	fs.StringVar(&flags.skipTags, "skip-tags", "", "skip plays and tasks tagged with these values")
	fs.StringVar(&flags.cmdline, "cmdline", "", "extra arguments, replacing env/cmdline")
	flags.register(runCmd, false)

	runCmd.MarkFlagsMutuallyExclusive("playbook", "plays", "module", "role")
	return runCmd
}

// request builds the runner request from the parsed flags.
func (f *runFlags) request(cmd *cobra.Command, app *App) (runner.Request, error) {
	req := runner.Request{
		Playbook:    f.playbook,
		Module:      f.module,
		ModuleArgs:  f.moduleArgs,
		HostPattern: f.hostPattern,
		Role:        f.role,
		RolesPath:   f.rolesPath,
		Hosts:       f.hosts,
		SkipFacts:   f.skipFacts,
		Inventory:   f.inventory,
		Limit:       f.limit,
		Verbosity:   f.verbosity,
		Forks:       f.forks,
		Tags:        f.tags,
		SkipTags:    f.skipTags,
	}
	if err := f.apply(cmd, app, &req); err != nil {
		return req, err
	}

	if f.inline != "" {
		plays, err := readPlays(f.inline)
		if err != nil {
			return req, err
		}
		req.Plays = plays
	}
	if f.inventoryFile != "" {
		data, err := os.ReadFile(f.inventoryFile)
		if err != nil {
			return req, err
		}
		req.InventoryData = string(data)
	}
	if len(f.roleVars) > 0 {
		vars, err := parseAssignments(f.roleVars, true)
		if err != nil {
			return req, err
		}
		req.RoleVars = vars
	}
	if len(f.extraVars) > 0 {
		vars, err := parseAssignments(f.extraVars, true)
		if err != nil {
			return req, err
		}
		req.ExtraVars = vars
	}
	if cmd.Flags().Changed("cmdline") {
		words, err := splitCmdline(f.cmdline)
		if err != nil {
			return req, err
		}
		req.Cmdline = append([]string{}, words...)
	}
	return req, nil
}

// readPlays loads an inline playbook: a YAML list of plays.
func readPlays(path string) ([]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var plays []map[string]any
	if err := yaml.Unmarshal(data, &plays); err != nil {
		return nil, fmt.Errorf("parse plays %s: %w", path, err)
	}
	if len(plays) == 0 {
		return nil, fmt.Errorf("parse plays %s: no plays", path)
	}
	return plays, nil
}

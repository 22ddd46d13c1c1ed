// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"github.com/playrun/playrun/internal/command"
	"github.com/playrun/playrun/pkg/runner"

	"github.com/spf13/cobra"
)

// finishQuery is finish for informational commands: their output is the
// answer, so the summary line only shows up on failure or with --verbose.
func (a *App) finishQuery(cmd *cobra.Command, res *runner.Result) error {
	if res.Successful() && !a.verbose {
		return nil
	}
	return a.finish(cmd, res)
}

func newDocsCommand(app *App) *cobra.Command {
	flags := &requestFlags{}
	var opts command.DocsOptions
	docsCmd := &cobra.Command{
		Use:   "docs <plugin>...",
		Short: "Show plugin documentation",
		Example: `  playrun docs ansible.builtin.copy
  playrun docs --type callback --format json ansible.builtin.default`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var base runner.Request
			if err := flags.apply(cmd, app, &base); err != nil {
				return err
			}
			opts.Names = args
			res, err := app.runner().GetPluginDocs(cmd.Context(), opts, base)
			if err != nil {
				return app.prepareFailed(cmd, err)
			}
			return app.finishQuery(cmd, res)
		},
	}
	fs := docsCmd.Flags()
	fs.StringVar(&opts.Type, "type", "", "plugin type (default: module)")
	fs.StringVar(&opts.Format, "format", "", "output format: json (default: human readable)")
	fs.BoolVar(&opts.Snippet, "snippet", false, "show a playbook snippet")
	fs.StringVar(&opts.PlaybookDir, "playbook-dir", "", "directory searched for adjacent plugins")
	fs.StringVar(&opts.ModulePath, "module-path", "", "extra module search path")
	flags.register(docsCmd, true)
	return docsCmd
}

func newPluginsCommand(app *App) *cobra.Command {
	flags := &requestFlags{}
	var opts command.ListOptions
	pluginsCmd := &cobra.Command{
		Use:   "plugins",
		Short: "List available plugins",
		Example: `  playrun plugins --type lookup
  playrun plugins --list-files --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var base runner.Request
			if err := flags.apply(cmd, app, &base); err != nil {
				return err
			}
			res, err := app.runner().GetPluginList(cmd.Context(), opts, base)
			if err != nil {
				return app.prepareFailed(cmd, err)
			}
			return app.finishQuery(cmd, res)
		},
	}
	fs := pluginsCmd.Flags()
	fs.BoolVar(&opts.ListFiles, "list-files", false, "list plugin files instead of names")
	fs.StringVar(&opts.Type, "type", "", "plugin type (default: module)")
	fs.StringVar(&opts.Format, "format", "", "output format: json (default: human readable)")
	fs.StringVar(&opts.PlaybookDir, "playbook-dir", "", "directory searched for adjacent plugins")
	fs.StringVar(&opts.ModulePath, "module-path", "", "extra module search path")
	flags.register(pluginsCmd, true)
	return pluginsCmd
}

func newAnsibleConfigCommand(app *App) *cobra.Command {
	flags := &requestFlags{}
	var opts command.ConfigOptions
	configCmd := &cobra.Command{
		Use:       "ansible-config <list|dump|view>",
		Short:     "Query the automation tool's configuration",
		Example:   `  playrun ansible-config dump --only-changed`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"list", "dump", "view"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var base runner.Request
			if err := flags.apply(cmd, app, &base); err != nil {
				return err
			}
			opts.Action = args[0]
			res, err := app.runner().GetAnsibleConfig(cmd.Context(), opts, base)
			if err != nil {
				return app.prepareFailed(cmd, err)
			}
			return app.finishQuery(cmd, res)
		},
	}
	fs := configCmd.Flags()
	fs.StringVar(&opts.ConfigFile, "config-file", "", "ansible.cfg to read")
	fs.BoolVar(&opts.OnlyChanged, "only-changed", false, "only show settings changed from their defaults (dump)")
	flags.register(configCmd, true)
	return configCmd
}

func newInventoryCommand(app *App) *cobra.Command {
	flags := &requestFlags{}
	var opts command.InventoryOptions
	inventoryCmd := &cobra.Command{
		Use:   "inventory <list|graph|host> [host]",
		Short: "Show the parsed inventory",
		Example: `  playrun inventory list -i hosts.ini --format yaml
  playrun inventory host web1 -i hosts.ini
  playrun inventory graph -i hosts.ini --vars`,
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: []string{"list", "graph", "host"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var base runner.Request
			if err := flags.apply(cmd, app, &base); err != nil {
				return err
			}
			opts.Action = args[0]
			if len(args) == 2 {
				opts.Host = args[1]
			}
			inv, err := app.runner().GetInventory(cmd.Context(), opts, base)
			if inv == nil {
				return app.prepareFailed(cmd, err)
			}
			if err != nil {
				app.logger.Warn("inventory output not decoded", "err", err)
			} else if inv.Data != nil {
				app.logger.Debug("inventory decoded", "entries", len(inv.Data))
			}
			return app.finishQuery(cmd, inv.Result)
		},
	}
	fs := inventoryCmd.Flags()
	fs.StringArrayVarP(&opts.Inventories, "inventory", "i", nil, "inventory source (repeatable)")
	fs.StringVar(&opts.Format, "format", "", "output format: json, yaml or toml (default: json)")
	fs.StringVar(&opts.PlaybookDir, "playbook-dir", "", "playbook directory for relative paths")
	fs.StringArrayVar(&opts.VaultIDs, "vault-id", nil, "vault identity (repeatable)")
	fs.StringVar(&opts.VaultPasswordFile, "vault-password-file", "", "vault password file")
	fs.StringVar(&opts.OutputFile, "output", "", "write the answer to this file")
	fs.BoolVar(&opts.Export, "export", false, "export variables in their stored form")
	fs.BoolVar(&opts.Vars, "vars", false, "include variables in the graph")
	flags.register(inventoryCmd, true)
	return inventoryCmd
}

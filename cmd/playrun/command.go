// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"github.com/playrun/playrun/pkg/runner"

	"github.com/spf13/cobra"
)

func newCommandCommand(app *App) *cobra.Command {
	flags := &requestFlags{}
	commandCmd := &cobra.Command{
		Use:   "command [flags] <executable> [args...]",
		Short: "Run any executable with literal arguments",
		Long: `Run any executable under supervision. Arguments are passed as-is and never
go through a shell, so "';hostname'" stays a single literal argument.

Executables named ansible* get the automation defaults in their environment.
Commands run in subprocess mode unless --runner-mode says otherwise.`,
		Example: `  playrun command -- ansible-galaxy collection list
  playrun command --private-data-dir ./demo --process-isolation -- ansible --version`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var base runner.Request
			if err := flags.apply(cmd, app, &base); err != nil {
				return err
			}
			res, err := app.runner().RunCommand(cmd.Context(), args[0], args[1:], base)
			if err != nil {
				return app.prepareFailed(cmd, err)
			}
			return app.finish(cmd, res)
		},
	}
	// Everything after the executable belongs to it.
	commandCmd.Flags().SetInterspersed(false)
	flags.register(commandCmd, true)
	return commandCmd
}

// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/playrun/playrun/internal/artifact"

	"github.com/spf13/cobra"
)

func newStatusCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status <artifact-dir>",
		Short: "Show the recorded outcome of a finished run",
		Long: `Show the status and return code recorded in an artifact directory.
The exit status of this command is the recorded return code.`,
		Example: `  playrun status ./demo/artifacts/2f1c0c1e-6f0a-4b7e-9d0e-3a5b8c2d1e4f`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, rc, err := artifact.ReadResult(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(app.stdout, "%s %s\n", CmdStyle.Render(string(status)), SubtitleStyle.Render(fmt.Sprintf("rc %d", rc)))
			if !rc.IsSuccess() {
				cmd.SilenceErrors = true
				return &ExitError{Code: rc}
			}
			return nil
		},
	}
}

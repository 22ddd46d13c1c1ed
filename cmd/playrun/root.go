// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for playrun.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/playrun/playrun/internal/issue"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// rootFlags are the persistent flags shared by every command.
type rootFlags struct {
	verbose    bool
	configPath string
}

// NewRootCommand builds the playrun command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlags{}
	rootCmd := &cobra.Command{
		Use:   "playrun",
		Short: "Launch and supervise Ansible runs",
		Long: TitleStyle.Render("playrun") + SubtitleStyle.Render(" - Launch and supervise Ansible runs") + `

playrun prepares a private data directory, builds the environment of an
ansible-playbook, ansible or arbitrary command, optionally delivers an SSH
key through a one-shot pipe and runs everything inside a container, then
supervises the child and records its outcome under artifacts/<ident>.

` + SubtitleStyle.Render("Examples:") + `
  playrun run ./demo -p site.yml          Run a playbook from ./demo/project
  playrun run ./demo -m ping --hosts all  Run one module ad hoc
  playrun command -- whoami               Run any command, arguments stay literal
  playrun inventory list -i hosts.ini     Show the parsed inventory
  playrun config show                     Show current configuration`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.configure(cmd.Context(), flags)
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/playrun/config.cue)")

	rootCmd.AddCommand(
		newRunCommand(app),
		newCommandCommand(app),
		newDocsCommand(app),
		newPluginsCommand(app),
		newAnsibleConfigCommand(app),
		newInventoryCommand(app),
		newStatusCommand(app),
		newConfigCommand(app),
	)
	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits with the child's return code.
// This is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	// fang overrides rootCmd.Version, so the version goes through WithVersion.
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(1)
	}
}

// formatErrorForDisplay formats an error for user display.
// ActionableErrors use their own Format; verbose mode shows the full chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

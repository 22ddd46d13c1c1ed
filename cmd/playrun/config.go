// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/playrun/playrun/internal/config"
	"github.com/playrun/playrun/internal/issue"

	"github.com/spf13/cobra"
)

// newConfigCommand creates the `playrun config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage playrun configuration",
		Long: `Manage playrun configuration.

Configuration is read from $XDG_CONFIG_HOME/playrun/config.cue (usually
~/.config/playrun/config.cue) and PLAYRUN_* environment variables, e.g.
PLAYRUN_CONTAINER_RUNTIME=docker. Per-run env/settings override it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.Context(), app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.CreateDefaultConfig("")
			if err != nil {
				return err
			}
			fmt.Fprintf(app.stdout, "%s Configuration at %s\n", SuccessStyle.Render("✓"), path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir, err := config.ConfigDir()
			if err != nil {
				return err
			}
			fmt.Fprintf(app.stdout, "Config directory: %s\n", cfgDir)
			fmt.Fprintf(app.stdout, "Config file: %s\n", filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt))
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Config.Load(cmd.Context(), config.LoadOptions{ConfigFilePath: app.configPath})
			if err != nil {
				return err
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	})

	return cfgCmd
}

func showConfig(ctx context.Context, app *App) error {
	cfg, path, err := config.LoadWithPath(ctx, config.LoadOptions{ConfigFilePath: app.configPath})
	if err != nil {
		if entry := issue.Get(issue.ConfigLoadFailedId); entry != nil {
			rendered, _ := entry.Render("dark")
			fmt.Fprint(app.stderr, rendered)
		}
		return err
	}

	w := app.stdout
	keyStyle := CmdStyle
	valueStyle := SuccessStyle
	value := func(v any) string { return valueStyle.Render(fmt.Sprint(v)) }
	list := func(items []string) string {
		if len(items) == 0 {
			return SubtitleStyle.Render("(none)")
		}
		return valueStyle.Render(strings.Join(items, ", "))
	}

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	if path != "" {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), path)
	} else {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(w)

	base := cfg.PrivateDataBase
	if base == "" {
		base = "(OS temp dir)"
	}
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("private_data_base"), value(base))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("rotate_artifacts"), value(cfg.RotateArtifacts))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("inherit_env"), value(cfg.InheritEnv))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("env_allowlist"), list(cfg.EnvAllowlist))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("container"))
	fmt.Fprintf(w, "  enabled: %s\n", value(cfg.Container.Enabled))
	fmt.Fprintf(w, "  runtime: %s\n", value(cfg.Container.Runtime))
	fmt.Fprintf(w, "  image: %s\n", value(cfg.Container.Image))
	fmt.Fprintf(w, "  volume_mounts: %s\n", list(cfg.Container.VolumeMounts))
	fmt.Fprintf(w, "  options: %s\n", list(cfg.Container.Options))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("timeouts"))
	fmt.Fprintf(w, "  idle: %s\n", value(cfg.Timeouts.Idle))
	fmt.Fprintf(w, "  job: %s\n", value(cfg.Timeouts.Job))
	fmt.Fprintf(w, "  pexpect: %s\n", value(cfg.Timeouts.Pexpect))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("ui"))
	fmt.Fprintf(w, "  color_scheme: %s\n", value(cfg.UI.ColorScheme))
	fmt.Fprintf(w, "  verbose: %s\n", value(cfg.UI.Verbose))
	return nil
}

// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/playrun/playrun/internal/config"
	"github.com/playrun/playrun/internal/issue"
	"github.com/playrun/playrun/pkg/runner"
	"github.com/playrun/playrun/pkg/types"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// finish reports res on stderr and turns it into the command's exit status:
// the child's return code, or 254 for timeouts and cancellations.
func (a *App) finish(cmd *cobra.Command, res *runner.Result) error {
	printSummary(a.stderr, res, isTerminal(a.stderr))
	if res.Successful() {
		return nil
	}
	cmd.SilenceErrors = true
	return &ExitError{Code: res.RC, Err: res.Err}
}

// prepareFailed renders an error raised before anything was spawned.
func (a *App) prepareFailed(cmd *cobra.Command, err error) error {
	a.renderIssue(err)
	fmt.Fprintf(a.stderr, "%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(err, a.verbose))
	cmd.SilenceErrors = true
	return &ExitError{Code: 1, Err: err}
}

// renderIssue prints the catalog explanation linked from err, if any.
func (a *App) renderIssue(err error) {
	entry := issue.Lookup(err)
	if entry == nil {
		return
	}
	rendered, renderErr := entry.Render(glamourStyle(a.cfg.UI.ColorScheme, isTerminal(a.stderr)))
	if renderErr != nil {
		a.logger.Warn("failed to render issue explanation", "issue", entry.Id(), "err", renderErr)
		return
	}
	fmt.Fprint(a.stderr, rendered)
}

func glamourStyle(scheme config.ColorScheme, tty bool) string {
	switch {
	case !tty:
		return "notty"
	case scheme == config.ColorSchemeLight:
		return "light"
	case scheme == config.ColorSchemeDark:
		return "dark"
	default:
		return "auto"
	}
}

func printSummary(w io.Writer, res *runner.Result, tty bool) {
	elapsed := res.Elapsed().Round(time.Millisecond)
	if !tty {
		fmt.Fprintf(w, "status=%s rc=%d elapsed=%s artifacts=%s\n", res.Status, res.RC, elapsed, res.ArtifactDir)
		return
	}

	var mark string
	switch res.Status {
	case types.StatusSuccessful:
		mark = SuccessStyle.Render("✓ " + string(res.Status))
	case types.StatusTimeout, types.StatusCanceled:
		mark = WarningStyle.Render("! " + string(res.Status))
	default:
		mark = ErrorStyle.Render("✗ " + string(res.Status))
	}
	fmt.Fprintf(w, "%s %s %s\n", mark,
		SubtitleStyle.Render(fmt.Sprintf("rc %d in %s", res.RC, elapsed)),
		CmdStyle.Render(res.ArtifactDir))
	if res.Err != nil && !res.Successful() {
		fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render(res.Err.Error()))
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

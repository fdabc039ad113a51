package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/dyike/cortexctl/internal/display"
	"github.com/dyike/cortexctl/internal/prefs"
)

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func requireTerminal() error {
	if !isTerminal(os.Stdin) || !isTerminal(os.Stdout) {
		return fmt.Errorf("interactive mode needs a terminal; use 'cortexctl analyze TICKER' with flags instead")
	}
	return nil
}

// watchPrefs keeps store in sync with edits made to the form file while the
// session is open. A watch failure only costs the live reload.
func watchPrefs(ctx context.Context, a *app, store *prefs.Store) {
	err := store.Watch(ctx, func(f prefs.FormState) {
		a.logger.Info("form state changed on disk", "path", store.Path(), "ticker", f.Ticker)
	})
	if err != nil {
		a.logger.Warn("form state watch unavailable", "path", store.Path(), "error", err)
	}
}

// runInteractiveMode prompts for an analysis, runs it, and offers to start
// another until the user exits. Every round is pre-filled from the current
// form state, including edits made to the file between rounds.
func runInteractiveMode(cmd *cobra.Command, a *app) error {
	if err := requireTerminal(); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	display.NewLists(out).Welcome(a.cfg.BackendURL)

	store, err := a.openPrefs()
	if err != nil {
		return err
	}
	defer a.closePrefs(store)

	ctx, cancel := context.WithCancel(cmdContext(cmd))
	defer cancel()
	watchPrefs(ctx, a, store)

	for {
		_, err := runAnalysis(cmd, a, store, analyzeOptions{interactive: true, live: a.cfg.LiveStatus})
		switch {
		case errors.Is(err, terminal.InterruptErr):
			fmt.Fprintln(out, "Bye.")
			return nil
		case errors.Is(err, ErrAnalysisFailed):
			// already rendered
		case err != nil:
			fmt.Fprintf(out, "Error: %v\n", err)
		}

		fmt.Fprintln(out)
		again, err := PromptForRestartOrExit()
		if err != nil || !again {
			fmt.Fprintln(out, "Bye.")
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

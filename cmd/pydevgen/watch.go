// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/pydevgen/pydevgen/internal/config"
	"github.com/pydevgen/pydevgen/internal/generate"
	"github.com/pydevgen/pydevgen/internal/watch"

	"github.com/charmbracelet/log"
)

// runWatch regenerates once, then again after every debounced batch of source
// changes until ctx is canceled. Generation failures are reported and the
// watcher keeps running so the user can fix the source and save again.
func runWatch(ctx context.Context, app *App, cfg *config.Config, gen *generate.Generator, logger *log.Logger) error {
	opts := gen.Options()

	debounce, err := cfg.Watch.DebounceDuration()
	if err != nil {
		return err
	}

	regenerate := func(ctx context.Context) {
		report, runErr := gen.Run(ctx)
		if report != nil {
			printReport(app.stdout, opts.Root, report)
		}
		if runErr != nil {
			fmt.Fprintf(app.stderr, "%s %s\n", WarningStyle.Render("!"),
				formatErrorForDisplay(classifyGenerateError(runErr, opts.Root), false))
		}
	}

	w, err := watch.New(watch.Config{
		BaseDir:     opts.Root,
		Ignore:      cfg.Watch.Ignore,
		IgnorePaths: opts.Outputs(),
		Debounce:    debounce,
		Logger:      logger,
		OnChange: func(ctx context.Context, changed []string) error {
			fmt.Fprintf(app.stdout, "%s Detected %d change(s). Regenerating...\n", CmdStyle.Render("→"), len(changed))
			regenerate(ctx)
			return nil
		},
	})
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	regenerate(ctx)
	fmt.Fprintf(app.stdout, "\n%s Watching %s for changes (Ctrl+C to stop)...\n\n", CmdStyle.Render("→"), opts.Root)
	return w.Run(ctx)
}

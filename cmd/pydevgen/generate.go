// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pydevgen/pydevgen/internal/config"
	"github.com/pydevgen/pydevgen/internal/generate"
	"github.com/pydevgen/pydevgen/internal/issue"
	"github.com/pydevgen/pydevgen/pkg/types"

	"github.com/spf13/cobra"
)

type generateFlagValues struct {
	only  string
	check bool
	watch bool
}

func newGenerateCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	flags := &generateFlagValues{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Regenerate the dont-trace module and the Cython sources",
		Long: `Regenerate the dont-trace module and the Cython sources.

The dont-trace module is rebuilt from a scan of the source tree. Each Cython
source is removed and rebuilt from the directive-transformed modules it is
configured with. The first failure aborts the run.`,
		Example: `  pydevgen generate
  pydevgen generate --root ~/src/PyDev.Debugger
  pydevgen generate --only cython
  pydevgen generate --check`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd.Context(), app, rootFlags, flags)
		},
	}

	cmd.Flags().StringVar(&flags.only, "only", "", "generate a single target (dont-trace, cython)")
	cmd.Flags().BoolVar(&flags.check, "check", false, "report out-of-date files without writing")
	cmd.Flags().BoolVarP(&flags.watch, "watch", "w", false, "regenerate whenever a Python source changes")
	cmd.MarkFlagsMutuallyExclusive("check", "watch")

	_ = cmd.RegisterFlagCompletionFunc("only", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{string(config.OnlyDontTrace), string(config.OnlyCython)}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runGenerate(ctx context.Context, app *App, rootFlags *rootFlagValues, flags *generateFlagValues) error {
	cfg, err := app.loadConfig(ctx, rootFlags)
	if err != nil {
		return err
	}

	only := config.OnlyTarget(flags.only)
	opts, err := cfg.GenerateOptions(only)
	if err != nil {
		return &ExitError{Code: types.ExitUsage, Err: err}
	}

	logger := app.newLogger(cfg, rootFlags.verbose)
	gen, err := generate.New(opts, logger)
	if err != nil {
		return classifyGenerateError(err, opts.Root)
	}

	if flags.check {
		return runCheck(ctx, app, gen)
	}

	if flags.watch {
		return runWatch(ctx, app, cfg, gen, logger)
	}

	report, err := gen.Run(ctx)
	if err != nil {
		return classifyGenerateError(err, opts.Root)
	}
	printReport(app.stdout, opts.Root, report)
	return nil
}

// runCheck prints a diff for every generated file that is out of date and
// fails when there is at least one.
func runCheck(ctx context.Context, app *App, gen *generate.Generator) error {
	root := gen.Options().Root

	drifts, err := gen.Check(ctx)
	if err != nil {
		return classifyGenerateError(err, root)
	}
	if len(drifts) == 0 {
		fmt.Fprintln(app.stdout, SuccessStyle.Render("✓")+" generated files are up to date")
		return nil
	}

	for _, d := range drifts {
		state := "stale"
		if d.Missing {
			state = "missing"
		}
		fmt.Fprintf(app.stdout, "%s %s\n", WarningStyle.Render(state), CmdStyle.Render(rel(root, d.Path)))
		printDiff(app.stdout, d.Diff)
	}

	return &ExitError{
		Code: types.ExitFailure,
		Err: issue.NewErrorContext().
			WithOperation("verify generated files").
			WithResource(root).
			WithIssue(issue.GeneratedFilesStaleId).
			WithSuggestion("Run 'pydevgen generate' and commit the result").
			Wrap(fmt.Errorf("%d generated file(s) out of date", len(drifts))).
			BuildError(),
	}
}

// printReport writes a one-line summary per file a run touched. Removed
// files that were written again are reported once, as written.
func printReport(w io.Writer, root string, report *generate.Report) {
	written := make(map[string]struct{}, len(report.Written))
	for _, art := range report.Written {
		written[art.Path] = struct{}{}
	}
	for _, path := range report.Removed {
		if _, ok := written[path]; ok {
			continue
		}
		fmt.Fprintf(w, "%s removed %s\n", SubtitleStyle.Render("-"), rel(root, path))
	}
	for _, art := range report.Written {
		var detail string
		switch art.Kind {
		case generate.KindDontTrace:
			detail = fmt.Sprintf("%d entries", art.Entries)
		case generate.KindCython:
			detail = fmt.Sprintf("%d modules, %d blocks", art.Modules, art.Blocks)
		}
		fmt.Fprintf(w, "%s wrote %s %s\n", SuccessStyle.Render("✓"), rel(root, art.Path), SubtitleStyle.Render("("+detail+")"))
	}
}

// printDiff colors the lines of a generate.LineDiff result.
func printDiff(w io.Writer, diff string) {
	for line := range strings.Lines(diff) {
		line = strings.TrimSuffix(line, "\n")
		switch {
		case strings.HasPrefix(line, "+"):
			line = diffAddStyle.Render(line)
		case strings.HasPrefix(line, "-"):
			line = diffDelStyle.Render(line)
		case strings.HasPrefix(line, "@@"):
			line = diffHunkStyle.Render(line)
		}
		fmt.Fprintln(w, "  "+line)
	}
}

// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/pydevgen/pydevgen/internal/config"
	"github.com/pydevgen/pydevgen/internal/issue"
	"github.com/pydevgen/pydevgen/internal/output"
	"github.com/pydevgen/pydevgen/pkg/directive"

	"github.com/spf13/cobra"
)

func newTransformCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "transform <file>",
		Short: "Transform the directive blocks of a single module",
		Long: `Transform the '# IFDEF CYTHON' blocks of a single module.

The primary branch of every block is uncommented and the alternate branch is
commented. The result goes to stdout unless --output is given.`,
		Example: `  pydevgen transform _pydevd_bundle/pydevd_frame.py
  pydevgen transform pydevd_frame.py -o /tmp/pydevd_frame.pyx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransform(cmd.Context(), app, rootFlags, args[0], outPath)
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "write the result to a file instead of stdout")

	return cmd
}

func runTransform(ctx context.Context, app *App, rootFlags *rootFlagValues, file, outPath string) error {
	cfg, err := app.loadConfig(ctx, rootFlags)
	if err != nil {
		return err
	}
	opts, err := cfg.GenerateOptions(config.OnlyAll)
	if err != nil {
		return err
	}

	t, err := directive.New(opts.Markers)
	if err != nil {
		return classifyGenerateError(err, app.workDir)
	}

	path := app.abs(file)
	f, err := os.Open(path)
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("read source module").
			WithResource(file).
			WithSuggestion("Paths are relative to the working directory, not --root").
			Wrap(err).
			BuildError()
	}
	defer f.Close()

	res, err := t.Transform(file, f)
	if err != nil {
		return classifyGenerateError(err, app.workDir)
	}

	logger := app.newLogger(cfg, rootFlags.verbose)
	logger.Debug("transformed", "file", file, "blocks", res.Stats.Blocks,
		"primary", res.Stats.PrimaryLines, "alternate", res.Stats.AlternateLines)

	if outPath == "" {
		_, err = fmt.Fprint(app.stdout, res.String())
		return err
	}

	if err := output.WriteAtomic(app.abs(outPath), []byte(res.String())); err != nil {
		return classifyGenerateError(err, app.workDir)
	}
	fmt.Fprintf(app.stdout, "%s wrote %s %s\n", SuccessStyle.Render("✓"), outPath,
		SubtitleStyle.Render(fmt.Sprintf("(%d blocks)", res.Stats.Blocks)))
	return nil
}

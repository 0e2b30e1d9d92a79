// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pydevgen/pydevgen/internal/config"
	"github.com/pydevgen/pydevgen/internal/generate"
	"github.com/pydevgen/pydevgen/internal/scan"
	"github.com/pydevgen/pydevgen/pkg/types"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

const (
	scanFormatText = "text"
	scanFormatJSON = "json"
	scanFormatTOML = "toml"
)

type (
	// scanListing is the machine-readable form of a scan.
	scanListing struct {
		Root  string     `json:"root" toml:"root"`
		Files []scanFile `json:"files" toml:"files"`
	}

	scanFile struct {
		Filename string `json:"filename" toml:"filename"`
		Category string `json:"category" toml:"category"`
	}
)

func newScanCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List the files the dont-trace module would exclude",
		Long: `List the files the dont-trace module would exclude, without writing it.

The text format prints the dictionary lines exactly as they appear in the
generated module.`,
		Example: `  pydevgen scan
  pydevgen scan --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScan(cmd.Context(), app, rootFlags, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", scanFormatText, "output format (text, json, toml)")
	_ = cmd.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{scanFormatText, scanFormatJSON, scanFormatTOML}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runScan(ctx context.Context, app *App, rootFlags *rootFlagValues, format string) error {
	switch format {
	case scanFormatText, scanFormatJSON, scanFormatTOML:
	default:
		return &ExitError{Code: types.ExitUsage, Err: fmt.Errorf("unknown format %q (want text, json or toml)", format)}
	}

	cfg, err := app.loadConfig(ctx, rootFlags)
	if err != nil {
		return err
	}
	opts, err := cfg.GenerateOptions(config.OnlyDontTrace)
	if err != nil {
		return err
	}
	gen, err := generate.New(opts, app.newLogger(cfg, rootFlags.verbose))
	if err != nil {
		return classifyGenerateError(err, opts.Root)
	}

	entries, err := gen.Entries(ctx)
	if err != nil {
		return classifyGenerateError(err, opts.Root)
	}

	return writeScan(app.stdout, format, opts.Root, entries)
}

func writeScan(w io.Writer, format, root string, entries []scan.Entry) error {
	if format == scanFormatText {
		for _, line := range scan.Lines(entries) {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
		return nil
	}

	listing := scanListing{Root: root, Files: make([]scanFile, len(entries))}
	for i, e := range entries {
		listing.Files[i] = scanFile{Filename: e.Filename, Category: e.Category}
	}

	if format == scanFormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(listing)
	}

	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	return enc.Encode(listing)
}

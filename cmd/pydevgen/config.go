// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pydevgen/pydevgen/internal/config"
	"github.com/pydevgen/pydevgen/internal/issue"
	"github.com/pydevgen/pydevgen/internal/output"

	"github.com/spf13/cobra"
)

// newConfigCommand creates the `pydevgen config` command tree.
// Subcommands that read configuration use the App's ConfigProvider.
func newConfigCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage pydevgen configuration",
		Long: `Manage pydevgen configuration.

Configuration is read from ` + config.FileName() + ` in the working directory, or
from the file given with --config. PYDEVGEN_* environment variables override
file values (for example PYDEVGEN_LOG_LEVEL=debug).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return showConfig(cmd.Context(), app, rootFlags)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.loadConfig(cmd.Context(), rootFlags)
			if err != nil {
				return err
			}
			if cfg.Source == "" {
				fmt.Fprintln(app.stdout, SubtitleStyle.Render("(using defaults)"))
				return nil
			}
			fmt.Fprintln(app.stdout, cfg.Source)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.loadConfig(cmd.Context(), rootFlags)
			if err != nil {
				return err
			}
			content, err := config.GenerateCUE(cfg)
			if err != nil {
				return err
			}
			fmt.Fprint(app.stdout, content)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "schema",
		Short: "Output the CUE schema configuration files are checked against",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			fmt.Fprint(app.stdout, config.Schema())
			return nil
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create " + config.FileName() + " with the default configuration",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return initConfig(app, force)
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cfgCmd.AddCommand(initCmd)

	return cfgCmd
}

func showConfig(ctx context.Context, app *App, rootFlags *rootFlagValues) error {
	cfg, err := app.loadConfig(ctx, rootFlags)
	if err != nil {
		if rendered, renderErr := issue.Get(issue.ConfigLoadFailedId).Render("dark"); renderErr == nil {
			fmt.Fprint(app.stderr, rendered)
		}
		return err
	}

	keyStyle := CmdStyle
	valueStyle := SuccessStyle
	w := app.stdout

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)

	if cfg.Source != "" {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), cfg.Source)
	} else {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("root"), valueStyle.Render(cfg.Root))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("log.level"), valueStyle.Render(cfg.Log.Level.String()))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("markers"))
	fmt.Fprintf(w, "  open: %s\n", valueStyle.Render(fmt.Sprintf("%q", cfg.Markers.Open)))
	fmt.Fprintf(w, "  else: %s\n", valueStyle.Render(fmt.Sprintf("%q", cfg.Markers.Else)))
	fmt.Fprintf(w, "  end: %s\n", valueStyle.Render(fmt.Sprintf("%q", cfg.Markers.End)))
	fmt.Fprintf(w, "  prefix: %s\n", valueStyle.Render(fmt.Sprintf("%q", cfg.Markers.Prefix)))
	fmt.Fprintf(w, "  suffix: %s\n", valueStyle.Render(fmt.Sprintf("%q", cfg.Markers.Suffix)))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("dont_trace"))
	fmt.Fprintf(w, "  enabled: %s\n", valueStyle.Render(fmt.Sprintf("%v", cfg.DontTrace.Enabled)))
	fmt.Fprintf(w, "  output: %s\n", valueStyle.Render(cfg.DontTrace.Output))
	fmt.Fprintf(w, "  allow_dirs: %s\n", valueStyle.Render(formatList(cfg.DontTrace.AllowDirs)))
	fmt.Fprintf(w, "  suffix: %s\n", valueStyle.Render(cfg.DontTrace.Suffix))
	fmt.Fprintf(w, "  deny_files: %s\n", valueStyle.Render(formatList(cfg.DontTrace.DenyFiles)))
	fmt.Fprintf(w, "  category: %s\n", valueStyle.Render(cfg.DontTrace.Category))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("cython"))
	fmt.Fprintf(w, "  enabled: %s\n", valueStyle.Render(fmt.Sprintf("%v", cfg.Cython.Enabled)))
	if len(cfg.Cython.Outputs) == 0 {
		fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render("(no outputs configured)"))
	}
	for _, out := range cfg.Cython.Outputs {
		fmt.Fprintf(w, "  - %s\n", valueStyle.Render(out.Target))
		for _, m := range out.Modules {
			fmt.Fprintf(w, "      %s %s\n", SubtitleStyle.Render("<-"), m)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("watch"))
	fmt.Fprintf(w, "  debounce: %s\n", valueStyle.Render(cfg.Watch.Debounce))
	fmt.Fprintf(w, "  ignore: %s\n", valueStyle.Render(formatList(cfg.Watch.Ignore)))

	return nil
}

// initConfig writes the default configuration to the working directory. The
// root is stored as "." so the file keeps working when the checkout moves.
func initConfig(app *App, force bool) error {
	path := filepath.Join(app.workDir, config.FileName())
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	content, err := config.GenerateCUE(config.DefaultConfig())
	if err != nil {
		return err
	}
	if err := output.WriteAtomic(path, []byte(content)); err != nil {
		return classifyGenerateError(err, app.workDir)
	}

	fmt.Fprintf(app.stdout, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
	return nil
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = fmt.Sprintf("%q", item)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/pydevgen/pydevgen/internal/issue"
	"github.com/pydevgen/pydevgen/pkg/types"

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

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version != "dev" {
		return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
	}
	// go install github.com/pydevgen/pydevgen@vX.Y.Z stamps the module version.
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev (built from source)"
}

// NewRootCommand builds the pydevgen command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlagValues{}

	rootCmd := &cobra.Command{
		Use:   "pydevgen",
		Short: "Regenerate the pydevd generated sources",
		Long: TitleStyle.Render("pydevgen") + SubtitleStyle.Render(" - Regenerate the pydevd generated sources") + `

pydevgen rebuilds the files pydevd keeps under version control but never
edits by hand: the dont-trace exclusion list and the Cython sources built
from '# IFDEF CYTHON' directive blocks in the pure Python modules.

` + SubtitleStyle.Render("Examples:") + `
  pydevgen generate                 Regenerate everything below the current directory
  pydevgen generate --check         Fail when a generated file is out of date
  pydevgen generate --watch         Regenerate whenever a Python source changes
  pydevgen transform pydevd_frame.py
  pydevgen scan --format json       List the files excluded from tracing`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default is ./pydevgen.cue when present)")
	rootCmd.PersistentFlags().StringVar(&flags.root, "root", "", "pydevd source tree (overrides the configured root)")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(
		newGenerateCommand(app, flags),
		newTransformCommand(app, flags),
		newScanCommand(app, flags),
		newConfigCommand(app, flags),
	)

	return rootCmd
}

// Execute runs the CLI. This is called by main.main().
func Execute() {
	app, err := NewApp(Dependencies{})
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+err.Error())
		os.Exit(int(types.ExitFailure))
	}
	rootCmd := NewRootCommand(app)

	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(func(w io.Writer, styles fang.Styles, err error) {
			verbose, _ := rootCmd.PersistentFlags().GetBool("verbose")
			renderError(w, styles, err, verbose)
		}),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(int(types.ExitFailure))
	}
}

// renderError writes err for the user. ActionableErrors print their
// suggestions, plus the linked guidance in verbose mode; an ExitError
// without a cause has already been reported by its command.
func renderError(w io.Writer, styles fang.Styles, err error, verbose bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return
	}

	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		fang.DefaultErrorHandler(w, styles, err)
		return
	}

	fmt.Fprintln(w, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
	if !verbose {
		return
	}
	if guide := ae.Guidance(); guide != nil {
		if rendered, renderErr := guide.Render("dark"); renderErr == nil {
			fmt.Fprint(w, rendered)
		}
	}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

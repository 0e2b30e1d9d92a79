// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pydevgen/pydevgen/internal/config"
	"github.com/pydevgen/pydevgen/internal/logging"

	"github.com/charmbracelet/log"
)

type (
	// App wires CLI services and shared dependencies. It is the composition root for
	// the CLI layer; every Cobra command handler receives an App reference.
	App struct {
		Config  ConfigProvider
		workDir string
		stdout  io.Writer
		stderr  io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil fields are
	// replaced with production defaults by NewApp.
	Dependencies struct {
		Config ConfigProvider
		// WorkDir is where pydevgen.cue is looked up and relative --root values
		// are resolved. Empty means the process working directory.
		WorkDir string
		Stdout  io.Writer
		Stderr  io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// rootFlagValues holds the persistent flags shared by every subcommand.
	rootFlagValues struct {
		configPath string
		root       string
		verbose    bool
	}
)

// NewApp creates an App, filling unset dependencies with production defaults.
func NewApp(deps Dependencies) (*App, error) {
	app := &App{
		Config:  deps.Config,
		workDir: deps.WorkDir,
		stdout:  deps.Stdout,
		stderr:  deps.Stderr,
	}
	if app.Config == nil {
		app.Config = config.NewProvider()
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	if app.workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("determine working directory: %w", err)
		}
		app.workDir = wd
	}
	return app, nil
}

// loadConfig loads the configuration selected by the root flags.
func (a *App) loadConfig(ctx context.Context, flags *rootFlagValues) (*config.Config, error) {
	opts := config.LoadOptions{SearchDir: a.workDir}
	if flags.configPath != "" {
		opts.ConfigFilePath = a.abs(flags.configPath)
	}
	if flags.root != "" {
		opts.Root = a.abs(flags.root)
	}
	return a.Config.Load(ctx, opts)
}

// newLogger builds the stderr logger for a command. --verbose wins over the
// configured level.
func (a *App) newLogger(cfg *config.Config, verbose bool) *log.Logger {
	level := log.InfoLevel
	if cfg != nil {
		if parsed, err := logging.ParseLevel(cfg.Log.Level.String()); err == nil {
			level = parsed
		}
	}
	if verbose {
		level = log.DebugLevel
	}
	return logging.New(a.stderr, level)
}

// abs resolves p against the App working directory.
func (a *App) abs(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(a.workDir, p)
}

// rel shortens p for display when it lies below base.
func rel(base, p string) string {
	r, err := filepath.Rel(base, p)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return p
	}
	return filepath.ToSlash(r)
}

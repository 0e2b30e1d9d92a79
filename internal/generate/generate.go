// SPDX-License-Identifier: MPL-2.0

// Package generate drives a full regeneration of the pydevd generated files.
//
// A run first rebuilds the dont-trace exclusion list from a directory scan,
// then removes the stale Cython sources and rebuilds each of them from its
// directive-transformed modules. Everything runs sequentially; the first
// failure aborts the run and nothing after it is written.
package generate

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/pydevgen/pydevgen/internal/aggregate"
	"github.com/pydevgen/pydevgen/internal/logging"
	"github.com/pydevgen/pydevgen/internal/output"
	"github.com/pydevgen/pydevgen/internal/render"
	"github.com/pydevgen/pydevgen/internal/scan"
	"github.com/pydevgen/pydevgen/pkg/directive"

	"github.com/charmbracelet/log"
)

const (
	// KindDontTrace is the exclusion-list module.
	KindDontTrace Kind = "dont-trace"
	// KindCython is an aggregated Cython source.
	KindCython Kind = "cython"
)

type (
	// Kind identifies what produced an artifact.
	Kind string

	// Artifact is a generated file rendered in memory.
	Artifact struct {
		Kind    Kind
		Path    string
		Content []byte
		// Entries is the number of scanned files (dont-trace only).
		Entries int
		// Modules and Blocks describe a Cython source.
		Modules int
		Blocks  int
	}

	// Report summarizes a run.
	Report struct {
		Removed []string
		Written []Artifact
	}

	// Generator regenerates the configured files.
	Generator struct {
		opts       Options
		logger     *log.Logger
		aggregator *aggregate.Aggregator
	}
)

// New creates a Generator. A nil logger discards log output.
func New(opts Options, logger *log.Logger) (*Generator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	transformer, err := directive.New(opts.Markers)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	logger = logging.OrDiscard(logger)
	return &Generator{
		opts:       opts,
		logger:     logger,
		aggregator: aggregate.New(transformer, logger),
	}, nil
}

// Options returns the options the generator was built with.
func (g *Generator) Options() Options {
	return g.opts
}

// Run regenerates everything that is enabled: the dont-trace module first,
// then every Cython output. Written artifacts in the report carry no content.
func (g *Generator) Run(ctx context.Context) (*Report, error) {
	report := &Report{}

	if g.opts.DontTrace.Enabled {
		entries, err := g.Entries(ctx)
		if err != nil {
			return report, err
		}
		dest := g.opts.resolve(g.opts.DontTrace.Output)
		if err := render.WriteFile(ctx, dest, entries); err != nil {
			return report, err
		}
		g.logger.Info("wrote dont-trace module", "path", g.rel(dest), "entries", len(entries))
		report.Written = append(report.Written, Artifact{Kind: KindDontTrace, Path: dest, Entries: len(entries)})
	}

	if g.opts.Cython.Enabled {
		report.Removed = append(report.Removed, g.removeStale()...)
		for _, out := range g.opts.Cython.Outputs {
			target := g.opts.resolve(out.Target)
			rendered, err := g.aggregator.Generate(ctx, target, g.modules(out))
			if err != nil {
				return report, err
			}
			report.Written = append(report.Written, Artifact{
				Kind:    KindCython,
				Path:    target,
				Modules: len(rendered.Modules),
				Blocks:  rendered.Blocks(),
			})
		}
	}

	return report, nil
}

// Plan renders every enabled artifact in memory without touching the disk.
func (g *Generator) Plan(ctx context.Context) ([]Artifact, error) {
	var arts []Artifact
	if g.opts.DontTrace.Enabled {
		art, err := g.DontTrace(ctx)
		if err != nil {
			return nil, err
		}
		arts = append(arts, *art)
	}
	if g.opts.Cython.Enabled {
		for _, out := range g.opts.Cython.Outputs {
			art, err := g.Cython(ctx, out)
			if err != nil {
				return nil, err
			}
			arts = append(arts, *art)
		}
	}
	return arts, nil
}

// DontTrace scans the tree and renders the exclusion-list module.
func (g *Generator) DontTrace(ctx context.Context) (*Artifact, error) {
	entries, err := g.Entries(ctx)
	if err != nil {
		return nil, err
	}
	content, err := render.Bytes(entries)
	if err != nil {
		return nil, err
	}
	return &Artifact{
		Kind:    KindDontTrace,
		Path:    g.opts.resolve(g.opts.DontTrace.Output),
		Content: content,
		Entries: len(entries),
	}, nil
}

// Cython transforms and concatenates the modules of one output.
func (g *Generator) Cython(ctx context.Context, out CythonOutput) (*Artifact, error) {
	rendered, err := g.aggregator.Render(ctx, g.modules(out))
	if err != nil {
		return nil, err
	}
	return &Artifact{
		Kind:    KindCython,
		Path:    g.opts.resolve(out.Target),
		Content: rendered.Content,
		Modules: len(rendered.Modules),
		Blocks:  rendered.Blocks(),
	}, nil
}

// Entries scans the tree for the dont-trace module. When the module itself
// lives where the scan would pick it up, its own entry is included so the
// listing does not change once the file has been written.
func (g *Generator) Entries(ctx context.Context) ([]scan.Entry, error) {
	opts := g.opts.DontTrace.Scan
	opts.Root = g.opts.Root

	entries, err := scan.Scan(ctx, opts)
	if err != nil {
		return nil, err
	}
	if out := g.opts.DontTrace.Output; out != "" {
		if self, ok := scan.Match(opts, g.opts.resolve(out)); ok {
			entries = scan.Insert(entries, self)
		}
	}
	g.logger.Debug("scanned source tree", "root", opts.Root, "entries", len(entries))
	return entries, nil
}

// modules resolves the module paths of out against the root.
func (g *Generator) modules(out CythonOutput) []aggregate.Module {
	modules := make([]aggregate.Module, len(out.Modules))
	for i, m := range out.Modules {
		modules[i] = aggregate.Module(g.opts.resolve(string(m)))
	}
	return modules
}

// removeStale deletes every Cython target before regeneration. Failures are
// logged and do not stop the run.
func (g *Generator) removeStale() []string {
	var removed []string
	for _, out := range g.opts.Cython.Outputs {
		path := g.opts.resolve(out.Target)
		ok, err := output.RemoveIfExists(path)
		if err != nil {
			g.logger.Warn("could not remove stale output", "path", path, "err", err)
			continue
		}
		if ok {
			g.logger.Debug("removed stale output", "path", path)
			removed = append(removed, path)
		}
	}
	return removed
}

// rel shortens path for log output.
func (g *Generator) rel(path string) string {
	if r, err := filepath.Rel(g.opts.Root, path); err == nil {
		return r
	}
	return path
}

// SPDX-License-Identifier: MPL-2.0

// Package aggregate concatenates directive-transformed modules into a single
// generated Cython source.
package aggregate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pydevgen/pydevgen/internal/logging"
	"github.com/pydevgen/pydevgen/internal/output"
	"github.com/pydevgen/pydevgen/pkg/directive"

	"github.com/charmbracelet/log"
)

// Banner opens every aggregated file.
const Banner = "# Important: Autogenerated file.\n\n# DO NOT edit manually!\n# DO NOT edit manually!\n"

const (
	compiledExt = ".pyc"
	sourceExt   = ".py"
)

// ErrSourceRead is the sentinel wrapped by SourceReadError.
var ErrSourceRead = errors.New("read source module")

type (
	// Module references a source module by filesystem path.
	Module string

	// SourceReadError reports a module that could not be read.
	SourceReadError struct {
		Module Module
		Path   string
		Err    error
	}

	// ModuleResult records what was transformed for one module.
	ModuleResult struct {
		Module Module
		Path   string
		Stats  directive.Stats
	}

	// Output is an aggregated file rendered in memory.
	Output struct {
		Content []byte
		Modules []ModuleResult
	}

	// Aggregator transforms and concatenates modules.
	Aggregator struct {
		transformer *directive.Transformer
		logger      *log.Logger
	}
)

// Error implements the error interface.
func (e *SourceReadError) Error() string {
	return fmt.Sprintf("%s %s: %v", ErrSourceRead, e.Path, e.Err)
}

// Unwrap exposes both ErrSourceRead and the underlying cause.
func (e *SourceReadError) Unwrap() []error { return []error{ErrSourceRead, e.Err} }

// String returns the module path.
func (m Module) String() string { return string(m) }

// SourcePath returns the path to read for m. A compiled ".pyc" reference is
// mapped to its ".py" source.
func SourcePath(m Module) string {
	p := string(m)
	if strings.HasSuffix(p, compiledExt) {
		return strings.TrimSuffix(p, compiledExt) + sourceExt
	}
	return p
}

// newlines reads modules with universal newlines so the aggregated file
// only ever contains \n terminators.
var newlines = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// New creates an Aggregator. A nil logger discards log output.
func New(t *directive.Transformer, logger *log.Logger) *Aggregator {
	if t == nil {
		t = directive.NewDefault()
	}
	return &Aggregator{transformer: t, logger: logging.OrDiscard(logger)}
}

// Render builds the aggregated file in memory: Banner followed by the
// transformed content of every module, in order. The first failure aborts.
func (a *Aggregator) Render(ctx context.Context, modules []Module) (*Output, error) {
	var buf bytes.Buffer
	buf.WriteString(Banner)

	results := make([]ModuleResult, 0, len(modules))
	for _, m := range modules {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("render canceled: %w", err)
		}

		path := SourcePath(m)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &SourceReadError{Module: m, Path: path, Err: err}
		}

		res, err := a.transformer.TransformLines(path, directive.SplitLines(newlines.Replace(string(data))))
		if err != nil {
			return nil, err
		}
		for _, line := range res.Lines {
			buf.WriteString(line)
		}

		a.logger.Debug("transformed module",
			"module", path,
			"blocks", res.Stats.Blocks,
			"primary", res.Stats.PrimaryLines,
			"alternate", res.Stats.AlternateLines)
		results = append(results, ModuleResult{Module: m, Path: path, Stats: res.Stats})
	}

	return &Output{Content: buf.Bytes(), Modules: results}, nil
}

// Generate renders modules and replaces target with the result. Nothing is
// written when rendering fails.
func (a *Aggregator) Generate(ctx context.Context, target string, modules []Module) (*Output, error) {
	out, err := a.Render(ctx, modules)
	if err != nil {
		return nil, err
	}
	if err := output.WriteAtomic(target, out.Content); err != nil {
		return nil, err
	}
	a.logger.Info("wrote cython source", "target", target, "modules", len(out.Modules))
	return out, nil
}

// Blocks sums the directive blocks of all modules.
func (o *Output) Blocks() int {
	n := 0
	for _, m := range o.Modules {
		n += m.Stats.Blocks
	}
	return n
}

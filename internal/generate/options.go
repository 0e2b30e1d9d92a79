// SPDX-License-Identifier: MPL-2.0

package generate

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pydevgen/pydevgen/internal/aggregate"
	"github.com/pydevgen/pydevgen/internal/render"
	"github.com/pydevgen/pydevgen/internal/scan"
	"github.com/pydevgen/pydevgen/pkg/directive"
)

// ErrInvalidOptions is returned by New for options that cannot drive a run.
var ErrInvalidOptions = errors.New("invalid generate options")

type (
	// Options configures a Generator. Relative paths are resolved against Root.
	Options struct {
		Root      string
		Markers   directive.Markers
		DontTrace DontTraceOptions
		Cython    CythonOptions
	}

	// DontTraceOptions configures the exclusion-list generation.
	DontTraceOptions struct {
		Enabled bool
		// Output is the generated module path.
		Output string
		// Scan carries the filters; its Root is ignored in favor of Options.Root.
		Scan scan.Options
	}

	// CythonOptions configures the aggregated Cython sources.
	CythonOptions struct {
		Enabled bool
		Outputs []CythonOutput
	}

	// CythonOutput is one aggregated file and the modules it is built from.
	CythonOutput struct {
		Target  string
		Modules []aggregate.Module
	}
)

// DefaultOptions returns the pydevd layout rooted at root.
func DefaultOptions(root string) Options {
	return Options{
		Root:    root,
		Markers: directive.DefaultMarkers(),
		DontTrace: DontTraceOptions{
			Enabled: true,
			Output:  render.DefaultOutput,
			Scan:    scan.DefaultOptions(root),
		},
		Cython: CythonOptions{
			Enabled: true,
			Outputs: DefaultCythonOutputs(),
		},
	}
}

// DefaultCythonOutputs returns the two Cython sources pydevd ships.
func DefaultCythonOutputs() []CythonOutput {
	return []CythonOutput{
		{
			Target: "_pydevd_bundle/pydevd_trace_dispatch_cython.pyx",
			Modules: []aggregate.Module{
				"_pydevd_bundle/pydevd_frame.py",
				"_pydevd_bundle/pydevd_trace_dispatch_regular.py",
			},
		},
		{
			Target: "_pydevd_bundle/pydevd_additional_thread_info_cython.pyx",
			Modules: []aggregate.Module{
				"_pydevd_bundle/pydevd_additional_thread_info_regular.py",
			},
		},
	}
}

// Validate reports the first problem that would prevent a run.
func (o Options) Validate() error {
	if strings.TrimSpace(o.Root) == "" {
		return fmt.Errorf("%w: root is required", ErrInvalidOptions)
	}
	if err := o.Markers.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	if o.DontTrace.Enabled {
		if strings.TrimSpace(o.DontTrace.Output) == "" {
			return fmt.Errorf("%w: dont-trace output is required", ErrInvalidOptions)
		}
		if o.DontTrace.Scan.Suffix == "" {
			return fmt.Errorf("%w: dont-trace suffix is required", ErrInvalidOptions)
		}
	}
	if o.Cython.Enabled {
		seen := make(map[string]int, len(o.Cython.Outputs))
		for i, out := range o.Cython.Outputs {
			if strings.TrimSpace(out.Target) == "" {
				return fmt.Errorf("%w: cython output %d has no target", ErrInvalidOptions, i)
			}
			if len(out.Modules) == 0 {
				return fmt.Errorf("%w: cython output %s has no modules", ErrInvalidOptions, out.Target)
			}
			clean := filepath.Clean(out.Target)
			if first, dup := seen[clean]; dup {
				return fmt.Errorf("%w: cython outputs %d and %d share target %s", ErrInvalidOptions, first, i, out.Target)
			}
			seen[clean] = i
		}
	}
	return nil
}

// resolve makes p absolute relative to the root, leaving absolute paths alone.
func (o Options) resolve(p string) string {
	p = filepath.FromSlash(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(o.Root, p)
}

// Outputs lists every file a run writes, resolved against Root.
func (o Options) Outputs() []string {
	var paths []string
	if o.DontTrace.Enabled {
		paths = append(paths, o.resolve(o.DontTrace.Output))
	}
	if o.Cython.Enabled {
		for _, out := range o.Cython.Outputs {
			paths = append(paths, o.resolve(out.Target))
		}
	}
	return paths
}

// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pydevgen/pydevgen/internal/aggregate"
	"github.com/pydevgen/pydevgen/internal/generate"
	"github.com/pydevgen/pydevgen/internal/render"
	"github.com/pydevgen/pydevgen/internal/scan"
	"github.com/pydevgen/pydevgen/pkg/directive"
)

const (
	// LogLevelDebug logs every transformed module and removed file.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo logs one line per written file.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn logs only recoverable problems.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError logs only failures.
	LogLevelError LogLevel = "error"

	// OnlyAll generates every enabled output.
	OnlyAll OnlyTarget = ""
	// OnlyDontTrace generates only the dont-trace module.
	OnlyDontTrace OnlyTarget = "dont-trace"
	// OnlyCython generates only the Cython sources.
	OnlyCython OnlyTarget = "cython"

	// DefaultDebounce is the quiet period before watch mode regenerates.
	DefaultDebounce = "500ms"
)

var (
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidOnlyTarget is returned when an OnlyTarget value is not recognized.
	ErrInvalidOnlyTarget = errors.New("invalid generation target")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// LogLevel is the minimum level of log output.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	// It wraps ErrInvalidLogLevel for errors.Is() compatibility.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// OnlyTarget restricts generation to one kind of output.
	OnlyTarget string

	// InvalidOnlyTargetError is returned when an OnlyTarget value is not recognized.
	// It wraps ErrInvalidOnlyTarget for errors.Is() compatibility.
	InvalidOnlyTargetError struct {
		Value OnlyTarget
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config is the application configuration.
	Config struct {
		// Root is the pydevd source tree. Relative values are resolved when
		// the configuration is loaded.
		Root      string          `json:"root" mapstructure:"root"`
		Log       LogConfig       `json:"log" mapstructure:"log"`
		Markers   MarkersConfig   `json:"markers" mapstructure:"markers"`
		DontTrace DontTraceConfig `json:"dont_trace" mapstructure:"dont_trace"`
		Cython    CythonConfig    `json:"cython" mapstructure:"cython"`
		Watch     WatchConfig     `json:"watch" mapstructure:"watch"`

		// Source is the config file that was loaded, empty for defaults.
		Source string `json:"-" mapstructure:"-"`
	}

	// LogConfig configures log output.
	LogConfig struct {
		Level LogLevel `json:"level" mapstructure:"level"`
	}

	// MarkersConfig holds the directive marker strings.
	MarkersConfig struct {
		Open   string `json:"open" mapstructure:"open"`
		Else   string `json:"else" mapstructure:"else"`
		End    string `json:"end" mapstructure:"end"`
		Prefix string `json:"prefix" mapstructure:"prefix"`
		Suffix string `json:"suffix" mapstructure:"suffix"`
	}

	// DontTraceConfig configures the dont-trace module.
	DontTraceConfig struct {
		Enabled   bool     `json:"enabled" mapstructure:"enabled"`
		Output    string   `json:"output" mapstructure:"output"`
		AllowDirs []string `json:"allow_dirs" mapstructure:"allow_dirs"`
		Suffix    string   `json:"suffix" mapstructure:"suffix"`
		DenyFiles []string `json:"deny_files" mapstructure:"deny_files"`
		Category  string   `json:"category" mapstructure:"category"`
	}

	// CythonConfig configures the aggregated Cython sources.
	CythonConfig struct {
		Enabled bool                 `json:"enabled" mapstructure:"enabled"`
		Outputs []CythonOutputConfig `json:"outputs" mapstructure:"outputs"`
	}

	// CythonOutputConfig is one aggregated file and its modules.
	CythonOutputConfig struct {
		Target  string   `json:"target" mapstructure:"target"`
		Modules []string `json:"modules" mapstructure:"modules"`
	}

	// WatchConfig configures watch mode.
	WatchConfig struct {
		// Debounce is a Go duration string.
		Debounce string `json:"debounce" mapstructure:"debounce"`
		// Ignore holds doublestar patterns relative to the root.
		Ignore []string `json:"ignore" mapstructure:"ignore"`
	}
)

// Error implements the error interface.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string { return string(l) }

// IsValid returns whether the LogLevel is one of the defined levels,
// and a list of validation errors if it is not.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{&InvalidLogLevelError{Value: l}}
	}
}

// Error implements the error interface.
func (e *InvalidOnlyTargetError) Error() string {
	return fmt.Sprintf("invalid generation target %q (valid: dont-trace, cython)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidOnlyTargetError) Unwrap() error { return ErrInvalidOnlyTarget }

// String returns the string representation of the OnlyTarget.
func (o OnlyTarget) String() string { return string(o) }

// IsValid returns whether the OnlyTarget is recognized. The zero value
// selects everything and is valid.
func (o OnlyTarget) IsValid() (bool, []error) {
	switch o {
	case OnlyAll, OnlyDontTrace, OnlyCython:
		return true, nil
	default:
		return false, []error{&InvalidOnlyTargetError{Value: o}}
	}
}

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%s: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// DefaultConfig returns the configuration for a stock pydevd checkout.
func DefaultConfig() *Config {
	markers := directive.DefaultMarkers()
	filters := scan.DefaultOptions("")

	outputs := generate.DefaultCythonOutputs()
	cython := make([]CythonOutputConfig, len(outputs))
	for i, out := range outputs {
		modules := make([]string, len(out.Modules))
		for j, m := range out.Modules {
			modules[j] = m.String()
		}
		cython[i] = CythonOutputConfig{Target: out.Target, Modules: modules}
	}

	return &Config{
		Root: ".",
		Log:  LogConfig{Level: LogLevelInfo},
		Markers: MarkersConfig{
			Open:   markers.Open,
			Else:   markers.Else,
			End:    markers.End,
			Prefix: markers.Prefix,
			Suffix: markers.Suffix,
		},
		DontTrace: DontTraceConfig{
			Enabled:   true,
			Output:    render.DefaultOutput,
			AllowDirs: filters.AllowDirs,
			Suffix:    filters.Suffix,
			DenyFiles: filters.DenyFiles,
			Category:  filters.Category,
		},
		Cython: CythonConfig{
			Enabled: true,
			Outputs: cython,
		},
		Watch: WatchConfig{Debounce: DefaultDebounce},
	}
}

// Validate checks the fields that the schema cannot, such as a root or log
// level supplied through the environment.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Root) == "" {
		errs = append(errs, errors.New("root must not be empty"))
	}
	if ok, fieldErrs := c.Log.Level.IsValid(); !ok {
		errs = append(errs, fieldErrs...)
	}
	if _, err := c.Watch.DebounceDuration(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// DebounceDuration parses Debounce. An empty value yields DefaultDebounce.
func (w WatchConfig) DebounceDuration() (time.Duration, error) {
	raw := w.Debounce
	if raw == "" {
		raw = DefaultDebounce
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("watch.debounce: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("watch.debounce: %s is negative", raw)
	}
	return d, nil
}

// GenerateOptions converts the configuration into generator options,
// restricted to only.
func (c *Config) GenerateOptions(only OnlyTarget) (generate.Options, error) {
	if ok, errs := only.IsValid(); !ok {
		return generate.Options{}, errors.Join(errs...)
	}

	outputs := make([]generate.CythonOutput, len(c.Cython.Outputs))
	for i, out := range c.Cython.Outputs {
		modules := make([]aggregate.Module, len(out.Modules))
		for j, m := range out.Modules {
			modules[j] = aggregate.Module(m)
		}
		outputs[i] = generate.CythonOutput{Target: out.Target, Modules: modules}
	}

	return generate.Options{
		Root: c.Root,
		Markers: directive.Markers{
			Open:   c.Markers.Open,
			Else:   c.Markers.Else,
			End:    c.Markers.End,
			Prefix: c.Markers.Prefix,
			Suffix: c.Markers.Suffix,
		},
		DontTrace: generate.DontTraceOptions{
			Enabled: c.DontTrace.Enabled && only != OnlyCython,
			Output:  c.DontTrace.Output,
			Scan: scan.Options{
				Root:      c.Root,
				AllowDirs: c.DontTrace.AllowDirs,
				Suffix:    c.DontTrace.Suffix,
				DenyFiles: c.DontTrace.DenyFiles,
				Category:  c.DontTrace.Category,
			},
		},
		Cython: generate.CythonOptions{
			Enabled: c.Cython.Enabled && only != OnlyDontTrace,
			Outputs: outputs,
		},
	}, nil
}

// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/pydevgen/pydevgen/internal/generate"
)

func TestLogLevel_IsValid(t *testing.T) {
	t.Parallel()

	for _, level := range []LogLevel{LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError} {
		if ok, errs := level.IsValid(); !ok || errs != nil {
			t.Errorf("LogLevel(%q).IsValid() = %v, %v", level, ok, errs)
		}
	}

	ok, errs := LogLevel("trace").IsValid()
	if ok || len(errs) != 1 {
		t.Fatalf("LogLevel(trace).IsValid() = %v, %v", ok, errs)
	}
	var lvlErr *InvalidLogLevelError
	if !errors.As(errs[0], &lvlErr) || lvlErr.Value != "trace" {
		t.Errorf("error = %v, want *InvalidLogLevelError", errs[0])
	}
	if !errors.Is(errs[0], ErrInvalidLogLevel) {
		t.Error("error should wrap ErrInvalidLogLevel")
	}
}

func TestOnlyTarget_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value OnlyTarget
		want  bool
	}{
		{OnlyAll, true},
		{OnlyDontTrace, true},
		{OnlyCython, true},
		{"pyx", false},
		{"Cython", false},
	}
	for _, tt := range tests {
		ok, errs := tt.value.IsValid()
		if ok != tt.want {
			t.Errorf("OnlyTarget(%q).IsValid() = %v, want %v", tt.value, ok, tt.want)
		}
		if !ok && !errors.Is(errs[0], ErrInvalidOnlyTarget) {
			t.Errorf("OnlyTarget(%q) error should wrap ErrInvalidOnlyTarget", tt.value)
		}
	}
}

func TestWatchConfig_DebounceDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{"", 500 * time.Millisecond, false},
		{"2s", 2 * time.Second, false},
		{"0s", 0, false},
		{"-1s", 0, true},
		{"later", 0, true},
	}
	for _, tt := range tests {
		got, err := WatchConfig{Debounce: tt.raw}.DebounceDuration()
		if (err != nil) != tt.wantErr {
			t.Errorf("DebounceDuration(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("DebounceDuration(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() error = %v", err)
	}

	cfg.Root = " "
	cfg.Log.Level = "loud"
	cfg.Watch.Debounce = "x"
	err := cfg.Validate()
	var cfgErr *InvalidConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Validate() error = %v, want *InvalidConfigError", err)
	}
	if len(cfgErr.FieldErrors) != 3 {
		t.Errorf("FieldErrors = %v, want 3", cfgErr.FieldErrors)
	}
	if !errors.Is(err, ErrInvalidConfig) {
		t.Error("error should wrap ErrInvalidConfig")
	}
}

func TestConfig_GenerateOptions(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Root = filepath.FromSlash("/src/pydev")

	tests := []struct {
		only          OnlyTarget
		wantDontTrace bool
		wantCython    bool
	}{
		{OnlyAll, true, true},
		{OnlyDontTrace, true, false},
		{OnlyCython, false, true},
	}
	for _, tt := range tests {
		opts, err := cfg.GenerateOptions(tt.only)
		if err != nil {
			t.Fatalf("GenerateOptions(%q) error = %v", tt.only, err)
		}
		if opts.DontTrace.Enabled != tt.wantDontTrace || opts.Cython.Enabled != tt.wantCython {
			t.Errorf("GenerateOptions(%q) enabled = %v/%v, want %v/%v",
				tt.only, opts.DontTrace.Enabled, opts.Cython.Enabled, tt.wantDontTrace, tt.wantCython)
		}
	}

	opts, err := cfg.GenerateOptions(OnlyAll)
	if err != nil {
		t.Fatalf("GenerateOptions() error = %v", err)
	}
	if err := opts.Validate(); err != nil {
		t.Errorf("converted defaults do not validate: %v", err)
	}
	def := generate.DefaultOptions(cfg.Root)
	if opts.Markers != def.Markers {
		t.Errorf("Markers = %+v, want %+v", opts.Markers, def.Markers)
	}
	if opts.DontTrace.Scan.Root != cfg.Root || opts.DontTrace.Scan.Category != def.DontTrace.Scan.Category {
		t.Errorf("Scan = %+v", opts.DontTrace.Scan)
	}
	if len(opts.Cython.Outputs) != 2 || opts.Cython.Outputs[1].Modules[0] != def.Cython.Outputs[1].Modules[0] {
		t.Errorf("Cython.Outputs = %+v", opts.Cython.Outputs)
	}

	if _, err := cfg.GenerateOptions("everything"); !errors.Is(err, ErrInvalidOnlyTarget) {
		t.Errorf("GenerateOptions(everything) error = %v, want ErrInvalidOnlyTarget", err)
	}
}

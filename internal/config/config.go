// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pydevgen/pydevgen/internal/issue"
	"github.com/pydevgen/pydevgen/pkg/cueutil"

	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "pydevgen"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = AppName
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides (PYDEVGEN_ROOT, PYDEVGEN_LOG_LEVEL).
	EnvPrefix = "PYDEVGEN"

	schemaDefinition = "#Config"
)

//go:embed config_schema.cue
var configSchema []byte

// Schema returns the embedded CUE schema.
func Schema() string {
	return string(configSchema)
}

// FileName is the config file looked up in the search directory.
func FileName() string {
	return ConfigFileName + "." + ConfigFileExt
}

// loadWithOptions performs option-driven config loading. Precedence from
// highest to lowest is opts.Root, environment, config file, defaults.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	searchDir := opts.SearchDir
	if searchDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		searchDir = wd
	}

	path, err := resolveConfigPath(opts.ConfigFilePath, searchDir)
	if err != nil {
		return nil, err
	}

	baseDir := searchDir
	if path != "" {
		if err := loadCUEIntoViper(v, path); err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithIssue(issue.ConfigLoadFailedId).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the schema printed by 'pydevgen config schema'").
				Wrap(err).
				BuildError()
		}
		baseDir = filepath.Dir(path)
	}

	if opts.Root != "" {
		v.Set("root", opts.Root)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Source = path

	if cfg.Root != "" && !filepath.IsAbs(cfg.Root) {
		cfg.Root = filepath.Join(baseDir, cfg.Root)
	}
	cfg.Root = filepath.Clean(cfg.Root)

	if err := cfg.Validate(); err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(path).
			WithIssue(issue.ConfigLoadFailedId).
			WithSuggestion("Check the " + EnvPrefix + "_* environment variables").
			Wrap(err).
			BuildError()
	}

	return &cfg, nil
}

// resolveConfigPath returns the config file to load, or "" when none exists.
// An explicit path must exist.
func resolveConfigPath(explicit, searchDir string) (string, error) {
	if explicit != "" {
		abs, err := filepath.Abs(explicit)
		if err != nil {
			return "", fmt.Errorf("failed to resolve config path: %w", err)
		}
		if !fileExists(abs) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(explicit).
				WithIssue(issue.ConfigLoadFailedId).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'pydevgen config dump > " + FileName() + "' to start from the defaults").
				Wrap(fmt.Errorf("config file not found: %s", explicit)).
				BuildError()
		}
		return abs, nil
	}

	candidate := filepath.Join(searchDir, FileName())
	if fileExists(candidate) {
		return candidate, nil
	}
	return "", nil
}

// setDefaults registers every key with Viper. Keys unknown to Viper are not
// consulted for environment overrides.
func setDefaults(v *viper.Viper, defaults *Config) {
	v.SetDefault("root", defaults.Root)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("markers.open", defaults.Markers.Open)
	v.SetDefault("markers.else", defaults.Markers.Else)
	v.SetDefault("markers.end", defaults.Markers.End)
	v.SetDefault("markers.prefix", defaults.Markers.Prefix)
	v.SetDefault("markers.suffix", defaults.Markers.Suffix)
	v.SetDefault("dont_trace.enabled", defaults.DontTrace.Enabled)
	v.SetDefault("dont_trace.output", defaults.DontTrace.Output)
	v.SetDefault("dont_trace.allow_dirs", defaults.DontTrace.AllowDirs)
	v.SetDefault("dont_trace.suffix", defaults.DontTrace.Suffix)
	v.SetDefault("dont_trace.deny_files", defaults.DontTrace.DenyFiles)
	v.SetDefault("dont_trace.category", defaults.DontTrace.Category)
	v.SetDefault("cython.enabled", defaults.Cython.Enabled)
	v.SetDefault("cython.outputs", defaults.Cython.Outputs)
	v.SetDefault("watch.debounce", defaults.Watch.Debounce)
	v.SetDefault("watch.ignore", defaults.Watch.Ignore)
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper.
//
// Fields are optional in the schema, so validation does not require concrete
// values; defaults stay with Viper.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	result, err := cueutil.ParseAndDecode[map[string]any](
		configSchema,
		data,
		schemaDefinition,
		cueutil.WithFilename(path),
		cueutil.WithConcrete(false),
	)
	if err != nil {
		return err
	}

	if err := v.MergeConfigMap(*result.Value); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false
	}
	return err == nil && !info.IsDir()
}

// GenerateCUE renders cfg as a config file that loads back to the same
// values.
func GenerateCUE(cfg *Config) (string, error) {
	src, err := cueutil.Encode(cfg)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("// pydevgen configuration\n")
	sb.WriteString("// Relative paths are resolved against the directory holding this file.\n\n")
	sb.Write(src)
	if !strings.HasSuffix(sb.String(), "\n") {
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is read from pydevgen.cue in the working directory, or from an
// explicit file. It is validated against an embedded CUE schema
// (config_schema.cue), layered over built-in defaults and
// PYDEVGEN_-prefixed environment variables, and converted into
// generate.Options for a run.
package config

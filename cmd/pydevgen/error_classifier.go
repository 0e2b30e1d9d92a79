// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"io/fs"

	"github.com/pydevgen/pydevgen/internal/aggregate"
	"github.com/pydevgen/pydevgen/internal/generate"
	"github.com/pydevgen/pydevgen/internal/issue"
	"github.com/pydevgen/pydevgen/internal/output"
	"github.com/pydevgen/pydevgen/internal/scan"
	"github.com/pydevgen/pydevgen/pkg/directive"
)

// classifyGenerateError maps generator failures to issue catalog IDs and wraps
// them as ActionableErrors. Cancellation and errors that are already
// actionable pass through unchanged.
func classifyGenerateError(err error, root string) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return err
	}
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return err
	}

	ec := issue.NewErrorContext().Wrap(err)

	var malformed *directive.MalformedDirectiveError
	var srcErr *aggregate.SourceReadError
	var writeErr *output.WriteError
	var removeErr *output.RemoveError
	var scanErr *scan.ScanError

	switch {
	case errors.As(err, &malformed):
		ec.WithOperation("transform directive blocks").
			WithResource(rel(root, malformed.File)).
			WithIssue(issue.MalformedDirectiveId).
			WithSuggestion("Close every '# IFDEF CYTHON' block with '# ENDIF'").
			WithSuggestion("Comment every line of the Cython branch with '# '")
	case errors.As(err, &srcErr):
		ec.WithOperation("read source module").
			WithResource(rel(root, srcErr.Path))
		if errors.Is(srcErr.Err, fs.ErrNotExist) {
			ec.WithIssue(issue.SourceNotFoundId).
				WithSuggestion("Pass the pydevd checkout with --root").
				WithSuggestion("Check cython.outputs with 'pydevgen config show'")
		}
	case errors.As(err, &writeErr):
		ec.WithOperation("write generated file").
			WithResource(rel(root, writeErr.Path)).
			WithIssue(issue.OutputWriteFailedId)
	case errors.As(err, &removeErr):
		ec.WithOperation("remove stale file").
			WithResource(rel(root, removeErr.Path)).
			WithIssue(issue.OutputWriteFailedId)
	case errors.As(err, &scanErr):
		ec.WithOperation("scan source tree").
			WithResource(scanErr.Root).
			WithSuggestion("Pass the pydevd checkout with --root")
	case errors.Is(err, generate.ErrInvalidOptions):
		ec.WithOperation("validate configuration").
			WithIssue(issue.ConfigLoadFailedId).
			WithSuggestion("Print the schema with 'pydevgen config schema'")
	default:
		ec.WithOperation("generate").WithResource(root)
	}

	return ec.BuildError()
}

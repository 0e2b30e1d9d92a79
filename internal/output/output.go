// SPDX-License-Identifier: MPL-2.0

// Package output writes generated files.
//
// Generated files are replaced atomically: content is written to a temporary
// file next to the destination and renamed over it, so readers never observe a
// truncated file and a failed write leaves the previous version in place.
package output

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultPerm is the permission given to newly generated files.
const DefaultPerm fs.FileMode = 0o644

var (
	// ErrWrite is the sentinel wrapped by WriteError.
	ErrWrite = errors.New("write generated file")
	// ErrRemove is the sentinel wrapped by RemoveError.
	ErrRemove = errors.New("remove stale file")
)

type (
	// WriteError reports a failure to write a generated file.
	WriteError struct {
		Path string
		Err  error
	}

	// RemoveError reports a failure to remove a stale generated file.
	RemoveError struct {
		Path string
		Err  error
	}
)

// Error implements the error interface.
func (e *WriteError) Error() string {
	return fmt.Sprintf("%s %s: %v", ErrWrite, e.Path, e.Err)
}

// Unwrap exposes both ErrWrite and the underlying cause.
func (e *WriteError) Unwrap() []error { return []error{ErrWrite, e.Err} }

// Error implements the error interface.
func (e *RemoveError) Error() string {
	return fmt.Sprintf("%s %s: %v", ErrRemove, e.Path, e.Err)
}

// Unwrap exposes both ErrRemove and the underlying cause.
func (e *RemoveError) Unwrap() []error { return []error{ErrRemove, e.Err} }

// WriteAtomic replaces path with data. The parent directory must exist. An
// existing file is fully overwritten and keeps its permissions; a new file gets
// DefaultPerm.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)

	perm := DefaultPerm
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	tmpPath := tmp.Name()

	// Track whether the rename succeeded so the temp file is cleaned up otherwise.
	renamed := false
	defer func() {
		if !renamed {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return &WriteError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	renamed = true

	return nil
}

// RemoveIfExists deletes path. A missing file is not an error; removed reports
// whether a file was actually deleted.
func RemoveIfExists(path string) (removed bool, err error) {
	err = os.Remove(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, &RemoveError{Path: path, Err: err}
	}
}

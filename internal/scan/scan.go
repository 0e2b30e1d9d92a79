// SPDX-License-Identifier: MPL-2.0

// Package scan walks a pydevd source tree and collects the debugger-owned
// files that the tracer must never step into.
package scan

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// DefaultCategory tags every scanned file as part of the debugger itself.
const DefaultCategory = "PYDEV_FILE"

// ErrScan is the sentinel wrapped by ScanError.
var ErrScan = errors.New("scan source tree")

var (
	// defaultAllowDirs are the directory names whose files are collected. The
	// empty name stands for the scan root.
	defaultAllowDirs = []string{
		"PyDev.Debugger",
		"_pydev_bundle",
		"_pydev_imps",
		"_pydevd_bundle",
		"pydevd_concurrency_analyser",
		"pydevd_plugins",
		"",
	}

	// defaultDenyFiles are never collected: package markers and the test
	// runner bootstrap.
	defaultDenyFiles = []string{
		"__init__.py",
		"runfiles.py",
	}
)

type (
	// Entry is one collected file.
	Entry struct {
		Filename string
		Category string
	}

	// Options controls a scan. Root is required; it is never derived from the
	// location of the running binary.
	Options struct {
		// Root is the directory to walk.
		Root string
		// AllowDirs lists directory base names whose immediate files qualify.
		// "" matches Root itself.
		AllowDirs []string
		// Suffix is the required filename suffix (e.g. ".py").
		Suffix string
		// DenyFiles lists filenames that never qualify.
		DenyFiles []string
		// Category tags every entry.
		Category string
	}

	// ScanError reports a failure while walking the tree.
	//
	//nolint:revive // scan.ScanError reads better at call sites than scan.Error
	ScanError struct {
		Root string
		Path string
		Err  error
	}
)

// Error implements the error interface.
func (e *ScanError) Error() string {
	if e.Path != "" && e.Path != e.Root {
		return fmt.Sprintf("%s %s: %s: %v", ErrScan, e.Root, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", ErrScan, e.Root, e.Err)
}

// Unwrap exposes both ErrScan and the underlying cause.
func (e *ScanError) Unwrap() []error { return []error{ErrScan, e.Err} }

// Format renders the entry as a line of the dont-trace dictionary.
func (e Entry) Format() string {
	return fmt.Sprintf("    '%s': %s,", e.Filename, e.Category)
}

// DefaultOptions returns the pydevd scan settings rooted at root.
func DefaultOptions(root string) Options {
	return Options{
		Root:      root,
		AllowDirs: slices.Clone(defaultAllowDirs),
		Suffix:    ".py",
		DenyFiles: slices.Clone(defaultDenyFiles),
		Category:  DefaultCategory,
	}
}

// Scan walks opts.Root and returns the qualifying entries, deduplicated and
// sorted. A file qualifies when its parent directory's base name is in
// AllowDirs, its name ends with Suffix and its name is not in DenyFiles.
func Scan(ctx context.Context, opts Options) ([]Entry, error) {
	if strings.TrimSpace(opts.Root) == "" {
		return nil, &ScanError{Err: errors.New("root directory is required")}
	}
	root := filepath.Clean(opts.Root)

	// WalkDir does not descend into a symlinked root, so walk its target.
	resolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, &ScanError{Root: root, Err: err}
	}

	m := newMatcher(resolved, opts)
	seen := make(map[Entry]struct{})

	err = filepath.WalkDir(resolved, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return &ScanError{Root: root, Path: path, Err: walkErr}
		}
		if d.IsDir() {
			return ctx.Err()
		}

		entry, ok := m.match(path)
		if !ok || isDirLink(path, d) {
			return nil
		}
		seen[entry] = struct{}{}
		return nil
	})
	if err != nil {
		var se *ScanError
		if errors.As(err, &se) {
			return nil, se
		}
		return nil, &ScanError{Root: root, Err: err}
	}

	entries := make([]Entry, 0, len(seen))
	for e := range seen {
		entries = append(entries, e)
	}
	Sort(entries)
	return entries, nil
}

// Match reports the entry a file at path would contribute to a scan of
// opts.Root, whether or not the file exists. Relative paths are resolved
// against opts.Root.
func Match(opts Options, path string) (Entry, bool) {
	root := filepath.Clean(opts.Root)
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	return newMatcher(root, opts).match(filepath.Clean(path))
}

// Insert adds e to sorted entries unless it is already present.
func Insert(entries []Entry, e Entry) []Entry {
	if slices.Contains(entries, e) {
		return entries
	}
	entries = append(entries, e)
	Sort(entries)
	return entries
}

// Sort orders entries by filename, then category.
func Sort(entries []Entry) {
	slices.SortFunc(entries, func(a, b Entry) int {
		return cmp.Or(cmp.Compare(a.Filename, b.Filename), cmp.Compare(a.Category, b.Category))
	})
}

// Lines formats every entry.
func Lines(entries []Entry) []string {
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.Format()
	}
	return lines
}

// segment is the name used to match dir against AllowDirs: "" for the root,
// the base name otherwise.
func segment(root, dir string) string {
	if dir == root {
		return ""
	}
	return filepath.Base(dir)
}

// isDirLink reports whether d is a symlink to a directory. Such links are
// directories for the purpose of the scan, not files.
func isDirLink(path string, d fs.DirEntry) bool {
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// matcher holds the filters of a scan rooted at root.
type matcher struct {
	root     string
	allow    map[string]struct{}
	deny     map[string]struct{}
	suffix   string
	category string
}

func newMatcher(root string, opts Options) matcher {
	return matcher{
		root:     root,
		allow:    toSet(opts.AllowDirs),
		deny:     toSet(opts.DenyFiles),
		suffix:   opts.Suffix,
		category: opts.Category,
	}
}

func (m matcher) match(path string) (Entry, bool) {
	if _, ok := m.allow[segment(m.root, filepath.Dir(path))]; !ok {
		return Entry{}, false
	}
	name := filepath.Base(path)
	if !strings.HasSuffix(name, m.suffix) {
		return Entry{}, false
	}
	if _, denied := m.deny[name]; denied {
		return Entry{}, false
	}
	return Entry{Filename: name, Category: m.category}, true
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}

// SPDX-License-Identifier: MPL-2.0

package scan

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"testing"

	"github.com/pydevgen/pydevgen/internal/testutil"
)

func filenames(entries []Entry) []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Filename
	}
	return names
}

func TestScan_AllowedDirectory(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		"_pydev_bundle/b.py":        "",
		"_pydev_bundle/__init__.py": "",
		"_pydev_bundle/a.py":        "",
	})

	entries, err := Scan(context.Background(), DefaultOptions(root))
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	want := []Entry{
		{Filename: "a.py", Category: DefaultCategory},
		{Filename: "b.py", Category: DefaultCategory},
	}
	if !slices.Equal(entries, want) {
		t.Errorf("Scan() = %+v, want %+v", entries, want)
	}
}

func TestScan_PydevTree(t *testing.T) {
	t.Parallel()

	root := testutil.PydevTree(t, t.TempDir())

	entries, err := Scan(context.Background(), DefaultOptions(root))
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	want := []string{
		"_pydev_log.py",
		"pydev_ipython_console.py",
		"pydevd.py",
		"pydevd_additional_thread_info_regular.py",
		"pydevd_frame.py",
		"pydevd_plugin_django.py",
		"pydevd_trace_dispatch_regular.py",
	}
	if got := filenames(entries); !slices.Equal(got, want) {
		t.Errorf("Scan() = %q, want %q", got, want)
	}
}

func TestScan_DeduplicatesAcrossDirectories(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		"_pydev_bundle/shared.py":           "",
		"_pydevd_bundle/shared.py":          "",
		"nested/deeper/_pydev_imps/only.py": "",
	})

	entries, err := Scan(context.Background(), DefaultOptions(root))
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if got, want := filenames(entries), []string{"only.py", "shared.py"}; !slices.Equal(got, want) {
		t.Errorf("Scan() = %q, want %q", got, want)
	}
}

func TestScan_RootOnlyMatchesEmptySegment(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		"top.py":          "",
		"other/inside.py": "",
	})

	opts := DefaultOptions(root)
	entries, err := Scan(context.Background(), opts)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if got := filenames(entries); !slices.Equal(got, []string{"top.py"}) {
		t.Errorf("Scan() = %q, want only the root file", got)
	}

	opts.AllowDirs = []string{"other"}
	entries, err = Scan(context.Background(), opts)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if got := filenames(entries); !slices.Equal(got, []string{"inside.py"}) {
		t.Errorf("Scan() without root segment = %q, want only the nested file", got)
	}
}

func TestScan_RelativeRoot(t *testing.T) {
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		"pydevd.py":             "",
		"_pydev_bundle/log.py":  "",
		"_pydev_bundle/skip.md": "",
	})
	testutil.MustChdir(t, root)

	entries, err := Scan(context.Background(), DefaultOptions("."))
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if got, want := filenames(entries), []string{"log.py", "pydevd.py"}; !slices.Equal(got, want) {
		t.Errorf("Scan() = %q, want %q", got, want)
	}
}

func TestScan_Deterministic(t *testing.T) {
	t.Parallel()

	root := testutil.PydevTree(t, t.TempDir())
	first, err := Scan(context.Background(), DefaultOptions(root))
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	for range 3 {
		again, err := Scan(context.Background(), DefaultOptions(root))
		if err != nil {
			t.Fatalf("Scan() error = %v", err)
		}
		if !slices.Equal(first, again) {
			t.Fatalf("Scan() not deterministic: %v vs %v", first, again)
		}
	}
}

func TestScan_SymlinkedDirectoryIsNotAFile(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require elevated privileges on Windows")
	}

	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		"_pydev_bundle/real.py": "",
		"elsewhere/":            "",
	})
	if err := os.Symlink(filepath.Join(root, "elsewhere"), filepath.Join(root, "_pydev_bundle", "linked.py")); err != nil {
		t.Fatalf("Symlink() error = %v", err)
	}

	entries, err := Scan(context.Background(), DefaultOptions(root))
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if got := filenames(entries); !slices.Equal(got, []string{"real.py"}) {
		t.Errorf("Scan() = %q, want symlinked directory skipped", got)
	}
}

func TestScan_SymlinkedRoot(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require elevated privileges on Windows")
	}

	dir := t.TempDir()
	checkout := filepath.Join(dir, "checkout")
	testutil.WriteTree(t, checkout, map[string]string{
		"pydevd.py":                      "",
		"_pydevd_bundle/pydevd_frame.py": "",
	})
	link := filepath.Join(dir, "current")
	if err := os.Symlink(checkout, link); err != nil {
		t.Fatalf("Symlink() error = %v", err)
	}

	entries, err := Scan(context.Background(), DefaultOptions(link))
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if got, want := filenames(entries), []string{"pydevd.py", "pydevd_frame.py"}; !slices.Equal(got, want) {
		t.Errorf("Scan() through symlinked root = %q, want %q", got, want)
	}
}

func TestMatch(t *testing.T) {
	t.Parallel()

	root := filepath.Join("work", "pydevd")
	opts := DefaultOptions(root)

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"relative in allowed dir", "_pydevd_bundle/pydevd_dont_trace_files.py", true},
		{"absolute in allowed dir", filepath.Join(root, "_pydev_bundle", "x.py"), true},
		{"root file", "pydevd.py", true},
		{"other dir", "other/helper.py", false},
		{"wrong suffix", "_pydevd_bundle/notes.txt", false},
		{"denied name", "_pydevd_bundle/__init__.py", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			entry, ok := Match(opts, filepath.FromSlash(tt.path))
			if ok != tt.want {
				t.Fatalf("Match(%q) ok = %v, want %v", tt.path, ok, tt.want)
			}
			if ok && (entry.Filename != filepath.Base(tt.path) || entry.Category != DefaultCategory) {
				t.Errorf("Match(%q) = %+v", tt.path, entry)
			}
		})
	}
}

func TestInsert(t *testing.T) {
	t.Parallel()

	entries := []Entry{
		{Filename: "a.py", Category: DefaultCategory},
		{Filename: "c.py", Category: DefaultCategory},
	}
	entries = Insert(entries, Entry{Filename: "b.py", Category: DefaultCategory})
	entries = Insert(entries, Entry{Filename: "a.py", Category: DefaultCategory})

	if got, want := filenames(entries), []string{"a.py", "b.py", "c.py"}; !slices.Equal(got, want) {
		t.Errorf("Insert() = %q, want %q", got, want)
	}
}

func TestScan_Errors(t *testing.T) {
	t.Parallel()

	t.Run("missing root", func(t *testing.T) {
		t.Parallel()
		_, err := Scan(context.Background(), DefaultOptions(filepath.Join(t.TempDir(), "nope")))
		if !errors.Is(err, ErrScan) || !errors.Is(err, os.ErrNotExist) {
			t.Errorf("Scan() error = %v, want ErrScan wrapping ErrNotExist", err)
		}
	})

	t.Run("empty root", func(t *testing.T) {
		t.Parallel()
		_, err := Scan(context.Background(), DefaultOptions(""))
		if !errors.Is(err, ErrScan) {
			t.Errorf("Scan() error = %v, want ErrScan", err)
		}
	})

	t.Run("canceled", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Scan(ctx, DefaultOptions(t.TempDir()))
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Scan() error = %v, want context.Canceled", err)
		}
	})
}

func TestEntryFormat(t *testing.T) {
	t.Parallel()

	e := Entry{Filename: "pydevd_frame.py", Category: DefaultCategory}
	if got, want := e.Format(), "    'pydevd_frame.py': PYDEV_FILE,"; got != want {
		t.Errorf("Format() = %q, want %q", got, want)
	}

	lines := Lines([]Entry{e, {Filename: "x.py", Category: "LIB_FILE"}})
	if len(lines) != 2 || lines[1] != "    'x.py': LIB_FILE," {
		t.Errorf("Lines() = %q", lines)
	}
}

func TestSort(t *testing.T) {
	t.Parallel()

	entries := []Entry{
		{Filename: "b.py", Category: "PYDEV_FILE"},
		{Filename: "a.py", Category: "PYDEV_FILE"},
		{Filename: "a.py", Category: "LIB_FILE"},
	}
	Sort(entries)
	want := []Entry{
		{Filename: "a.py", Category: "LIB_FILE"},
		{Filename: "a.py", Category: "PYDEV_FILE"},
		{Filename: "b.py", Category: "PYDEV_FILE"},
	}
	if !slices.Equal(entries, want) {
		t.Errorf("Sort() = %+v, want %+v", entries, want)
	}
}

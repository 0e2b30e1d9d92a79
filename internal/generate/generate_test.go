// SPDX-License-Identifier: MPL-2.0

package generate

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/pydevgen/pydevgen/internal/aggregate"
	"github.com/pydevgen/pydevgen/internal/logging"
	"github.com/pydevgen/pydevgen/internal/scan"
	"github.com/pydevgen/pydevgen/internal/testutil"
	"github.com/pydevgen/pydevgen/pkg/directive"

	"github.com/charmbracelet/log"
)

func newGenerator(t *testing.T, opts Options) *Generator {
	t.Helper()
	g, err := New(opts, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return g
}

func bundlePath(root, name string) string {
	return filepath.Join(root, "_pydevd_bundle", name)
}

func TestRun_GeneratesAllOutputs(t *testing.T) {
	t.Parallel()

	root := testutil.PydevTree(t, t.TempDir())
	report, err := newGenerator(t, DefaultOptions(root)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(report.Written) != 3 {
		t.Fatalf("Written = %d artifacts, want 3", len(report.Written))
	}
	if report.Written[0].Kind != KindDontTrace || report.Written[0].Entries != 8 {
		t.Errorf("first artifact = %+v, want dont-trace with 8 entries", report.Written[0])
	}

	dontTrace := testutil.MustReadFile(t, bundlePath(root, "pydevd_dont_trace_files.py"))
	if !strings.Contains(dontTrace, "    'pydevd_frame.py': PYDEV_FILE,\n") {
		t.Errorf("dont-trace module missing scanned entry:\n%s", dontTrace)
	}

	dispatch := testutil.MustReadFile(t, bundlePath(root, "pydevd_trace_dispatch_cython.pyx"))
	if !strings.HasPrefix(dispatch, aggregate.Banner) {
		t.Errorf("cython source does not start with the banner:\n%s", dispatch)
	}
	frameAt := strings.Index(dispatch, "cdef tuple _args")
	dispatchAt := strings.Index(dispatch, "cdef str filename")
	if frameAt < 0 || dispatchAt < 0 || frameAt > dispatchAt {
		t.Errorf("cython source does not hold frame then dispatch:\n%s", dispatch)
	}
	if !strings.Contains(dispatch, "#     should_skip = -1\n") {
		t.Errorf("alternate branch not commented:\n%s", dispatch)
	}

	threadInfo := testutil.MustReadFile(t, bundlePath(root, "pydevd_additional_thread_info_cython.pyx"))
	want := aggregate.Banner +
		"# IFDEF CYTHON -- DONT EDIT THIS FILE (it is automatically generated)\n" +
		"cdef class PyDBAdditionalThreadInfo:\n" +
		"# ELSE\n" +
		"# class PyDBAdditionalThreadInfo(object):\n" +
		"# ENDIF\n" +
		"    pass\n"
	if threadInfo != want {
		t.Errorf("thread info source =\n%s\nwant\n%s", threadInfo, want)
	}
}

func TestRun_RemovesStaleOutputs(t *testing.T) {
	t.Parallel()

	root := testutil.PydevTree(t, t.TempDir())
	stale := bundlePath(root, "pydevd_trace_dispatch_cython.pyx")
	testutil.MustWriteFile(t, stale, strings.Repeat("old generated code\n", 100))

	report, err := newGenerator(t, DefaultOptions(root)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(report.Removed) != 1 || report.Removed[0] != stale {
		t.Errorf("Removed = %v, want [%s]", report.Removed, stale)
	}
	if strings.Contains(testutil.MustReadFile(t, stale), "old generated code") {
		t.Error("stale content survived regeneration")
	}
}

func TestRun_Idempotent(t *testing.T) {
	t.Parallel()

	root := testutil.PydevTree(t, t.TempDir())
	g := newGenerator(t, DefaultOptions(root))
	outputs := g.Options().Outputs()

	if _, err := g.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	first := make(map[string]string, len(outputs))
	for _, p := range outputs {
		first[p] = testutil.MustReadFile(t, p)
	}

	if _, err := g.Run(context.Background()); err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	for _, p := range outputs {
		if got := testutil.MustReadFile(t, p); got != first[p] {
			t.Errorf("%s changed between runs", p)
		}
	}
}

func TestRun_MalformedModuleAborts(t *testing.T) {
	t.Parallel()

	root := testutil.PydevTree(t, t.TempDir())
	frame := bundlePath(root, "pydevd_frame.py")
	testutil.MustWriteFile(t, frame, "# IFDEF CYTHON\n# cdef int x\n")

	report, err := newGenerator(t, DefaultOptions(root)).Run(context.Background())
	var mde *directive.MalformedDirectiveError
	if !errors.As(err, &mde) {
		t.Fatalf("Run() error = %v, want *MalformedDirectiveError", err)
	}
	if mde.File != frame || mde.Line != 1 {
		t.Errorf("error location = %s:%d, want %s:1", mde.File, mde.Line, frame)
	}

	// The dont-trace module is written before the failing Cython output.
	if len(report.Written) != 1 || report.Written[0].Kind != KindDontTrace {
		t.Errorf("Written = %+v, want only the dont-trace module", report.Written)
	}
	if _, statErr := os.Stat(bundlePath(root, "pydevd_trace_dispatch_cython.pyx")); !errors.Is(statErr, os.ErrNotExist) {
		t.Errorf("failed cython output exists: %v", statErr)
	}
	if _, statErr := os.Stat(bundlePath(root, "pydevd_additional_thread_info_cython.pyx")); !errors.Is(statErr, os.ErrNotExist) {
		t.Errorf("cython output after the failure was written: %v", statErr)
	}
}

func TestRun_OnlyDontTrace(t *testing.T) {
	t.Parallel()

	root := testutil.PydevTree(t, t.TempDir())
	opts := DefaultOptions(root)
	opts.Cython.Enabled = false

	report, err := newGenerator(t, opts).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(report.Written) != 1 {
		t.Errorf("Written = %d, want 1", len(report.Written))
	}
	if _, err := os.Stat(bundlePath(root, "pydevd_trace_dispatch_cython.pyx")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("cython output written while disabled: %v", err)
	}
}

func TestRun_LogsRemovalFailure(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("directory removal semantics differ on Windows")
	}

	root := testutil.PydevTree(t, t.TempDir())
	blocked := filepath.Join(root, "blocked.pyx")
	testutil.MustWriteFile(t, filepath.Join(blocked, "child"), "")

	opts := DefaultOptions(root)
	opts.DontTrace.Enabled = false
	opts.Cython.Outputs = []CythonOutput{
		{Target: "blocked.pyx", Modules: []aggregate.Module{"_pydevd_bundle/pydevd_frame.py"}},
		{Target: "fine.pyx", Modules: []aggregate.Module{"_pydevd_bundle/pydevd_frame.py"}},
	}

	var logs bytes.Buffer
	g, err := New(opts, logging.New(&logs, log.DebugLevel))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// Removal of the directory fails and is only logged; writing over it then
	// fails, which is fatal.
	_, err = g.Run(context.Background())
	if err == nil {
		t.Fatal("Run() succeeded writing over a directory")
	}
	if !strings.Contains(logs.String(), "could not remove stale output") {
		t.Errorf("removal failure not logged:\n%s", logs.String())
	}
}

func TestPlan_WritesNothing(t *testing.T) {
	t.Parallel()

	root := testutil.PydevTree(t, t.TempDir())
	g := newGenerator(t, DefaultOptions(root))

	arts, err := g.Plan(context.Background())
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if len(arts) != 3 {
		t.Fatalf("Plan() = %d artifacts, want 3", len(arts))
	}
	for _, art := range arts {
		if len(art.Content) == 0 {
			t.Errorf("artifact %s has no content", art.Path)
		}
		if _, err := os.Stat(art.Path); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("Plan() wrote %s", art.Path)
		}
	}
	if arts[1].Blocks != 2 || arts[1].Modules != 2 {
		t.Errorf("dispatch artifact = %d blocks / %d modules, want 2 / 2", arts[1].Blocks, arts[1].Modules)
	}
}

func TestNew_InvalidOptions(t *testing.T) {
	t.Parallel()

	valid := DefaultOptions("/src/pydev")
	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"empty root", func(o *Options) { o.Root = " " }},
		{"blank marker", func(o *Options) { o.Markers.End = "" }},
		{"missing dont-trace output", func(o *Options) { o.DontTrace.Output = "" }},
		{"missing suffix", func(o *Options) { o.DontTrace.Scan.Suffix = "" }},
		{"cython output without target", func(o *Options) { o.Cython.Outputs[0].Target = "" }},
		{"cython output without modules", func(o *Options) { o.Cython.Outputs[1].Modules = nil }},
		{"duplicate targets", func(o *Options) { o.Cython.Outputs[1].Target = "./" + o.Cython.Outputs[0].Target }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			opts := DefaultOptions(valid.Root)
			tt.mutate(&opts)
			if _, err := New(opts, nil); !errors.Is(err, ErrInvalidOptions) {
				t.Errorf("New() error = %v, want ErrInvalidOptions", err)
			}
		})
	}

	disabled := DefaultOptions(valid.Root)
	disabled.Cython.Enabled = false
	disabled.Cython.Outputs = nil
	if _, err := New(disabled, nil); err != nil {
		t.Errorf("New() with cython disabled error = %v", err)
	}
}

func TestOptions_Outputs(t *testing.T) {
	t.Parallel()

	root := filepath.FromSlash("/src/pydev")
	opts := DefaultOptions(root)
	opts.Cython.Outputs = append(opts.Cython.Outputs, CythonOutput{
		Target:  filepath.Join(root, "abs.pyx"),
		Modules: []aggregate.Module{"m.py"},
	})

	got := opts.Outputs()
	want := []string{
		filepath.Join(root, "_pydevd_bundle", "pydevd_dont_trace_files.py"),
		filepath.Join(root, "_pydevd_bundle", "pydevd_trace_dispatch_cython.pyx"),
		filepath.Join(root, "_pydevd_bundle", "pydevd_additional_thread_info_cython.pyx"),
		filepath.Join(root, "abs.pyx"),
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("Outputs() = %q, want %q", got, want)
	}
}

func TestDontTrace_CustomScan(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		"plugins/a.pyi":   "",
		"plugins/b.py":    "",
		"_pydevd_bundle/": "",
	})
	opts := DefaultOptions(root)
	opts.DontTrace.Scan = scan.Options{AllowDirs: []string{"plugins"}, Suffix: ".pyi", Category: "STUB_FILE"}

	art, err := newGenerator(t, opts).DontTrace(context.Background())
	if err != nil {
		t.Fatalf("DontTrace() error = %v", err)
	}
	if art.Entries != 1 || !strings.Contains(string(art.Content), "    'a.pyi': STUB_FILE,\n") {
		t.Errorf("DontTrace() = %d entries:\n%s", art.Entries, art.Content)
	}
}

func TestDontTrace_ListsItsOwnOutput(t *testing.T) {
	t.Parallel()

	root := testutil.PydevTree(t, t.TempDir())
	g := newGenerator(t, DefaultOptions(root))

	before, err := g.DontTrace(context.Background())
	if err != nil {
		t.Fatalf("DontTrace() error = %v", err)
	}
	if !strings.Contains(string(before.Content), "    'pydevd_dont_trace_files.py': PYDEV_FILE,\n") {
		t.Errorf("module does not list itself before it exists:\n%s", before.Content)
	}

	if _, err := g.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	after, err := g.DontTrace(context.Background())
	if err != nil {
		t.Fatalf("DontTrace() error = %v", err)
	}
	if !bytes.Equal(before.Content, after.Content) || before.Entries != after.Entries {
		t.Errorf("module changed once written: %d entries before, %d after", before.Entries, after.Entries)
	}
	if got := testutil.MustReadFile(t, before.Path); got != string(before.Content) {
		t.Errorf("written module differs from the rendered one:\n%s", got)
	}
}

func TestDontTrace_OutputOutsideScannedDirs(t *testing.T) {
	t.Parallel()

	root := testutil.PydevTree(t, t.TempDir())
	opts := DefaultOptions(root)
	opts.DontTrace.Output = filepath.Join("third_party", "pydevd_dont_trace_files.py")
	opts.Cython.Enabled = false
	g := newGenerator(t, opts)

	if _, err := g.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	art, err := g.DontTrace(context.Background())
	if err != nil {
		t.Fatalf("DontTrace() error = %v", err)
	}
	if art.Entries != 7 || strings.Contains(string(art.Content), "pydevd_dont_trace_files.py") {
		t.Errorf("DontTrace() = %d entries:\n%s", art.Entries, art.Content)
	}
}

// SPDX-License-Identifier: MPL-2.0

// Package render produces the pydevd dont-trace module from scanned entries.
package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/template"

	"github.com/pydevgen/pydevgen/internal/output"
	"github.com/pydevgen/pydevgen/internal/scan"
)

// DefaultOutput is the destination of the dont-trace module, relative to the
// pydevd root.
const DefaultOutput = "_pydevd_bundle/pydevd_dont_trace_files.py"

// DontTraceTemplate is the generated module. The stdlib entries and the
// IS_PY3K block are fixed; scanned files replace {{.PydevFiles}}.
const DontTraceTemplate = `# Important: Autogenerated file.

# DO NOT edit manually!
# DO NOT edit manually!

from _pydevd_bundle.pydevd_constants import IS_PY3K

LIB_FILE = 1
PYDEV_FILE = 2

DONT_TRACE = {
    # commonly used things from the stdlib that we don't want to trace
    'Queue.py':LIB_FILE,
    'queue.py':LIB_FILE,
    'socket.py':LIB_FILE,
    'weakref.py':LIB_FILE,
    '_weakrefset.py':LIB_FILE,
    'linecache.py':LIB_FILE,
    'threading.py':LIB_FILE,

    #things from pydev that we don't want to trace
    '_pydev_execfile.py':PYDEV_FILE,
{{.PydevFiles}}
}

if IS_PY3K:
    # if we try to trace io.py it seems it can get halted (see http://bugs.python.org/issue4716)
    DONT_TRACE['io.py'] = LIB_FILE

    # Don't trace common encodings too
    DONT_TRACE['cp1252.py'] = LIB_FILE
    DONT_TRACE['utf_8.py'] = LIB_FILE
`

var dontTrace = template.Must(template.New("dont_trace").Parse(DontTraceTemplate))

// templateData fills DontTraceTemplate.
type templateData struct {
	PydevFiles string
}

// Render writes the dont-trace module for entries to w. Entries are sorted
// first, so the output does not depend on their order.
func Render(w io.Writer, entries []scan.Entry) error {
	sorted := slices.Clone(entries)
	scan.Sort(sorted)

	data := templateData{PydevFiles: strings.Join(scan.Lines(sorted), "\n")}
	if err := dontTrace.Execute(w, data); err != nil {
		return fmt.Errorf("render dont-trace template: %w", err)
	}
	return nil
}

// Bytes renders the dont-trace module in memory.
func Bytes(entries []scan.Entry) ([]byte, error) {
	var buf bytes.Buffer
	if err := Render(&buf, entries); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile renders entries and replaces dest with the result.
func WriteFile(ctx context.Context, dest string, entries []scan.Entry) error {
	content, err := Bytes(entries)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("write %s canceled: %w", dest, err)
	}
	return output.WriteAtomic(dest, content)
}

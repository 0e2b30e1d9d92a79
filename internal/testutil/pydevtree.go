// SPDX-License-Identifier: MPL-2.0

package testutil

import "testing"

// Sources of the modules that feed the generated Cython files in PydevTree.
const (
	FrameSource = "import sys\n" +
		"\n" +
		"class PyDBFrame:\n" +
		"    # IFDEF CYTHON\n" +
		"    # cdef tuple _args\n" +
		"    # cdef int should_skip\n" +
		"    # ELSE\n" +
		"    should_skip = -1\n" +
		"    # ENDIF\n" +
		"\n" +
		"    def trace_dispatch(self, frame, event, arg):\n" +
		"        return self.trace_dispatch\n"

	DispatchSource = "def trace_dispatch(py_db, frame, event, arg):\n" +
		"    # IFDEF CYTHON\n" +
		"    # cdef str filename\n" +
		"    # ENDIF\n" +
		"    return None\n"

	ThreadInfoSource = "# IFDEF CYTHON\n" +
		"# cdef class PyDBAdditionalThreadInfo:\n" +
		"# ELSE\n" +
		"class PyDBAdditionalThreadInfo(object):\n" +
		"# ENDIF\n" +
		"    pass\n"
)

// PydevTree writes a minimal pydevd layout below root and returns root.
//
// Scanned entries are _pydev_log.py, pydev_ipython_console.py, pydevd.py,
// pydevd_additional_thread_info_regular.py, pydevd_frame.py,
// pydevd_trace_dispatch_regular.py and pydevd_plugin_django.py.
func PydevTree(t testing.TB, root string) string {
	t.Helper()
	WriteTree(t, root, map[string]string{
		"pydevd.py":                "# entry point\n",
		"pydev_ipython_console.py": "",
		"runfiles.py":              "# bootstrap, never listed\n",
		"setup.cfg":                "[metadata]\n",

		"_pydev_bundle/__init__.py":   "",
		"_pydev_bundle/_pydev_log.py": "",

		"_pydevd_bundle/__init__.py":                              "",
		"_pydevd_bundle/pydevd_frame.py":                          FrameSource,
		"_pydevd_bundle/pydevd_frame.pyc":                         "compiled",
		"_pydevd_bundle/pydevd_trace_dispatch_regular.py":         DispatchSource,
		"_pydevd_bundle/pydevd_additional_thread_info_regular.py": ThreadInfoSource,

		"pydevd_plugins/pydevd_plugin_django.py": "",
		"pydevd_plugins/README.txt":              "",

		"tests/test_frame.py":              "",
		"tests/_pydevd_bundle/__init__.py": "",
		"third_party/wrapped_for_pydev/":   "",
	})
	return root
}

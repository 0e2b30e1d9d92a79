// SPDX-License-Identifier: MPL-2.0

// Package directive rewrites `# IFDEF CYTHON / # ELSE / # ENDIF` blocks in
// Python sources.
//
// A source file keeps the primary (Cython) branch of every block commented out
// and the alternate (pure Python) branch live, so the interpreter sees plain
// comments. The transformer turns each block inside out: the primary branch is
// uncommented and the alternate branch is commented, producing the text that is
// fed to Cython.
//
//	# IFDEF CYTHON                      # IFDEF CYTHON -- DONT EDIT THIS FILE (...)
//	# cdef int x = 1          ==>       cdef int x = 1
//	# ELSE                              # ELSE
//	x = 2                               # x = 2
//	# ENDIF                             # ENDIF
//
// Transformation is a single forward pass over the lines driven by a
// three-state machine. Every block opened must be closed before the end of the
// file; anything else is reported as a MalformedDirectiveError.
package directive

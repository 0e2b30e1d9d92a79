// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helper functions for tests that handle errors
// appropriately, reducing boilerplate and ensuring consistent error handling.
//
// Common helpers include file and directory operations (MustWriteFile,
// MustReadFile, MustMkdirAll, WriteTree, MustChdir) and PydevTree, which lays
// out a minimal pydevd source tree for generator tests.
package testutil

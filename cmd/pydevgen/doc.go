// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the CLI commands for pydevgen.
//
// Commands are built by newXxxCommand constructors that receive the App
// composition root; none of them reads package-level state.
package cmd

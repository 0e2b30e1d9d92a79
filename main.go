// SPDX-License-Identifier: MPL-2.0

package main

import "github.com/pydevgen/pydevgen/cmd/pydevgen"

func main() {
	cmd.Execute()
}

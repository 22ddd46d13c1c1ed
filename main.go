// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/playrun/playrun/cmd/playrun"

func main() {
	cmd.Execute()
}

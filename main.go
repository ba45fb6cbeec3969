// SPDX-License-Identifier: MPL-2.0

package main

import cmd "bringup/cmd/bringup"

func main() {
	cmd.Execute()
}

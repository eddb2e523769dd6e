// The main package for the soccervault executable.
package main

import (
	"github.com/JakeFAU/soccer-vault/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}

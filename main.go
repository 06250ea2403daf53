// The main package for the tubescout executable.
package main

import (
	"github.com/JakeFAU/tubescout/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}

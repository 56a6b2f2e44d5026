// The main package for the proxyfetch executable.
package main

import (
	"github.com/JakeFAU/proxyfetch/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}

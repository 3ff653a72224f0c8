// ./main.go
package main

import (
	"github.com/xkilldash9x/formpilot-cli/cmd"
)

// main is the entry point for the formpilot CLI application.
func main() {
	cmd.Execute()
}

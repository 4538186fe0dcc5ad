// Package cli provides the command-line interface for GenieGo
package cli

import (
	"os"
)

// Version is set at build time with -ldflags "-X".
var Version = "0.1.0"

// Run starts the CLI application
func Run() {
	rootCmd, app := newRootCmd()

	err := rootCmd.Execute()
	app.close()
	if err != nil {
		os.Exit(1)
	}
}

// Command userctl inspects and maintains the user store configured through
// the same environment as the server.
package main

import (
	"os"

	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/config"
	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/store"
)

func main() {
	config.LoadDotEnv()
	if err := newRootCmd(store.Open, os.Stdout).Execute(); err != nil {
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
		os.Exit(1)
	}
}

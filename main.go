package main

import (
	"fmt"
	"os"

	"github.com/plantpal/plantpal-go/cmd"
	"github.com/plantpal/plantpal-go/internal/conf"
	"github.com/plantpal/plantpal-go/internal/logging"
)

// Populated by the linker at build time.
var version = "dev"
var buildDate = "unknown"

func main() {
	logging.Init()

	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(1)
	}

	rootCmd := cmd.RootCommand(settings)
	rootCmd.Version = fmt.Sprintf("%s (built %s)", version, buildDate)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

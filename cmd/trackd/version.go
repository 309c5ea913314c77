package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version information, overridable at build time via
// -ldflags "-X main.Version=... -X main.Build=...".
var (
	Version = "0.1.0"
	Build   = "dev"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("trackd version %s (%s)\n", Version, Build)
	},
}

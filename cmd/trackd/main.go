package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/steveyegge/tracker/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "trackd",
	Short: "trackd - project tracking backend",
	Long:  `A project tracking backend: work item hierarchies, per-project identifiers, and an append-only audit trail over SQLite.`,
	Run: func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Printf("trackd version %s (%s)\n", Version, Build)
			return
		}
		_ = cmd.Help() // Help() always returns nil for cobra commands
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Initialize(); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		// Explicit flags win over env vars and config.yaml.
		for _, key := range []string{config.KeyDB, config.KeyListen, config.KeyActor} {
			if flag := cmd.Flags().Lookup(key); flag != nil && flag.Changed {
				if err := config.BindPFlag(key, flag); err != nil {
					return err
				}
			}
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String(config.KeyDB, "", "Database path (default: tracker.db, or $TRACKD_DB)")
	rootCmd.PersistentFlags().String(config.KeyListen, "", "HTTP listen address (default: 127.0.0.1:8337, or $TRACKD_LISTEN)")
	rootCmd.PersistentFlags().Int64(config.KeyActor, 0, "Default acting user ID for audit attribution (or $TRACKD_ACTOR)")
	rootCmd.Flags().BoolP("version", "V", false, "Print version information")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "dlpguard",
	Short: "Incident decision and idempotent dispatch engine for DLP violations",
	Long:  "Ingests security-violation events from retry-happy upstream sources, masks sensitive data at the detection boundary, computes a deterministic risk decision, and guarantees at most one notification per logical incident.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default ~/.dlpguard/config.yaml)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// Package cli wires the cobra command tree for pzlogd.
package cli

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "pzlogd",
	Short: "Project Zomboid log ingestion and system monitoring daemon",
	Long: `pzlogd tails game-server and backup-manager log files, parses them
into typed event tables, and samples host telemetry for spike detection.

Run "pzlogd serve" to start the daemon, "pzlogd sweep" for a one-shot
ingestion pass, or "pzlogd seed" to generate demo log files.`,
	Version: "0.1.0",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
}

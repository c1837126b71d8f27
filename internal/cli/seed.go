package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/duynguyen020304/pz-manager-sub001/internal/config"
	"github.com/duynguyen020304/pz-manager-sub001/internal/logging"
	"github.com/duynguyen020304/pz-manager-sub001/internal/seeder"
)

var (
	seedLines    int
	seedBatches  int
	seedInterval time.Duration
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Generate demo log files in the watched directories",
	Long: `Append realistic game-server log lines to the configured log
directories. Useful for demoing the watcher pipeline end to end without a
running game server.

Examples:
  # One batch of 20 lines per file
  pzlogd seed

  # Keep writing every 2 seconds while the daemon watches
  pzlogd seed --batches 30 --interval 2s`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().IntVar(&seedLines, "lines", 20, "lines per file per batch")
	seedCmd.Flags().IntVar(&seedBatches, "batches", 1, "number of batches to write")
	seedCmd.Flags().DurationVar(&seedInterval, "interval", 2*time.Second, "delay between batches")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	log := logging.New(logging.ParseLevel(cfg.Logging.Level), "text")

	s := seeder.New(seeder.Config{
		LogDir:       cfg.Watcher.LogDir,
		BackupLogDir: cfg.Watcher.BackupLogDir,
		Servers:      cfg.Watcher.Servers,
		Lines:        seedLines,
		Batches:      seedBatches,
		Interval:     seedInterval,
	}, log)

	return s.Run(cmd.Context())
}

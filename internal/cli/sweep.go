package cli

import (
	"github.com/spf13/cobra"

	"github.com/duynguyen020304/pz-manager-sub001/internal/config"
	"github.com/duynguyen020304/pz-manager-sub001/internal/ingest"
	"github.com/duynguyen020304/pz-manager-sub001/internal/logging"
	"github.com/duynguyen020304/pz-manager-sub001/internal/repository"
	"github.com/duynguyen020304/pz-manager-sub001/internal/stream"
	"github.com/duynguyen020304/pz-manager-sub001/internal/watcher"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one ingestion pass over every configured log file and exit",
	RunE:  runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	log := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)

	ctx := cmd.Context()
	pool, err := repository.NewPool(ctx, cfg.Database.ConnString())
	if err != nil {
		return err
	}
	defer pool.Close()

	logManager := ingest.NewManager(repository.NewLogPostgres(pool), log)
	streams := stream.NewManager(cfg.Stream.BufferSize, nil, log)

	w, err := watcher.New(cfg.Watcher, logManager, streams, log)
	if err != nil {
		return err
	}
	// Register files without starting the event loop.
	for _, server := range cfg.Watcher.Servers {
		if err := w.RegisterServer(server); err != nil {
			return err
		}
	}
	defer w.Stop()

	w.IngestAll(ctx)
	log.Info("sweep completed")
	return nil
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"

	"github.com/duynguyen020304/pz-manager-sub001/internal/config"
	"github.com/duynguyen020304/pz-manager-sub001/internal/handlers"
	"github.com/duynguyen020304/pz-manager-sub001/internal/ingest"
	"github.com/duynguyen020304/pz-manager-sub001/internal/logging"
	"github.com/duynguyen020304/pz-manager-sub001/internal/monitor"
	"github.com/duynguyen020304/pz-manager-sub001/internal/repository"
	"github.com/duynguyen020304/pz-manager-sub001/internal/server"
	"github.com/duynguyen020304/pz-manager-sub001/internal/stream"
	"github.com/duynguyen020304/pz-manager-sub001/internal/watcher"
)

var migrationsPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ingestion daemon and API server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&migrationsPath, "migrations", "file://migrations", "migration source URL")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	log := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
	logging.SetDefault(log)

	// Run database migrations
	m, err := migrate.New(migrationsPath, cfg.Database.ConnString())
	if err != nil {
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database migrations completed")

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	pool, err := repository.NewPool(ctx, cfg.Database.ConnString())
	if err != nil {
		return err
	}
	defer pool.Close()

	logStore := repository.NewLogPostgres(pool)
	monitorStore := repository.NewMonitorPostgres(pool)

	var publisher stream.Publisher
	if cfg.NATS.URL != "" {
		natsPub, err := stream.NewNATSPublisher(cfg.NATS, log)
		if err != nil {
			return err
		}
		defer natsPub.Close()
		publisher = natsPub
	}

	streams := stream.NewManager(cfg.Stream.BufferSize, publisher, log)
	logManager := ingest.NewManager(logStore, log)

	w, err := watcher.New(cfg.Watcher, logManager, streams, log)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	// Catch up on everything written while the daemon was down.
	w.IngestAll(ctx)

	monitorManager := monitor.NewManager(monitorStore, cfg.MonitorDefaults(), log)
	monitorSvc := monitor.NewService(monitorManager, monitor.NewSystemSampler(), log)
	if err := monitorSvc.Start(ctx); err != nil {
		return err
	}
	defer monitorSvc.Stop()

	handler := handlers.NewHandler(logManager, streams, monitorManager, monitorSvc)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.NewRouter(handler),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("api server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("shutting down", "signal", sig.String())
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

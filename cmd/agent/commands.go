package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/PawanKGupta/modular-trade-agent-sub007/internal/api"
	"github.com/PawanKGupta/modular-trade-agent-sub007/internal/broker"
	"github.com/PawanKGupta/modular-trade-agent-sub007/internal/config"
	"github.com/PawanKGupta/modular-trade-agent-sub007/internal/engine"
	"github.com/PawanKGupta/modular-trade-agent-sub007/internal/logger"
	"github.com/PawanKGupta/modular-trade-agent-sub007/internal/store"
)

// app bundles everything the commands need.
type app struct {
	cfg     config.Config
	log     *zap.Logger
	manager *engine.Manager
}

// setup loads configuration and wires the engine. The registry, pending
// ledger and history ledger are constructed once here and passed by handle;
// there are no package-level singletons.
func setup() (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("could not load config: %w", err)
	}

	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		return nil, err
	}
	log.Info("Configuration loaded")

	db, err := store.NewDatabase(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	log.Info("Database connection successful and schema migrated.")
	st := store.NewGormStore(db)

	gateway := broker.NewRestGateway(&cfg.Broker, log)

	registry := engine.NewRegistry(st, log)
	ledger := engine.NewLedger(st, log, cfg.Engine.ScanTimeout, cfg.Engine.ScanPollInterval)
	manager := engine.NewManager(log, registry, ledger, st, gateway)

	return &app{cfg: cfg, log: log, manager: manager}, nil
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the reconciliation scheduler and monitoring API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.log.Sync()

			ctx, cancel := context.WithCancel(context.Background())
			go func() {
				sigchan := make(chan os.Signal, 1)
				signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
				<-sigchan
				a.log.Info("Shutdown signal received, gracefully shutting down...")
				cancel()
			}()

			// Reloaded pending orders older than the staleness threshold
			// must be reconciled before any new orders are placed.
			if a.manager.HasStalePending(a.cfg.Engine.PendingStaleness) {
				a.log.Info("Stale pending orders found on startup, reconciling before accepting work")
				if _, err := a.manager.SyncWithBroker(ctx); err != nil {
					a.log.Error("Startup reconciliation failed, will retry on schedule", zap.Error(err))
				}
			}

			apiServer := api.NewServer(a.cfg.Server.Port, a.manager, a.log)
			apiServer.Start()

			ticker := time.NewTicker(a.cfg.Engine.SyncInterval)
			defer ticker.Stop()
			a.log.Info("Starting reconciliation loop", zap.Duration("interval", a.cfg.Engine.SyncInterval))

			for {
				select {
				case <-ctx.Done():
					a.log.Info("Stopping engine...")
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					return apiServer.Stop(shutdownCtx)
				case <-ticker.C:
					if _, err := a.manager.SyncWithBroker(ctx); err != nil {
						// Transient gateway failures retry on the next tick.
						a.log.Error("Reconciliation failed", zap.Error(err))
					}
				}
			}
		},
	}
}

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run a single reconciliation pass and print the summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.log.Sync()

			summary, err := a.manager.SyncWithBroker(cmd.Context())
			if err != nil {
				return err
			}
			return json.NewEncoder(os.Stdout).Encode(summary)
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print tracked symbols and pending orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.log.Sync()

			tracked, err := a.manager.ListTracked()
			if err != nil {
				return err
			}
			pending, err := a.manager.ListPending()
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"tracked": tracked,
				"pending": pending,
			})
		},
	}
}

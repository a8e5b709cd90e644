package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"ledger/internal/cli"
	"ledger/internal/log"
	"ledger/internal/metrics"
	"ledger/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.Fatal(log.Wrap(nil, log.ComponentWorker), "Configuration validation failed", err)
	}
	logger := cli.SetupLogger(cfg, os.Stderr).WithComponent(log.ComponentWorker)
	logger.Info("Starting ledger-worker")

	ctx, stop := cli.GracefulShutdown(logger)
	defer stop()

	res, err := cli.OpenBackend(ctx, cfg, logger)
	if err != nil {
		cli.Fatal(logger, "Failed to open backend", err)
	}
	defer res.Close()

	exporter, err := cli.NewExporter(ctx, cfg, logger)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize exporter", err)
	}
	if !cfg.SheetsEnabled() {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	m := metrics.New()
	syncWorker := worker.NewSyncWorker(res.Ledger, res.Cashbook, exporter,
		worker.WithObserver(m), worker.WithLogger(logger))

	// Catch up on anything changed while the worker was down.
	if err := syncWorker.SyncAll(ctx, worker.TriggerStartup); err != nil {
		logger.Error("Startup sync failed", log.FieldError, err)
	}

	client, err := cli.ConnectAMQP(cfg, logger)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	if client != nil {
		defer client.Close()
		g.Go(func() error {
			err := client.ConsumeWithRetry(gctx, syncWorker.HandleChangeMessage)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("Skipping AMQP message consumption - no AMQP_URL provided")
	}

	g.Go(func() error {
		return syncWorker.RunPeriodic(gctx, cfg.SyncInterval)
	})

	if cfg.WorkerMetricsPort != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", m.Handler())
		srv := &http.Server{
			Addr:              ":" + cfg.WorkerMetricsPort,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("Serving worker metrics", "port", cfg.WorkerMetricsPort)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil {
		cli.Fatal(logger, "Worker stopped with error", err)
	}
	logger.Info("Worker stopped gracefully")
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"ledger/internal/cli"
	"ledger/internal/core"
	apphttp "ledger/internal/http"
	"ledger/internal/log"
	"ledger/internal/metrics"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.Fatal(log.Wrap(nil, log.ComponentApp), "Configuration validation failed", err)
	}
	logger := cli.SetupLogger(cfg, os.Stderr)

	ctx, stop := cli.GracefulShutdown(logger)
	defer stop()

	res, err := cli.OpenBackend(ctx, cfg, logger)
	if err != nil {
		cli.Fatal(logger, "Failed to open backend", err)
	}
	defer res.Close()

	m := metrics.New()

	var publisher core.EventPublisher
	client, err := cli.ConnectAMQP(cfg, logger)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}
	if client != nil {
		defer client.Close()
		publisher = client
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	l, c, err := cli.OpenLedgers(ctx, res, logger, publisher, m)
	if err != nil {
		cli.Fatal(logger, "Failed to load ledgers", err)
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Ledger:             l,
		Cashbook:           c,
		Metrics:            m,
		Health:             res.Ping,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting ledger server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		cli.Fatal(logger, "Server error", err)
	}
	logger.Info("Server stopped gracefully")
}

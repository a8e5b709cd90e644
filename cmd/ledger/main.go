package main

import (
	"context"
	"os"

	"ledger/internal/cli"
	"ledger/internal/core"
	"ledger/internal/log"
)

func main() {
	os.Exit(run())
}

func run() int {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		log.Wrap(nil, log.ComponentCLI).Error("Configuration validation failed", log.FieldError, err)
		return 1
	}
	logger := cli.SetupLogger(cfg, os.Stderr).WithComponent(log.ComponentCLI)

	ctx := context.Background()
	res, err := cli.OpenBackend(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open backend", log.FieldError, err)
		return 1
	}
	defer res.Close()

	// Without a broker the worker still picks changes up on its periodic run.
	var publisher core.EventPublisher
	client, err := cli.ConnectAMQP(cfg, logger)
	switch {
	case err != nil:
		logger.Warn("Change events disabled", log.FieldError, err)
	case client != nil:
		defer client.Close()
		publisher = client
	}

	l, c, err := cli.OpenLedgers(ctx, res, logger, publisher, nil)
	if err != nil {
		logger.Error("Failed to load ledgers", log.FieldError, err)
		return 1
	}

	exporter, err := cli.NewExporter(ctx, cfg, logger)
	if err != nil {
		logger.Warn("Export unavailable", log.FieldError, err)
	}

	app := &cli.App{Ledger: l, Cashbook: c, Exporter: exporter, Out: os.Stdout}
	return app.Run(ctx, os.Args[1:])
}

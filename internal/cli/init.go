// Package cli provides the initialization shared by cmd/ledger,
// cmd/ledger-server and cmd/ledger-worker, and the ledger command
// dispatcher.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"ledger/internal/amqp"
	"ledger/internal/backend"
	"ledger/internal/cashbook"
	"ledger/internal/config"
	"ledger/internal/core"
	"ledger/internal/export"
	"ledger/internal/ledger"
	"ledger/internal/log"
	"ledger/internal/sheets"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration from the environment and
// validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetupLogger builds the application logger from LOG_LEVEL and LOG_FORMAT
// and installs it as the slog default.
func SetupLogger(cfg *config.Config, w io.Writer) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: log.ComponentApp,
		Output:    w,
	})
	log.SetDefault(logger)
	return logger
}

// OpenBackend creates the ledger and cashbook stores selected by
// DATA_BACKEND.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *log.Logger) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create %s backend: %w", bcfg.Type, err)
	}
	return res, nil
}

// ConnectAMQP returns nil without error when AMQP_URL is unset.
func ConnectAMQP(cfg *config.Config, logger *log.Logger) (*amqp.Client, error) {
	if cfg.AMQPURL == "" {
		return nil, nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.AMQPRoutingKey, logger)
	if err != nil {
		return nil, fmt.Errorf("connect AMQP: %w", err)
	}
	logger.Info("Connected to AMQP", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client, nil
}

// OpenLedgers builds both record stores on res and loads their persisted
// state. publisher and observer may be nil.
func OpenLedgers(ctx context.Context, res *backend.BackendResult, logger *log.Logger, publisher core.EventPublisher, observer core.MutationObserver) (*ledger.Ledger, *cashbook.Cashbook, error) {
	lopts := []ledger.Option{ledger.WithLogger(logger)}
	copts := []cashbook.Option{cashbook.WithLogger(logger)}
	if publisher != nil {
		lopts = append(lopts, ledger.WithPublisher(publisher))
		copts = append(copts, cashbook.WithPublisher(publisher))
	}
	if observer != nil {
		lopts = append(lopts, ledger.WithObserver(observer))
		copts = append(copts, cashbook.WithObserver(observer))
	}

	l := ledger.New(res.Ledger, lopts...)
	if err := l.Load(ctx); err != nil {
		return nil, nil, fmt.Errorf("load split ledger: %w", err)
	}
	c := cashbook.New(res.Cashbook, copts...)
	if err := c.Load(ctx); err != nil {
		return nil, nil, fmt.Errorf("load cashbook: %w", err)
	}
	return l, c, nil
}

// NewExporter writes to EXPORT_DIR and, when a spreadsheet is configured,
// to Google Sheets as well.
func NewExporter(ctx context.Context, cfg *config.Config, logger *log.Logger) (*export.Exporter, error) {
	dests := []export.Destination{export.FileDestination{Dir: cfg.ExportDir}}
	if cfg.SheetsEnabled() {
		creds, err := sheets.LoadCredentials(cfg.GoogleServiceAccountJSON, cfg.GoogleServiceAccountFile)
		if err != nil {
			return nil, err
		}
		dest, err := sheets.New(ctx, sheets.Config{
			SpreadsheetID: cfg.GoogleSpreadsheetID,
			SheetPrefix:   cfg.GoogleSheetName,
		}, creds, logger)
		if err != nil {
			return nil, err
		}
		dests = append(dests, dest)
	}
	return export.NewExporter(logger, dests...), nil
}

// GracefulShutdown returns a context that is cancelled on SIGINT or
// SIGTERM.
func GracefulShutdown(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.Info("Shutting down", "reason", context.Cause(ctx))
	}()
	return ctx, stop
}

// Fatal logs err and exits with status 1.
func Fatal(logger *log.Logger, msg string, err error) {
	logger.Error(msg, log.FieldError, err)
	os.Exit(1)
}

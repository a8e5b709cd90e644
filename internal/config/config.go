package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v8"
)

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

type Config struct {
	// HTTP Server
	Port               string `env:"PORT" envDefault:"8081"`
	RateLimitPerMinute int    `env:"RATE_LIMIT_PER_MINUTE" envDefault:"120"`

	// Storage
	DataBackend          string `env:"DATA_BACKEND" envDefault:"file"`
	DataDir              string `env:"DATA_DIR" envDefault:"./data"`
	LedgerFile           string `env:"LEDGER_FILE" envDefault:"tracker_data.json"`
	CashbookExpensesFile string `env:"CASHBOOK_EXPENSES_FILE" envDefault:"expenses.csv"`
	CashbookIncomeFile   string `env:"CASHBOOK_INCOME_FILE" envDefault:"income.csv"`
	SQLiteDBPath         string `env:"SQLITE_DB_PATH" envDefault:"./data/ledger.db"`

	// AMQP, optional
	AMQPURL        string `env:"AMQP_URL"`
	AMQPExchange   string `env:"AMQP_EXCHANGE" envDefault:"ledger"`
	AMQPQueue      string `env:"AMQP_QUEUE" envDefault:"ledger_changes"`
	AMQPRoutingKey string `env:"AMQP_ROUTING_KEY" envDefault:"ledger_changes"`

	// Google Sheets export, optional
	GoogleSpreadsheetID      string `env:"GOOGLE_SPREADSHEET_ID"`
	GoogleSheetName          string `env:"GOOGLE_SHEET_NAME" envDefault:"Ledger"`
	GoogleServiceAccountFile string `env:"GOOGLE_SERVICE_ACCOUNT_FILE"`
	GoogleServiceAccountJSON string `env:"GOOGLE_SERVICE_ACCOUNT_JSON"`

	// Worker
	SyncInterval      time.Duration `env:"SYNC_INTERVAL" envDefault:"5m"`
	ExportDir         string        `env:"EXPORT_DIR" envDefault:"./export"`
	WorkerMetricsPort string        `env:"WORKER_METRICS_PORT"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"tint"`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// LedgerPath is the JSON document of the split ledger.
func (c *Config) LedgerPath() string {
	return c.inDataDir(c.LedgerFile)
}

// CashbookPaths returns the expenses and income CSV files.
func (c *Config) CashbookPaths() (string, string) {
	return c.inDataDir(c.CashbookExpensesFile), c.inDataDir(c.CashbookIncomeFile)
}

// SheetsEnabled reports whether a spreadsheet export target is configured.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

func (c *Config) inDataDir(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1", c.RateLimitPerMinute))
	}

	validBackends := []string{BackendFile, BackendSQLite, BackendMemory}
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case BackendFile, BackendMemory:
		if c.DataDir == "" {
			errors = append(errors, "data directory cannot be empty when using file backend")
		}
		if c.LedgerFile == "" || c.CashbookExpensesFile == "" || c.CashbookIncomeFile == "" {
			errors = append(errors, "ledger and cashbook file names cannot be empty when using file backend")
		}
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SheetsEnabled() {
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when a spreadsheet ID is set")
		}
		hasFile := c.GoogleServiceAccountFile != ""
		hasJSON := c.GoogleServiceAccountJSON != ""
		if !hasFile && !hasJSON {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for sheets export")
		}
		if hasFile {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if c.ExportDir == "" {
		errors = append(errors, "export directory cannot be empty")
	}
	if c.WorkerMetricsPort != "" {
		if port, err := strconv.Atoi(c.WorkerMetricsPort); err != nil || port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("invalid worker metrics port '%s': must be a number between 1 and 65535", c.WorkerMetricsPort))
		}
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	validFormats := []string{"tint", "json", "text"}
	if !slices.Contains(validFormats, strings.ToLower(c.LogFormat)) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validFormats))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

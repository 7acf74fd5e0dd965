package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	// HTTP Server
	Port string `toml:"port"`

	// Backend selection
	DataBackend string `toml:"data_backend"`
	SQLitePath  string `toml:"sqlite_path"`
	PostgresDSN string `toml:"postgres_dsn"`

	// AMQP
	AMQPURL      string `toml:"amqp_url"`
	AMQPExchange string `toml:"amqp_exchange"`
	AMQPQueue    string `toml:"amqp_queue"`

	// Remote snapshot mirror (optional)
	RemoteBaseURL   string `toml:"remote_base_url"`
	RemoteLedgerKey string `toml:"remote_ledger_key"`
	RemoteAuthToken string `toml:"remote_auth_token"`

	// Google Sheets reporting (optional)
	GoogleSpreadsheetID   string `toml:"google_spreadsheet_id"`
	GoogleSheetBase       string `toml:"google_sheet_base"`
	GoogleCredentialsJSON string `toml:"google_credentials_json"`
	GoogleCredentialsFile string `toml:"google_credentials_file"`

	// Sync. The debounce is spelled as a duration string in TOML
	// ("2s", "500ms").
	SyncDebounce  time.Duration `toml:"-"`
	SyncMaxErrors int           `toml:"sync_max_errors"`

	// Savings
	DefaultAccountRouting bool `toml:"default_account_routing"`

	// Observability
	SentryDSN string `toml:"sentry_dsn"`
}

// Load builds the configuration from a TOML file (when path is not
// empty) with environment variables taking precedence over file values.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("decode config file %s: %w", path, err)
		}
		var durations struct {
			SyncDebounce string `toml:"sync_debounce"`
		}
		if _, err := toml.DecodeFile(path, &durations); err != nil {
			return nil, fmt.Errorf("decode config file %s: %w", path, err)
		}
		if durations.SyncDebounce != "" {
			d, err := time.ParseDuration(durations.SyncDebounce)
			if err != nil {
				return nil, fmt.Errorf("invalid sync_debounce in %s: %w", path, err)
			}
			cfg.SyncDebounce = d
		}
	}
	cfg.applyEnv()

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Port:        "8081",
		DataBackend: "sqlite",
		SQLitePath:  "./data/monbudget.db",

		AMQPExchange: "monbudget",
		AMQPQueue:    "snapshot_sync",

		RemoteLedgerKey: "default",

		GoogleSheetBase: "Overview",

		SyncDebounce:  2 * time.Second,
		SyncMaxErrors: 3,
	}
}

func (c *Config) applyEnv() {
	setEnv(&c.Port, "PORT")
	setEnv(&c.DataBackend, "DATA_BACKEND")
	setEnv(&c.SQLitePath, "SQLITE_DB_PATH")
	setEnv(&c.PostgresDSN, "POSTGRES_DSN")
	setEnv(&c.AMQPURL, "AMQP_URL")
	setEnv(&c.AMQPExchange, "AMQP_EXCHANGE")
	setEnv(&c.AMQPQueue, "AMQP_QUEUE")
	setEnv(&c.RemoteBaseURL, "REMOTE_BASE_URL")
	setEnv(&c.RemoteLedgerKey, "REMOTE_LEDGER_KEY")
	setEnv(&c.RemoteAuthToken, "REMOTE_AUTH_TOKEN")
	setEnv(&c.GoogleSpreadsheetID, "GOOGLE_SPREADSHEET_ID")
	setEnv(&c.GoogleSheetBase, "GOOGLE_SHEET_BASE")
	setEnv(&c.GoogleCredentialsJSON, "GOOGLE_CREDENTIALS_JSON")
	setEnv(&c.GoogleCredentialsFile, "GOOGLE_APPLICATION_CREDENTIALS")
	setEnv(&c.SentryDSN, "SENTRY_DSN")
	setEnvDuration(&c.SyncDebounce, "SYNC_DEBOUNCE")
	setEnvInt(&c.SyncMaxErrors, "SYNC_MAX_ERRORS")
	setEnvBool(&c.DefaultAccountRouting, "DEFAULT_ACCOUNT_ROUTING")
}

// Validate checks the configuration and returns every problem at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "sqlite", "postgres"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLitePath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLitePath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.DataBackend == "postgres" && c.PostgresDSN == "" {
		errors = append(errors, "Postgres DSN cannot be empty when using postgres backend")
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

	if c.RemoteBaseURL != "" {
		if parsedURL, err := url.Parse(c.RemoteBaseURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid remote base URL '%s': %v", c.RemoteBaseURL, err))
		} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid remote base URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
		}
		if c.RemoteLedgerKey == "" {
			errors = append(errors, "remote ledger key cannot be empty when a remote base URL is provided")
		}
	}

	if c.GoogleSpreadsheetID != "" {
		if c.GoogleCredentialsJSON == "" && c.GoogleCredentialsFile == "" {
			errors = append(errors, "either GOOGLE_CREDENTIALS_JSON or GOOGLE_APPLICATION_CREDENTIALS must be provided for Sheets reporting")
		}
		if c.GoogleCredentialsFile != "" {
			if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google credentials file does not exist: %s", c.GoogleCredentialsFile))
			}
		}
	}

	if c.SyncDebounce < 100*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid sync debounce %v: must be at least 100ms", c.SyncDebounce))
	} else if c.SyncDebounce > time.Minute {
		errors = append(errors, fmt.Sprintf("invalid sync debounce %v: must be at most 1 minute", c.SyncDebounce))
	}

	if c.SyncMaxErrors < 1 || c.SyncMaxErrors > 10 {
		errors = append(errors, fmt.Sprintf("invalid sync max errors %d: must be between 1 and 10", c.SyncMaxErrors))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func setEnv(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}

func setEnvDuration(dst *time.Duration, key string) {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			*dst = d
		}
	}
}

func setEnvInt(dst *int, key string) {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			*dst = n
		}
	}
}

func setEnvBool(dst *bool, key string) {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			*dst = b
		}
	}
}

package backend

import (
	"fmt"

	"monbudget/internal/config"
)

// FromAppConfig converts the application config to backend config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := Type(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:        backendType,
		SQLitePath:  appConfig.SQLitePath,
		PostgresDSN: appConfig.PostgresDSN,
	}, nil
}

// Validate checks that the selected backend has what it needs.
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteStore:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case PostgresStore:
		if c.PostgresDSN == "" {
			return fmt.Errorf("Postgres DSN is required for postgres backend")
		}
	case MemoryStore:
	}
	return nil
}

// Package config provides configuration management for beancounter.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config represents the application configuration.
type Config struct {
	Ledger    LedgerConfig
	Beancount BeancountConfig
	Debug     bool
}

// LedgerConfig represents where and how the ledger is stored.
type LedgerConfig struct {
	Root        string
	Store       string
	Path        string
	HistoryPath string
}

// BeancountConfig represents Beancount export configuration.
type BeancountConfig struct {
	MappingPath string
	Currency    string
}

// Load loads configuration from environment variables.
// It automatically loads .env file from the current directory if available.
// You can optionally specify a custom .env file path.
func Load(envPath ...string) (*Config, error) {
	// Load .env file
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		// Try to load .env from current directory (ignore error if not found)
		_ = godotenv.Load()
	}

	config := &Config{
		Ledger: LedgerConfig{
			Root:        getEnvOrDefault("BEANCOUNTER_ROOT", "./beancounter"),
			Store:       strings.ToLower(getEnvOrDefault("BEANCOUNTER_STORE", "sqlite")),
			Path:        os.Getenv("BEANCOUNTER_LEDGER_PATH"),
			HistoryPath: os.Getenv("BEANCOUNTER_HISTORY_DB"),
		},
		Beancount: BeancountConfig{
			MappingPath: os.Getenv("BEANCOUNTER_MAPPING"),
			Currency:    getEnvOrDefault("BEANCOUNTER_CURRENCY", "EUR"),
		},
		Debug: os.Getenv("DEBUG") == "true",
	}

	return config, nil
}

// Validate validates the configuration.
// Each required entry is a path such as []string{"ledger", "root"}.
func (c *Config) Validate(required ...[]string) error {
	var missing []string

	for _, path := range required {
		if len(path) < 2 {
			continue
		}

		var value string
		switch path[0] {
		case "ledger":
			switch path[1] {
			case "root":
				value = c.Ledger.Root
			case "store":
				value = c.Ledger.Store
			case "path":
				value = c.Ledger.Path
			case "historyPath":
				value = c.Ledger.HistoryPath
			}
		case "beancount":
			switch path[1] {
			case "mappingPath":
				value = c.Beancount.MappingPath
			case "currency":
				value = c.Beancount.Currency
			}
		}

		if value == "" {
			missing = append(missing, strings.Join(path, "."))
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %v\nPlease check your .env file or environment variables", missing)
	}

	return nil
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ComputerMode selects the execution backend for computer actions.
type ComputerMode string

const (
	// ComputerModeMock runs computer actions against the in-process simulator.
	ComputerModeMock ComputerMode = "MOCK"
	// ComputerModeLive forwards computer actions to the HTTP bridge.
	ComputerModeLive ComputerMode = "LIVE"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	DBPath      string
	StatePath   string

	OpenAIAPIKey        string
	OpenAIModel         string
	OpenAIVectorStoreID string

	AirtableAPIKey    string
	AirtableBaseID    string
	AirtableTableName string

	ComputerMode      ComputerMode
	ComputerBridgeURL string

	SessionCapacity int
	RuntimeTimeout  time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	capacity := getEnvInt("SESSION_CAPACITY", 256)
	if capacity <= 0 {
		capacity = 256
	}

	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		FrontendURL:         getEnv("FRONTEND_URL", ""),
		DBPath:              getEnv("DB_PATH", "./data/operator.db"),
		StatePath:           getEnv("STATE_PATH", ".state/operator_agent.json"),
		OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:         getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIVectorStoreID: getEnv("OPENAI_VECTOR_STORE_ID", ""),
		AirtableAPIKey:      getEnv("AIRTABLE_API_KEY", ""),
		AirtableBaseID:      getEnv("AIRTABLE_BASE_ID", ""),
		AirtableTableName:   getEnv("AIRTABLE_TABLE_NAME", "TestTable"),
		ComputerMode:        ComputerMode(strings.ToUpper(getEnv("COMPUTER_MODE", "MOCK"))),
		ComputerBridgeURL:   getEnv("COMPUTER_BRIDGE_URL", "http://127.0.0.1:34115"),
		SessionCapacity:     capacity,
		RuntimeTimeout:      getEnvDuration("RUNTIME_TIMEOUT", 120*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.StatePath == "" {
		return fmt.Errorf("STATE_PATH cannot be empty")
	}
	if c.ComputerMode != ComputerModeMock && c.ComputerMode != ComputerModeLive {
		return fmt.Errorf("COMPUTER_MODE must be MOCK or LIVE, got %q", c.ComputerMode)
	}
	if c.ComputerMode == ComputerModeLive && c.ComputerBridgeURL == "" {
		return fmt.Errorf("COMPUTER_BRIDGE_URL cannot be empty in LIVE mode")
	}
	if c.RuntimeTimeout <= 0 {
		return fmt.Errorf("RUNTIME_TIMEOUT must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// HasOpenAI reports whether an API key is configured.
func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

// HasVectorStore reports whether a vector store is configured.
func (c *Config) HasVectorStore() bool {
	return c.OpenAIVectorStoreID != ""
}

// HasAirtable reports whether Airtable is fully configured.
func (c *Config) HasAirtable() bool {
	return c.AirtableAPIKey != "" && c.AirtableBaseID != "" && c.AirtableTableName != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

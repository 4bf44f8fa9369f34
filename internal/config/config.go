// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Transport selects how the MCP server is exposed: "stdio" or "http".
	Transport string

	// HTTP transport settings.
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Azure AD client-credentials settings.
	TenantID     string
	ClientID     string
	ClientSecret string

	// Log Analytics settings.
	WorkspaceID  string
	LogsEndpoint string
	AuthEndpoint string
	QueryTimeout time.Duration

	// HistoryPath is the sqlite file recording executed query runs.
	// Empty disables history.
	HistoryPath string

	// OTEL settings.
	OTELEndpoint string
	OTELInsecure bool
	ServiceName  string

	// Operational settings.
	LogLevel string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		Transport:    envStr("SENTRA_TRANSPORT", "stdio"),
		Port:         envInt("SENTRA_PORT", 8080),
		ReadTimeout:  envDuration("SENTRA_READ_TIMEOUT", 30*time.Second),
		WriteTimeout: envDuration("SENTRA_WRITE_TIMEOUT", 90*time.Second),
		TenantID:     envStr("AZURE_TENANT_ID", ""),
		ClientID:     envStr("AZURE_CLIENT_ID", ""),
		ClientSecret: envStr("AZURE_CLIENT_SECRET", ""),
		WorkspaceID:  envStr("SENTRA_WORKSPACE_ID", ""),
		LogsEndpoint: envStr("SENTRA_LOGS_ENDPOINT", "https://api.loganalytics.io"),
		AuthEndpoint: envStr("SENTRA_AUTH_ENDPOINT", "https://login.microsoftonline.com"),
		QueryTimeout: envDuration("SENTRA_QUERY_TIMEOUT", 60*time.Second),
		HistoryPath:  envStr("SENTRA_HISTORY_PATH", "sentra-history.db"),
		OTELEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELInsecure: envBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		ServiceName:  envStr("OTEL_SERVICE_NAME", "sentra"),
		LogLevel:     envStr("SENTRA_LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
// Azure credentials are deliberately not required here: the server starts
// without them and the query tools report the missing client at call time.
func (c Config) Validate() error {
	if c.Transport != "stdio" && c.Transport != "http" {
		return fmt.Errorf("config: SENTRA_TRANSPORT must be \"stdio\" or \"http\", got %q", c.Transport)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: SENTRA_PORT must be a valid port, got %d", c.Port)
	}
	if c.QueryTimeout <= 0 {
		return fmt.Errorf("config: SENTRA_QUERY_TIMEOUT must be positive")
	}
	return nil
}

// AzureConfigured reports whether the full credential set is present.
func (c Config) AzureConfigured() bool {
	return c.TenantID != "" && c.ClientID != "" && c.ClientSecret != "" && c.WorkspaceID != ""
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

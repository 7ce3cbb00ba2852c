package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Order service
	OrderAPIURL      string
	OrderAPITimeout  time.Duration
	OwnerAddress     string
	SignerPrivateKey string

	// Sync
	SyncInterval       time.Duration
	RecentUpdateWindow time.Duration
	PageSize           int
	SortBy             string
	SortDir            string

	// Metadata
	EnrichConcurrency   int
	DiscoveryTimeout    time.Duration
	PriceCacheTTL       time.Duration
	StrategyGroupWindow time.Duration

	// Storage
	NotifyStorage string // "postgres" or "console"
	PostgresHost  string
	PostgresPort  string
	PostgresUser  string
	PostgresPass  string
	PostgresDB    string
	PostgresSSL   string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		OrderAPIURL:      getEnvOrDefault("ORDER_API_URL", "http://localhost:3000"),
		OrderAPITimeout:  getDurationOrDefault("ORDER_API_TIMEOUT", 15*time.Second),
		OwnerAddress:     os.Getenv("OWNER_ADDRESS"),
		SignerPrivateKey: os.Getenv("SIGNER_PRIVATE_KEY"),

		SyncInterval:       getDurationOrDefault("SYNC_INTERVAL", 30*time.Second),
		RecentUpdateWindow: getDurationOrDefault("RECENT_UPDATE_WINDOW", 10*time.Second),
		PageSize:           getIntOrDefault("PAGE_SIZE", 20),
		SortBy:             getEnvOrDefault("SORT_BY", "createdAt"),
		SortDir:            getEnvOrDefault("SORT_DIR", "desc"),

		EnrichConcurrency:   getIntOrDefault("ENRICH_CONCURRENCY", 8),
		DiscoveryTimeout:    getDurationOrDefault("DISCOVERY_TIMEOUT", 10*time.Second),
		PriceCacheTTL:       getDurationOrDefault("PRICE_CACHE_TTL", 30*time.Second),
		StrategyGroupWindow: getDurationOrDefault("STRATEGY_GROUP_WINDOW", 5*time.Minute),

		NotifyStorage: getEnvOrDefault("NOTIFY_STORAGE", "console"),
		PostgresHost:  getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort:  getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser:  getEnvOrDefault("POSTGRES_USER", "ordersync"),
		PostgresPass:  getEnvOrDefault("POSTGRES_PASSWORD", "ordersync"),
		PostgresDB:    getEnvOrDefault("POSTGRES_DB", "ordersync"),
		PostgresSSL:   getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	u, err := url.Parse(c.OrderAPIURL)
	if c.OrderAPIURL == "" || err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("ORDER_API_URL must be an absolute URL, got %q", c.OrderAPIURL)
	}

	if c.SyncInterval <= 0 {
		return fmt.Errorf("SYNC_INTERVAL must be positive, got %v", c.SyncInterval)
	}

	if c.RecentUpdateWindow <= 0 {
		return fmt.Errorf("RECENT_UPDATE_WINDOW must be positive, got %v", c.RecentUpdateWindow)
	}

	if c.PageSize < 1 || c.PageSize > 100 {
		return fmt.Errorf("PAGE_SIZE must be between 1 and 100, got %d", c.PageSize)
	}

	if c.SortDir != "asc" && c.SortDir != "desc" {
		return fmt.Errorf("SORT_DIR must be 'asc' or 'desc', got %q", c.SortDir)
	}

	if c.EnrichConcurrency < 1 {
		return fmt.Errorf("ENRICH_CONCURRENCY must be at least 1, got %d", c.EnrichConcurrency)
	}

	if c.NotifyStorage != "console" && c.NotifyStorage != "postgres" {
		return fmt.Errorf("NOTIFY_STORAGE must be 'console' or 'postgres', got %q", c.NotifyStorage)
	}

	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}

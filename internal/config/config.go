package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	Port        int
	LogLevel    string
	LogFormat   string
	Environment string
	ServiceName string
	Version     string

	// DataDir holds the local cache database and device identity file
	DataDir string

	// APIKey protects the local HTTP surface. Empty disables auth, which is
	// the default for a single-user install.
	APIKey string

	// TrustedProxies are the proxy IPs whose X-Forwarded-For we honor
	TrustedProxies []string

	// Remote directory service
	RemoteMode   string // "http" or "postgres"
	RemoteURL    string
	RemoteAPIKey string

	// Postgres connection, used for the postgres remote mode and the
	// analytics sink
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	// Analytics is fully optional: when disabled, tracking is a no-op
	AnalyticsEnabled bool

	// AI-assisted search
	AIModel  string
	AIAPIKey string

	// Background refresh cadence for the sync reconciler
	SyncInterval time.Duration
}

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists, but don't fail if it doesn't (could be real env vars)
	_ = godotenv.Load()

	cfg := &Config{
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "text"),
		Environment:  getEnv("ENVIRONMENT", "dev"),
		ServiceName:  getEnv("SERVICE_NAME", "bizdir"),
		Version:      getEnv("VERSION", "dev"),
		DataDir:      getEnv("DATA_DIR", "data"),
		APIKey:       getEnv("API_KEY", ""),
		RemoteMode:   getEnv("REMOTE_MODE", "http"),
		RemoteURL:    getEnv("REMOTE_URL", ""),
		RemoteAPIKey: getEnv("REMOTE_API_KEY", ""),
		DBUser:       getEnv("DB_USER", "postgres"),
		DBPassword:   getEnv("DB_PASSWORD", "postgres"),
		DBHost:       getEnv("DB_HOST", "localhost"),
		DBPort:       getEnv("DB_PORT", "5432"),
		DBName:       getEnv("DB_NAME", "bizdir"),
		AIModel:      getEnv("AI_MODEL", ""),
		AIAPIKey:     getEnv("AI_API_KEY", ""),
	}

	if proxies := getEnv("TRUSTED_PROXIES", ""); proxies != "" {
		for _, p := range strings.Split(proxies, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cfg.TrustedProxies = append(cfg.TrustedProxies, p)
			}
		}
	}

	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT value: %w", err)
	}
	cfg.Port = port

	enabled, err := strconv.ParseBool(getEnv("ANALYTICS_ENABLED", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid ANALYTICS_ENABLED value: %w", err)
	}
	cfg.AnalyticsEnabled = enabled

	interval, err := time.ParseDuration(getEnv("SYNC_INTERVAL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid SYNC_INTERVAL value: %w", err)
	}
	cfg.SyncInterval = interval

	switch cfg.RemoteMode {
	case "http":
		if cfg.RemoteURL == "" {
			return nil, fmt.Errorf("REMOTE_URL must be set when REMOTE_MODE=http")
		}
	case "postgres":
		// Connection settings have defaults; nothing mandatory beyond them
	default:
		return nil, fmt.Errorf("invalid REMOTE_MODE value: %s (expected http or postgres)", cfg.RemoteMode)
	}

	return cfg, nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// GetDBConnString returns the PostgreSQL connection string
func (c *Config) GetDBConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser,
		c.DBPassword,
		c.DBHost,
		c.DBPort,
		c.DBName,
	)
}

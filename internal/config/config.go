// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// StoreBackend selects the job store implementation.
type StoreBackend string

const (
	// StoreMemory keeps all job records in process memory.
	StoreMemory StoreBackend = "memory"
	// StoreSQLite persists job records to a local SQLite database.
	StoreSQLite StoreBackend = "sqlite"
)

// Config holds application configuration
type Config struct {
	DataDir           string // Base directory for local data (job database), always absolute
	Port              int
	DevMode           bool
	LogLevel          string
	MarketDataURL     string // Base URL of the market-data collaborator service
	MaxConcurrentJobs int
	JobTimeout        time.Duration
	JobStore          StoreBackend
	RetentionTTL      time.Duration // How long finished jobs are kept
	RetentionMax      int           // Maximum number of finished jobs kept
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("AIDE_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:           absDataDir,
		Port:              getEnvAsInt("PORT", 8080),
		DevMode:           getEnvAsBool("DEV_MODE", false),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		MarketDataURL:     getEnv("MARKET_DATA_URL", "http://localhost:9100"),
		MaxConcurrentJobs: getEnvAsInt("MAX_CONCURRENT_JOBS", 5),
		JobTimeout:        time.Duration(getEnvAsInt("JOB_TIMEOUT_MINUTES", 7)) * time.Minute,
		JobStore:          StoreBackend(getEnv("JOB_STORE", string(StoreMemory))),
		RetentionTTL:      time.Duration(getEnvAsInt("JOB_RETENTION_HOURS", 72)) * time.Hour,
		RetentionMax:      getEnvAsInt("JOB_RETENTION_MAX", 1000),
	}

	if cfg.MaxConcurrentJobs < 1 {
		return nil, fmt.Errorf("MAX_CONCURRENT_JOBS must be at least 1, got %d", cfg.MaxConcurrentJobs)
	}

	switch cfg.JobStore {
	case StoreMemory, StoreSQLite:
	default:
		return nil, fmt.Errorf("unknown JOB_STORE backend: %q", cfg.JobStore)
	}

	return cfg, nil
}

// JobDatabasePath returns the path of the SQLite job database.
func (c *Config) JobDatabasePath() string {
	return filepath.Join(c.DataDir, "jobs.db")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

package config

import (
	"net"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Worker   WorkerConfig
	Solver   SolverConfig
}

// AppConfig holds application configuration
type AppConfig struct {
	Env     string
	Port    string
	Storage   string // "postgres" or "memory"
	BodyLimit int    // request body limit in bytes
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	PoolMax         int
	PoolMinConns    int
	PoolMaxConnLife time.Duration
}

// WorkerConfig holds worker configuration
type WorkerConfig struct {
	Count        int
	BatchSize    int
	PollInterval time.Duration
	InProcess    bool // API runs queued jobs itself instead of leaving them to cmd/worker
}

// SolverConfig holds formula solver limits
type SolverConfig struct {
	MaxDepth int
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		App: AppConfig{
			Env:       getEnv("APP_ENV", "development"),
			Port:      getEnv("APP_PORT", "8080"),
			Storage:   getEnv("STORAGE", "postgres"),
			BodyLimit: getEnvPositiveInt("API_BODY_LIMIT_KB", 256) * 1024,
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Name:            getEnv("DB_NAME", "formulas"),
			PoolMax:         getEnvInt("DB_POOL_MAX", 20),
			PoolMinConns:    getEnvInt("DB_POOL_MIN", 2),
			PoolMaxConnLife: time.Duration(getEnvInt("DB_POOL_MAX_CONN_LIFE_MINUTES", 30)) * time.Minute,
		},
		Worker: WorkerConfig{
			Count:        getEnvPositiveInt("WORKER_COUNT", 16),
			BatchSize:    getEnvPositiveInt("BATCH_SIZE", 500),
			PollInterval: time.Duration(getEnvPositiveInt("WORKER_POLL_SECONDS", 5)) * time.Second,
			InProcess:    getEnvBool("API_RUN_JOBS", true),
		},
		Solver: SolverConfig{
			MaxDepth: getEnvPositiveInt("FORMULA_MAX_DEPTH", 256),
		},
	}
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// IsProduction reports whether the app runs with APP_ENV=production
func (c *AppConfig) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvPositiveInt is getEnvInt for counts, sizes and intervals; zero or
// negative values fall back to the default
func getEnvPositiveInt(key string, defaultValue int) int {
	if value := getEnvInt(key, defaultValue); value > 0 {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

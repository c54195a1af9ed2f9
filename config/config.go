// Package config provides application configuration loaded from environment variables.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Log      LogConfig

	// RatesFile is an optional JSON rate book. Empty means built-in rates.
	RatesFile string
	// SeedDemo loads the demo scenario on startup when the store is empty.
	SeedDemo bool
	Jobs     JobsConfig
}

// JobsConfig controls background jobs.
type JobsConfig struct {
	AutoDeductMonthly bool
	DeductInterval    time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           int
	AllowedOrigins []string
	ReadTimeout    int // seconds
	WriteTimeout   int // seconds
	IdleTimeout    int // seconds
}

// DatabaseConfig selects and locates the store.
type DatabaseConfig struct {
	Driver     string
	SQLitePath string
	URL        string
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  slog.Level
	Format string // json or text
}

// Load reads a .env file if present, then the environment.
// It uses sensible defaults for local development.
func Load() *Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads configuration from the environment only.
func FromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           getEnvInt("PORT", 8080),
			AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"*"}),
			ReadTimeout:    getEnvInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout:   getEnvInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:    getEnvInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Driver:     parseDriver(getEnv("DB_DRIVER", DriverSQLite)),
			SQLitePath: getEnv("SQLITE_PATH", "crm.db"),
			URL:        getEnv("DATABASE_URL", ""),
		},
		Log: LogConfig{
			Level:  parseLevel(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
		RatesFile: getEnv("RATES_FILE", ""),
		SeedDemo:  getEnvBool("SEED_DEMO", false),
		Jobs: JobsConfig{
			AutoDeductMonthly: getEnvBool("AUTO_DEDUCT_MONTHLY", false),
			DeductInterval:    getEnvDuration("DEDUCT_INTERVAL", time.Hour),
		},
	}
}

// NewLogger builds the process logger.
func (c LogConfig) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.Level}
	if c.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func parseDriver(s string) string {
	switch strings.ToLower(s) {
	case "postgres", "postgresql", "pg":
		return DriverPostgres
	default:
		return DriverSQLite
	}
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvBool accepts "1", "true", "yes" as true; everything else is false.
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	value = strings.ToLower(value)
	return value == "1" || value == "true" || value == "yes"
}

// getEnvDuration parses values like "30m" or "2h"; bad or non-positive values
// give the default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

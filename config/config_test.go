package config_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/warp/crm-engine/config"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "DB_DRIVER", "SQLITE_PATH", "DATABASE_URL", "ALLOWED_ORIGINS",
		"RATES_FILE", "LOG_LEVEL", "LOG_FORMAT", "SEED_DEMO", "AUTO_DEDUCT_MONTHLY", "DEDUCT_INTERVAL"} {
		t.Setenv(k, "")
	}

	cfg := config.FromEnv()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, config.DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "crm.db", cfg.Database.SQLitePath)
	assert.Equal(t, slog.LevelInfo, cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.False(t, cfg.SeedDemo)
	assert.Empty(t, cfg.RatesFile)
	assert.False(t, cfg.Jobs.AutoDeductMonthly)
	assert.Equal(t, time.Hour, cfg.Jobs.DeductInterval)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", "3000")
	t.Setenv("DB_DRIVER", "PostgreSQL")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/crm")
	t.Setenv("ALLOWED_ORIGINS", "https://app.example.com, http://localhost:5173 ,")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "TEXT")
	t.Setenv("SEED_DEMO", "yes")
	t.Setenv("RATES_FILE", "rates.json")
	t.Setenv("AUTO_DEDUCT_MONTHLY", "true")
	t.Setenv("DEDUCT_INTERVAL", "15m")

	cfg := config.FromEnv()

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, config.DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "postgres://u:p@localhost/crm", cfg.Database.URL)
	assert.Equal(t, []string{"https://app.example.com", "http://localhost:5173"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, slog.LevelDebug, cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.True(t, cfg.SeedDemo)
	assert.Equal(t, "rates.json", cfg.RatesFile)
	assert.True(t, cfg.Jobs.AutoDeductMonthly)
	assert.Equal(t, 15*time.Minute, cfg.Jobs.DeductInterval)
}

func TestFromEnv_BadValuesFallBack(t *testing.T) {
	t.Setenv("PORT", "eighty")
	t.Setenv("LOG_LEVEL", "chatty")
	t.Setenv("DEDUCT_INTERVAL", "-5m")

	cfg := config.FromEnv()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, slog.LevelInfo, cfg.Log.Level)
	assert.Equal(t, time.Hour, cfg.Jobs.DeductInterval)
}

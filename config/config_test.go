package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"APP_PORT", "WORKER_COUNT", "WORKER_POLL_SECONDS", "FORMULA_MAX_DEPTH", "DB_NAME", "STORAGE", "API_RUN_JOBS", "API_BODY_LIMIT_KB"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "formulas", cfg.Database.Name)
	assert.Equal(t, 16, cfg.Worker.Count)
	assert.Equal(t, 5*time.Second, cfg.Worker.PollInterval)
	assert.Equal(t, 256, cfg.Solver.MaxDepth)
	assert.Equal(t, "postgres", cfg.App.Storage)
	assert.True(t, cfg.Worker.InProcess)
	assert.Equal(t, 256*1024, cfg.App.BodyLimit)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("WORKER_POLL_SECONDS", "1")
	t.Setenv("FORMULA_MAX_DEPTH", "32")
	t.Setenv("WORKER_COUNT", "not-a-number")
	t.Setenv("API_RUN_JOBS", "false")

	cfg := Load()

	assert.True(t, cfg.App.IsProduction())
	assert.Equal(t, time.Second, cfg.Worker.PollInterval)
	assert.Equal(t, 32, cfg.Solver.MaxDepth)
	assert.Equal(t, 16, cfg.Worker.Count)
	assert.False(t, cfg.Worker.InProcess)
}

func TestLoad_NonPositiveFallsBack(t *testing.T) {
	for _, value := range []string{"0", "-3"} {
		t.Run(value, func(t *testing.T) {
			for _, key := range []string{"WORKER_POLL_SECONDS", "WORKER_COUNT", "BATCH_SIZE", "FORMULA_MAX_DEPTH", "API_BODY_LIMIT_KB"} {
				t.Setenv(key, value)
			}

			cfg := Load()

			assert.Equal(t, 5*time.Second, cfg.Worker.PollInterval)
			assert.Equal(t, 16, cfg.Worker.Count)
			assert.Equal(t, 500, cfg.Worker.BatchSize)
			assert.Equal(t, 256, cfg.Solver.MaxDepth)
			assert.Equal(t, 256*1024, cfg.App.BodyLimit)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: "5433", User: "app", Password: "p@ss", Name: "formulas"}
	assert.Equal(t, "postgres://app:p%40ss@db:5433/formulas?sslmode=disable", c.DSN())
}

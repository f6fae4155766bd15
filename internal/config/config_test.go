package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8080", cfg.HTTPPort)
	assert.Equal(t, 12*time.Hour, cfg.SessionTTL)
	assert.True(t, cfg.SeedReferenceData)
	assert.Equal(t, []string{"http://localhost:3000", "http://127.0.0.1:3000"}, cfg.CORSAllowedOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("API_HTTP_PORT", ":9090")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("SEED_REFERENCE_DATA", "false")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://desk.example.com , ,https://ops.example.com")

	cfg := Load()

	assert.Equal(t, ":9090", cfg.HTTPPort)
	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.False(t, cfg.SeedReferenceData)
	assert.Equal(t, []string{"https://desk.example.com", "https://ops.example.com"}, cfg.CORSAllowedOrigins)
}

func TestLoad_BadValuesFallBack(t *testing.T) {
	t.Setenv("SESSION_TTL", "forever")
	t.Setenv("SEED_REFERENCE_DATA", "maybe")
	t.Setenv("DB_MAX_OPEN_CONNS", "lots")

	cfg := Load()

	assert.Equal(t, 12*time.Hour, cfg.SessionTTL)
	assert.True(t, cfg.SeedReferenceData)
	assert.Equal(t, 20, MustGetInt("DB_MAX_OPEN_CONNS", 20))
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithoutDatabaseUsesMemoryStore(t *testing.T) {
	t.Setenv("GO_ENV", "test")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("CACHE_PROVIDER", "memory")
	t.Setenv("PORT", "8088")
	t.Setenv("CACHE_TTL", "45s")

	// an empty STORE_DRIVER is not a valid driver
	_, err := Load()
	require.Error(t, err)

	t.Setenv("STORE_DRIVER", "memory")
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "memory", cfg.Cache.Provider)
	assert.Equal(t, "8088", cfg.Server.Port)
	assert.Equal(t, 45*time.Second, cfg.Cache.TTL)
	assert.False(t, cfg.IsProduction())
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: "9000", ReadTimeout: time.Second, WriteTimeout: time.Second},
			Database: DatabaseConfig{URL: "postgres://localhost/rewards", MaxOpenConns: 10, MaxIdleConns: 5},
			Store:    StoreConfig{Driver: "postgres"},
			Cache:    CacheConfig{Provider: "memory", TTL: time.Second},
			Events:   EventsConfig{BufferSize: 10, WorkerCount: 1},
		}
	}

	require.NoError(t, base().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = "http" }},
		{"missing database url", func(c *Config) { c.Database.URL = "" }},
		{"idle above open", func(c *Config) { c.Database.MaxIdleConns = 50 }},
		{"unknown store", func(c *Config) { c.Store.Driver = "mongo" }},
		{"redis without url", func(c *Config) { c.Cache.Provider = "redis" }},
		{"no workers", func(c *Config) { c.Events.WorkerCount = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestMemoryStoreSkipsDatabaseValidation(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Port: "9000", ReadTimeout: time.Second, WriteTimeout: time.Second},
		Store:  StoreConfig{Driver: "memory"},
		Cache:  CacheConfig{Provider: "none"},
		Events: EventsConfig{BufferSize: 1, WorkerCount: 1},
	}
	assert.NoError(t, cfg.Validate())
}

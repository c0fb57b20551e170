package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SERVICE_NAME", "extractor")
	t.Setenv("STEAM_API_KEY", "test-key")
	t.Setenv("STEAM_USER_ID", "76561199490364483")
}

func TestLoadFromEnvironment(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("STEAM_RETRY", "6")
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("CACHE_REDIS_ADDR", "localhost:6379")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "extractor", cfg.ServiceName)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "test-key", cfg.Steam.APIKey)
	assert.Equal(t, "76561199490364483", cfg.Steam.UserID)
	assert.Equal(t, 6, cfg.Steam.Retry)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, "localhost:6379", cfg.Cache.RedisAddr)
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "https://api.steampowered.com", cfg.Steam.APIBaseURL)
	assert.Equal(t, "https://store.steampowered.com", cfg.Steam.StoreBaseURL)
	assert.Equal(t, 4, cfg.Steam.Retry)
	assert.Equal(t, 2*time.Second, cfg.Steam.RetryWait)
	assert.Equal(t, "sqlite", cfg.Store.RawBackend)
	assert.Equal(t, "sqlite", cfg.Store.TrustedBackend)
	assert.Equal(t, "database/steam_data_raw.db", cfg.Store.RawSQLitePath)
	assert.Equal(t, "database/steam_data_trusted.db", cfg.Store.TrustedPath)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 6, cfg.Pipeline.AchievementWorkers)
	assert.Equal(t, 6, cfg.Pipeline.MetadataWorkers)
}

func TestLoadVanityNameSatisfiesIdentity(t *testing.T) {
	t.Setenv("SERVICE_NAME", "extractor")
	t.Setenv("STEAM_API_KEY", "test-key")
	t.Setenv("STEAM_VANITY_NAME", "gabelogannewell")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "gabelogannewell", cfg.Steam.VanityName)
	assert.Empty(t, cfg.Steam.UserID)
}

func TestValidate(t *testing.T) {
	valid := func() AppConfig {
		return AppConfig{
			ServiceName: "extractor",
			Steam: SteamConfig{
				APIKey: "key",
				UserID: "76561199490364483",
				Retry:  4,
			},
			Store: StoreConfig{
				RawBackend:     "sqlite",
				TrustedBackend: "sqlite",
				RawSQLitePath:  "raw.db",
				TrustedPath:    "trusted.db",
			},
			Cache: CacheConfig{Backend: "memory"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{
			name:   "valid config",
			mutate: func(c *AppConfig) {},
		},
		{
			name:    "missing service name",
			mutate:  func(c *AppConfig) { c.ServiceName = "" },
			wantErr: "service_name is required",
		},
		{
			name:    "missing api key",
			mutate:  func(c *AppConfig) { c.Steam.APIKey = "" },
			wantErr: "steam.api_key is required",
		},
		{
			name: "missing user identity",
			mutate: func(c *AppConfig) {
				c.Steam.UserID = ""
				c.Steam.VanityName = ""
			},
			wantErr: "one of steam.user_id or steam.vanity_name is required",
		},
		{
			name:    "zero retry budget",
			mutate:  func(c *AppConfig) { c.Steam.Retry = 0 },
			wantErr: "steam.retry must be at least 1",
		},
		{
			name:    "unknown raw backend",
			mutate:  func(c *AppConfig) { c.Store.RawBackend = "cassandra" },
			wantErr: "store.raw_backend must be sqlite or mongo",
		},
		{
			name: "mongo backend without uri",
			mutate: func(c *AppConfig) {
				c.Store.RawBackend = "mongo"
			},
			wantErr: "store.mongo_uri and store.mongo_database are required",
		},
		{
			name: "postgres backend without uri",
			mutate: func(c *AppConfig) {
				c.Store.TrustedBackend = "postgres"
			},
			wantErr: "store.postgres_uri is required",
		},
		{
			name: "redis cache without address",
			mutate: func(c *AppConfig) {
				c.Cache.Backend = "redis"
			},
			wantErr: "cache.redis_addr is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig holds the complete configuration for a pipeline run
type AppConfig struct {
	Environment string         `mapstructure:"environment"`
	LogLevel    string         `mapstructure:"log_level"`
	ServiceName string         `mapstructure:"service_name"`
	MetricsAddr string         `mapstructure:"metrics_addr"`
	Steam       SteamConfig    `mapstructure:"steam"`
	Store       StoreConfig    `mapstructure:"store"`
	Cache       CacheConfig    `mapstructure:"cache"`
	Pipeline    PipelineConfig `mapstructure:"pipeline"`
}

// SteamConfig identifies the upstream API and the user to extract
type SteamConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	UserID       string        `mapstructure:"user_id"`
	VanityName   string        `mapstructure:"vanity_name"`
	APIBaseURL   string        `mapstructure:"api_base_url"`
	StoreBaseURL string        `mapstructure:"store_base_url"`
	Retry        int           `mapstructure:"retry"`
	RetryWait    time.Duration `mapstructure:"retry_wait"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// StoreConfig selects and configures the raw and trusted store backends
type StoreConfig struct {
	RawBackend     string        `mapstructure:"raw_backend"`     // "sqlite" or "mongo"
	TrustedBackend string        `mapstructure:"trusted_backend"` // "sqlite" or "postgres"
	RawSQLitePath  string        `mapstructure:"raw_sqlite_path"`
	TrustedPath    string        `mapstructure:"trusted_sqlite_path"`
	PostgresURI    string        `mapstructure:"postgres_uri"`
	PostgresMin    int           `mapstructure:"postgres_min_conns"`
	PostgresMax    int           `mapstructure:"postgres_max_conns"`
	MongoURI       string        `mapstructure:"mongo_uri"`
	MongoDatabase  string        `mapstructure:"mongo_database"`
	MongoTimeout   time.Duration `mapstructure:"mongo_connect_timeout"`
}

// CacheConfig configures the metadata read-through cache
type CacheConfig struct {
	Backend   string        `mapstructure:"backend"` // "memory" or "redis"
	RedisAddr string        `mapstructure:"redis_addr"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// PipelineConfig tunes the fan-out loops
type PipelineConfig struct {
	AchievementWorkers int `mapstructure:"achievement_workers"`
	MetadataWorkers    int `mapstructure:"metadata_workers"`
}

// Load loads configuration from file and environment variables
func Load(path string) (*AppConfig, error) {
	v := viper.New()

	// Default values
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("metrics_addr", ":8081")
	v.SetDefault("steam.api_base_url", "https://api.steampowered.com")
	v.SetDefault("steam.store_base_url", "https://store.steampowered.com")
	v.SetDefault("steam.retry", 4)
	v.SetDefault("steam.retry_wait", 2*time.Second)
	v.SetDefault("steam.timeout", 30*time.Second)
	v.SetDefault("store.raw_backend", "sqlite")
	v.SetDefault("store.trusted_backend", "sqlite")
	v.SetDefault("store.raw_sqlite_path", "database/steam_data_raw.db")
	v.SetDefault("store.trusted_sqlite_path", "database/steam_data_trusted.db")
	v.SetDefault("store.postgres_min_conns", 2)
	v.SetDefault("store.postgres_max_conns", 10)
	v.SetDefault("store.mongo_connect_timeout", 10*time.Second)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl", 24*time.Hour)
	v.SetDefault("pipeline.achievement_workers", 6)
	v.SetDefault("pipeline.metadata_workers", 6)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Config file
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	// Bind environment variables explicitly for nested structs so Unmarshal picks them up
	v.BindEnv("service_name", "SERVICE_NAME")
	v.BindEnv("environment", "ENVIRONMENT")
	v.BindEnv("log_level", "LOG_LEVEL")
	v.BindEnv("metrics_addr", "METRICS_ADDR")
	v.BindEnv("steam.api_key", "STEAM_API_KEY")
	v.BindEnv("steam.user_id", "STEAM_USER_ID")
	v.BindEnv("steam.vanity_name", "STEAM_VANITY_NAME")
	v.BindEnv("steam.api_base_url", "STEAM_API_BASE_URL")
	v.BindEnv("steam.store_base_url", "STEAM_STORE_BASE_URL")
	v.BindEnv("steam.retry", "STEAM_RETRY")
	v.BindEnv("steam.retry_wait", "STEAM_RETRY_WAIT")
	v.BindEnv("store.raw_backend", "STORE_RAW_BACKEND")
	v.BindEnv("store.trusted_backend", "STORE_TRUSTED_BACKEND")
	v.BindEnv("store.raw_sqlite_path", "STORE_RAW_SQLITE_PATH")
	v.BindEnv("store.trusted_sqlite_path", "STORE_TRUSTED_SQLITE_PATH")
	v.BindEnv("store.postgres_uri", "STORE_POSTGRES_URI")
	v.BindEnv("store.mongo_uri", "STORE_MONGO_URI")
	v.BindEnv("store.mongo_database", "STORE_MONGO_DATABASE")
	v.BindEnv("cache.backend", "CACHE_BACKEND")
	v.BindEnv("cache.redis_addr", "CACHE_REDIS_ADDR")
	v.BindEnv("pipeline.achievement_workers", "PIPELINE_ACHIEVEMENT_WORKERS")
	v.BindEnv("pipeline.metadata_workers", "PIPELINE_METADATA_WORKERS")

	var config AppConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *AppConfig) Validate() error {
	if c.ServiceName == "" {
		return errors.New("service_name is required")
	}
	if c.Steam.APIKey == "" {
		return errors.New("steam.api_key is required")
	}
	if c.Steam.UserID == "" && c.Steam.VanityName == "" {
		return errors.New("one of steam.user_id or steam.vanity_name is required")
	}
	if c.Steam.Retry < 1 {
		return errors.New("steam.retry must be at least 1")
	}
	switch c.Store.RawBackend {
	case "sqlite":
		if c.Store.RawSQLitePath == "" {
			return errors.New("store.raw_sqlite_path is required for the sqlite raw backend")
		}
	case "mongo":
		if c.Store.MongoURI == "" || c.Store.MongoDatabase == "" {
			return errors.New("store.mongo_uri and store.mongo_database are required for the mongo raw backend")
		}
	default:
		return errors.New("store.raw_backend must be sqlite or mongo")
	}
	switch c.Store.TrustedBackend {
	case "sqlite":
		if c.Store.TrustedPath == "" {
			return errors.New("store.trusted_sqlite_path is required for the sqlite trusted backend")
		}
	case "postgres":
		if c.Store.PostgresURI == "" {
			return errors.New("store.postgres_uri is required for the postgres trusted backend")
		}
	default:
		return errors.New("store.trusted_backend must be sqlite or postgres")
	}
	if c.Cache.Backend == "redis" && c.Cache.RedisAddr == "" {
		return errors.New("cache.redis_addr is required for the redis cache backend")
	}
	return nil
}

package store

import (
	"context"
	"fmt"

	"github.com/AFS-Neto/Steam-Extrator/pkg/config"
	"github.com/AFS-Neto/Steam-Extrator/pkg/logger"
)

// OpenRaw constructs the raw store selected by configuration
func OpenRaw(ctx context.Context, cfg config.StoreConfig, l *logger.Logger) (RawStore, error) {
	switch cfg.RawBackend {
	case "sqlite":
		return NewSQLiteRawStore(cfg.RawSQLitePath, l)
	case "mongo":
		return NewMongoRawStore(ctx, MongoConfig{
			URI:            cfg.MongoURI,
			Database:       cfg.MongoDatabase,
			ConnectTimeout: cfg.MongoTimeout,
		}, l)
	default:
		return nil, fmt.Errorf("unknown raw store backend %q", cfg.RawBackend)
	}
}

// OpenTrusted constructs the trusted store selected by configuration
func OpenTrusted(ctx context.Context, cfg config.StoreConfig, l *logger.Logger) (TrustedStore, error) {
	switch cfg.TrustedBackend {
	case "sqlite":
		return NewSQLiteTrustedStore(cfg.TrustedPath, l)
	case "postgres":
		return NewPostgresTrustedStore(ctx, PostgresConfig{
			URI:      cfg.PostgresURI,
			MinConns: int32(cfg.PostgresMin),
			MaxConns: int32(cfg.PostgresMax),
		}, l)
	default:
		return nil, fmt.Errorf("unknown trusted store backend %q", cfg.TrustedBackend)
	}
}

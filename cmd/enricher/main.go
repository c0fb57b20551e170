package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AFS-Neto/Steam-Extrator/internal/enricher"
	"github.com/AFS-Neto/Steam-Extrator/pkg/cache"
	"github.com/AFS-Neto/Steam-Extrator/pkg/config"
	"github.com/AFS-Neto/Steam-Extrator/pkg/enrich"
	"github.com/AFS-Neto/Steam-Extrator/pkg/logger"
	"github.com/AFS-Neto/Steam-Extrator/pkg/server"
	"github.com/AFS-Neto/Steam-Extrator/pkg/steamapi"
	"github.com/AFS-Neto/Steam-Extrator/pkg/store"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to an optional config file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	l, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Environment,
		ServiceName: "enricher",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer l.Sync()

	l.Info("metadata backfill initializing", zap.String("env", cfg.Environment))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	raw, err := store.OpenRaw(ctx, cfg.Store, l)
	if err != nil {
		l.Error("failed to open raw store", err)
		os.Exit(1)
	}
	defer raw.Close(context.Background())

	trusted, err := store.OpenTrusted(ctx, cfg.Store, l)
	if err != nil {
		l.Error("failed to open trusted store", err)
		os.Exit(1)
	}
	defer trusted.Close(context.Background())

	metadataCache, err := cache.Open(ctx, cfg.Cache)
	if err != nil {
		l.Error("failed to open metadata cache", err)
		os.Exit(1)
	}

	client := steamapi.NewClient(steamapi.Config{
		APIKey:       cfg.Steam.APIKey,
		APIBaseURL:   cfg.Steam.APIBaseURL,
		StoreBaseURL: cfg.Steam.StoreBaseURL,
		Retry:        cfg.Steam.Retry,
		RetryWait:    cfg.Steam.RetryWait,
		Timeout:      cfg.Steam.Timeout,
	}, l)

	obsServer := server.New(cfg.MetricsAddr, l)
	go func() {
		if err := obsServer.Start(); err != nil {
			l.Error("observability server failed", err)
		}
	}()

	svc := enricher.NewService(l, raw, trusted,
		enrich.NewEnricher(client, metadataCache, cfg.Cache.TTL, cfg.Pipeline.MetadataWorkers, l))
	_, runErr := svc.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	obsServer.Shutdown(shutdownCtx)

	if runErr != nil {
		os.Exit(1)
	}
}

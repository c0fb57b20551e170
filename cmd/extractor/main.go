package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AFS-Neto/Steam-Extrator/internal/extractor"
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

	// The API key usually lives in a .env file next to the binary
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	l, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Environment,
		ServiceName: "extractor",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer l.Sync()

	l.Info("extractor initializing", zap.String("env", cfg.Environment))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	raw, err := store.OpenRaw(ctx, cfg.Store, l)
	if err != nil {
		l.Error("failed to open raw store", err)
		os.Exit(1)
	}
	defer raw.Close(context.Background())

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

	enricher := enrich.NewEnricher(client, metadataCache, cfg.Cache.TTL, cfg.Pipeline.MetadataWorkers, l)
	svc := extractor.NewService(l, client, raw, enricher, cfg.Pipeline.AchievementWorkers)

	obsServer := server.New(cfg.MetricsAddr, l)
	go func() {
		if err := obsServer.Start(); err != nil {
			l.Error("observability server failed", err)
		}
	}()

	summary, err := svc.Run(ctx, cfg.Steam.UserID, cfg.Steam.VanityName)
	exitCode := 0
	switch {
	case errors.Is(err, extractor.ErrPrivateProfile), errors.Is(err, extractor.ErrNoGames):
		l.Warn("extraction halted", zap.Error(err))
		exitCode = 1
	case err != nil:
		l.Error("extraction failed", err)
		exitCode = 1
	default:
		l.Info("extraction complete",
			zap.String("run_id", summary.RunID),
			zap.String("steamid", summary.SteamID),
			zap.Int("games", summary.Games),
			zap.Int("games_without_achievement_info", summary.NoAchievementInfo),
			zap.Int("metadata_rows", summary.MetadataRows),
			zap.Int("metadata_not_found", summary.MetadataNotFound))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	obsServer.Shutdown(shutdownCtx)

	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

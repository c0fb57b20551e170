package enricher

import (
	"context"
	"fmt"
	"time"

	"github.com/AFS-Neto/Steam-Extrator/internal/extractor"
	"github.com/AFS-Neto/Steam-Extrator/pkg/logger"
	"github.com/AFS-Neto/Steam-Extrator/pkg/metrics"
	"github.com/AFS-Neto/Steam-Extrator/pkg/record"
	"github.com/AFS-Neto/Steam-Extrator/pkg/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service backfills game metadata: it finds game ids present in the trusted
// collection table but missing from trusted metadata, re-runs enrichment for
// just those ids, and appends the results to the raw store for the next
// reconciliation pass to pick up.
type Service struct {
	logger   *logger.Logger
	raw      store.RawStore
	trusted  store.TrustedStore
	enricher extractor.Enricher
}

// NewService creates a new backfill Service instance
func NewService(l *logger.Logger, raw store.RawStore, trusted store.TrustedStore, enricher extractor.Enricher) *Service {
	return &Service{logger: l, raw: raw, trusted: trusted, enricher: enricher}
}

// Run executes one backfill pass and returns the number of metadata rows
// appended.
func (s *Service) Run(ctx context.Context) (int, error) {
	missing, err := s.missingGameIDs(ctx)
	if err != nil {
		return 0, err
	}
	if len(missing) == 0 {
		s.logger.Info("no metadata gaps to backfill")
		return 0, nil
	}
	s.logger.Info("backfilling metadata", zap.Int("missing_games", len(missing)))

	runID := uuid.NewString()
	result, err := s.enricher.Enrich(ctx, missing, time.Now().UTC(), runID)
	if err != nil {
		return 0, fmt.Errorf("enriching missing games: %w", err)
	}

	if err := s.raw.AppendMetadata(ctx, result.Rows); err != nil {
		return 0, fmt.Errorf("appending backfilled metadata: %w", err)
	}
	metrics.RawRowsAppendedTotal.WithLabelValues(record.KindMetadata.String()).Add(float64(len(result.Rows)))

	s.logger.Info("backfill finished",
		zap.String("run_id", runID),
		zap.Int("rows", len(result.Rows)),
		zap.Int("not_found", len(result.NotFound)),
		zap.Int("failed", result.Failed))
	return len(result.Rows), nil
}

// missingGameIDs diffs the trusted collection against trusted metadata
func (s *Service) missingGameIDs(ctx context.Context) ([]string, error) {
	owned, err := s.trusted.OwnedGames(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading trusted collection: %w", err)
	}
	metadata, err := s.trusted.Metadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading trusted metadata: %w", err)
	}

	have := make(map[string]struct{}, len(metadata))
	for _, row := range metadata {
		have[row.SteamGameID] = struct{}{}
	}

	var missing []string
	seen := make(map[string]struct{})
	for _, row := range owned {
		if _, ok := have[row.SteamGameID]; ok {
			continue
		}
		if _, ok := seen[row.SteamGameID]; ok {
			continue
		}
		seen[row.SteamGameID] = struct{}{}
		missing = append(missing, row.SteamGameID)
	}
	return missing, nil
}

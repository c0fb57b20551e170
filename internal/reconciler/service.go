package reconciler

import (
	"context"

	"github.com/AFS-Neto/Steam-Extrator/pkg/logger"
	"github.com/AFS-Neto/Steam-Extrator/pkg/reconcile"
	"github.com/AFS-Neto/Steam-Extrator/pkg/store"

	"go.uber.org/zap"
)

// Service runs one raw-to-trusted reconciliation pass over all entity kinds
type Service struct {
	logger  *logger.Logger
	raw     store.RawStore
	trusted store.TrustedStore
}

// NewService creates a new reconciler Service instance
func NewService(l *logger.Logger, raw store.RawStore, trusted store.TrustedStore) *Service {
	return &Service{logger: l, raw: raw, trusted: trusted}
}

// Run executes the pass and logs the per-kind outcome. A failed kind does
// not block the others.
func (s *Service) Run(ctx context.Context) ([]reconcile.KindResult, error) {
	s.logger.Info("starting reconciliation pass")

	engine := reconcile.NewEngine(s.raw, s.trusted, s.logger)
	results, err := engine.Run(ctx)

	for _, res := range results {
		s.logger.Info("kind reconciled",
			zap.String("kind", res.Kind.String()),
			zap.Int("raw_rows", res.RawRows),
			zap.Int("deduped", res.Deduped),
			zap.Int("upserted", res.Upserted),
			zap.Int("skipped", res.Skipped))
	}
	if err != nil {
		s.logger.Error("reconciliation pass finished with errors", err)
		return results, err
	}

	s.logger.Info("reconciliation pass finished")
	return results, nil
}

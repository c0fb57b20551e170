package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/AFS-Neto/Steam-Extrator/pkg/logger"
	"github.com/AFS-Neto/Steam-Extrator/pkg/metrics"
	"github.com/AFS-Neto/Steam-Extrator/pkg/record"
	"github.com/AFS-Neto/Steam-Extrator/pkg/store"

	"go.uber.org/zap"
)

// Dedup collapses raw snapshots to one authoritative row per natural key:
// the row with the maximum fetched-at timestamp wins, and when two snapshots
// share an identical timestamp the higher raw sequence wins. Output is
// sorted by natural key so every run upserts in the same order.
func Dedup[T record.Row](rows []T) []T {
	latest := make(map[string]T, len(rows))
	for _, row := range rows {
		current, ok := latest[row.NaturalKey()]
		if !ok {
			latest[row.NaturalKey()] = row
			continue
		}
		if row.FetchedAt().After(current.FetchedAt()) ||
			(row.FetchedAt().Equal(current.FetchedAt()) && row.RawSeq() > current.RawSeq()) {
			latest[row.NaturalKey()] = row
		}
	}

	out := make([]T, 0, len(latest))
	for _, row := range latest {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].NaturalKey() < out[j].NaturalKey()
	})
	return out
}

// KindResult reports one reconciliation pass for one entity kind
type KindResult struct {
	Kind     record.Kind
	RawRows  int
	Deduped  int
	Upserted int
	Skipped  int
}

// Engine moves snapshots from the raw store into the trusted store. Each
// entity kind is processed independently: full raw scan, dedup, one upsert
// batch. There is no incremental cursor; every run re-reads the entire raw
// history.
type Engine struct {
	raw     store.RawStore
	trusted store.TrustedStore
	logger  *logger.Logger
}

// NewEngine creates a new Engine instance
func NewEngine(raw store.RawStore, trusted store.TrustedStore, l *logger.Logger) *Engine {
	return &Engine{raw: raw, trusted: trusted, logger: l}
}

// Run reconciles all three entity kinds. A failed kind does not stop the
// others; its error is joined into the returned error.
func (e *Engine) Run(ctx context.Context) ([]KindResult, error) {
	var results []KindResult
	var errs []error

	profiles, err := runKind(ctx, e, record.KindProfile, e.raw.Profiles, e.trusted.UpsertProfiles)
	if err != nil {
		errs = append(errs, err)
	} else {
		results = append(results, profiles)
	}

	collection, err := runKind(ctx, e, record.KindCollection, e.raw.OwnedGames, e.trusted.UpsertOwnedGames)
	if err != nil {
		errs = append(errs, err)
	} else {
		results = append(results, collection)
	}

	metadata, err := runKind(ctx, e, record.KindMetadata, e.raw.Metadata, e.trusted.UpsertMetadata)
	if err != nil {
		errs = append(errs, err)
	} else {
		results = append(results, metadata)
	}

	return results, errors.Join(errs...)
}

func runKind[T record.Row](
	ctx context.Context,
	e *Engine,
	kind record.Kind,
	read func(context.Context) ([]T, error),
	upsert func(context.Context, []T) (store.UpsertStats, error),
) (KindResult, error) {
	start := time.Now()

	raw, err := read(ctx)
	if err != nil {
		return KindResult{}, fmt.Errorf("reading raw %s: %w", kind, err)
	}

	deduped := Dedup(raw)

	stats, err := upsert(ctx, deduped)
	if err != nil {
		return KindResult{}, fmt.Errorf("upserting %s: %w", kind, err)
	}

	metrics.TrustedUpsertsTotal.WithLabelValues(kind.String()).Add(float64(stats.Upserted))
	metrics.TrustedUpsertErrorsTotal.WithLabelValues(kind.String()).Add(float64(stats.Skipped))
	metrics.ReconcileLatency.Observe(time.Since(start).Seconds())

	e.logger.Info("reconciled entity kind",
		zap.String("kind", kind.String()),
		zap.Int("raw_rows", len(raw)),
		zap.Int("deduped", len(deduped)),
		zap.Int("upserted", stats.Upserted),
		zap.Int("skipped", stats.Skipped),
		zap.Duration("took", time.Since(start)))

	return KindResult{
		Kind:     kind,
		RawRows:  len(raw),
		Deduped:  len(deduped),
		Upserted: stats.Upserted,
		Skipped:  stats.Skipped,
	}, nil
}

package enrich

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/goccy/go-json"

	"github.com/AFS-Neto/Steam-Extrator/pkg/cache"
	"github.com/AFS-Neto/Steam-Extrator/pkg/logger"
	"github.com/AFS-Neto/Steam-Extrator/pkg/metrics"
	"github.com/AFS-Neto/Steam-Extrator/pkg/parser"
	"github.com/AFS-Neto/Steam-Extrator/pkg/record"
	"github.com/AFS-Neto/Steam-Extrator/pkg/steamapi"
	"github.com/AFS-Neto/Steam-Extrator/pkg/worker"

	"go.uber.org/zap"
)

// Fetcher is the slice of the API client the enricher needs
type Fetcher interface {
	AppDetails(ctx context.Context, gameID string) (*steamapi.AppData, bool, error)
}

// Result reports one enrichment pass. Rows come back in game-id order.
// NotFound holds the ids the store reported success=false for; Failed counts
// lookups that errored outright. Both leave the pipeline running.
type Result struct {
	Rows     []record.GameMetadataRow
	NotFound []string
	Failed   int
}

// Enricher attaches store metadata to game ids, one lookup per id, reading
// through a cache so repeated runs skip calls the store already answered.
type Enricher struct {
	fetcher Fetcher
	cache   cache.Cache
	ttl     time.Duration
	workers int
	logger  *logger.Logger
}

// NewEnricher creates a new Enricher instance
func NewEnricher(f Fetcher, c cache.Cache, ttl time.Duration, workers int, l *logger.Logger) *Enricher {
	if workers < 1 {
		workers = 1
	}
	return &Enricher{fetcher: f, cache: c, ttl: ttl, workers: workers, logger: l}
}

type lookupOutcome struct {
	data  *steamapi.AppData
	found bool
}

// Enrich resolves metadata for the given game-id set. Ids are deduplicated
// and sorted first so the fan-out produces the same row order every run.
func (e *Enricher) Enrich(ctx context.Context, gameIDs []string, fetchedAt time.Time, runID string) (Result, error) {
	ids := dedupSorted(gameIDs)

	outcomes, err := worker.Map(ctx, e.workers, ids, e.lookup)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for i, outcome := range outcomes {
		id := ids[i]
		if outcome.Err != nil {
			e.logger.Warn("metadata lookup failed",
				zap.String("game_id", id),
				zap.Error(outcome.Err))
			res.Failed++
			continue
		}
		if !outcome.Value.found {
			metrics.MetadataSoftMissesTotal.Inc()
			res.NotFound = append(res.NotFound, id)
			continue
		}
		res.Rows = append(res.Rows, parser.MetadataRow(id, outcome.Value.data, fetchedAt, runID))
	}
	return res, nil
}

func (e *Enricher) lookup(ctx context.Context, gameID string) (lookupOutcome, error) {
	if data, ok := e.cacheGet(ctx, gameID); ok {
		metrics.MetadataCacheHitsTotal.Inc()
		return lookupOutcome{data: data, found: true}, nil
	}

	data, found, err := e.fetcher.AppDetails(ctx, gameID)
	if err != nil {
		return lookupOutcome{}, err
	}
	if !found {
		return lookupOutcome{found: false}, nil
	}

	e.cachePut(ctx, gameID, data)
	return lookupOutcome{data: data, found: true}, nil
}

func (e *Enricher) cacheGet(ctx context.Context, gameID string) (*steamapi.AppData, bool) {
	if e.cache == nil {
		return nil, false
	}
	payload, err := e.cache.Get(ctx, gameID)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			e.logger.Warn("metadata cache read failed", zap.String("game_id", gameID), zap.Error(err))
		}
		return nil, false
	}

	var data steamapi.AppData
	if err := json.Unmarshal(payload, &data); err != nil {
		e.logger.Warn("dropping undecodable cache entry", zap.String("game_id", gameID), zap.Error(err))
		e.cache.Delete(ctx, gameID)
		return nil, false
	}
	return &data, true
}

func (e *Enricher) cachePut(ctx context.Context, gameID string, data *steamapi.AppData) {
	if e.cache == nil {
		return
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	if err := e.cache.Set(ctx, gameID, payload, e.ttl); err != nil {
		e.logger.Warn("metadata cache write failed", zap.String("game_id", gameID), zap.Error(err))
	}
}

func dedupSorted(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

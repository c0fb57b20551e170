package extractor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/AFS-Neto/Steam-Extrator/pkg/enrich"
	"github.com/AFS-Neto/Steam-Extrator/pkg/logger"
	"github.com/AFS-Neto/Steam-Extrator/pkg/metrics"
	"github.com/AFS-Neto/Steam-Extrator/pkg/parser"
	"github.com/AFS-Neto/Steam-Extrator/pkg/record"
	"github.com/AFS-Neto/Steam-Extrator/pkg/steamapi"
	"github.com/AFS-Neto/Steam-Extrator/pkg/store"
	"github.com/AFS-Neto/Steam-Extrator/pkg/worker"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrPrivateProfile reports a non-public profile. The run halts before any
// raw write so the stores never see a snapshot the owner cannot vouch for.
var ErrPrivateProfile = errors.New("profile is private, cannot fetch games")

// ErrNoGames reports an absent owned-games list; fatal for the run for the
// same reason.
var ErrNoGames = errors.New("no games found for user")

// API is the slice of the Steam client the extractor consumes
type API interface {
	ResolveVanity(ctx context.Context, vanityName string) (string, error)
	PlayerSummary(ctx context.Context, steamID string) (steamapi.PlayerSummary, error)
	OwnedGames(ctx context.Context, steamID string) ([]steamapi.OwnedGame, error)
	PlayerAchievements(ctx context.Context, steamID string, appID int64) (steamapi.PlayerStats, error)
}

// Enricher resolves store metadata for a game-id set
type Enricher interface {
	Enrich(ctx context.Context, gameIDs []string, fetchedAt time.Time, runID string) (enrich.Result, error)
}

// Summary reports one extraction cycle
type Summary struct {
	RunID             string
	SteamID           string
	Games             int
	NoAchievementInfo int
	MetadataRows      int
	MetadataNotFound  int
}

// Service runs one extraction cycle: identify the user, fetch every
// snapshot, and append it all to the raw store. Reconciliation is a
// separate pass.
type Service struct {
	logger             *logger.Logger
	api                API
	raw                store.RawStore
	enricher           Enricher
	achievementWorkers int
}

// NewService creates a new extractor Service instance
func NewService(l *logger.Logger, api API, raw store.RawStore, enricher Enricher, achievementWorkers int) *Service {
	if achievementWorkers < 1 {
		achievementWorkers = 1
	}
	return &Service{
		logger:             l,
		api:                api,
		raw:                raw,
		enricher:           enricher,
		achievementWorkers: achievementWorkers,
	}
}

// Run executes the cycle for one user, identified either directly by
// SteamID64 or by vanity name.
func (s *Service) Run(ctx context.Context, steamID, vanityName string) (Summary, error) {
	runID := uuid.NewString()
	l := s.logger.With(zap.String("run_id", runID))

	if steamID == "" {
		resolved, err := s.api.ResolveVanity(ctx, vanityName)
		if err != nil {
			return Summary{}, fmt.Errorf("resolving vanity name %q: %w", vanityName, err)
		}
		steamID = resolved
	}
	l = l.With(zap.String("steamid", steamID))
	l.Info("starting extraction cycle")

	fetchedAt := time.Now().UTC()

	summary, err := s.api.PlayerSummary(ctx, steamID)
	if err != nil {
		return Summary{}, fmt.Errorf("fetching player summary: %w", err)
	}
	profile := parser.ProfileRow(summary, fetchedAt, runID)

	// Preconditions come before the first raw write: a private profile or an
	// absent game list must not leave a partial snapshot behind.
	if profile.CommunityVisibilityState != record.VisibilityPublic {
		return Summary{}, ErrPrivateProfile
	}

	games, err := s.api.OwnedGames(ctx, steamID)
	if err != nil {
		return Summary{}, fmt.Errorf("fetching owned games: %w", err)
	}
	if len(games) == 0 {
		return Summary{}, ErrNoGames
	}

	rows := parser.OwnedGameRows(steamID, games, fetchedAt, runID)
	l.Info("owned games fetched",
		zap.Int("library_size", len(games)),
		zap.Int("with_playtime", len(rows)))

	noInfo, err := s.applyAchievements(ctx, l, steamID, rows)
	if err != nil {
		return Summary{}, err
	}

	gameIDs := make([]string, len(rows))
	for i, row := range rows {
		gameIDs[i] = row.SteamGameID
	}
	enriched, err := s.enricher.Enrich(ctx, gameIDs, fetchedAt, runID)
	if err != nil {
		return Summary{}, fmt.Errorf("enriching metadata: %w", err)
	}
	l.Info("metadata enrichment finished",
		zap.Int("rows", len(enriched.Rows)),
		zap.Int("not_found", len(enriched.NotFound)),
		zap.Int("failed", enriched.Failed))

	if err := s.raw.AppendProfile(ctx, profile); err != nil {
		return Summary{}, fmt.Errorf("appending profile snapshot: %w", err)
	}
	metrics.RawRowsAppendedTotal.WithLabelValues(record.KindProfile.String()).Inc()

	if err := s.raw.AppendOwnedGames(ctx, rows); err != nil {
		return Summary{}, fmt.Errorf("appending collection snapshots: %w", err)
	}
	metrics.RawRowsAppendedTotal.WithLabelValues(record.KindCollection.String()).Add(float64(len(rows)))

	if err := s.raw.AppendMetadata(ctx, enriched.Rows); err != nil {
		return Summary{}, fmt.Errorf("appending metadata snapshots: %w", err)
	}
	metrics.RawRowsAppendedTotal.WithLabelValues(record.KindMetadata.String()).Add(float64(len(enriched.Rows)))

	l.Info("extraction cycle finished",
		zap.Int("games", len(rows)),
		zap.Int("games_without_achievement_info", noInfo))

	return Summary{
		RunID:             runID,
		SteamID:           steamID,
		Games:             len(rows),
		NoAchievementInfo: noInfo,
		MetadataRows:      len(enriched.Rows),
		MetadataNotFound:  len(enriched.NotFound),
	}, nil
}

// applyAchievements fans the per-game achievement lookups out over a bounded
// worker set and folds the totals back into the rows in place. A failed
// lookup leaves the row at (0, 0) and is counted, not fatal.
func (s *Service) applyAchievements(ctx context.Context, l *logger.Logger, steamID string, rows []record.OwnedGameRow) (int, error) {
	results, err := worker.Map(ctx, s.achievementWorkers, rows, func(ctx context.Context, row record.OwnedGameRow) (steamapi.PlayerStats, error) {
		appID, err := strconv.ParseInt(row.SteamGameID, 10, 64)
		if err != nil {
			return steamapi.PlayerStats{}, fmt.Errorf("invalid game id %q: %w", row.SteamGameID, err)
		}
		return s.api.PlayerAchievements(ctx, steamID, appID)
	})
	if err != nil {
		return 0, err
	}

	noInfo := 0
	for i, res := range results {
		if res.Err != nil {
			l.Warn("no achievement information for game",
				zap.String("game_id", rows[i].SteamGameID),
				zap.Error(res.Err))
			noInfo++
			continue
		}
		total, unlocked := parser.AchievementTotals(res.Value)
		rows[i].TotalAchievements = total
		rows[i].UnlockedAchievements = unlocked
	}
	return noInfo, nil
}

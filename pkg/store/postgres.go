package store

import (
	"context"
	"fmt"
	"time"

	"github.com/AFS-Neto/Steam-Extrator/pkg/logger"
	"github.com/AFS-Neto/Steam-Extrator/pkg/record"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PostgresConfig holds database connection settings
type PostgresConfig struct {
	URI      string
	MinConns int32
	MaxConns int32
}

// PostgresTrustedStore implements TrustedStore on pgxpool for deployments
// where the trusted dataset outlives a single machine.
type PostgresTrustedStore struct {
	pool   *pgxpool.Pool
	logger *logger.Logger
}

// NewPostgresTrustedStore creates the pool, verifies the connection, and
// ensures the tables exist. A table-creation failure is logged, not fatal.
func NewPostgresTrustedStore(ctx context.Context, cfg PostgresConfig, l *logger.Logger) (*PostgresTrustedStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URI)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresTrustedStore{pool: pool, logger: l}
	if err := s.createTables(ctx); err != nil {
		l.Error("failed to create trusted tables", err)
	}
	return s, nil
}

func (s *PostgresTrustedStore) createTables(ctx context.Context) error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS profile_data (
		steamid TEXT PRIMARY KEY,
		communityvisibilitystate INT,
		profilestate INT,
		avatarhash TEXT,
		personaname TEXT,
		profileurl TEXT,
		timecreated TIMESTAMPTZ,
		lastlogoff TIMESTAMPTZ,
		loccountrycode TEXT,
		avatarmedium TEXT,
		dh_updated TIMESTAMPTZ
	);

	CREATE TABLE IF NOT EXISTS collection_game_data (
		steam_user_id TEXT,
		steam_game_id TEXT,
		name TEXT,
		last_played_timestamp TIMESTAMPTZ,
		playtime_forever INT,
		img_game_cover_url TEXT,
		playtime_2weeks DOUBLE PRECISION,
		total_achievements INT,
		total_achievements_unlocked INT,
		dh_updated TIMESTAMPTZ,
		PRIMARY KEY (steam_user_id, steam_game_id)
	);

	CREATE TABLE IF NOT EXISTS game_metadata (
		steam_game_id TEXT PRIMARY KEY,
		name TEXT,
		required_age INT,
		is_free BOOLEAN,
		dlc TEXT,
		about_the_game TEXT,
		short_description TEXT,
		supported_languages TEXT,
		header_image TEXT,
		website TEXT,
		developers TEXT,
		publishers TEXT,
		genres TEXT,
		categories TEXT,
		media TEXT,
		dh_updated TIMESTAMPTZ
	);
	`
	_, err := s.pool.Exec(ctx, ddl)
	return err
}

// UpsertProfiles applies the batch in one transaction under the
// dh_updated-only conflict rule.
func (s *PostgresTrustedStore) UpsertProfiles(ctx context.Context, rows []record.ProfileRow) (UpsertStats, error) {
	const query = `
		INSERT INTO profile_data (
			steamid, communityvisibilitystate, profilestate, avatarhash,
			personaname, profileurl, timecreated, lastlogoff, loccountrycode,
			avatarmedium, dh_updated
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (steamid) DO UPDATE SET
			dh_updated = EXCLUDED.dh_updated
		RETURNING (xmax = 0) AS inserted`

	return s.upsertBatch(ctx, record.KindProfile, len(rows), func(tx pgx.Tx, i int) (string, bool, error) {
		row := rows[i]
		var inserted bool
		err := tx.QueryRow(ctx, query,
			row.SteamID, row.CommunityVisibilityState, row.ProfileState, row.AvatarHash,
			row.PersonaName, row.ProfileURL, row.TimeCreated, row.LastLogoff,
			row.LocCountryCode, row.AvatarMedium, row.DHUpdated).Scan(&inserted)
		return row.NaturalKey(), inserted, err
	})
}

// UpsertOwnedGames applies the batch keyed by (steam_user_id, steam_game_id).
func (s *PostgresTrustedStore) UpsertOwnedGames(ctx context.Context, rows []record.OwnedGameRow) (UpsertStats, error) {
	const query = `
		INSERT INTO collection_game_data (
			steam_user_id, steam_game_id, name, last_played_timestamp,
			playtime_forever, img_game_cover_url, playtime_2weeks,
			total_achievements, total_achievements_unlocked, dh_updated
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (steam_user_id, steam_game_id) DO UPDATE SET
			dh_updated = EXCLUDED.dh_updated
		RETURNING (xmax = 0) AS inserted`

	return s.upsertBatch(ctx, record.KindCollection, len(rows), func(tx pgx.Tx, i int) (string, bool, error) {
		row := rows[i]
		var inserted bool
		err := tx.QueryRow(ctx, query,
			row.SteamUserID, row.SteamGameID, row.Name, row.LastPlayed,
			row.PlaytimeForever, row.ImgGameCoverURL, row.Playtime2Weeks,
			row.TotalAchievements, row.UnlockedAchievements, row.DHUpdated).Scan(&inserted)
		return row.NaturalKey(), inserted, err
	})
}

// UpsertMetadata applies the batch keyed by steam_game_id.
func (s *PostgresTrustedStore) UpsertMetadata(ctx context.Context, rows []record.GameMetadataRow) (UpsertStats, error) {
	const query = `
		INSERT INTO game_metadata (
			steam_game_id, name, required_age, is_free, dlc, about_the_game,
			short_description, supported_languages, header_image, website,
			developers, publishers, genres, categories, media, dh_updated
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (steam_game_id) DO UPDATE SET
			dh_updated = EXCLUDED.dh_updated
		RETURNING (xmax = 0) AS inserted`

	return s.upsertBatch(ctx, record.KindMetadata, len(rows), func(tx pgx.Tx, i int) (string, bool, error) {
		row := rows[i]
		var inserted bool
		err := tx.QueryRow(ctx, query,
			row.SteamGameID, row.Name, row.RequiredAge, row.IsFree, row.DLC,
			row.AboutTheGame, row.ShortDescription, row.SupportedLanguages,
			row.HeaderImage, row.Website, row.Developers, row.Publishers,
			row.Genres, row.Categories, row.Media, row.DHUpdated).Scan(&inserted)
		return row.SteamGameID, inserted, err
	})
}

// upsertBatch runs one transaction over n rows. Each row executes inside a
// savepoint so a failed row is rolled back and skipped without poisoning
// the transaction.
func (s *PostgresTrustedStore) upsertBatch(ctx context.Context, kind record.Kind, n int, exec func(pgx.Tx, int) (string, bool, error)) (UpsertStats, error) {
	var stats UpsertStats
	if n == 0 {
		return stats, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for i := 0; i < n; i++ {
		if _, err := tx.Exec(ctx, "SAVEPOINT row_sp"); err != nil {
			return stats, fmt.Errorf("failed to create savepoint: %w", err)
		}

		key, inserted, err := exec(tx, i)
		if err != nil {
			if _, rbErr := tx.Exec(ctx, "ROLLBACK TO SAVEPOINT row_sp"); rbErr != nil {
				return stats, fmt.Errorf("failed to roll back savepoint: %w", rbErr)
			}
			s.logger.Warn("skipping row that failed to upsert",
				zap.String("kind", kind.String()),
				zap.String("key", key),
				zap.Error(err))
			stats.Skipped++
			continue
		}

		status := "updated"
		if inserted {
			status = "inserted"
		}
		s.logger.Debug("upsert complete", zap.String("key", key), zap.String("status", status))
		stats.Upserted++
	}

	if err := tx.Commit(ctx); err != nil {
		return UpsertStats{}, fmt.Errorf("failed to commit upsert batch: %w", err)
	}
	return stats, nil
}

// Profiles returns the current trusted profile rows
func (s *PostgresTrustedStore) Profiles(ctx context.Context) ([]record.ProfileRow, error) {
	const query = `
		SELECT steamid, communityvisibilitystate, profilestate, avatarhash,
		       personaname, profileurl, timecreated, lastlogoff, loccountrycode,
		       avatarmedium, dh_updated
		FROM profile_data ORDER BY steamid`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read trusted profiles: %w", err)
	}
	defer rows.Close()

	var out []record.ProfileRow
	for rows.Next() {
		var r record.ProfileRow
		if err := rows.Scan(&r.SteamID, &r.CommunityVisibilityState, &r.ProfileState,
			&r.AvatarHash, &r.PersonaName, &r.ProfileURL, &r.TimeCreated, &r.LastLogoff,
			&r.LocCountryCode, &r.AvatarMedium, &r.DHUpdated); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// OwnedGames returns the current trusted collection rows
func (s *PostgresTrustedStore) OwnedGames(ctx context.Context) ([]record.OwnedGameRow, error) {
	const query = `
		SELECT steam_user_id, steam_game_id, name, last_played_timestamp,
		       playtime_forever, img_game_cover_url, playtime_2weeks,
		       total_achievements, total_achievements_unlocked, dh_updated
		FROM collection_game_data ORDER BY steam_user_id, steam_game_id`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read trusted collection: %w", err)
	}
	defer rows.Close()

	var out []record.OwnedGameRow
	for rows.Next() {
		var r record.OwnedGameRow
		if err := rows.Scan(&r.SteamUserID, &r.SteamGameID, &r.Name, &r.LastPlayed,
			&r.PlaytimeForever, &r.ImgGameCoverURL, &r.Playtime2Weeks,
			&r.TotalAchievements, &r.UnlockedAchievements, &r.DHUpdated); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Metadata returns the current trusted metadata rows
func (s *PostgresTrustedStore) Metadata(ctx context.Context) ([]record.GameMetadataRow, error) {
	const query = `
		SELECT steam_game_id, name, required_age, is_free, dlc, about_the_game,
		       short_description, supported_languages, header_image, website,
		       developers, publishers, genres, categories, media, dh_updated
		FROM game_metadata ORDER BY steam_game_id`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read trusted metadata: %w", err)
	}
	defer rows.Close()

	var out []record.GameMetadataRow
	for rows.Next() {
		var r record.GameMetadataRow
		if err := rows.Scan(&r.SteamGameID, &r.Name, &r.RequiredAge, &r.IsFree,
			&r.DLC, &r.AboutTheGame, &r.ShortDescription, &r.SupportedLanguages,
			&r.HeaderImage, &r.Website, &r.Developers, &r.Publishers,
			&r.Genres, &r.Categories, &r.Media, &r.DHUpdated); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the pool
func (s *PostgresTrustedStore) Close(ctx context.Context) error {
	s.pool.Close()
	return nil
}

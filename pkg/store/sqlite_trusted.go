package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/AFS-Neto/Steam-Extrator/pkg/logger"
	"github.com/AFS-Neto/Steam-Extrator/pkg/record"

	"go.uber.org/zap"
)

// SQLiteTrustedStore is the default trusted backend. One row per natural key,
// enforced by primary-key constraints; conflicts advance dh_updated only.
type SQLiteTrustedStore struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *logger.Logger
}

// NewSQLiteTrustedStore opens (or creates) the trusted database and ensures
// the tables exist. A table-creation failure is logged but does not abort.
func NewSQLiteTrustedStore(path string, l *logger.Logger) (*SQLiteTrustedStore, error) {
	db, err := openSQLite(path)
	if err != nil {
		return nil, err
	}

	s := &SQLiteTrustedStore{db: db, logger: l}
	if err := s.createTables(); err != nil {
		l.Error("failed to create trusted tables", err, zap.String("path", path))
	}
	return s, nil
}

func (s *SQLiteTrustedStore) createTables() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS profile_data (
		steamid TEXT,
		communityvisibilitystate INTEGER,
		profilestate INTEGER,
		avatarhash TEXT,
		personaname TEXT,
		profileurl TEXT,
		timecreated DATETIME,
		lastlogoff DATETIME,
		loccountrycode TEXT,
		avatarmedium TEXT,
		dh_updated DATETIME,
		PRIMARY KEY (steamid)
	);

	CREATE TABLE IF NOT EXISTS collection_game_data (
		steam_user_id TEXT,
		steam_game_id TEXT,
		name TEXT,
		last_played_timestamp DATETIME,
		playtime_forever INTEGER,
		img_game_cover_url TEXT,
		playtime_2weeks REAL,
		total_achievements INTEGER,
		total_achievements_unlocked INTEGER,
		dh_updated DATETIME,
		PRIMARY KEY (steam_user_id, steam_game_id)
	);

	CREATE TABLE IF NOT EXISTS game_metadata (
		steam_game_id TEXT PRIMARY KEY,
		name TEXT,
		required_age INTEGER,
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
		dh_updated DATETIME
	);
	`
	_, err := s.db.Exec(ddl)
	return err
}

// UpsertProfiles applies the batch in one transaction. Existing keys keep
// every attribute value from their first insert; only dh_updated advances.
func (s *SQLiteTrustedStore) UpsertProfiles(ctx context.Context, rows []record.ProfileRow) (UpsertStats, error) {
	const query = `
		INSERT INTO profile_data (
			steamid, communityvisibilitystate, profilestate, avatarhash,
			personaname, profileurl, timecreated, lastlogoff, loccountrycode,
			avatarmedium, dh_updated
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(steamid) DO UPDATE SET
			dh_updated = excluded.dh_updated`

	return s.upsertBatch(ctx, record.KindProfile, len(rows), func(stmt *sql.Stmt, i int) (string, error) {
		row := rows[i]
		_, err := stmt.ExecContext(ctx,
			row.SteamID, row.CommunityVisibilityState, row.ProfileState, row.AvatarHash,
			row.PersonaName, row.ProfileURL, fmtTimePtr(row.TimeCreated), fmtTimePtr(row.LastLogoff),
			row.LocCountryCode, row.AvatarMedium, fmtTime(row.DHUpdated))
		return row.NaturalKey(), err
	}, query)
}

// UpsertOwnedGames applies the batch under the same conflict rule, keyed by
// (steam_user_id, steam_game_id).
func (s *SQLiteTrustedStore) UpsertOwnedGames(ctx context.Context, rows []record.OwnedGameRow) (UpsertStats, error) {
	const query = `
		INSERT INTO collection_game_data (
			steam_user_id, steam_game_id, name, last_played_timestamp,
			playtime_forever, img_game_cover_url, playtime_2weeks,
			total_achievements, total_achievements_unlocked, dh_updated
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(steam_user_id, steam_game_id) DO UPDATE SET
			dh_updated = excluded.dh_updated`

	return s.upsertBatch(ctx, record.KindCollection, len(rows), func(stmt *sql.Stmt, i int) (string, error) {
		row := rows[i]
		_, err := stmt.ExecContext(ctx,
			row.SteamUserID, row.SteamGameID, row.Name, fmtTimePtr(row.LastPlayed),
			row.PlaytimeForever, row.ImgGameCoverURL, row.Playtime2Weeks,
			row.TotalAchievements, row.UnlockedAchievements, fmtTime(row.DHUpdated))
		return row.NaturalKey(), err
	}, query)
}

// UpsertMetadata applies the batch under the same conflict rule, keyed by
// steam_game_id.
func (s *SQLiteTrustedStore) UpsertMetadata(ctx context.Context, rows []record.GameMetadataRow) (UpsertStats, error) {
	const query = `
		INSERT INTO game_metadata (
			steam_game_id, name, required_age, is_free, dlc, about_the_game,
			short_description, supported_languages, header_image, website,
			developers, publishers, genres, categories, media, dh_updated
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(steam_game_id) DO UPDATE SET
			dh_updated = excluded.dh_updated`

	return s.upsertBatch(ctx, record.KindMetadata, len(rows), func(stmt *sql.Stmt, i int) (string, error) {
		row := rows[i]
		_, err := stmt.ExecContext(ctx,
			row.SteamGameID, row.Name, row.RequiredAge, row.IsFree, row.DLC,
			row.AboutTheGame, row.ShortDescription, row.SupportedLanguages,
			row.HeaderImage, row.Website, row.Developers, row.Publishers,
			row.Genres, row.Categories, row.Media, fmtTime(row.DHUpdated))
		return row.SteamGameID, err
	}, query)
}

// upsertBatch runs one transaction over n rows. A failed row is logged and
// skipped; it never aborts the rest of the batch.
func (s *SQLiteTrustedStore) upsertBatch(ctx context.Context, kind record.Kind, n int, exec func(*sql.Stmt, int) (string, error), query string) (UpsertStats, error) {
	var stats UpsertStats
	if n == 0 {
		return stats, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return stats, fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		key, err := exec(stmt, i)
		if err != nil {
			s.logger.Warn("skipping row that failed to upsert",
				zap.String("kind", kind.String()),
				zap.String("key", key),
				zap.Error(err))
			stats.Skipped++
			continue
		}
		stats.Upserted++
	}

	if err := tx.Commit(); err != nil {
		return UpsertStats{}, fmt.Errorf("failed to commit upsert batch: %w", err)
	}
	return stats, nil
}

// Profiles returns the current trusted profile rows
func (s *SQLiteTrustedStore) Profiles(ctx context.Context) ([]record.ProfileRow, error) {
	const query = `
		SELECT steamid, communityvisibilitystate, profilestate, avatarhash,
		       personaname, profileurl, timecreated, lastlogoff, loccountrycode,
		       avatarmedium, dh_updated
		FROM profile_data ORDER BY steamid`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read trusted profiles: %w", err)
	}
	defer rows.Close()

	var out []record.ProfileRow
	for rows.Next() {
		var r record.ProfileRow
		var persona, timeCreated, lastLogoff, country, dhUpdated sql.NullString
		if err := rows.Scan(&r.SteamID, &r.CommunityVisibilityState, &r.ProfileState,
			&r.AvatarHash, &persona, &r.ProfileURL, &timeCreated, &lastLogoff,
			&country, &r.AvatarMedium, &dhUpdated); err != nil {
			return nil, err
		}
		r.PersonaName = strPtr(persona)
		r.TimeCreated = parseTimePtr(timeCreated)
		r.LastLogoff = parseTimePtr(lastLogoff)
		r.LocCountryCode = strPtr(country)
		r.DHUpdated = parseTime(dhUpdated.String)
		out = append(out, r)
	}
	return out, rows.Err()
}

// OwnedGames returns the current trusted collection rows
func (s *SQLiteTrustedStore) OwnedGames(ctx context.Context) ([]record.OwnedGameRow, error) {
	const query = `
		SELECT steam_user_id, steam_game_id, name, last_played_timestamp,
		       playtime_forever, img_game_cover_url, playtime_2weeks,
		       total_achievements, total_achievements_unlocked, dh_updated
		FROM collection_game_data ORDER BY steam_user_id, steam_game_id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read trusted collection: %w", err)
	}
	defer rows.Close()

	var out []record.OwnedGameRow
	for rows.Next() {
		var r record.OwnedGameRow
		var lastPlayed, dhUpdated sql.NullString
		var twoWeeks sql.NullFloat64
		if err := rows.Scan(&r.SteamUserID, &r.SteamGameID, &r.Name, &lastPlayed,
			&r.PlaytimeForever, &r.ImgGameCoverURL, &twoWeeks,
			&r.TotalAchievements, &r.UnlockedAchievements, &dhUpdated); err != nil {
			return nil, err
		}
		r.LastPlayed = parseTimePtr(lastPlayed)
		r.Playtime2Weeks = floatPtr(twoWeeks)
		r.DHUpdated = parseTime(dhUpdated.String)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Metadata returns the current trusted metadata rows
func (s *SQLiteTrustedStore) Metadata(ctx context.Context) ([]record.GameMetadataRow, error) {
	const query = `
		SELECT steam_game_id, name, required_age, is_free, dlc, about_the_game,
		       short_description, supported_languages, header_image, website,
		       developers, publishers, genres, categories, media, dh_updated
		FROM game_metadata ORDER BY steam_game_id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read trusted metadata: %w", err)
	}
	defer rows.Close()

	var out []record.GameMetadataRow
	for rows.Next() {
		var r record.GameMetadataRow
		var dlc, about, short, langs, header, website, devs, pubs, genres, cats, media sql.NullString
		var dhUpdated sql.NullString
		if err := rows.Scan(&r.SteamGameID, &r.Name, &r.RequiredAge, &r.IsFree,
			&dlc, &about, &short, &langs, &header, &website, &devs, &pubs,
			&genres, &cats, &media, &dhUpdated); err != nil {
			return nil, err
		}
		r.DLC = strPtr(dlc)
		r.AboutTheGame = strPtr(about)
		r.ShortDescription = strPtr(short)
		r.SupportedLanguages = strPtr(langs)
		r.HeaderImage = strPtr(header)
		r.Website = strPtr(website)
		r.Developers = strPtr(devs)
		r.Publishers = strPtr(pubs)
		r.Genres = strPtr(genres)
		r.Categories = strPtr(cats)
		r.Media = strPtr(media)
		r.DHUpdated = parseTime(dhUpdated.String)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the database
func (s *SQLiteTrustedStore) Close(ctx context.Context) error {
	return s.db.Close()
}

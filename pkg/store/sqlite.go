package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/AFS-Neto/Steam-Extrator/pkg/logger"
	"github.com/AFS-Neto/Steam-Extrator/pkg/record"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // pure Go SQLite driver, no CGO required
)

const timeLayout = time.RFC3339Nano

func openSQLite(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// SQLite supports a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	return db, nil
}

func fmtTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func fmtTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return fmtTime(*t)
}

func parseTime(s string) time.Time {
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t
	}
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func parseTimePtr(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func floatPtr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	f := nf.Float64
	return &f
}

// SQLiteRawStore is the default raw backend, one append-only table per
// entity kind with an autoincrement seq column.
type SQLiteRawStore struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *logger.Logger
}

// NewSQLiteRawStore opens (or creates) the raw database and ensures the
// tables exist. A table-creation failure is logged but does not abort:
// later appends will then fail loudly.
func NewSQLiteRawStore(path string, l *logger.Logger) (*SQLiteRawStore, error) {
	db, err := openSQLite(path)
	if err != nil {
		return nil, err
	}

	s := &SQLiteRawStore{db: db, logger: l}
	if err := s.createTables(); err != nil {
		l.Error("failed to create raw tables", err, zap.String("path", path))
	}
	return s, nil
}

func (s *SQLiteRawStore) createTables() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS profile_data (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		steamid TEXT NOT NULL,
		communityvisibilitystate INTEGER,
		profilestate INTEGER,
		avatarhash TEXT,
		personaname TEXT,
		profileurl TEXT,
		timecreated DATETIME,
		lastlogoff DATETIME,
		loccountrycode TEXT,
		avatarmedium TEXT,
		dh_updated DATETIME NOT NULL,
		run_id TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_profile_steamid ON profile_data(steamid);

	CREATE TABLE IF NOT EXISTS collection_game_data (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		steam_user_id TEXT NOT NULL,
		steam_game_id TEXT NOT NULL,
		name TEXT,
		last_played_timestamp DATETIME,
		playtime_forever INTEGER,
		img_game_cover_url TEXT,
		playtime_2weeks REAL,
		total_achievements INTEGER,
		total_achievements_unlocked INTEGER,
		dh_updated DATETIME NOT NULL,
		run_id TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_collection_key ON collection_game_data(steam_user_id, steam_game_id);

	CREATE TABLE IF NOT EXISTS game_metadata (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		steam_game_id TEXT NOT NULL,
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
		dh_updated DATETIME NOT NULL,
		run_id TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_metadata_game ON game_metadata(steam_game_id);
	`
	_, err := s.db.Exec(ddl)
	return err
}

// AppendProfile appends one profile snapshot
func (s *SQLiteRawStore) AppendProfile(ctx context.Context, row record.ProfileRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	const query = `
		INSERT INTO profile_data (
			steamid, communityvisibilitystate, profilestate, avatarhash,
			personaname, profileurl, timecreated, lastlogoff, loccountrycode,
			avatarmedium, dh_updated, run_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		row.SteamID, row.CommunityVisibilityState, row.ProfileState, row.AvatarHash,
		row.PersonaName, row.ProfileURL, fmtTimePtr(row.TimeCreated), fmtTimePtr(row.LastLogoff),
		row.LocCountryCode, row.AvatarMedium, fmtTime(row.DHUpdated), row.RunID)
	if err != nil {
		return fmt.Errorf("failed to append profile snapshot: %w", err)
	}
	return nil
}

// AppendOwnedGames appends a batch of collection snapshots in one transaction
func (s *SQLiteRawStore) AppendOwnedGames(ctx context.Context, rows []record.OwnedGameRow) error {
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO collection_game_data (
			steam_user_id, steam_game_id, name, last_played_timestamp,
			playtime_forever, img_game_cover_url, playtime_2weeks,
			total_achievements, total_achievements_unlocked, dh_updated, run_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		_, err := stmt.ExecContext(ctx,
			row.SteamUserID, row.SteamGameID, row.Name, fmtTimePtr(row.LastPlayed),
			row.PlaytimeForever, row.ImgGameCoverURL, row.Playtime2Weeks,
			row.TotalAchievements, row.UnlockedAchievements, fmtTime(row.DHUpdated), row.RunID)
		if err != nil {
			return fmt.Errorf("failed to append collection snapshot %s: %w", row.NaturalKey(), err)
		}
	}
	return tx.Commit()
}

// AppendMetadata appends a batch of metadata snapshots in one transaction
func (s *SQLiteRawStore) AppendMetadata(ctx context.Context, rows []record.GameMetadataRow) error {
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO game_metadata (
			steam_game_id, name, required_age, is_free, dlc, about_the_game,
			short_description, supported_languages, header_image, website,
			developers, publishers, genres, categories, media, dh_updated, run_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		_, err := stmt.ExecContext(ctx,
			row.SteamGameID, row.Name, row.RequiredAge, row.IsFree, row.DLC,
			row.AboutTheGame, row.ShortDescription, row.SupportedLanguages,
			row.HeaderImage, row.Website, row.Developers, row.Publishers,
			row.Genres, row.Categories, row.Media, fmtTime(row.DHUpdated), row.RunID)
		if err != nil {
			return fmt.Errorf("failed to append metadata snapshot %s: %w", row.SteamGameID, err)
		}
	}
	return tx.Commit()
}

// Profiles returns every profile snapshot ever appended, oldest seq first
func (s *SQLiteRawStore) Profiles(ctx context.Context) ([]record.ProfileRow, error) {
	const query = `
		SELECT seq, steamid, communityvisibilitystate, profilestate, avatarhash,
		       personaname, profileurl, timecreated, lastlogoff, loccountrycode,
		       avatarmedium, dh_updated, run_id
		FROM profile_data ORDER BY seq`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read raw profiles: %w", err)
	}
	defer rows.Close()

	var out []record.ProfileRow
	for rows.Next() {
		var r record.ProfileRow
		var persona, timeCreated, lastLogoff, country, dhUpdated, runID sql.NullString
		if err := rows.Scan(&r.Seq, &r.SteamID, &r.CommunityVisibilityState, &r.ProfileState,
			&r.AvatarHash, &persona, &r.ProfileURL, &timeCreated, &lastLogoff,
			&country, &r.AvatarMedium, &dhUpdated, &runID); err != nil {
			return nil, err
		}
		r.PersonaName = strPtr(persona)
		r.TimeCreated = parseTimePtr(timeCreated)
		r.LastLogoff = parseTimePtr(lastLogoff)
		r.LocCountryCode = strPtr(country)
		r.DHUpdated = parseTime(dhUpdated.String)
		r.RunID = runID.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// OwnedGames returns every collection snapshot ever appended, oldest seq first
func (s *SQLiteRawStore) OwnedGames(ctx context.Context) ([]record.OwnedGameRow, error) {
	const query = `
		SELECT seq, steam_user_id, steam_game_id, name, last_played_timestamp,
		       playtime_forever, img_game_cover_url, playtime_2weeks,
		       total_achievements, total_achievements_unlocked, dh_updated, run_id
		FROM collection_game_data ORDER BY seq`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read raw collection: %w", err)
	}
	defer rows.Close()

	var out []record.OwnedGameRow
	for rows.Next() {
		var r record.OwnedGameRow
		var lastPlayed, dhUpdated, runID sql.NullString
		var twoWeeks sql.NullFloat64
		if err := rows.Scan(&r.Seq, &r.SteamUserID, &r.SteamGameID, &r.Name, &lastPlayed,
			&r.PlaytimeForever, &r.ImgGameCoverURL, &twoWeeks,
			&r.TotalAchievements, &r.UnlockedAchievements, &dhUpdated, &runID); err != nil {
			return nil, err
		}
		r.LastPlayed = parseTimePtr(lastPlayed)
		r.Playtime2Weeks = floatPtr(twoWeeks)
		r.DHUpdated = parseTime(dhUpdated.String)
		r.RunID = runID.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// Metadata returns every metadata snapshot ever appended, oldest seq first
func (s *SQLiteRawStore) Metadata(ctx context.Context) ([]record.GameMetadataRow, error) {
	const query = `
		SELECT seq, steam_game_id, name, required_age, is_free, dlc, about_the_game,
		       short_description, supported_languages, header_image, website,
		       developers, publishers, genres, categories, media, dh_updated, run_id
		FROM game_metadata ORDER BY seq`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read raw metadata: %w", err)
	}
	defer rows.Close()

	var out []record.GameMetadataRow
	for rows.Next() {
		var r record.GameMetadataRow
		var dlc, about, short, langs, header, website, devs, pubs, genres, cats, media sql.NullString
		var dhUpdated, runID sql.NullString
		if err := rows.Scan(&r.Seq, &r.SteamGameID, &r.Name, &r.RequiredAge, &r.IsFree,
			&dlc, &about, &short, &langs, &header, &website, &devs, &pubs,
			&genres, &cats, &media, &dhUpdated, &runID); err != nil {
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
		r.RunID = runID.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the database
func (s *SQLiteRawStore) Close(ctx context.Context) error {
	return s.db.Close()
}

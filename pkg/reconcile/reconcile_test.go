package reconcile

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/AFS-Neto/Steam-Extrator/pkg/logger"
	"github.com/AFS-Neto/Steam-Extrator/pkg/record"
	"github.com/AFS-Neto/Steam-Extrator/pkg/store"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(logger.Config{
		Level:       "error",
		Environment: "development",
		ServiceName: "test",
	})
	require.NoError(t, err)
	return l
}

func gameRow(userID, gameID string, playtime int, fetchedAt time.Time, seq int64) record.OwnedGameRow {
	return record.OwnedGameRow{
		SteamUserID:     userID,
		SteamGameID:     gameID,
		Name:            "game " + gameID,
		PlaytimeForever: playtime,
		DHUpdated:       fetchedAt,
		Seq:             seq,
	}
}

func TestDedupLatestWins(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	rows := []record.OwnedGameRow{
		gameRow("user", "440", 100, base, 1),
		gameRow("user", "440", 300, base.Add(2*time.Hour), 3),
		gameRow("user", "440", 200, base.Add(time.Hour), 2),
	}

	out := Dedup(rows)
	require.Len(t, out, 1)
	assert.Equal(t, 300, out[0].PlaytimeForever)
	assert.Equal(t, int64(3), out[0].Seq)
}

func TestDedupTieBreaksOnSequence(t *testing.T) {
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	// Identical fetch timestamps: the later append wins.
	rows := []record.OwnedGameRow{
		gameRow("user", "440", 100, ts, 7),
		gameRow("user", "440", 999, ts, 12),
		gameRow("user", "440", 200, ts, 9),
	}

	out := Dedup(rows)
	require.Len(t, out, 1)
	assert.Equal(t, int64(12), out[0].Seq)
	assert.Equal(t, 999, out[0].PlaytimeForever)
}

func TestDedupProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	genRows := gen.SliceOf(gopter.CombineGens(
		gen.IntRange(0, 4),   // key index
		gen.IntRange(0, 100), // hour offset
		gen.IntRange(1, 500), // playtime
	).Map(func(vals []interface{}) record.OwnedGameRow {
		keys := []string{"10", "440", "570", "730", "945360"}
		return record.OwnedGameRow{
			SteamUserID:     "user",
			SteamGameID:     keys[vals[0].(int)],
			PlaytimeForever: vals[2].(int),
			DHUpdated:       base.Add(time.Duration(vals[1].(int)) * time.Hour),
		}
	}))

	properties.Property("output has one row per natural key, sorted", prop.ForAll(
		func(rows []record.OwnedGameRow) bool {
			for i := range rows {
				rows[i].Seq = int64(i + 1)
			}
			out := Dedup(rows)

			seen := make(map[string]bool)
			for i, r := range out {
				if seen[r.NaturalKey()] {
					return false
				}
				seen[r.NaturalKey()] = true
				if i > 0 && out[i-1].NaturalKey() >= r.NaturalKey() {
					return false
				}
			}
			return true
		},
		genRows,
	))

	properties.Property("winner carries the maximum fetch timestamp of its key", prop.ForAll(
		func(rows []record.OwnedGameRow) bool {
			for i := range rows {
				rows[i].Seq = int64(i + 1)
			}
			out := Dedup(rows)

			maxTS := make(map[string]time.Time)
			for _, r := range rows {
				if r.DHUpdated.After(maxTS[r.NaturalKey()]) {
					maxTS[r.NaturalKey()] = r.DHUpdated
				}
			}
			for _, r := range out {
				if !r.DHUpdated.Equal(maxTS[r.NaturalKey()]) {
					return false
				}
			}
			return true
		},
		genRows,
	))

	properties.Property("dedup is idempotent", prop.ForAll(
		func(rows []record.OwnedGameRow) bool {
			for i := range rows {
				rows[i].Seq = int64(i + 1)
			}
			once := Dedup(rows)
			twice := Dedup(once)
			if len(once) != len(twice) {
				return false
			}
			for i := range once {
				if once[i] != twice[i] {
					return false
				}
			}
			return true
		},
		genRows,
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func newTestStores(t *testing.T) (store.RawStore, store.TrustedStore) {
	t.Helper()
	l := testLogger(t)
	dir := t.TempDir()

	raw, err := store.NewSQLiteRawStore(filepath.Join(dir, "raw.db"), l)
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close(context.Background()) })

	trusted, err := store.NewSQLiteTrustedStore(filepath.Join(dir, "trusted.db"), l)
	require.NoError(t, err)
	t.Cleanup(func() { trusted.Close(context.Background()) })

	return raw, trusted
}

// Two extraction cycles observe different playtimes for the same game. The
// trusted row keeps the attribute values from its first insert; only the
// freshness timestamp follows the latest snapshot.
func TestReconcileFreezesAttributesAfterFirstInsert(t *testing.T) {
	ctx := context.Background()
	raw, trusted := newTestStores(t)
	engine := NewEngine(raw, trusted, testLogger(t))

	const userID = "76561199490364483"
	cycle1 := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	cycle2 := cycle1.Add(24 * time.Hour)

	require.NoError(t, raw.AppendOwnedGames(ctx, []record.OwnedGameRow{
		gameRow(userID, "440", 120, cycle1, 0),
	}))

	_, err := engine.Run(ctx)
	require.NoError(t, err)

	require.NoError(t, raw.AppendOwnedGames(ctx, []record.OwnedGameRow{
		gameRow(userID, "440", 180, cycle2, 0),
	}))

	_, err = engine.Run(ctx)
	require.NoError(t, err)

	games, err := trusted.OwnedGames(ctx)
	require.NoError(t, err)
	require.Len(t, games, 1)

	assert.Equal(t, userID, games[0].SteamUserID)
	assert.Equal(t, "440", games[0].SteamGameID)
	assert.Equal(t, 120, games[0].PlaytimeForever, "first observed playtime must survive later snapshots")
	assert.True(t, games[0].DHUpdated.Equal(cycle2), "freshness timestamp must follow the latest snapshot")
}

func TestReconcileIsIdempotent(t *testing.T) {
	ctx := context.Background()
	raw, trusted := newTestStores(t)
	engine := NewEngine(raw, trusted, testLogger(t))

	ts := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, raw.AppendOwnedGames(ctx, []record.OwnedGameRow{
		gameRow("user", "440", 120, ts, 0),
		gameRow("user", "570", 45, ts, 0),
	}))

	_, err := engine.Run(ctx)
	require.NoError(t, err)
	first, err := trusted.OwnedGames(ctx)
	require.NoError(t, err)

	_, err = engine.Run(ctx)
	require.NoError(t, err)
	second, err := trusted.OwnedGames(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestReconcileAllKinds(t *testing.T) {
	ctx := context.Background()
	raw, trusted := newTestStores(t)
	engine := NewEngine(raw, trusted, testLogger(t))

	ts := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	persona := "gaben"

	require.NoError(t, raw.AppendProfile(ctx, record.ProfileRow{
		SteamID:                  "76561199490364483",
		CommunityVisibilityState: record.VisibilityPublic,
		ProfileState:             1,
		PersonaName:              &persona,
		DHUpdated:                ts,
	}))
	require.NoError(t, raw.AppendOwnedGames(ctx, []record.OwnedGameRow{
		gameRow("76561199490364483", "440", 120, ts, 0),
	}))
	require.NoError(t, raw.AppendMetadata(ctx, []record.GameMetadataRow{
		{SteamGameID: "440", Name: "Team Fortress 2", IsFree: true, DHUpdated: ts},
	}))

	results, err := engine.Run(ctx)
	require.NoError(t, err)
	require.Len(t, results, 3)

	for _, r := range results {
		assert.Equal(t, 1, r.RawRows, r.Kind.String())
		assert.Equal(t, 1, r.Deduped, r.Kind.String())
		assert.Equal(t, 1, r.Upserted, r.Kind.String())
		assert.Equal(t, 0, r.Skipped, r.Kind.String())
	}

	profiles, err := trusted.Profiles(ctx)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	require.NotNil(t, profiles[0].PersonaName)
	assert.Equal(t, "gaben", *profiles[0].PersonaName)

	metadata, err := trusted.Metadata(ctx)
	require.NoError(t, err)
	require.Len(t, metadata, 1)
	assert.True(t, metadata[0].IsFree)
}

func TestReconcileDedupsWithinOneRun(t *testing.T) {
	ctx := context.Background()
	raw, trusted := newTestStores(t)
	engine := NewEngine(raw, trusted, testLogger(t))

	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	// Three snapshots of the same game land before the first reconciliation.
	// Only the latest one reaches the trusted store.
	require.NoError(t, raw.AppendOwnedGames(ctx, []record.OwnedGameRow{
		gameRow("user", "440", 10, base, 0),
		gameRow("user", "440", 20, base.Add(time.Hour), 0),
		gameRow("user", "440", 30, base.Add(2*time.Hour), 0),
	}))

	results, err := engine.Run(ctx)
	require.NoError(t, err)

	var collection KindResult
	for _, r := range results {
		if r.Kind == record.KindCollection {
			collection = r
		}
	}
	assert.Equal(t, 3, collection.RawRows)
	assert.Equal(t, 1, collection.Deduped)

	games, err := trusted.OwnedGames(ctx)
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, 30, games[0].PlaytimeForever)
}

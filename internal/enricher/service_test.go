package enricher

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/AFS-Neto/Steam-Extrator/pkg/enrich"
	"github.com/AFS-Neto/Steam-Extrator/pkg/logger"
	"github.com/AFS-Neto/Steam-Extrator/pkg/record"
	"github.com/AFS-Neto/Steam-Extrator/pkg/store"

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

type fakeEnricher struct {
	asked  []string
	result enrich.Result
}

func (f *fakeEnricher) Enrich(ctx context.Context, gameIDs []string, fetchedAt time.Time, runID string) (enrich.Result, error) {
	f.asked = gameIDs
	return f.result, nil
}

func newStores(t *testing.T) (store.RawStore, store.TrustedStore) {
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

func TestBackfillTargetsOnlyMissingGames(t *testing.T) {
	ctx := context.Background()
	raw, trusted := newStores(t)
	ts := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	// Trusted knows three games but has metadata for only one
	_, err := trusted.UpsertOwnedGames(ctx, []record.OwnedGameRow{
		{SteamUserID: "user", SteamGameID: "440", PlaytimeForever: 1, DHUpdated: ts},
		{SteamUserID: "user", SteamGameID: "570", PlaytimeForever: 2, DHUpdated: ts},
		{SteamUserID: "user", SteamGameID: "730", PlaytimeForever: 3, DHUpdated: ts},
	})
	require.NoError(t, err)
	_, err = trusted.UpsertMetadata(ctx, []record.GameMetadataRow{
		{SteamGameID: "570", Name: "Dota 2", DHUpdated: ts},
	})
	require.NoError(t, err)

	fe := &fakeEnricher{result: enrich.Result{
		Rows: []record.GameMetadataRow{
			{SteamGameID: "440", Name: "Team Fortress 2", DHUpdated: ts},
		},
		NotFound: []string{"730"},
	}}

	svc := NewService(testLogger(t), raw, trusted, fe)
	appended, err := svc.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"440", "730"}, fe.asked)
	assert.Equal(t, 1, appended)

	rows, err := raw.Metadata(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "440", rows[0].SteamGameID)
}

func TestBackfillNoGaps(t *testing.T) {
	ctx := context.Background()
	raw, trusted := newStores(t)
	ts := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	_, err := trusted.UpsertOwnedGames(ctx, []record.OwnedGameRow{
		{SteamUserID: "user", SteamGameID: "440", PlaytimeForever: 1, DHUpdated: ts},
	})
	require.NoError(t, err)
	_, err = trusted.UpsertMetadata(ctx, []record.GameMetadataRow{
		{SteamGameID: "440", Name: "Team Fortress 2", DHUpdated: ts},
	})
	require.NoError(t, err)

	fe := &fakeEnricher{}
	svc := NewService(testLogger(t), raw, trusted, fe)

	appended, err := svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, appended)
	assert.Nil(t, fe.asked, "no gaps means no enrichment calls")
}

func TestBackfillDedupsAcrossUsers(t *testing.T) {
	ctx := context.Background()
	raw, trusted := newStores(t)
	ts := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	// Two users own the same unmetadated game: one lookup, not two
	_, err := trusted.UpsertOwnedGames(ctx, []record.OwnedGameRow{
		{SteamUserID: "user-a", SteamGameID: "440", PlaytimeForever: 1, DHUpdated: ts},
		{SteamUserID: "user-b", SteamGameID: "440", PlaytimeForever: 2, DHUpdated: ts},
	})
	require.NoError(t, err)

	fe := &fakeEnricher{}
	svc := NewService(testLogger(t), raw, trusted, fe)

	_, err = svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"440"}, fe.asked)
}

package parser

import (
	"testing"
	"time"

	"github.com/AFS-Neto/Steam-Extrator/pkg/steamapi"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileRowOptionalFields(t *testing.T) {
	fetchedAt := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	row := ProfileRow(steamapi.PlayerSummary{
		SteamID:                  "76561199490364483",
		CommunityVisibilityState: 3,
		ProfileState:             1,
		PersonaName:              "gaben",
		TimeCreated:              1394613000,
		LastLogoff:               0,
		LocCountryCode:           "",
	}, fetchedAt, "run-1")

	assert.Equal(t, "76561199490364483", row.SteamID)
	require.NotNil(t, row.PersonaName)
	assert.Equal(t, "gaben", *row.PersonaName)
	require.NotNil(t, row.TimeCreated)
	assert.Equal(t, int64(1394613000), row.TimeCreated.Unix())
	assert.Nil(t, row.LastLogoff, "zero epoch must become NULL, not 1970")
	assert.Nil(t, row.LocCountryCode)
	assert.True(t, row.DHUpdated.Equal(fetchedAt))
	assert.Equal(t, "run-1", row.RunID)
}

func TestOwnedGameRowsFiltersZeroPlaytime(t *testing.T) {
	fetchedAt := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	games := []steamapi.OwnedGame{
		{AppID: 440, Name: "Team Fortress 2", PlaytimeForever: 120},
		{AppID: 570, Name: "Dota 2", PlaytimeForever: 0},
		{AppID: 730, Name: "Counter-Strike 2", PlaytimeForever: 45},
	}

	rows := OwnedGameRows("user", games, fetchedAt, "run-1")
	require.Len(t, rows, 2)
	assert.Equal(t, "440", rows[0].SteamGameID)
	assert.Equal(t, "730", rows[1].SteamGameID)
}

func TestOwnedGameRowsFilterProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	genGames := gen.SliceOf(gopter.CombineGens(
		gen.Int64Range(1, 999999),
		gen.IntRange(0, 1000),
	).Map(func(vals []interface{}) steamapi.OwnedGame {
		return steamapi.OwnedGame{
			AppID:           vals[0].(int64),
			PlaytimeForever: vals[1].(int),
		}
	}))

	properties.Property("every output row has positive playtime", prop.ForAll(
		func(games []steamapi.OwnedGame) bool {
			rows := OwnedGameRows("user", games, time.Now(), "run")

			wantLen := 0
			for _, g := range games {
				if g.PlaytimeForever > 0 {
					wantLen++
				}
			}
			if len(rows) != wantLen {
				return false
			}
			for _, r := range rows {
				if r.PlaytimeForever <= 0 {
					return false
				}
			}
			return true
		},
		genGames,
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestAchievementTotals(t *testing.T) {
	// Titles without community achievements return no list at all.
	total, unlocked := AchievementTotals(steamapi.PlayerStats{})
	assert.Equal(t, 0, total)
	assert.Equal(t, 0, unlocked)

	total, unlocked = AchievementTotals(steamapi.PlayerStats{
		Achievements: []steamapi.Achievement{
			{APIName: "a", Achieved: 1},
			{APIName: "b", Achieved: 0},
			{APIName: "c", Achieved: 1},
		},
	})
	assert.Equal(t, 3, total)
	assert.Equal(t, 2, unlocked)
}

func TestAchievementTotalsProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	genStats := gen.SliceOf(gen.IntRange(0, 1)).Map(func(flags []int) steamapi.PlayerStats {
		achievements := make([]steamapi.Achievement, len(flags))
		for i, f := range flags {
			achievements[i] = steamapi.Achievement{Achieved: f}
		}
		return steamapi.PlayerStats{Achievements: achievements}
	})

	properties.Property("unlocked never exceeds total", prop.ForAll(
		func(stats steamapi.PlayerStats) bool {
			total, unlocked := AchievementTotals(stats)
			return unlocked >= 0 && unlocked <= total && total == len(stats.Achievements)
		},
		genStats,
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestMetadataRowSerializesLists(t *testing.T) {
	fetchedAt := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	data := &steamapi.AppData{
		SteamAppID:  440,
		Name:        "Team Fortress 2",
		RequiredAge: 0,
		IsFree:      true,
		Developers:  []string{"Valve"},
		Genres: []steamapi.NamedCategory{
			{ID: 1, Description: "Action"},
		},
	}

	row := MetadataRow("440", data, fetchedAt, "run-1")

	assert.Equal(t, "440", row.SteamGameID)
	assert.True(t, row.IsFree)
	require.NotNil(t, row.Developers)
	assert.JSONEq(t, `["Valve"]`, *row.Developers)
	require.NotNil(t, row.Genres)
	assert.JSONEq(t, `[{"id":1,"description":"Action"}]`, *row.Genres)

	// Absent lists and empty strings become NULLs
	assert.Nil(t, row.DLC)
	assert.Nil(t, row.Publishers)
	assert.Nil(t, row.Categories)
	assert.Nil(t, row.Media)
	assert.Nil(t, row.Website)
	assert.Nil(t, row.AboutTheGame)
}

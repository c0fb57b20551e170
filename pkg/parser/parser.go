package parser

import (
	"time"

	"github.com/goccy/go-json"

	"github.com/AFS-Neto/Steam-Extrator/pkg/record"
	"github.com/AFS-Neto/Steam-Extrator/pkg/steamapi"
)

// ProfileRow maps an upstream player summary to a profile snapshot row.
// Absent epoch timestamps and empty optional strings become NULLs, not
// zero values.
func ProfileRow(s steamapi.PlayerSummary, fetchedAt time.Time, runID string) record.ProfileRow {
	return record.ProfileRow{
		SteamID:                  s.SteamID,
		CommunityVisibilityState: s.CommunityVisibilityState,
		ProfileState:             s.ProfileState,
		AvatarHash:               s.AvatarHash,
		PersonaName:              optString(s.PersonaName),
		ProfileURL:               s.ProfileURL,
		TimeCreated:              optEpoch(s.TimeCreated),
		LastLogoff:               optEpoch(s.LastLogoff),
		LocCountryCode:           optString(s.LocCountryCode),
		AvatarMedium:             s.AvatarMedium,
		DHUpdated:                fetchedAt,
		RunID:                    runID,
	}
}

// OwnedGameRows maps the owned-games list to collection snapshot rows.
// Entries with zero lifetime playtime are excluded; this is pipeline policy,
// the upstream list still contains them.
func OwnedGameRows(steamUserID string, games []steamapi.OwnedGame, fetchedAt time.Time, runID string) []record.OwnedGameRow {
	rows := make([]record.OwnedGameRow, 0, len(games))
	for _, g := range games {
		if g.PlaytimeForever <= 0 {
			continue
		}
		rows = append(rows, record.OwnedGameRow{
			SteamUserID:     steamUserID,
			SteamGameID:     steamapi.AppIDString(g.AppID),
			Name:            g.Name,
			LastPlayed:      optEpoch(g.RTimeLastPlayed),
			PlaytimeForever: g.PlaytimeForever,
			ImgGameCoverURL: g.ImgIconURL,
			Playtime2Weeks:  g.Playtime2Weeks,
			DHUpdated:       fetchedAt,
			RunID:           runID,
		})
	}
	return rows
}

// AchievementTotals derives (total, unlocked) from a per-game stats payload.
// A payload without an achievements list counts as (0, 0).
func AchievementTotals(stats steamapi.PlayerStats) (total, unlocked int) {
	if stats.Achievements == nil {
		return 0, 0
	}
	total = len(stats.Achievements)
	for _, a := range stats.Achievements {
		if a.Achieved == 1 {
			unlocked++
		}
	}
	return total, unlocked
}

// MetadataRow maps a store appdetails payload to a metadata snapshot row.
// Nested lists are serialized to JSON text; they are stored opaquely and
// never queried structurally downstream.
func MetadataRow(gameID string, data *steamapi.AppData, fetchedAt time.Time, runID string) record.GameMetadataRow {
	return record.GameMetadataRow{
		SteamGameID:        gameID,
		Name:               data.Name,
		RequiredAge:        int(data.RequiredAge),
		IsFree:             data.IsFree,
		DLC:                jsonText(data.DLC, len(data.DLC) > 0),
		AboutTheGame:       optString(data.AboutTheGame),
		ShortDescription:   optString(data.ShortDescription),
		SupportedLanguages: jsonText(data.SupportedLanguages, data.SupportedLanguages != ""),
		HeaderImage:        optString(data.HeaderImage),
		Website:            optString(data.Website),
		Developers:         jsonText(data.Developers, len(data.Developers) > 0),
		Publishers:         jsonText(data.Publishers, len(data.Publishers) > 0),
		Genres:             jsonText(data.Genres, len(data.Genres) > 0),
		Categories:         jsonText(data.Categories, len(data.Categories) > 0),
		Media:              jsonText(data.Movies, len(data.Movies) > 0),
		DHUpdated:          fetchedAt,
		RunID:              runID,
	}
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optEpoch(epoch int64) *time.Time {
	if epoch == 0 {
		return nil
	}
	t := time.Unix(epoch, 0).UTC()
	return &t
}

func jsonText(v interface{}, present bool) *string {
	if !present {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	s := string(b)
	return &s
}

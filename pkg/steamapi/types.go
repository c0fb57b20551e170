package steamapi

import (
	"strconv"
	"strings"
)

// FlexInt decodes JSON values that the store API serves inconsistently as
// either a number or a quoted string (required_age is "18" for some titles).
type FlexInt int

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	// Some titles carry fractional age strings like "17+" or "16.0"
	s = strings.TrimSuffix(s, "+")
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*f = FlexInt(n)
	return nil
}

type vanityEnvelope struct {
	Response struct {
		Success int    `json:"success"`
		SteamID string `json:"steamid"`
	} `json:"response"`
}

type summariesEnvelope struct {
	Response struct {
		Players []PlayerSummary `json:"players"`
	} `json:"response"`
}

// PlayerSummary is the upstream representation of a user profile.
// Epoch fields are zero when the API omits them.
type PlayerSummary struct {
	SteamID                  string `json:"steamid"`
	CommunityVisibilityState int    `json:"communityvisibilitystate"`
	ProfileState             int    `json:"profilestate"`
	PersonaName              string `json:"personaname"`
	AvatarHash               string `json:"avatarhash"`
	AvatarMedium             string `json:"avatarmedium"`
	ProfileURL               string `json:"profileurl"`
	TimeCreated              int64  `json:"timecreated"`
	LastLogoff               int64  `json:"lastlogoff"`
	LocCountryCode           string `json:"loccountrycode"`
}

type ownedGamesEnvelope struct {
	Response struct {
		GameCount int         `json:"game_count"`
		Games     []OwnedGame `json:"games"`
	} `json:"response"`
}

// OwnedGame is one entry of the owned-games list.
type OwnedGame struct {
	AppID           int64    `json:"appid"`
	Name            string   `json:"name"`
	PlaytimeForever int      `json:"playtime_forever"`
	Playtime2Weeks  *float64 `json:"playtime_2weeks"`
	RTimeLastPlayed int64    `json:"rtime_last_played"`
	ImgIconURL      string   `json:"img_icon_url"`
}

type achievementsEnvelope struct {
	PlayerStats PlayerStats `json:"playerstats"`
}

// PlayerStats holds per-game achievement state. Achievements is nil for
// titles without community achievements; that is a valid response, not an
// error.
type PlayerStats struct {
	SteamID      string        `json:"steamID"`
	GameName     string        `json:"gameName"`
	Achievements []Achievement `json:"achievements"`
	Success      bool          `json:"success"`
}

type Achievement struct {
	APIName    string `json:"apiname"`
	Achieved   int    `json:"achieved"`
	UnlockTime int64  `json:"unlocktime"`
}

type appDetailsEntry struct {
	Success bool     `json:"success"`
	Data    *AppData `json:"data"`
}

// AppData is the store-metadata payload for one title.
type AppData struct {
	SteamAppID         int64           `json:"steam_appid"`
	Name               string          `json:"name"`
	RequiredAge        FlexInt         `json:"required_age"`
	IsFree             bool            `json:"is_free"`
	DLC                []int64         `json:"dlc"`
	AboutTheGame       string          `json:"about_the_game"`
	ShortDescription   string          `json:"short_description"`
	SupportedLanguages string          `json:"supported_languages"`
	HeaderImage        string          `json:"header_image"`
	Website            string          `json:"website"`
	Developers         []string        `json:"developers"`
	Publishers         []string        `json:"publishers"`
	Genres             []NamedCategory `json:"genres"`
	Categories         []NamedCategory `json:"categories"`
	Movies             []Movie         `json:"movies"`
}

type NamedCategory struct {
	ID          FlexInt `json:"id"`
	Description string  `json:"description"`
}

type Movie struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Thumbnail string `json:"thumbnail"`
}

package record

import "time"

// Kind identifies one of the three entity kinds moved through the pipeline
type Kind string

const (
	KindProfile    Kind = "profile_data"
	KindCollection Kind = "collection_game_data"
	KindMetadata   Kind = "game_metadata"
)

func (k Kind) String() string { return string(k) }

// Row is implemented by every snapshot row type. NaturalKey groups duplicate
// snapshots of the same entity, FetchedAt picks the authoritative one, and
// RawSeq breaks ties when two snapshots share an identical FetchedAt
// (higher sequence wins).
type Row interface {
	NaturalKey() string
	FetchedAt() time.Time
	RawSeq() int64
}

// ProfileRow is one snapshot of a user profile.
// Natural key: steamid.
type ProfileRow struct {
	SteamID                  string     `db:"steamid" bson:"steamid"`
	CommunityVisibilityState int        `db:"communityvisibilitystate" bson:"communityvisibilitystate"`
	ProfileState             int        `db:"profilestate" bson:"profilestate"`
	AvatarHash               string     `db:"avatarhash" bson:"avatarhash"`
	PersonaName              *string    `db:"personaname" bson:"personaname,omitempty"`
	ProfileURL               string     `db:"profileurl" bson:"profileurl"`
	TimeCreated              *time.Time `db:"timecreated" bson:"timecreated,omitempty"`
	LastLogoff               *time.Time `db:"lastlogoff" bson:"lastlogoff,omitempty"`
	LocCountryCode           *string    `db:"loccountrycode" bson:"loccountrycode,omitempty"`
	AvatarMedium             string     `db:"avatarmedium" bson:"avatarmedium"`
	DHUpdated                time.Time  `db:"dh_updated" bson:"dh_updated"`
	RunID                    string     `db:"run_id" bson:"run_id"`
	Seq                      int64      `db:"seq" bson:"seq"`
}

func (r ProfileRow) NaturalKey() string   { return r.SteamID }
func (r ProfileRow) FetchedAt() time.Time { return r.DHUpdated }
func (r ProfileRow) RawSeq() int64        { return r.Seq }

// VisibilityPublic is the communityvisibilitystate value of a public profile.
// Anything else means the owned-games list cannot be fetched.
const VisibilityPublic = 3

// OwnedGameRow is one snapshot of a game in a user's library.
// Natural key: (steam_user_id, steam_game_id).
type OwnedGameRow struct {
	SteamUserID          string     `db:"steam_user_id" bson:"steam_user_id"`
	SteamGameID          string     `db:"steam_game_id" bson:"steam_game_id"`
	Name                 string     `db:"name" bson:"name"`
	LastPlayed           *time.Time `db:"last_played_timestamp" bson:"last_played_timestamp,omitempty"`
	PlaytimeForever      int        `db:"playtime_forever" bson:"playtime_forever"`
	ImgGameCoverURL      string     `db:"img_game_cover_url" bson:"img_game_cover_url"`
	Playtime2Weeks       *float64   `db:"playtime_2weeks" bson:"playtime_2weeks,omitempty"`
	TotalAchievements    int        `db:"total_achievements" bson:"total_achievements"`
	UnlockedAchievements int        `db:"total_achievements_unlocked" bson:"total_achievements_unlocked"`
	DHUpdated            time.Time  `db:"dh_updated" bson:"dh_updated"`
	RunID                string     `db:"run_id" bson:"run_id"`
	Seq                  int64      `db:"seq" bson:"seq"`
}

func (r OwnedGameRow) NaturalKey() string   { return r.SteamUserID + "/" + r.SteamGameID }
func (r OwnedGameRow) FetchedAt() time.Time { return r.DHUpdated }
func (r OwnedGameRow) RawSeq() int64        { return r.Seq }

// GameMetadataRow is one snapshot of per-title store metadata.
// Natural key: steam_game_id. The list-valued fields (dlc, developers,
// genres, ...) hold an opaque JSON text encoding; they are stored and
// displayed, never queried structurally.
type GameMetadataRow struct {
	SteamGameID        string    `db:"steam_game_id" bson:"steam_game_id"`
	Name               string    `db:"name" bson:"name"`
	RequiredAge        int       `db:"required_age" bson:"required_age"`
	IsFree             bool      `db:"is_free" bson:"is_free"`
	DLC                *string   `db:"dlc" bson:"dlc,omitempty"`
	AboutTheGame       *string   `db:"about_the_game" bson:"about_the_game,omitempty"`
	ShortDescription   *string   `db:"short_description" bson:"short_description,omitempty"`
	SupportedLanguages *string   `db:"supported_languages" bson:"supported_languages,omitempty"`
	HeaderImage        *string   `db:"header_image" bson:"header_image,omitempty"`
	Website            *string   `db:"website" bson:"website,omitempty"`
	Developers         *string   `db:"developers" bson:"developers,omitempty"`
	Publishers         *string   `db:"publishers" bson:"publishers,omitempty"`
	Genres             *string   `db:"genres" bson:"genres,omitempty"`
	Categories         *string   `db:"categories" bson:"categories,omitempty"`
	Media              *string   `db:"media" bson:"media,omitempty"`
	DHUpdated          time.Time `db:"dh_updated" bson:"dh_updated"`
	RunID              string    `db:"run_id" bson:"run_id"`
	Seq                int64     `db:"seq" bson:"seq"`
}

func (r GameMetadataRow) NaturalKey() string   { return r.SteamGameID }
func (r GameMetadataRow) FetchedAt() time.Time { return r.DHUpdated }
func (r GameMetadataRow) RawSeq() int64        { return r.Seq }

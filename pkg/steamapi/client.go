package steamapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/AFS-Neto/Steam-Extrator/pkg/logger"
	"github.com/AFS-Neto/Steam-Extrator/pkg/metrics"
	"github.com/AFS-Neto/Steam-Extrator/pkg/retry"

	"go.uber.org/zap"
)

// ErrUnavailable reports that a call gave up: either the rate-limit retry
// budget was exhausted or the network failed outright. The two cases are
// deliberately indistinguishable to callers; the logs tell them apart.
var ErrUnavailable = errors.New("steam: upstream unavailable")

// ErrVanityNotFound reports that a vanity name did not resolve to a SteamID.
var ErrVanityNotFound = errors.New("steam: vanity name not found")

// errRateLimited marks a 429 inside the retry loop. Never escapes the client.
var errRateLimited = errors.New("steam: rate limited")

// StatusError is a terminal non-200, non-429 response. It is surfaced
// immediately without retries.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("steam: unexpected status %d", e.Code)
}

// Config holds the client settings
type Config struct {
	APIKey       string
	APIBaseURL   string
	StoreBaseURL string
	Retry        int
	RetryWait    time.Duration
	Timeout      time.Duration
}

// Client issues Steam Web API and store API calls with bounded
// retry-on-rate-limit backoff. Every failure path returns an explicit
// error value; nothing panics across this boundary.
type Client struct {
	httpClient *http.Client
	cfg        Config
	logger     *logger.Logger
}

// NewClient creates a new Client instance
func NewClient(cfg Config, l *logger.Logger) *Client {
	if cfg.Retry < 1 {
		cfg.Retry = 4
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = 2 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		logger:     l,
	}
}

// getJSON performs one GET with the retry policy and decodes the body into out.
func (c *Client) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	opts := retry.Options{
		MaxAttempts: c.cfg.Retry,
		Interval:    c.cfg.RetryWait,
		Classifier: func(err error) bool {
			return errors.Is(err, errRateLimited)
		},
		OnBackoff: func(attempt int) {
			c.logger.Warn("rate limited, backing off",
				zap.Int("attempt", attempt),
				zap.Duration("wait", c.cfg.RetryWait))
		},
	}

	err := retry.Do(ctx, func() error {
		return c.doOnce(ctx, rawURL, out)
	}, opts)
	if err == nil {
		return nil
	}

	metrics.FetchFailuresTotal.Inc()
	if errors.Is(err, errRateLimited) {
		return fmt.Errorf("%w: rate limited after %d attempts", ErrUnavailable, c.cfg.Retry)
	}
	return err
}

func (c *Client) doOnce(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	metrics.FetchRequestsTotal.Inc()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network-level failure terminates the loop: the classifier only
		// retries rate limits.
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("%w: reading body: %v", ErrUnavailable, err)
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
		return nil
	case http.StatusTooManyRequests:
		metrics.FetchRateLimitedTotal.Inc()
		return errRateLimited
	default:
		return &StatusError{Code: resp.StatusCode}
	}
}

// ResolveVanity resolves a profile vanity name to a SteamID64.
// An unresolved name is a soft miss reported as ErrVanityNotFound.
func (c *Client) ResolveVanity(ctx context.Context, vanityName string) (string, error) {
	u := fmt.Sprintf("%s/ISteamUser/ResolveVanityURL/v0001/?key=%s&vanityurl=%s",
		c.cfg.APIBaseURL, c.cfg.APIKey, url.QueryEscape(vanityName))

	var env vanityEnvelope
	if err := c.getJSON(ctx, u, &env); err != nil {
		return "", err
	}
	if env.Response.Success != 1 || env.Response.SteamID == "" {
		return "", ErrVanityNotFound
	}
	return env.Response.SteamID, nil
}

// PlayerSummary fetches the profile summary for one user. The API returns an
// array; element 0 is the requested user.
func (c *Client) PlayerSummary(ctx context.Context, steamID string) (PlayerSummary, error) {
	u := fmt.Sprintf("%s/ISteamUser/GetPlayerSummaries/v0002/?key=%s&steamids=%s",
		c.cfg.APIBaseURL, c.cfg.APIKey, steamID)

	var env summariesEnvelope
	if err := c.getJSON(ctx, u, &env); err != nil {
		return PlayerSummary{}, err
	}
	if len(env.Response.Players) == 0 {
		return PlayerSummary{}, fmt.Errorf("no player summary returned for steamid %s", steamID)
	}
	return env.Response.Players[0], nil
}

// OwnedGames fetches the user's game library including app info and played
// free games. A nil slice means the list is unavailable (private profile or
// empty library); the caller decides whether that is fatal.
func (c *Client) OwnedGames(ctx context.Context, steamID string) ([]OwnedGame, error) {
	u := fmt.Sprintf("%s/IPlayerService/GetOwnedGames/v0001/?key=%s&steamid=%s&include_appinfo=true&include_played_free_games=true&format=json",
		c.cfg.APIBaseURL, c.cfg.APIKey, steamID)

	var env ownedGamesEnvelope
	if err := c.getJSON(ctx, u, &env); err != nil {
		return nil, err
	}
	return env.Response.Games, nil
}

// PlayerAchievements fetches the achievement state for one game. A stats
// payload without an achievements list is valid and means the title has none.
func (c *Client) PlayerAchievements(ctx context.Context, steamID string, appID int64) (PlayerStats, error) {
	u := fmt.Sprintf("%s/ISteamUserStats/GetPlayerAchievements/v0001/?appid=%d&key=%s&steamid=%s&l=en",
		c.cfg.APIBaseURL, appID, c.cfg.APIKey, steamID)

	var env achievementsEnvelope
	if err := c.getJSON(ctx, u, &env); err != nil {
		return PlayerStats{}, err
	}
	return env.PlayerStats, nil
}

// AppDetails fetches store metadata for one title. found is false when the
// store reports success=false for the id; that is a counted soft miss, not
// an error.
func (c *Client) AppDetails(ctx context.Context, gameID string) (*AppData, bool, error) {
	u := fmt.Sprintf("%s/api/appdetails?appids=%s", c.cfg.StoreBaseURL, gameID)

	env := map[string]appDetailsEntry{}
	if err := c.getJSON(ctx, u, &env); err != nil {
		return nil, false, err
	}

	entry, ok := env[gameID]
	if !ok || !entry.Success || entry.Data == nil {
		return nil, false, nil
	}
	return entry.Data, true, nil
}

// AppIDString formats a numeric app id the way store rows key on it.
func AppIDString(appID int64) string {
	return strconv.FormatInt(appID, 10)
}

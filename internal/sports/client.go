package sports

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/barvision/barvision-core/internal/infrastructure/config"
)

// defaultListTimeout bounds listing requests when none is configured.
const defaultListTimeout = 10 * time.Second

// Source is the read-only query surface the allocator consumes.
// Implemented by Client; mocked in tests.
type Source interface {
	// ListGames returns games for the configured leagues starting
	// within the window. An empty teamIDs slice means all teams.
	ListGames(ctx context.Context, teamIDs []string, window time.Duration) ([]GameListing, error)
}

// Client queries the external game-listing service over HTTP.
//
// The service is treated as unreliable: every call has a hard timeout,
// and any failure surfaces as ErrDiscoveryUnavailable so callers can
// degrade gracefully.
type Client struct {
	baseURL string
	apiKey  string
	leagues []string
	client  *http.Client
}

// NewClient creates a listing client from configuration.
func NewClient(cfg config.SportsConfig) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = defaultListTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		leagues: cfg.Leagues,
		client:  &http.Client{Timeout: timeout},
	}
}

// ListGames fetches games starting within [now, now+window].
//
// The window filter is applied locally as well as sent upstream, so a
// listing service that ignores the query parameters cannot smuggle
// stale or far-future games into a plan.
func (c *Client) ListGames(ctx context.Context, teamIDs []string, window time.Duration) ([]GameListing, error) {
	now := time.Now()

	params := url.Values{}
	params.Set("start", now.UTC().Format(time.RFC3339))
	params.Set("end", now.Add(window).UTC().Format(time.RFC3339))
	if len(c.leagues) > 0 {
		params.Set("leagues", strings.Join(c.leagues, ","))
	}
	if len(teamIDs) > 0 {
		params.Set("teams", strings.Join(teamIDs, ","))
	}

	reqURL := c.baseURL + "/v1/games?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", ErrDiscoveryUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDiscoveryUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: listing service returned %d", ErrDiscoveryUnavailable, resp.StatusCode)
	}

	var payload listResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrDiscoveryUnavailable, err)
	}

	return filterWindow(payload.Games, teamIDs, now, window), nil
}

// filterWindow keeps games starting within the window that involve one
// of the monitored teams (or all games when teamIDs is empty).
func filterWindow(games []GameListing, teamIDs []string, now time.Time, window time.Duration) []GameListing {
	monitored := make(map[string]bool, len(teamIDs))
	for _, id := range teamIDs {
		monitored[id] = true
	}

	end := now.Add(window)
	var out []GameListing
	for _, g := range games {
		if g.StartTime.Before(now) || g.StartTime.After(end) {
			continue
		}
		if len(monitored) > 0 && !monitored[g.HomeTeam.ID] && !monitored[g.AwayTeam.ID] {
			continue
		}
		out = append(out, g)
	}
	return out
}

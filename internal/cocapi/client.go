// Package cocapi is a minimal Clash of Clans REST client covering the
// endpoints the tracker polls.
package cocapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the official API root.
const DefaultBaseURL = "https://api.clashofclans.com/v1"

// Config carries client construction parameters.
type Config struct {
	Key     string
	BaseURL string
	// RatePerSec caps outbound requests; the API enforces its own limit and
	// answers 429 beyond it.
	RatePerSec float64
}

// Client is safe for concurrent use.
type Client struct {
	base    string
	key     string
	hc      *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

func New(cfg Config, log zerolog.Logger) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base:    base,
		key:     cfg.Key,
		hc:      &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)+1),
		log:     log,
	}
}

// APIError is a non-2xx answer from the API. Body shape per the API docs:
// {"reason": "...", "message": "..."}.
type APIError struct {
	StatusCode int
	Reason     string `json:"reason"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("cocapi: status %d: %s (%s)", e.StatusCode, e.Message, e.Reason)
	}
	return fmt.Sprintf("cocapi: status %d: %s", e.StatusCode, e.Reason)
}

// Clan fetches clan details including the member list. tag includes the
// leading '#'.
func (c *Client) Clan(ctx context.Context, tag string) (*Clan, error) {
	var clan Clan
	if err := c.get(ctx, "/clans/"+url.PathEscape(tag), &clan); err != nil {
		return nil, err
	}
	return &clan, nil
}

// WarLog fetches the clan's public war log, most recent first.
func (c *Client) WarLog(ctx context.Context, tag string) ([]WarLogEntry, error) {
	var resp warLogResponse
	if err := c.get(ctx, "/clans/"+url.PathEscape(tag)+"/warlog", &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// LeagueGroup fetches the clan's current CWL group. While no league is
// running the API answers 404, surfaced as an *APIError.
func (c *Client) LeagueGroup(ctx context.Context, tag string) (*LeagueGroup, error) {
	var group LeagueGroup
	if err := c.get(ctx, "/clans/"+url.PathEscape(tag)+"/currentwar/leaguegroup", &group); err != nil {
		return nil, err
	}
	return &group, nil
}

// LeagueWar fetches one CWL war by its war tag.
func (c *Client) LeagueWar(ctx context.Context, warTag string) (*LeagueWar, error) {
	var war LeagueWar
	if err := c.get(ctx, "/clanwarleagues/wars/"+url.PathEscape(warTag), &war); err != nil {
		return nil, err
	}
	return &war, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("cocapi: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		// Best effort; the status code alone is a usable error.
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		c.log.Debug().Int("status", resp.StatusCode).Str("path", path).Str("reason", apiErr.Reason).Msg("api request failed")
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("cocapi: decode %s: %w", path, err)
	}
	return nil
}

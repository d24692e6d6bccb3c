// Package sdk provides typed Go access to the lingokit HTTP + WebSocket API.
package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Option configures the Client.
type Option func(*Client)

// Client provides typed access to the lingokit HTTP + WebSocket API.
type Client struct {
	baseURL    string
	wsURL      string
	httpClient *http.Client
	headers    http.Header
}

// NewClient constructs a new SDK client targeting the given baseURL (e.g., http://localhost:8080/api).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("baseURL is required")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	c := &Client{
		baseURL:    baseURL,
		wsURL:      deriveWSURL(baseURL),
		httpClient: http.DefaultClient,
		headers:    make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithAuthToken adds an Authorization: Bearer token header to all requests (HTTP + WS).
func WithAuthToken(token string) Option {
	return func(c *Client) {
		if strings.TrimSpace(token) != "" {
			c.headers.Set("Authorization", "Bearer "+token)
		}
	}
}

// WithAPIKey adds an X-API-Key header.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		if strings.TrimSpace(key) != "" {
			c.headers.Set("X-API-Key", key)
		}
	}
}

// WithHeader sets an arbitrary header applied to HTTP and WS calls.
func WithHeader(k, v string) Option {
	return func(c *Client) {
		if k != "" {
			c.headers.Set(k, v)
		}
	}
}

// CompleteLesson submits one lesson completion and returns the awarded XP,
// unlocks, and updated totals.
func (c *Client) CompleteLesson(ctx context.Context, userID string, ev LessonEvent) (LessonOutcome, error) {
	if strings.TrimSpace(userID) == "" {
		return LessonOutcome{}, ErrEmptyUserID
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return LessonOutcome{}, err
	}
	u := fmt.Sprintf("%s/users/%s/lessons", c.baseURL, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return LessonOutcome{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.applyHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return LessonOutcome{}, err
	}
	defer resp.Body.Close()

	var out LessonOutcome
	if err := decodeJSON(resp, &out); err != nil {
		return LessonOutcome{}, err
	}
	return out, nil
}

// GetProfile fetches the dashboard read-model for a user.
func (c *Client) GetProfile(ctx context.Context, userID string) (Profile, error) {
	if strings.TrimSpace(userID) == "" {
		return Profile{}, ErrEmptyUserID
	}
	var p Profile
	if err := c.get(ctx, fmt.Sprintf("%s/users/%s", c.baseURL, url.PathEscape(userID)), &p); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// GetBadges fetches the full badge board for a user.
func (c *Client) GetBadges(ctx context.Context, userID string) ([]Badge, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrEmptyUserID
	}
	var badges []Badge
	if err := c.get(ctx, fmt.Sprintf("%s/users/%s/badges", c.baseURL, url.PathEscape(userID)), &badges); err != nil {
		return nil, err
	}
	return badges, nil
}

// GetMastery fetches per-track mastery for a user.
func (c *Client) GetMastery(ctx context.Context, userID string) ([]Mastery, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrEmptyUserID
	}
	var mastery []Mastery
	if err := c.get(ctx, fmt.Sprintf("%s/users/%s/mastery", c.baseURL, url.PathEscape(userID)), &mastery); err != nil {
		return nil, err
	}
	return mastery, nil
}

// GetUserChallenge fetches today's challenge with the user's progress.
func (c *Client) GetUserChallenge(ctx context.Context, userID string) (UserChallenge, error) {
	if strings.TrimSpace(userID) == "" {
		return UserChallenge{}, ErrEmptyUserID
	}
	var uc UserChallenge
	if err := c.get(ctx, fmt.Sprintf("%s/users/%s/challenge", c.baseURL, url.PathEscape(userID)), &uc); err != nil {
		return UserChallenge{}, err
	}
	return uc, nil
}

// GetTodaysChallenge fetches the globally scheduled challenge.
func (c *Client) GetTodaysChallenge(ctx context.Context) (Challenge, error) {
	var ch Challenge
	if err := c.get(ctx, c.baseURL+"/challenges/today", &ch); err != nil {
		return Challenge{}, err
	}
	return ch, nil
}

// Leaderboard fetches the top n learners by XP.
func (c *Client) Leaderboard(ctx context.Context, n int) ([]LeaderboardEntry, error) {
	u := fmt.Sprintf("%s/leaderboard?n=%d", c.baseURL, n)
	var entries []LeaderboardEntry
	if err := c.get(ctx, u, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Health probes /healthz and returns status + storage check.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	var hs HealthStatus
	if err := c.get(ctx, c.baseURL+"/healthz", &hs); err != nil {
		return HealthStatus{}, err
	}
	return hs, nil
}

// SubscribeEvents connects to the WebSocket stream and emits Event values.
// A non-empty userID scopes the stream to that learner. The returned channel
// closes when ctx is done or the connection drops.
func (c *Client) SubscribeEvents(ctx context.Context, userID string) (<-chan Event, error) {
	if c.wsURL == "" {
		return nil, errors.New("wsURL is not set; ensure baseURL is http/https")
	}
	target := c.wsURL
	if userID != "" {
		target += "?user=" + url.QueryEscape(userID)
	}
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, target, c.headers)
	if err != nil {
		return nil, err
	}

	out := make(chan Event, 32)
	go func() {
		defer close(out)
		defer conn.Close()
		for {
			select {
			case <-ctx.Done():
				return
			default:
				var evt Event
				if err := conn.ReadJSON(&evt); err != nil {
					return
				}
				select {
				case out <- evt:
				default:
					// drop if consumer is slow
				}
			}
		}
	}()
	return out, nil
}

func (c *Client) get(ctx context.Context, rawURL string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	c.applyHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeJSON(resp, target)
}

func (c *Client) applyHeaders(r *http.Request) {
	for k, vals := range c.headers {
		for _, v := range vals {
			r.Header.Add(k, v)
		}
	}
}

func deriveWSURL(httpBase string) string {
	u, err := url.Parse(httpBase)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		// leave as-is for custom schemes
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String()
}

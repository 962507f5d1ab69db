// Package polymarket implements the market source against the
// Polymarket CLOB REST API.
package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/okian/settle/internal/adapters/provider"
	"github.com/okian/settle/internal/domain/model"
	"github.com/okian/settle/pkg/logger"
)

// API constants.
const (
	// DefaultBaseURL is the Polymarket CLOB endpoint.
	DefaultBaseURL = "https://clob.polymarket.com"

	// endCursor terminates sampling-markets pagination.
	endCursor = "LTE="

	defaultHTTPTimeout = 10 * time.Second
	defaultMaxPages    = 50
)

// Client fetches candidate markets and single markets by condition id.
type Client struct {
	baseURL  string
	http     *http.Client
	maxPages int
	log      logger.Logger
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithBaseURL points the client at a different endpoint, e.g. a test
// server.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base != "" {
			c.baseURL = base
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithMaxPages caps how many pagination pages one sync walks.
func WithMaxPages(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxPages = n
		}
	}
}

// WithLogger sets a custom logger for the client.
func WithLogger(log logger.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// New creates a Polymarket client with configuration options.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:  DefaultBaseURL,
		http:     &http.Client{Timeout: defaultHTTPTimeout},
		maxPages: defaultMaxPages,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Get().Named("polymarket")
	}
	return c
}

// Name identifies the provider namespace for event keys.
func (c *Client) Name() string { return "polymarket" }

// market mirrors the CLOB market schema; only the fields the core
// needs are decoded, the rest ride along as metadata.
type market struct {
	ConditionID     string  `json:"condition_id"`
	Question        string  `json:"question"`
	Slug            string  `json:"market_slug"`
	EndDateISO      string  `json:"end_date_iso"`
	GameStartTime   string  `json:"game_start_time"`
	Active          bool    `json:"active"`
	Closed          bool    `json:"closed"`
	AcceptingOrders bool    `json:"accepting_orders"`
	Tokens          []token `json:"tokens"`
}

type token struct {
	TokenID string `json:"token_id"`
	Outcome string `json:"outcome"`
	Winner  bool   `json:"winner"`
}

type samplingPage struct {
	Data       []market `json:"data"`
	NextCursor string   `json:"next_cursor"`
}

// Candidates walks the sampling-markets pagination and returns every
// market that is still live. Markets missing a condition id or already
// carrying a resolved answer are skipped here; resolution is picked up
// by the per-event refresh instead.
func (c *Client) Candidates(ctx context.Context, since time.Time) ([]model.Event, error) {
	var (
		out    []model.Event
		cursor string
	)

	for page := 0; page < c.maxPages; page++ {
		u := c.baseURL + "/sampling-markets"
		if cursor != "" {
			u += "?next_cursor=" + url.QueryEscape(cursor)
		}

		var body samplingPage
		if err := c.getJSON(ctx, u, &body); err != nil {
			return nil, fmt.Errorf("sampling markets page %d: %w", page, err)
		}

		for i := range body.Data {
			m := &body.Data[i]
			if m.ConditionID == "" {
				c.log.Warn(ctx, "market missing condition id, skipping",
					logger.String("slug", m.Slug),
				)
				continue
			}
			if m.Closed {
				continue
			}
			out = append(out, c.toEvent(m))
		}

		cursor = body.NextCursor
		if cursor == "" || cursor == endCursor {
			break
		}
	}

	return out, nil
}

// Fetch re-reads one market by condition id.
func (c *Client) Fetch(ctx context.Context, id string) (model.Event, error) {
	var m market
	if err := c.getJSON(ctx, c.baseURL+"/markets/"+url.PathEscape(id), &m); err != nil {
		return model.Event{}, fmt.Errorf("fetch market %s: %w", id, err)
	}
	if m.ConditionID == "" {
		return model.Event{}, fmt.Errorf("fetch market %s: %w", id, ErrMalformedMarket)
	}
	return c.toEvent(&m), nil
}

func (c *Client) getJSON(ctx context.Context, u string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUpstreamStatus, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// toEvent normalizes one market. The CLOB schema exposes lifecycle as
// booleans, so they are first folded into the shared status vocabulary.
func (c *Client) toEvent(m *market) model.Event {
	ev := model.Event{
		Key:         model.EventKey{Provider: c.Name(), ID: m.ConditionID},
		Description: m.Question,
		Status:      provider.StatusFromLabel(c.statusLabel(m)),
		Metadata: map[string]any{
			"slug":     m.Slug,
			"question": m.Question,
		},
	}

	if t, err := time.Parse(time.RFC3339, m.GameStartTime); err == nil {
		ev.StartsAt = t
	}
	if t, err := time.Parse(time.RFC3339, m.EndDateISO); err == nil {
		ev.ResolveDate = t
	}

	if ev.Status == model.StatusSettled {
		ev.Answer = c.winner(m)
		if ev.Answer == model.OutcomeUnknown {
			// Resolved without a winner token is a provider
			// inconsistency; scoring will flag it downstream.
			c.log.Warn(context.Background(), "resolved market without winner token",
				logger.String("condition_id", m.ConditionID),
			)
		}
	}
	return ev
}

// statusLabel folds CLOB booleans into the provider vocabulary.
func (c *Client) statusLabel(m *market) string {
	switch {
	case m.Closed && c.winner(m) != model.OutcomeUnknown:
		return "Resolved"
	case m.Closed:
		return "Canceled"
	case m.Active && !m.AcceptingOrders:
		return "Paused"
	default:
		return "Created"
	}
}

// winner maps the winning token onto the binary outcome. Token order
// is not trusted; the outcome label decides.
func (c *Client) winner(m *market) model.Outcome {
	for i := range m.Tokens {
		if !m.Tokens[i].Winner {
			continue
		}
		if m.Tokens[i].Outcome == "No" {
			return model.OutcomeNo
		}
		return model.OutcomeYes
	}
	return model.OutcomeUnknown
}

package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"discord-dashboard/internal/demo"
	"discord-dashboard/internal/metrics"
	"discord-dashboard/internal/model"
)

const (
	DefaultBaseURL      = "https://discord.com/api/v10"
	DefaultMessageLimit = 5
	DefaultStatsDays    = 7

	maxMessageLimit = 100
	userAgent       = "DiscordBot (discord-dashboard, 1.0)"
)

const (
	routeGuild       = "GET /guilds/{id}"
	routeMessages    = "GET /channels/{id}/messages"
	routeSendMessage = "POST /channels/{id}/messages"
)

var allowedRoutes = map[string]struct{}{
	routeGuild:       {},
	routeMessages:    {},
	routeSendMessage: {},
}

var errEmptyID = errors.New("id is empty")

// Client calls the chat platform REST API with a bot credential. None of its
// operations fail: when a call does not succeed the caller receives
// substitute data tagged as a fallback.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *zap.Logger
	metrics *metrics.Metrics
	loc     *time.Location
	now     func() time.Time
}

type Option func(*Client)

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.log = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLocation sets the zone whose calendar days label the activity series.
func WithLocation(loc *time.Location) Option {
	return func(c *Client) {
		if loc != nil {
			c.loc = loc
		}
	}
}

func NewClient(baseURL, token string, timeout time.Duration, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http: &http.Client{
			Timeout:   timeout,
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		},
		log: zap.NewNop(),
		loc: time.Local,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) GuildInfo(ctx context.Context, guildID string) model.Result[model.GuildInfo] {
	var out model.GuildInfo
	err := c.guard(guildID, func() error {
		query := url.Values{}
		query.Set("with_counts", "true")
		return c.do(ctx, routeGuild, "/guilds/"+url.PathEscape(guildID), query, nil, &out)
	})
	return settle(c, "guild", out, err, demo.GuildInfo)
}

// ChannelMessages returns up to limit messages, newest first. A limit of zero
// or less means DefaultMessageLimit.
func (c *Client) ChannelMessages(ctx context.Context, channelID string, limit int) model.Result[[]model.RawMessage] {
	if limit <= 0 {
		limit = DefaultMessageLimit
	}
	if limit > maxMessageLimit {
		limit = maxMessageLimit
	}

	var out []model.RawMessage
	err := c.guard(channelID, func() error {
		query := url.Values{}
		query.Set("limit", strconv.Itoa(limit))
		return c.do(ctx, routeMessages, "/channels/"+url.PathEscape(channelID)+"/messages", query, nil, &out)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	if err == nil && out == nil {
		out = []model.RawMessage{}
	}
	return settle(c, "messages", out, err, func() []model.RawMessage {
		return demo.WelcomeMessages(c.now())
	})
}

func (c *Client) SendMessage(ctx context.Context, channelID, content string) model.Result[model.RawMessage] {
	var out model.RawMessage
	err := c.guard(channelID, func() error {
		body := struct {
			Content string `json:"content"`
		}{Content: content}
		return c.do(ctx, routeSendMessage, "/channels/"+url.PathEscape(channelID)+"/messages", nil, body, &out)
	})
	result := settle(c, "send_message", out, err, func() model.RawMessage {
		return demo.EchoMessage(content, c.now())
	})
	c.metrics.ObserveMessageSent(result.Origin)
	return result
}

// ChannelStats is computed locally; the platform exposes no per-day message
// counts to bots.
func (c *Client) ChannelStats(channelID string, days int) []model.DayCount {
	return demo.ActivitySeries(days, c.now().In(c.loc))
}

func (c *Client) guard(id string, call func() error) error {
	if strings.TrimSpace(id) == "" {
		return errEmptyID
	}
	return call()
}

func settle[T any](c *Client, endpoint string, value T, err error, fallback func() T) model.Result[T] {
	if err != nil {
		c.log.Warn("discord request failed; serving fallback data",
			zap.String("endpoint", endpoint),
			zap.Error(err))
		c.metrics.ObserveUpstream(endpoint, model.OriginFallback)
		return model.Fallback(fallback(), err)
	}
	c.metrics.ObserveUpstream(endpoint, model.OriginLive)
	return model.Live(value)
}

func (c *Client) do(ctx context.Context, route, path string, query url.Values, body any, out any) error {
	if _, ok := allowedRoutes[route]; !ok {
		return fmt.Errorf("route %q is not allowed", route)
	}
	method, _, _ := strings.Cut(route, " ")

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint = endpoint + "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request %s: %w", route, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request %s: %w", route, err)
	}
	req.Header.Set("Authorization", "Bot "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", route, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{Route: route, Status: resp.StatusCode, Message: apiErrorMessage(snippet)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response %s: %w", route, err)
	}

	return nil
}

// APIError is a non-2xx answer from the platform.
type APIError struct {
	Route   string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request %s failed with status %d", e.Route, e.Status)
	}
	return fmt.Sprintf("request %s failed with status %d: %s", e.Route, e.Status, e.Message)
}

func apiErrorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return strings.TrimSpace(string(body))
}

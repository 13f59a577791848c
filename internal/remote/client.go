// Package remote implements the storage port against a checkmaster sync
// server. Writes go over HTTP; snapshots arrive over a websocket feed.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/balkashynov/checkmaster/internal/logging"
	"github.com/balkashynov/checkmaster/internal/models"
	"github.com/balkashynov/checkmaster/internal/store"
	"github.com/balkashynov/checkmaster/internal/syncserver"
)

// DefaultTimeout bounds a single HTTP request
const DefaultTimeout = 10 * time.Second

// Client is a store.Port and store.Subscriber backed by a sync server
type Client struct {
	store.Broadcaster

	base    *url.URL
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger

	feed *feed
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default http client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithLogger sets the client logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logging.OrNop(l)
	}
}

// New creates a client for the server at baseURL (http or https)
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid remote url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid remote url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		base:   u,
		http:   &http.Client{Timeout: DefaultTimeout},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = newBreaker(c.logger)
	return c, nil
}

// newBreaker trips when most recent requests fail at the transport level.
// Not-found and validation answers count as successes.
func newBreaker(logger *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "sync-server",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.8
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrValidation)
		},
	})
}

func (c *Client) endpoint(path string) string {
	u := *c.base
	u.Path = c.base.Path + path
	return u.String()
}

// do sends one JSON request through the breaker and decodes the reply into out
func (c *Client) do(ctx context.Context, op, method, path string, in, out interface{}) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.roundTrip(ctx, method, path, in, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return models.Persistence(op, fmt.Errorf("sync server unavailable: %w", err))
	}
	return models.Persistence(op, err)
}

func (c *Client) roundTrip(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var eb syncserver.ErrorBody
		if err := json.NewDecoder(resp.Body).Decode(&eb); err != nil || eb.Code == "" {
			return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
		}
		return eb.AsError()
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) ListTemplates(ctx context.Context) ([]models.Template, error) {
	var out []models.Template
	if err := c.do(ctx, "list templates", http.MethodGet, "/api/templates", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetTemplate(ctx context.Context, id string) (*models.Template, error) {
	var out models.Template
	if err := c.do(ctx, "get template", http.MethodGet, "/api/templates/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateTemplate(ctx context.Context, title string, questions []string) (*models.Template, error) {
	title, questions, err := models.NormalizeTemplateInput(title, questions)
	if err != nil {
		return nil, err
	}
	var out models.Template
	in := syncserver.TemplateInput{Title: title, Questions: questions}
	if err := c.do(ctx, "create template", http.MethodPost, "/api/templates", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateTemplate(ctx context.Context, id, title string, questions []string) error {
	title, questions, err := models.NormalizeTemplateInput(title, questions)
	if err != nil {
		return err
	}
	in := syncserver.TemplateInput{Title: title, Questions: questions}
	return c.do(ctx, "update template", http.MethodPut, "/api/templates/"+url.PathEscape(id), in, nil)
}

func (c *Client) DeleteTemplate(ctx context.Context, id string) error {
	return c.do(ctx, "delete template", http.MethodDelete, "/api/templates/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ListSessions(ctx context.Context) ([]models.Session, error) {
	var out []models.Session
	if err := c.do(ctx, "list sessions", http.MethodGet, "/api/sessions", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var out models.Session
	if err := c.do(ctx, "get session", http.MethodGet, "/api/sessions/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateSession(ctx context.Context, templateID string) (*models.Session, error) {
	var out models.Session
	in := syncserver.SessionInput{TemplateID: templateID}
	if err := c.do(ctx, "create session", http.MethodPost, "/api/sessions", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateSessionItems(ctx context.Context, id string, items []models.Item) error {
	in := syncserver.ItemsInput{Items: items}
	return c.do(ctx, "update session", http.MethodPut, "/api/sessions/"+url.PathEscape(id)+"/items", in, nil)
}

func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.do(ctx, "delete session", http.MethodDelete, "/api/sessions/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ImportTemplate(ctx context.Context, t models.Template) (*models.Template, error) {
	var out models.Template
	if err := c.do(ctx, "import template", http.MethodPost, "/api/import/templates", t, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ImportSession(ctx context.Context, s models.Session) (*models.Session, error) {
	var out models.Session
	if err := c.do(ctx, "import session", http.MethodPost, "/api/import/sessions", s, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

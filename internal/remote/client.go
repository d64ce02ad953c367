// Package remote talks to the todo API over HTTP/JSON.
//
// All four endpoints are POST with JSON bodies. No call is retried; a
// failure is returned to the caller, who decides what to show the user.
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

	"github.com/charmbracelet/log"

	"github.com/Makepad-fr/tada-sync/internal/logging"
	"github.com/Makepad-fr/tada-sync/internal/model"
)

// Endpoint paths, relative to the base URL.
const (
	PathList         = "/api/post/list"
	PathSubmit       = "/api/post/submit"
	PathUpdateToggle = "/api/post/updatetoggle"
	PathUpdateTitle  = "/api/post/updatetitle"
)

// DefaultTimeout bounds a single request when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 512

// ErrRejected is returned when the server answers with success=false.
var ErrRejected = errors.New("rejected by server")

// StatusError reports a non-2xx response.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.Code, e.Body)
}

// TokenFunc supplies the bearer token for each request. Empty means none.
type TokenFunc func() (string, error)

// Client is safe for concurrent use.
type Client struct {
	base    *url.URL
	http    *http.Client
	token   TokenFunc
	timeout time.Duration
	logger  *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }

// WithToken sets the bearer token source.
func WithToken(fn TokenFunc) Option { return func(c *Client) { c.token = fn } }

// WithTimeout bounds each request. Zero or negative disables the bound.
func WithTimeout(d time.Duration) Option { return func(c *Client) { c.timeout = d } }

// WithLogger sets the logger used for per-request debug lines.
func WithLogger(l *log.Logger) Option { return func(c *Client) { c.logger = l } }

// New returns a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("empty server url")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url must be http or https, got %q", baseURL)
	}
	c := &Client{
		base:    u,
		http:    http.DefaultClient,
		timeout: DefaultTimeout,
		logger:  logging.Discard(),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

type listResponse struct {
	Success  bool       `json:"success"`
	InitTodo []wireItem `json:"initTodo"`
}

type successResponse struct {
	Success *bool `json:"success"`
}

// List fetches every item from the server.
func (c *Client) List(ctx context.Context) ([]model.Item, error) {
	const op = "list"
	body, err := c.post(ctx, op, PathList, nil)
	if err != nil {
		return nil, err
	}
	if err := validateList(body); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var resp listResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", op, err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("%s: %w", op, ErrRejected)
	}
	items := make([]model.Item, 0, len(resp.InitTodo))
	for _, w := range resp.InitTodo {
		items = append(items, w.item())
	}
	return items, nil
}

// Create stores a new item on the server.
func (c *Client) Create(ctx context.Context, it model.Item) error {
	const op = "submit"
	body, err := c.post(ctx, op, PathSubmit, it)
	if err != nil {
		return err
	}
	var resp successResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("%s: decode: %w", op, err)
	}
	if resp.Success == nil || !*resp.Success {
		return fmt.Errorf("%s: %w", op, ErrRejected)
	}
	return nil
}

// UpdateToggle sets the completion flag of an item. Any 2xx is success.
func (c *Client) UpdateToggle(ctx context.Context, id string, completed bool) error {
	_, err := c.post(ctx, "updatetoggle", PathUpdateToggle, struct {
		ID        string `json:"id"`
		Completed bool   `json:"completed"`
	}{id, completed})
	return err
}

// UpdateTitle renames an item. Any 2xx is success unless the body carries
// an explicit success=false.
func (c *Client) UpdateTitle(ctx context.Context, id, title string) error {
	const op = "updatetitle"
	body, err := c.post(ctx, op, PathUpdateTitle, struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}{id, title})
	if err != nil {
		return err
	}
	var resp successResponse
	if json.Unmarshal(body, &resp) == nil && resp.Success != nil && !*resp.Success {
		return fmt.Errorf("%s: %w", op, ErrRejected)
	}
	return nil
}

func (c *Client) post(ctx context.Context, op, path string, payload any) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reqBody io.Reader = http.NoBody
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s: encode: %w", op, err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base.JoinPath(path).String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		tok, err := c.token()
		if err != nil {
			return nil, fmt.Errorf("%s: token: %w", op, err)
		}
		if tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "op", op, "err", err, "duration", time.Since(start))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	c.logger.Debug("request", "op", op, "status", resp.StatusCode, "duration", time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(body))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return nil, &StatusError{Op: op, Code: resp.StatusCode, Body: msg}
	}
	return body, nil
}

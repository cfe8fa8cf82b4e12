package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"lookaway/internal/models"
	"lookaway/internal/service"
)

// Client talks to the lookaway server on behalf of the monitor. Login state
// is kept in a cookie jar; session calls use the bearer token returned by
// StartSession.
type Client struct {
	baseURL string
	http    *http.Client
}

type StartedSession struct {
	ProgressID int64     `json:"progress_id"`
	StartedAt  time.Time `json:"started_at"`
	Token      string    `json:"token"`
}

type LookAwayResult struct {
	ProgressID    int64 `json:"progress_id"`
	LookAwayCount int   `json:"look_away_count"`
}

// StatusError is a non-2xx response.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Unwrap maps statuses onto the service errors they stand for.
func (e *StatusError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return service.ErrNotAuthenticated
	case http.StatusConflict:
		return service.ErrNoActiveSession
	case http.StatusServiceUnavailable:
		return service.ErrStoreUnavailable
	}
	return nil
}

func NewClient(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Jar:       jar,
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

func (c *Client) do(ctx context.Context, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &StatusError{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// Login authenticates and stores the session cookie.
func (c *Client) Login(ctx context.Context, username, password string) error {
	creds := map[string]string{"username": username, "password": password}
	return c.do(ctx, "/login", "", creds, nil)
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, "/logout", "", nil, nil)
}

func (c *Client) StartSession(ctx context.Context) (*StartedSession, error) {
	var s StartedSession
	if err := c.do(ctx, "/start_session", "", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) UpdateLookAway(ctx context.Context, token string) (*LookAwayResult, error) {
	var r LookAwayResult
	if err := c.do(ctx, "/update_lookaway", token, nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) EndSession(ctx context.Context, token string) (*models.Progress, error) {
	var p models.Progress
	if err := c.do(ctx, "/end_session", token, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Sink returns a Sink that reports events against the session of token.
func (c *Client) Sink(token string) *HTTPSink {
	return &HTTPSink{client: c, token: token}
}

package usage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	usageEndpoint  = "/api/oauth/usage"
	betaVersion    = "oauth-2025-04-20"
	userAgent      = "claude-use-bar/0.1"

	maxResponseBytes = 1_000_000
)

// ErrInvalidToken is returned when the usage endpoint rejects the access
// token (HTTP 401).
var ErrInvalidToken = errors.New("access token is invalid or expired")

// ErrRateLimited is returned when the usage endpoint throttles the request
// (HTTP 429).
var ErrRateLimited = errors.New("usage endpoint rate limited the request")

// StatusError is returned for any other non-200 response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("usage endpoint returned HTTP %d: %s", e.Code, e.Body)
}

// TransportError wraps a failure to reach the usage endpoint at all.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("usage request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Client fetches usage data for an access token. It is stateless and safe
// for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient returns a usage client with the given per-request timeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    defaultBaseURL,
	}
}

// NewClientForBaseURL returns a client pointed at an alternative endpoint,
// used by tests.
func NewClientForBaseURL(baseURL string, timeout time.Duration) *Client {
	c := NewClient(timeout)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// FetchUsage performs the usage request for one access token. The token is
// sent as a bearer credential and never logged.
func (c *Client) FetchUsage(ctx context.Context, accessToken string) (*Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+usageEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build usage request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("anthropic-beta", betaVersion)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	switch res.StatusCode {
	case http.StatusOK:
		var snapshot Snapshot
		if err := json.Unmarshal(body, &snapshot); err != nil {
			return nil, fmt.Errorf("decode usage response: %w", err)
		}
		return &snapshot, nil
	case http.StatusUnauthorized:
		return nil, ErrInvalidToken
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	default:
		return nil, &StatusError{Code: res.StatusCode, Body: summarizeBody(body)}
	}
}

func summarizeBody(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 180 {
		return s[:180] + "..."
	}
	return s
}

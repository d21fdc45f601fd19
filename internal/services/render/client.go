package render

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

	"curator/internal/config"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "curator/1.0"
)

// StatusError reports a non-2xx response from the rendering service with
// enough detail for status classification.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("render: http %d %s", e.Code, e.Status)
}

// Client wraps the rendering service HTTP API.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// Option customizes the render client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a render client from configuration.
func NewClient(cfg *config.Config, opts ...Option) *Client {
	timeout := defaultTimeout
	if cfg.Render.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.Render.TimeoutSeconds) * time.Second
	}
	userAgent := strings.TrimSpace(cfg.Render.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	client := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.Render.BaseURL), "/"),
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type renderRequest struct {
	URL string `json:"url"`
}

// Fetch renders one page and returns its HTML.
func (c *Client) Fetch(ctx context.Context, pageURL string) (string, error) {
	pageURL = strings.TrimSpace(pageURL)
	if pageURL == "" {
		return "", errors.New("render: url required")
	}
	if _, err := url.ParseRequestURI(pageURL); err != nil {
		return "", fmt.Errorf("render: invalid url %q: %w", pageURL, err)
	}
	if c.baseURL == "" {
		return "", errors.New("render: base url not configured")
	}

	encoded, err := json.Marshal(renderRequest{URL: pageURL})
	if err != nil {
		return "", fmt.Errorf("render: encode request: %w", err)
	}
	endpoint, err := url.JoinPath(c.baseURL, "/render")
	if err != nil {
		return "", fmt.Errorf("render: build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("render: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("render: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("render: read body: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", &StatusError{Code: resp.StatusCode, Status: http.StatusText(resp.StatusCode)}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return "", errors.New("render: empty body")
	}
	return string(body), nil
}

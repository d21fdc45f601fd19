package extract

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
	"curator/internal/payload"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"
	defaultModel   = "qwen/qwen-2.5-72b-instruct"
	defaultTimeout = 120 * time.Second

	maxExcerptBytes = 512
)

// ErrNoCandidates indicates the model reported a page without any events.
var ErrNoCandidates = errors.New("extract: no candidates in response")

// MalformedError reports a response the model produced that could not be
// decoded into candidates. It carries an excerpt of the raw content for
// diagnosis.
type MalformedError struct {
	Excerpt string
	Err     error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("extract: malformed response: %v (content %q)", e.Err, e.Excerpt)
}

func (e *MalformedError) Unwrap() error { return e.Err }

// Client calls an OpenAI-compatible chat-completions API to extract event
// candidates from page text.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	referer    string
	title      string
	httpClient *http.Client
}

// Option customizes the extraction client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs an extraction client from configuration.
func NewClient(cfg *config.Config, opts ...Option) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.Extraction.APIKey)
	if apiKey == "" {
		return nil, errors.New("extract: api key required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.Extraction.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := strings.TrimSpace(cfg.Extraction.Model)
	if model == "" {
		model = defaultModel
	}
	timeout := defaultTimeout
	if cfg.Extraction.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.Extraction.TimeoutSeconds) * time.Second
	}

	client := &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		model:      model,
		referer:    strings.TrimSpace(cfg.Extraction.Referer),
		title:      strings.TrimSpace(cfg.Extraction.Title),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatCompletionRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
	Temperature    float64        `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Extract asks the model for the event candidates present in pageText.
// sourceURL is passed so the model can fill source links it cannot read from
// the text. An empty candidate list returns ErrNoCandidates; content that
// cannot be decoded returns a MalformedError.
func (c *Client) Extract(ctx context.Context, pageText, sourceURL string) ([]payload.Candidate, error) {
	if strings.TrimSpace(pageText) == "" {
		return nil, errors.New("extract: page text required")
	}

	userPrompt := fmt.Sprintf("Source URL: %s\n\nPage text:\n%s", sourceURL, pageText)
	request := chatCompletionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: ExtractionPrompt},
			{Role: "user", Content: userPrompt},
		},
		ResponseFormat: responseFormat{Type: "json_object"},
		Temperature:    0,
	}

	content, err := c.complete(ctx, request)
	if err != nil {
		return nil, err
	}

	candidates, err := decodeCandidates(content)
	if err != nil {
		return nil, &MalformedError{Excerpt: excerpt(content), Err: err}
	}
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}

	for i := range candidates {
		if strings.TrimSpace(candidates[i].Event.SourceURL) == "" {
			candidates[i].Event.SourceURL = sourceURL
		}
	}
	return candidates, nil
}

func (c *Client) complete(ctx context.Context, request chatCompletionRequest) (string, error) {
	encoded, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("extract: encode request: %w", err)
	}

	endpoint, err := url.JoinPath(c.baseURL, "/chat/completions")
	if err != nil {
		return "", fmt.Errorf("extract: build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("extract: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.referer != "" {
		req.Header.Set("HTTP-Referer", c.referer)
	}
	if c.title != "" {
		req.Header.Set("X-Title", c.title)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("extract: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("extract: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("extract: http %d: %s", resp.StatusCode, excerpt(string(body)))
	}

	var decoded chatCompletionResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("extract: decode response: %w", err)
	}
	if decoded.Error != nil {
		return "", fmt.Errorf("extract: api error: %s", decoded.Error.Message)
	}
	if len(decoded.Choices) == 0 {
		return "", errors.New("extract: response has no choices")
	}
	content := strings.TrimSpace(decoded.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("extract: response content empty")
	}
	return content, nil
}

// decodeCandidates accepts either the documented {"events": [...]} wrapper or
// a bare JSON array, since models occasionally drop the wrapper.
func decodeCandidates(content string) ([]payload.Candidate, error) {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "[") {
		return payload.ParseList([]byte(trimmed))
	}

	var wrapper struct {
		Events json.RawMessage `json:"events"`
	}
	if err := json.Unmarshal([]byte(trimmed), &wrapper); err != nil {
		return nil, fmt.Errorf("decode wrapper: %w", err)
	}
	if len(wrapper.Events) == 0 {
		return nil, nil
	}
	return payload.ParseList(wrapper.Events)
}

func excerpt(content string) string {
	if len(content) > maxExcerptBytes {
		return content[:maxExcerptBytes] + "..."
	}
	return content
}

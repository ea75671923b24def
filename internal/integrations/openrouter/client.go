package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"openrouter-chat/internal/domain"
)

const (
	// DefaultBaseURL is the OpenRouter API root.
	DefaultBaseURL = "https://openrouter.ai/api/v1"

	defaultTimeout    = 60 * time.Second
	maxResponseBytes  = 4 << 20
	maxErrorBodyBytes = 4096
)

// chatRequest is the wire shape for the Chat Completions endpoint.
type chatRequest struct {
	Model       string               `json:"model"`
	Messages    []domain.ChatMessage `json:"messages"`
	Temperature *float64             `json:"temperature,omitempty"`
}

// Client is a focused OpenRouter client for chat completions.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	keys       KeySource
	logger     *slog.Logger
	referer    string
	title      string

	keyMu    sync.Mutex
	apiKey   string
	resolved bool
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

// WithHTTPClient replaces the transport entirely; WithTimeout is then ignored.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithAttribution sets OpenRouter's optional app attribution headers
// (HTTP-Referer and X-Title). Empty values are not sent.
func WithAttribution(referer, title string) Option {
	return func(c *Client) {
		c.referer = strings.TrimSpace(referer)
		c.title = strings.TrimSpace(title)
	}
}

// NewClient creates a Client that authenticates with the key produced by
// keys. The key is resolved on the first successful call to Complete and
// reused for the lifetime of the client; failed lookups are retried on the
// next call.
func NewClient(keys KeySource, opts ...Option) (*Client, error) {
	if keys == nil {
		return nil, errors.New("openrouter: key source must not be nil")
	}
	c := &Client{
		baseURL: DefaultBaseURL,
		timeout: defaultTimeout,
		keys:    keys,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	return c, nil
}

// resolveAPIKey caches only a successful lookup. Errors, including the
// caller's cancellation, are returned to that call alone.
func (c *Client) resolveAPIKey(ctx context.Context) (string, error) {
	c.keyMu.Lock()
	defer c.keyMu.Unlock()
	if c.resolved {
		return c.apiKey, nil
	}
	key, err := c.keys.APIKey(ctx)
	if err != nil {
		return "", err
	}
	c.apiKey, c.resolved = key, true
	return key, nil
}

func chatURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if strings.HasSuffix(base, "/v1") {
		return base + "/chat/completions"
	}
	return base + "/v1/chat/completions"
}

// Complete sends one chat completion request and returns the response body
// verbatim. There are no retries: every call is exactly one POST.
//
// Failures are *RequestFailedError (non-2xx), *TransportError (no response),
// *DecodeError (2xx with a non-JSON body), ErrResponseTooLarge, or
// ErrInvalidRequest / ErrCredential (no request sent).
func (c *Client) Complete(ctx context.Context, req domain.ChatRequest) (domain.ChatResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	apiKey, err := c.resolveAPIKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCredential, err)
	}

	body, err := json.Marshal(chatRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("openrouter: marshal request: %w", err)
	}

	url := chatURL(c.baseURL)

	httpReq, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if reqErr != nil {
		return nil, fmt.Errorf("openrouter: create request: %w", reqErr)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	if c.referer != "" {
		httpReq.Header.Set("HTTP-Referer", c.referer)
	}
	if c.title != "" {
		httpReq.Header.Set("X-Title", c.title)
	}

	c.logger.DebugContext(ctx, "sending chat completion",
		"url", url,
		"model", req.Model,
		"messages", len(req.Messages),
	)

	start := time.Now()
	raw, err := c.doJSONRequest(httpReq, url)
	if err != nil {
		c.logger.WarnContext(ctx, "chat completion failed",
			"url", url,
			"model", req.Model,
			"duration", time.Since(start),
			"err", err,
		)
		return nil, err
	}

	resp := domain.ChatResponse(raw)
	if !resp.Valid() {
		return nil, &DecodeError{Body: snippet(raw)}
	}

	c.logger.DebugContext(ctx, "chat completion received",
		"model", req.Model,
		"duration", time.Since(start),
		"bytes", len(raw),
	)
	return resp, nil
}

func (c *Client) doJSONRequest(req *http.Request, url string) ([]byte, error) {
	res, doErr := c.httpClient.Do(req)
	if doErr != nil {
		return nil, &TransportError{URL: url, Err: doErr}
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBodyBytes))
		return nil, &RequestFailedError{
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes+1))
	if err != nil {
		return nil, &TransportError{URL: url, Err: fmt.Errorf("read response body: %w", err)}
	}
	if len(buf) > maxResponseBytes {
		return nil, fmt.Errorf("%w: more than %d bytes from %s", ErrResponseTooLarge, maxResponseBytes, url)
	}
	return buf, nil
}

func snippet(b []byte) string {
	if len(b) > maxErrorBodyBytes {
		b = b[:maxErrorBodyBytes]
	}
	return string(b)
}

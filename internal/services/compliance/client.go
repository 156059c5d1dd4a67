package compliance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scimdash/internal/interfaces"
	"github.com/ternarybob/scimdash/internal/models"
)

const (
	// DefaultPath is the test suite resource under the service base URL
	DefaultPath = "/ComplianceTestSuite"

	// maxErrorBody caps how much of a failed response is kept in the error text
	maxErrorBody = 64 * 1024
)

// Client posts run requests to the compliance test suite
type Client struct {
	baseURL    string
	path       string
	httpClient *http.Client
	logger     arbor.ILogger
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithPath overrides DefaultPath.
func WithPath(path string) ClientOption {
	return func(c *Client) {
		if path != "" {
			c.path = path
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the transport timeout. Zero means no timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client for the suite at baseURL
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		path:       DefaultPath,
		httpClient: &http.Client{},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// URL returns the full test suite endpoint
func (c *Client) URL() string {
	return c.baseURL + c.path
}

// Execute implements interfaces.ComplianceClient. Transport errors are returned unwrapped
// so their text reaches the operator verbatim.
func (c *Client) Execute(ctx context.Context, req *models.RunRequest, onProgress interfaces.ProgressFunc) (*models.RunResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode run request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	if c.logger != nil {
		c.logger.Debug().
			Str("url", c.URL()).
			Strs("operations", req.EnabledOperations()).
			Msg("Compliance suite request")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Body:       string(raw),
			Endpoint:   c.URL(),
		}
	}

	var result models.RunResponse
	reader := newProgressReader(resp.Body, resp.ContentLength, onProgress)
	if err := json.NewDecoder(reader).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode compliance response: %w", err)
	}

	if c.logger != nil {
		c.logger.Debug().
			Int("total", result.Statistics.Total).
			Int("results", len(result.Results)).
			Msg("Compliance suite response")
	}

	return &result, nil
}

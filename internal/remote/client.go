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

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/bourse-pos/bourse/pkg/version"
)

const (
	// DefaultTimeout bounds a single request, including the batch upload.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is requests per minute.
	DefaultRateLimit = 60

	// maxErrorBody caps how much of an error response is kept.
	maxErrorBody = 4 << 10
)

// MinClientHeader carries the oldest register version the server accepts.
const MinClientHeader = "X-Bourse-Min-Client"

var (
	// ErrNotConfigured is returned when no server URL is set.
	ErrNotConfigured = errors.New("sale-event API URL not configured")

	// ErrClientOutdated is returned when the server requires a newer register build.
	ErrClientOutdated = errors.New("register build is older than the server accepts")
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("sale-event API: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("sale-event API: HTTP %d: %s", e.StatusCode, e.Message)
}

// ClientConfig configures the HTTP client.
type ClientConfig struct {
	BaseURL   string
	Token     string
	Timeout   time.Duration
	RateLimit int // Requests per minute
}

// Client is the HTTP implementation of API with rate limiting and bearer auth.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

var _ API = (*Client)(nil)

// NewClient creates a client for the sale-event server.
func NewClient(cfg ClientConfig) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		return nil, ErrNotConfigured
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("parse API URL: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := &http.Client{}
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}
	httpClient.Timeout = timeout

	rateLimit := cfg.RateLimit
	if rateLimit <= 0 {
		rateLimit = DefaultRateLimit
	}
	limiter := rate.NewLimiter(rate.Every(time.Minute/time.Duration(rateLimit)), rateLimit)

	return &Client{
		baseURL: base,
		http:    httpClient,
		limiter: limiter,
	}, nil
}

// FetchCatalog implements API.
func (c *Client) FetchCatalog(ctx context.Context, editionID string) ([]CatalogItem, error) {
	var items []CatalogItem
	path := fmt.Sprintf("/editions/%s/catalog", url.PathEscape(editionID))
	if err := c.do(ctx, http.MethodGet, path, nil, &items); err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	return items, nil
}

type batchRequest struct {
	Sales []SaleSubmission `json:"sales"`
}

type batchResponse struct {
	Results []SaleResult `json:"results"`
}

// SubmitSalesBatch implements API.
func (c *Client) SubmitSalesBatch(ctx context.Context, editionID string, sales []SaleSubmission) ([]SaleResult, error) {
	var resp batchResponse
	path := fmt.Sprintf("/editions/%s/sales/batch", url.PathEscape(editionID))
	if err := c.do(ctx, http.MethodPost, path, batchRequest{Sales: sales}, &resp); err != nil {
		return nil, fmt.Errorf("submit sales batch: %w", err)
	}
	return resp.Results, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if minimum := resp.Header.Get(MinClientHeader); !version.Satisfies(minimum) {
		return fmt.Errorf("%w (requires %s, running %s)", ErrClientOutdated, minimum, version.Short())
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(msg)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage extracts {"error": "..."} bodies and falls back to raw text.
func errorMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return strings.TrimSpace(string(body))
}

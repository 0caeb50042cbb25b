package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"filesorter/internal/config"
	"filesorter/internal/services"
)

const maxErrorBody = 512

// HTTPDoer describes the HTTP client used by the backend client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the classification service.
type Client struct {
	baseURL string
	token   string
	client  HTTPDoer
	limiter *rate.Limiter
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// WithRateLimit caps outbound requests per minute. Zero disables limiting.
func WithRateLimit(requestsPerMinute int) Option {
	return func(c *Client) {
		c.limiter = newLimiter(requestsPerMinute)
	}
}

// New constructs a client for baseURL authenticated with token.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   strings.TrimSpace(token),
		client:  &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Inf, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig returns a client for the configured service, or nil when the
// service is not configured or the classifier runs in local mode.
func NewFromConfig(cfg *config.Config) *Client {
	if cfg == nil || !cfg.RemoteEnabled() {
		return nil
	}
	return New(cfg.Service.URL, cfg.Service.AccessToken,
		WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Service.TimeoutSeconds) * time.Second}),
		WithRateLimit(cfg.Service.RequestsPerMinute),
	)
}

func newLimiter(requestsPerMinute int) *rate.Limiter {
	if requestsPerMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	burst := requestsPerMinute / 10
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), burst)
}

// BaseURL returns the normalized service URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Classify asks the service for a verdict on one file. A 402 response is
// reported as services.ErrQuota.
func (c *Client) Classify(ctx context.Context, req ClassifyRequest) (ClassifyResponse, error) {
	var resp ClassifyResponse
	if err := c.do(ctx, http.MethodPost, "/api/classify", req, &resp); err != nil {
		return ClassifyResponse{}, err
	}
	return resp, nil
}

// LogAction records a completed move with the service.
func (c *Client) LogAction(ctx context.Context, req ActionLogRequest) error {
	return c.do(ctx, http.MethodPost, "/api/actions/log", req, nil)
}

// FetchRules downloads the user's rules.
func (c *Client) FetchRules(ctx context.Context) ([]Rule, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/api/rules", nil, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	return decodeRules(raw)
}

func (c *Client) do(ctx context.Context, method, path string, body any, dest any) error {
	if c == nil || c.baseURL == "" {
		return services.Wrap(services.ErrConfiguration, "backend", path, "service url not configured", nil)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: rate limit wait: %w", path, err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	requestID, ok := services.RequestIDFromContext(ctx)
	if !ok {
		requestID = uuid.NewString()
	}
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		statusErr := &StatusError{Endpoint: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
		switch resp.StatusCode {
		case http.StatusPaymentRequired:
			return fmt.Errorf("%w: plan limit reached: %w", services.ErrQuota, statusErr)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %w", services.ErrUnauthorized, statusErr)
		default:
			return statusErr
		}
	}

	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%s: empty response body", path)
		}
		return fmt.Errorf("%s: decode response: %w", path, err)
	}
	return nil
}

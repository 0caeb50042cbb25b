package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"filesorter/internal/services"
)

// ErrDaemonUnavailable reports that no daemon answered on the control address.
var ErrDaemonUnavailable = errors.New("filesorter daemon is not running")

// Client talks to the daemon control API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient returns a client for the daemon bound at bind ("host:port").
func NewClient(bind, token string) *Client {
	base := strings.TrimSpace(bind)
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		token:   strings.TrimSpace(token),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Status fetches the daemon status.
func (c *Client) Status(ctx context.Context) (DaemonStatus, error) {
	var out DaemonStatus
	err := c.do(ctx, http.MethodGet, "/api/status", &out)
	return out, err
}

// Pause stops new files from being handled.
func (c *Client) Pause(ctx context.Context) (PauseResponse, error) {
	var out PauseResponse
	err := c.do(ctx, http.MethodPost, "/api/pause", &out)
	return out, err
}

// Resume lets new files through again.
func (c *Client) Resume(ctx context.Context) (PauseResponse, error) {
	var out PauseResponse
	err := c.do(ctx, http.MethodPost, "/api/resume", &out)
	return out, err
}

// History returns up to limit recent actions, newest first.
func (c *Client) History(ctx context.Context, limit int) (HistoryResponse, error) {
	var out HistoryResponse
	path := "/api/history"
	if limit > 0 {
		path += "?" + url.Values{"limit": []string{strconv.Itoa(limit)}}.Encode()
	}
	err := c.do(ctx, http.MethodGet, path, &out)
	return out, err
}

// SyncRules asks the daemon to refresh rules from the service.
func (c *Client) SyncRules(ctx context.Context) (RuleSyncResponse, error) {
	var out RuleSyncResponse
	err := c.do(ctx, http.MethodPost, "/api/rules/sync", &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		var opErr *net.OpError
		if errors.As(err, &opErr) && opErr.Op == "dial" {
			return fmt.Errorf("%w at %s", ErrDaemonUnavailable, c.baseURL)
		}
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return services.Wrap(services.ErrUnauthorized, "api", path, "check api.token", nil)
	}
	if resp.StatusCode >= 300 {
		var apiErr ErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s", method, path, apiErr.Error)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

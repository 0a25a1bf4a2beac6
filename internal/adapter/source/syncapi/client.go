package syncapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/mmcdole/collie/internal/domain"
)

const (
	defaultTimeout    = 30 * time.Second
	sessionCookieName = "session"
	syncPrefix        = "/api/sync"
)

// Client implements domain.SyncRepository against the dashboard's JSON API.
// Requests are never retried: the polling loop's next tick is the retry.
type Client struct {
	baseURL    string
	session    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLimiter throttles outgoing requests with a token bucket
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// NewClient creates a new sync API client
func NewClient(baseURL, session string, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		session: session,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// doRequest performs a single authenticated JSON request
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL = fmt.Sprintf("%s?%s", reqURL, query.Encode())
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.session != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: c.session})
	}

	c.logger.Debug("sync api request", "method", method, "url", reqURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.Warn("sync api request failed", "error", err, "path", path)
		return nil, fmt.Errorf("%w: %v", domain.ErrServerOffline, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, domain.ErrAuthFailed
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("sync api request error", "status", resp.StatusCode, "path", path, "body", string(data))
		return nil, &domain.APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	return data, nil
}

// getJSON issues a GET and decodes the response into dest
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, dest any) error {
	data, err := c.doRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// postJSON issues a POST with body and decodes the response into dest (if non-nil)
func (c *Client) postJSON(ctx context.Context, path string, body, dest any) error {
	data, err := c.doRequest(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		return err
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// GetStatus returns the current status snapshot
func (c *Client) GetStatus(ctx context.Context) (*domain.SyncStatus, error) {
	var resp StatusResponse
	if err := c.getJSON(ctx, syncPrefix+"/status", nil, &resp); err != nil {
		return nil, err
	}
	return MapStatus(resp), nil
}

// GetProgress returns the running job's progress
func (c *Client) GetProgress(ctx context.Context) (*domain.SyncProgress, error) {
	var resp ProgressResponse
	if err := c.getJSON(ctx, syncPrefix+"/progress", nil, &resp); err != nil {
		return nil, err
	}
	return MapProgress(resp), nil
}

// GetLiveCount returns the stored email count
func (c *Client) GetLiveCount(ctx context.Context) (int, error) {
	var resp LiveCountResponse
	if err := c.getJSON(ctx, syncPrefix+"/live-count", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// GetLogs returns the script log and api log entries strictly after the cursor
func (c *Client) GetLogs(ctx context.Context, after string) (*domain.LogBatch, error) {
	var query url.Values
	if after != "" {
		query = url.Values{"after": []string{after}}
	}
	var resp LogsResponse
	if err := c.getJSON(ctx, syncPrefix+"/logs", query, &resp); err != nil {
		return nil, err
	}
	return MapLogs(resp), nil
}

// StartFull starts a full sync job
func (c *Client) StartFull(ctx context.Context, req domain.StartRequest) error {
	var resp MessageResponse
	body := StartRequest{MaxEmails: req.MaxDocuments, DaysAgo: req.DaysBack}
	if err := c.postJSON(ctx, syncPrefix+"/start", body, &resp); err != nil {
		return err
	}
	c.logger.Info("full sync requested", "max_emails", req.MaxDocuments, "message", resp.Message)
	return nil
}

// StartIncremental starts an incremental sync job
func (c *Client) StartIncremental(ctx context.Context) error {
	var resp MessageResponse
	if err := c.postJSON(ctx, syncPrefix+"/incremental", struct{}{}, &resp); err != nil {
		return err
	}
	c.logger.Info("incremental sync requested", "message", resp.Message)
	return nil
}

// GetAutoSync returns the auto-resync schedule
func (c *Client) GetAutoSync(ctx context.Context) (*domain.AutoSyncState, error) {
	var resp AutoSyncResponse
	if err := c.getJSON(ctx, syncPrefix+"/auto", nil, &resp); err != nil {
		return nil, err
	}
	return MapAutoSync(resp), nil
}

// SetAutoSync enables or disables auto-resync
func (c *Client) SetAutoSync(ctx context.Context, enabled bool) (*domain.AutoSyncState, error) {
	var resp AutoSyncResponse
	if err := c.postJSON(ctx, syncPrefix+"/auto", AutoSyncRequest{Enabled: enabled}, &resp); err != nil {
		return nil, err
	}
	return MapAutoSync(resp), nil
}

// Categorize runs the server-side categorization pass
func (c *Client) Categorize(ctx context.Context) (*domain.CategorizeResult, error) {
	var resp CategorizeResponse
	if err := c.postJSON(ctx, syncPrefix+"/categorize", struct{}{}, &resp); err != nil {
		return nil, err
	}
	return MapCategorize(resp), nil
}

// Me returns the identity behind the configured session
func (c *Client) Me(ctx context.Context) (*domain.Identity, error) {
	var resp MeResponse
	if err := c.getJSON(ctx, "/api/auth/me", nil, &resp); err != nil {
		return nil, err
	}
	return &domain.Identity{Email: resp.Email, Name: resp.Name}, nil
}

// IsAuthError reports whether err means the session must be renewed
func IsAuthError(err error) bool {
	return errors.Is(err, domain.ErrAuthFailed)
}

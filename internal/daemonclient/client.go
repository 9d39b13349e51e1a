package daemonclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"requestarr/internal/api"
	"requestarr/internal/config"
	"requestarr/internal/services"
)

const defaultTimeout = 30 * time.Second

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the daemon's HTTP API.
type Client struct {
	baseURL string
	token   string
	client  HTTPDoer
}

// New builds a client pointed at the configured API bind address.
func New(cfg *config.Config) *Client {
	bind := ""
	token := ""
	if cfg != nil {
		bind = cfg.Paths.APIBind
		token = cfg.Paths.APIToken
	}
	return NewWithDoer("http://"+strings.TrimSpace(bind), token, &http.Client{Timeout: defaultTimeout})
}

// NewWithDoer builds a client with an explicit base URL and HTTP backend.
func NewWithDoer(baseURL, token string, client HTTPDoer) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   strings.TrimSpace(token),
		client:  client,
	}
}

// Status fetches daemon runtime information.
func (c *Client) Status(ctx context.Context) (api.DaemonStatus, error) {
	var status api.DaemonStatus
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &status)
	return status, err
}

// Sync triggers a manual sync run.
func (c *Client) Sync(ctx context.Context) (api.SyncLogView, error) {
	var resp api.SyncLogResponse
	err := c.do(ctx, http.MethodPost, "/api/sync", nil, &resp)
	return resp.Log, err
}

// SyncLogs lists recent sync runs, newest first.
func (c *Client) SyncLogs(ctx context.Context, limit int) ([]api.SyncLogView, error) {
	path := "/api/sync/logs"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp api.SyncLogListResponse
	err := c.do(ctx, http.MethodGet, path, nil, &resp)
	return resp.Logs, err
}

// SyncLog fetches one sync run with its match details.
func (c *Client) SyncLog(ctx context.Context, id int64) (api.SyncLogView, error) {
	var resp api.SyncLogResponse
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/sync/logs/%d", id), nil, &resp)
	return resp.Log, err
}

// Requests lists requests, optionally filtered by status.
func (c *Client) Requests(ctx context.Context, statuses ...string) ([]api.RequestView, error) {
	path := "/api/requests"
	if len(statuses) > 0 {
		params := url.Values{}
		for _, status := range statuses {
			params.Add("status", status)
		}
		path += "?" + params.Encode()
	}
	var resp api.RequestListResponse
	err := c.do(ctx, http.MethodGet, path, nil, &resp)
	return resp.Requests, err
}

// Request fetches one request.
func (c *Client) Request(ctx context.Context, id int64) (api.RequestView, error) {
	var resp api.RequestItemResponse
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/requests/%d", id), nil, &resp)
	return resp.Request, err
}

// CreateRequest files a new request.
func (c *Client) CreateRequest(ctx context.Context, input api.CreateRequestInput) (api.RequestView, error) {
	var resp api.RequestItemResponse
	err := c.do(ctx, http.MethodPost, "/api/requests", input, &resp)
	return resp.Request, err
}

// SetRequestStatus applies a manual status transition.
func (c *Client) SetRequestStatus(ctx context.Context, id int64, input api.SetStatusInput) (api.RequestView, error) {
	var resp api.RequestItemResponse
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/requests/%d/status", id), input, &resp)
	return resp.Request, err
}

// RemoveRequest deletes a request.
func (c *Client) RemoveRequest(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/requests/%d", id), nil, nil)
}

// Search queries the daemon's search providers.
func (c *Client) Search(ctx context.Context, text string, author, narrator bool) (api.SearchResponse, error) {
	params := url.Values{}
	params.Set("q", text)
	if author {
		params.Set("author", "1")
	}
	if narrator {
		params.Set("narrator", "1")
	}
	var resp api.SearchResponse
	err := c.do(ctx, http.MethodGet, "/api/search?"+params.Encode(), nil, &resp)
	return resp, err
}

// LibrarySearch queries the Audiobookshelf library for existing items.
func (c *Client) LibrarySearch(ctx context.Context, text string) (api.LibrarySearchResponse, error) {
	params := url.Values{}
	params.Set("q", text)
	var resp api.LibrarySearchResponse
	err := c.do(ctx, http.MethodGet, "/api/library/search?"+params.Encode(), nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrUnavailable, "daemon", "request", "is the daemon running?", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return statusError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// statusError converts an API error payload back into the closest sentinel.
func statusError(resp *http.Response) error {
	message := ""
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&payload); err == nil {
		message = payload.Error
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	switch resp.StatusCode {
	case http.StatusConflict:
		return services.ErrSyncAlreadyRunning
	case http.StatusNotFound:
		return services.Wrap(services.ErrNotFound, "daemon", "", message, nil)
	case http.StatusBadRequest:
		return services.Wrap(services.ErrValidation, "daemon", "", message, nil)
	case http.StatusServiceUnavailable:
		return services.Wrap(services.ErrNotConfigured, "daemon", "", message, nil)
	default:
		return services.Wrap(services.ErrUnavailable, "daemon", "", fmt.Sprintf("%s (status %d)", message, resp.StatusCode), nil)
	}
}

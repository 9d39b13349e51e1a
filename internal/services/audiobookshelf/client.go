package audiobookshelf

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"requestarr/internal/config"
	"requestarr/internal/services"
)

const (
	defaultTimeout = 10 * time.Second
	pageSize       = 100
	// maxPages bounds catalog pagination per library so a misbehaving
	// server cannot keep the engine looping forever.
	maxPages = 500
)

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Item is one audiobook from the Audiobookshelf catalog, flattened to the
// fields the matcher and the API care about.
type Item struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Author      string `json:"author,omitempty"`
	Narrator    string `json:"narrator,omitempty"`
	CoverURL    string `json:"cover_url,omitempty"`
	LibraryID   string `json:"library_id,omitempty"`
	LibraryName string `json:"library_name,omitempty"`
}

// Library is one Audiobookshelf library with mediaType "book".
type Library struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Status summarizes daemon-facing reachability for the status endpoints.
type Status struct {
	Configured bool      `json:"configured"`
	Reachable  bool      `json:"reachable"`
	Libraries  []Library `json:"libraries,omitempty"`
}

// Client talks to one Audiobookshelf server.
type Client struct {
	baseURL string
	token   string
	timeout time.Duration
	client  HTTPDoer
}

// NewClient constructs a client from configuration using the default HTTP
// backend.
func NewClient(cfg *config.Config) *Client {
	timeout := defaultTimeout
	baseURL := ""
	token := ""
	if cfg != nil {
		baseURL = cfg.ABS.URL
		token = cfg.ABS.APIToken
		if cfg.ABS.RequestTimeout > 0 {
			timeout = time.Duration(cfg.ABS.RequestTimeout) * time.Second
		}
	}
	return NewClientWithDoer(baseURL, token, timeout, http.DefaultClient)
}

// NewClientWithDoer constructs a client with an explicit HTTP backend.
func NewClientWithDoer(baseURL, token string, timeout time.Duration, client HTTPDoer) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   strings.TrimSpace(token),
		timeout: timeout,
		client:  client,
	}
}

// Configured reports whether both the base URL and API token are present.
func (c *Client) Configured() bool {
	return c != nil && c.baseURL != "" && c.token != ""
}

// Ping probes the server by listing libraries. A nil error means the server
// is reachable and the token was accepted.
func (c *Client) Ping(ctx context.Context) error {
	if !c.Configured() {
		return services.Wrap(services.ErrNotConfigured, "audiobookshelf", "ping", "url or api token missing", nil)
	}
	var resp librariesResponse
	return c.getJSON(ctx, "/api/libraries", nil, &resp)
}

// Libraries returns the book libraries on the server.
func (c *Client) Libraries(ctx context.Context) ([]Library, error) {
	if !c.Configured() {
		return nil, services.Wrap(services.ErrNotConfigured, "audiobookshelf", "libraries", "url or api token missing", nil)
	}
	var resp librariesResponse
	if err := c.getJSON(ctx, "/api/libraries", nil, &resp); err != nil {
		return nil, err
	}
	libraries := make([]Library, 0, len(resp.Libraries))
	for _, lib := range resp.Libraries {
		if lib.MediaType != "book" {
			continue
		}
		libraries = append(libraries, Library{ID: lib.ID, Name: lib.Name})
	}
	return libraries, nil
}

// FetchCatalog returns every item from every book library. It either
// returns the full catalog or an error; a partial page failure aborts the
// fetch rather than returning a silently truncated list.
func (c *Client) FetchCatalog(ctx context.Context) ([]Item, error) {
	libraries, err := c.Libraries(ctx)
	if err != nil {
		return nil, err
	}
	var catalog []Item
	for _, lib := range libraries {
		items, err := c.fetchLibrary(ctx, lib)
		if err != nil {
			return nil, err
		}
		catalog = append(catalog, items...)
	}
	return catalog, nil
}

func (c *Client) fetchLibrary(ctx context.Context, lib Library) ([]Item, error) {
	var items []Item
	for page := 0; page < maxPages; page++ {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(pageSize))
		params.Set("page", strconv.Itoa(page))

		var resp itemsResponse
		path := fmt.Sprintf("/api/libraries/%s/items", url.PathEscape(lib.ID))
		if err := c.getJSON(ctx, path, params, &resp); err != nil {
			return nil, err
		}
		if len(resp.Results) == 0 {
			return items, nil
		}
		for _, raw := range resp.Results {
			items = append(items, c.flattenItem(raw, lib))
		}
		if len(items) >= resp.Total {
			return items, nil
		}
	}
	// A truncated catalog would silently un-match requests, so the cap is an
	// error rather than a partial result.
	return nil, services.Wrap(services.ErrUnavailable, "audiobookshelf", "list items",
		fmt.Sprintf("library %s exceeded the %d page cap", lib.ID, maxPages), nil)
}

// Search queries the server's book search endpoint.
func (c *Client) Search(ctx context.Context, query string) ([]Item, error) {
	if !c.Configured() {
		return nil, services.Wrap(services.ErrNotConfigured, "audiobookshelf", "search", "url or api token missing", nil)
	}
	params := url.Values{}
	params.Set("q", query)
	var resp searchResponse
	if err := c.getJSON(ctx, "/api/search", params, &resp); err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(resp.Book))
	for _, entry := range resp.Book {
		items = append(items, c.flattenItem(entry.LibraryItem, Library{}))
	}
	return items, nil
}

// FetchStatus reports configured/reachable state plus the book libraries
// when reachable. It never returns an error; failures degrade to an
// unreachable status.
func (c *Client) FetchStatus(ctx context.Context) Status {
	status := Status{Configured: c.Configured()}
	if !status.Configured {
		return status
	}
	libraries, err := c.Libraries(ctx)
	if err != nil {
		return status
	}
	status.Reachable = true
	status.Libraries = libraries
	return status
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	requestURL := c.baseURL + path
	if len(params) > 0 {
		requestURL += "?" + params.Encode()
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return services.Wrap(services.ErrUnavailable, "audiobookshelf", "request", "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrUnavailable, "audiobookshelf", "request", fmt.Sprintf("GET %s", path), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		message := fmt.Sprintf("GET %s returned %d", path, resp.StatusCode)
		if trimmed := strings.TrimSpace(string(body)); trimmed != "" {
			message += ": " + trimmed
		}
		return services.Wrap(services.ErrUnavailable, "audiobookshelf", "request", message, nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrUnavailable, "audiobookshelf", "decode", fmt.Sprintf("GET %s", path), err)
	}
	return nil
}

func (c *Client) flattenItem(raw rawItem, lib Library) Item {
	meta := raw.Media.Metadata
	author := strings.TrimSpace(meta.AuthorName)
	if author == "" {
		author = joinNames(meta.Authors)
	}
	narrator := strings.TrimSpace(meta.NarratorName)
	if narrator == "" {
		narrator = joinNames(meta.Narrators)
	}
	coverURL := ""
	if raw.ID != "" && c.baseURL != "" {
		coverURL = fmt.Sprintf("%s/api/items/%s/cover?token=%s", c.baseURL, url.PathEscape(raw.ID), url.QueryEscape(c.token))
	}
	return Item{
		ID:          raw.ID,
		Title:       strings.TrimSpace(meta.Title),
		Author:      author,
		Narrator:    narrator,
		CoverURL:    coverURL,
		LibraryID:   lib.ID,
		LibraryName: lib.Name,
	}
}

func joinNames(people []namedEntry) string {
	names := make([]string, 0, len(people))
	for _, person := range people {
		if name := strings.TrimSpace(person.Name); name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, ", ")
}

type librariesResponse struct {
	Libraries []rawLibrary `json:"libraries"`
}

type rawLibrary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	MediaType string `json:"mediaType"`
}

type itemsResponse struct {
	Results []rawItem `json:"results"`
	Total   int       `json:"total"`
}

type searchResponse struct {
	Book []searchEntry `json:"book"`
}

type searchEntry struct {
	LibraryItem rawItem `json:"libraryItem"`
}

type rawItem struct {
	ID    string   `json:"id"`
	Media rawMedia `json:"media"`
}

type rawMedia struct {
	Metadata rawMetadata `json:"metadata"`
}

type rawMetadata struct {
	Title        string       `json:"title"`
	AuthorName   string       `json:"authorName"`
	Authors      []namedEntry `json:"authors"`
	NarratorName string       `json:"narratorName"`
	Narrators    []namedEntry `json:"narrators"`
}

type namedEntry struct {
	Name string `json:"name"`
}

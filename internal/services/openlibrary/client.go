package openlibrary

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"requestarr/internal/config"
	"requestarr/internal/search"
	"requestarr/internal/services"
)

const (
	defaultTimeout = 10 * time.Second
	resultLimit    = 20
	searchFields   = "key,title,author_name,cover_i,isbn,first_sentence"
)

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client queries the Open Library search endpoint.
type Client struct {
	baseURL  string
	coverURL string
	timeout  time.Duration
	client   HTTPDoer
}

// NewClient builds a client from configuration.
func NewClient(cfg *config.Config) *Client {
	timeout := defaultTimeout
	if cfg != nil && cfg.Search.RequestTimeout > 0 {
		timeout = time.Duration(cfg.Search.RequestTimeout) * time.Second
	}
	return NewClientWithDoer(timeout, http.DefaultClient,
		"https://openlibrary.org", "https://covers.openlibrary.org")
}

// NewClientWithDoer builds a client with explicit endpoints and HTTP backend.
func NewClientWithDoer(timeout time.Duration, client HTTPDoer, baseURL, coverURL string) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		coverURL: strings.TrimRight(coverURL, "/"),
		timeout:  timeout,
		client:   client,
	}
}

// Name identifies the provider in logs and candidate sources.
func (c *Client) Name() string { return "open_library" }

// Search runs a general query; Open Library has no dedicated author or
// narrator search so the text is passed through as-is.
func (c *Client) Search(ctx context.Context, query search.Query) ([]search.Candidate, error) {
	params := url.Values{}
	params.Set("q", query.Text)
	params.Set("fields", searchFields)
	params.Set("limit", fmt.Sprintf("%d", resultLimit))

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search.json?"+params.Encode(), nil)
	if err != nil {
		return nil, services.Wrap(services.ErrUnavailable, "open_library", "search", "build request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrUnavailable, "open_library", "search", "request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, services.Wrap(services.ErrUnavailable, "open_library", "search", fmt.Sprintf("status %d", resp.StatusCode), nil)
	}

	var payload struct {
		Docs []doc `json:"docs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, services.Wrap(services.ErrUnavailable, "open_library", "search", "decode response", err)
	}

	results := make([]search.Candidate, 0, len(payload.Docs))
	for _, entry := range payload.Docs {
		results = append(results, c.toCandidate(entry))
	}
	return results, nil
}

type doc struct {
	Title         string          `json:"title"`
	AuthorName    []string        `json:"author_name"`
	CoverID       int64           `json:"cover_i"`
	ISBN          []string        `json:"isbn"`
	FirstSentence json.RawMessage `json:"first_sentence"`
}

func (c *Client) toCandidate(entry doc) search.Candidate {
	title := entry.Title
	if title == "" {
		title = "Unknown Title"
	}
	coverURL := ""
	if entry.CoverID > 0 {
		coverURL = fmt.Sprintf("%s/b/id/%d-M.jpg", c.coverURL, entry.CoverID)
	}
	return search.Candidate{
		Title:       title,
		Author:      strings.Join(entry.AuthorName, ", "),
		CoverURL:    coverURL,
		ISBN:        pickISBN(entry.ISBN),
		Description: firstSentence(entry.FirstSentence),
		Source:      "open_library",
	}
}

// pickISBN prefers an ISBN-13 over the first entry.
func pickISBN(isbns []string) string {
	for _, candidate := range isbns {
		if len(candidate) == 13 {
			return candidate
		}
	}
	if len(isbns) > 0 {
		return isbns[0]
	}
	return ""
}

// firstSentence tolerates the three shapes Open Library serves for the
// first_sentence field: a string, an object with a value key, or a list of
// either.
func firstSentence(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}
	var asObject struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &asObject); err == nil && asObject.Value != "" {
		return asObject.Value
	}
	var asList []json.RawMessage
	if err := json.Unmarshal(raw, &asList); err == nil && len(asList) > 0 {
		return firstSentence(asList[0])
	}
	return ""
}

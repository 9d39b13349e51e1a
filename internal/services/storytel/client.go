package storytel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"requestarr/internal/config"
	"requestarr/internal/search"
	"requestarr/internal/services"
)

const (
	defaultTimeout = 10 * time.Second
	defaultLocale  = "en"
	resultLimit    = 10
	userAgent      = "Storytel ABS-Scraper"
)

var htmlTags = regexp.MustCompile(`<[^>]+>`)

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client searches Storytel's public catalog for one request locale.
type Client struct {
	baseURL string
	locale  string
	timeout time.Duration
	client  HTTPDoer
}

// NewClient builds a client from configuration.
func NewClient(cfg *config.Config) *Client {
	timeout := defaultTimeout
	locale := defaultLocale
	if cfg != nil {
		if cfg.Search.RequestTimeout > 0 {
			timeout = time.Duration(cfg.Search.RequestTimeout) * time.Second
		}
		if strings.TrimSpace(cfg.Search.StorytelLocale) != "" {
			locale = strings.TrimSpace(cfg.Search.StorytelLocale)
		}
	}
	return NewClientWithDoer(locale, timeout, http.DefaultClient, "https://www.storytel.com")
}

// NewClientWithDoer builds a client with an explicit endpoint and HTTP backend.
func NewClientWithDoer(locale string, timeout time.Duration, client HTTPDoer, baseURL string) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if strings.TrimSpace(locale) == "" {
		locale = defaultLocale
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		locale:  locale,
		timeout: timeout,
		client:  client,
	}
}

// Name identifies the provider in logs and candidate sources.
func (c *Client) Name() string { return "storytel" }

// Search runs a text query against the locale-scoped search endpoint.
// Storytel has no dedicated author or narrator search; subtitles after a
// colon are dropped because they defeat its exact-ish matching.
func (c *Client) Search(ctx context.Context, query search.Query) ([]search.Candidate, error) {
	text, _, _ := strings.Cut(query.Text, ":")
	text = strings.TrimSpace(text)

	params := url.Values{}
	params.Set("request_locale", c.locale)
	params.Set("q", text)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/search.action?"+params.Encode(), nil)
	if err != nil {
		return nil, services.Wrap(services.ErrUnavailable, "storytel", "search", "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrUnavailable, "storytel", "search", "request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, services.Wrap(services.ErrUnavailable, "storytel", "search", fmt.Sprintf("status %d", resp.StatusCode), nil)
	}

	var payload struct {
		Books []entry `json:"books"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, services.Wrap(services.ErrUnavailable, "storytel", "search", "decode response", err)
	}

	books := payload.Books
	if len(books) > resultLimit {
		books = books[:resultLimit]
	}
	results := make([]search.Candidate, 0, len(books))
	for _, item := range books {
		if candidate, ok := c.toCandidate(item); ok {
			results = append(results, candidate)
		}
	}
	return results, nil
}

// entry is one search hit. Results either nest the listing under slb or
// carry it at the top level.
type entry struct {
	SLB *listing `json:"slb"`
	listing
}

type listing struct {
	Book  bookInfo   `json:"book"`
	ABook *audioInfo `json:"abook"`
	EBook *ebookInfo `json:"ebook"`
}

type bookInfo struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Authors    string `json:"authorsAsString"`
	LargeCover string `json:"largeCover"`
}

type audioInfo struct {
	ISBN        string `json:"isbn"`
	Narrator    string `json:"narratorAsString"`
	LengthMS    int64  `json:"length"`
	Description string `json:"description"`
}

type ebookInfo struct {
	ISBN        string `json:"isbn"`
	Description string `json:"description"`
}

func (c *Client) toCandidate(item entry) (search.Candidate, bool) {
	source := item.listing
	if item.SLB != nil {
		source = *item.SLB
	}
	// Skip catalog stubs without a playable or readable edition.
	if source.Book.ID == 0 || (source.ABook == nil && source.EBook == nil) {
		return search.Candidate{}, false
	}
	title := strings.TrimSpace(source.Book.Name)
	if title == "" {
		return search.Candidate{}, false
	}

	candidate := search.Candidate{
		Title:    title,
		Author:   strings.TrimSpace(source.Book.Authors),
		CoverURL: coverURL(source.Book.LargeCover),
		Source:   "storytel",
	}
	if source.ABook != nil {
		candidate.Narrator = strings.TrimSpace(source.ABook.Narrator)
		candidate.ISBN = strings.TrimSpace(source.ABook.ISBN)
		candidate.Duration = formatLength(source.ABook.LengthMS)
		candidate.Description = stripMarkup(source.ABook.Description)
	}
	if source.EBook != nil {
		if candidate.ISBN == "" {
			candidate.ISBN = strings.TrimSpace(source.EBook.ISBN)
		}
		if candidate.Description == "" {
			candidate.Description = stripMarkup(source.EBook.Description)
		}
	}
	return candidate, true
}

// coverURL upgrades the thumbnail path Storytel returns to the 640px
// rendition on its public host.
func coverURL(largeCover string) string {
	if strings.TrimSpace(largeCover) == "" {
		return ""
	}
	return "https://storytel.com" + strings.ReplaceAll(largeCover, "320x320", "640x640")
}

func formatLength(lengthMS int64) string {
	if lengthMS <= 0 {
		return ""
	}
	minutes := lengthMS / 60000
	hours := minutes / 60
	rest := minutes % 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, rest)
	}
	return fmt.Sprintf("%dm", rest)
}

func stripMarkup(value string) string {
	return strings.TrimSpace(htmlTags.ReplaceAllString(value, ""))
}

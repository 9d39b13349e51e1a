package audible

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"requestarr/internal/config"
	"requestarr/internal/search"
	"requestarr/internal/services"
)

const (
	defaultTimeout = 10 * time.Second
	resultsPerPage = 25
	audnexWorkers  = 10
)

// regionTLD maps an Audible region code to its marketplace TLD.
var regionTLD = map[string]string{
	"us": ".com",
	"ca": ".ca",
	"uk": ".co.uk",
	"au": ".com.au",
	"fr": ".fr",
	"de": ".de",
	"jp": ".co.jp",
	"it": ".it",
	"in": ".in",
	"es": ".es",
}

var htmlTags = regexp.MustCompile(`<[^>]+>`)

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client searches Audible catalogs across one or more regions.
type Client struct {
	regions     []string
	language    string
	timeout     time.Duration
	client      HTTPDoer
	catalogBase string
	audnexBase  string
}

// NewClient builds a client from configuration.
func NewClient(cfg *config.Config) *Client {
	regions := []string{"us"}
	language := ""
	timeout := defaultTimeout
	if cfg != nil {
		if len(cfg.Search.AudibleRegions) > 0 {
			regions = cfg.Search.AudibleRegions
		}
		language = cfg.Search.AudibleLanguage
		if cfg.Search.RequestTimeout > 0 {
			timeout = time.Duration(cfg.Search.RequestTimeout) * time.Second
		}
	}
	return &Client{
		regions:     regions,
		language:    language,
		timeout:     timeout,
		client:      http.DefaultClient,
		catalogBase: "https://api.audible%s/1.0/catalog/products",
		audnexBase:  "https://api.audnex.us",
	}
}

// NewClientWithDoer builds a client with explicit endpoints and HTTP backend.
// catalogBase may contain a %s verb that receives the region TLD; without one
// the same endpoint serves every region.
func NewClientWithDoer(regions []string, language string, timeout time.Duration, client HTTPDoer, catalogBase, audnexBase string) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if len(regions) == 0 {
		regions = []string{"us"}
	}
	return &Client{
		regions:     regions,
		language:    language,
		timeout:     timeout,
		client:      client,
		catalogBase: catalogBase,
		audnexBase:  strings.TrimRight(audnexBase, "/"),
	}
}

// Name identifies the provider in logs and candidate sources.
func (c *Client) Name() string { return "audible" }

// Search runs the two-step Audible lookup: catalog search for ASINs, then
// audnex metadata per ASIN. Regions are queried in order and merged with
// ASIN deduplication.
func (c *Client) Search(ctx context.Context, query search.Query) ([]search.Candidate, error) {
	seen := make(map[string]struct{})
	var merged []search.Candidate
	var lastErr error
	for _, region := range c.regions {
		results, err := c.searchRegion(ctx, region, query)
		if err != nil {
			lastErr = err
			continue
		}
		for _, candidate := range results {
			if candidate.ASIN != "" {
				if _, dup := seen[candidate.ASIN]; dup {
					continue
				}
				seen[candidate.ASIN] = struct{}{}
			}
			merged = append(merged, candidate)
		}
	}
	if len(merged) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return merged, nil
}

func (c *Client) searchRegion(ctx context.Context, region string, query search.Query) ([]search.Candidate, error) {
	region = strings.ToLower(strings.TrimSpace(region))
	tld, ok := regionTLD[region]
	if !ok {
		tld = ".com"
		region = "us"
	}

	searchParam := "keywords"
	if query.Author {
		searchParam = "author"
	} else if query.Narrator {
		searchParam = "narrator"
	}
	page := query.Page
	if page < 1 {
		page = 1
	}

	params := url.Values{}
	params.Set(searchParam, query.Text)
	params.Set("num_results", strconv.Itoa(resultsPerPage))
	params.Set("page", strconv.Itoa(page))
	params.Set("products_sort_by", "Relevance")
	if c.language != "" {
		params.Set("language", c.language)
	}

	var catalog struct {
		Products []struct {
			ASIN string `json:"asin"`
		} `json:"products"`
	}
	endpoint := c.catalogBase
	if strings.Contains(endpoint, "%s") {
		endpoint = fmt.Sprintf(endpoint, tld)
	}
	catalogURL := endpoint + "?" + params.Encode()
	if err := c.getJSON(ctx, catalogURL, &catalog); err != nil {
		return nil, services.Wrap(services.ErrUnavailable, "audible", "catalog search", "region "+region, err)
	}

	asins := make([]string, 0, len(catalog.Products))
	for _, product := range catalog.Products {
		if product.ASIN != "" {
			asins = append(asins, product.ASIN)
		}
	}
	if len(asins) == 0 {
		return nil, nil
	}
	return c.fetchAudnex(ctx, region, asins), nil
}

// fetchAudnex resolves metadata for each ASIN concurrently. Slots keep the
// catalog's relevance order; failed lookups are dropped.
func (c *Client) fetchAudnex(ctx context.Context, region string, asins []string) []search.Candidate {
	slots := make([]*search.Candidate, len(asins))
	sem := make(chan struct{}, audnexWorkers)
	var wg sync.WaitGroup
	for i, asin := range asins {
		wg.Add(1)
		go func(i int, asin string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			candidate, err := c.fetchOne(ctx, region, asin)
			if err == nil {
				slots[i] = candidate
			}
		}(i, asin)
	}
	wg.Wait()

	results := make([]search.Candidate, 0, len(asins))
	for _, slot := range slots {
		if slot != nil {
			results = append(results, *slot)
		}
	}
	return results
}

func (c *Client) fetchOne(ctx context.Context, region, asin string) (*search.Candidate, error) {
	bookURL := fmt.Sprintf("%s/books/%s", c.audnexBase, url.PathEscape(asin))
	if region != "" && region != "us" {
		bookURL += "?region=" + url.QueryEscape(region)
	}
	var book audnexBook
	if err := c.getJSON(ctx, bookURL, &book); err != nil {
		return nil, err
	}
	if book.ASIN == "" {
		return nil, services.Wrap(services.ErrUnavailable, "audible", "audnex", "empty response for "+asin, nil)
	}
	candidate := book.toCandidate()
	return &candidate, nil
}

func (c *Client) getJSON(ctx context.Context, requestURL string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("GET %s returned %d", req.URL.Path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type audnexBook struct {
	ASIN      string `json:"asin"`
	Title     string `json:"title"`
	Subtitle  string `json:"subtitle"`
	Image     string `json:"image"`
	ISBN      string `json:"isbn"`
	Summary   string `json:"summary"`
	RuntimeM  int    `json:"runtimeLengthMin"`
	Authors   []namedEntry `json:"authors"`
	Narrators []namedEntry `json:"narrators"`
}

type namedEntry struct {
	Name string `json:"name"`
}

func (b audnexBook) toCandidate() search.Candidate {
	title := strings.TrimSpace(b.Title)
	if subtitle := strings.TrimSpace(b.Subtitle); subtitle != "" {
		title = title + ": " + subtitle
	}
	description := strings.TrimSpace(htmlTags.ReplaceAllString(b.Summary, ""))
	return search.Candidate{
		Title:       title,
		Author:      joinNames(b.Authors),
		Narrator:    joinNames(b.Narrators),
		CoverURL:    b.Image,
		ISBN:        b.ISBN,
		ASIN:        b.ASIN,
		Duration:    formatRuntime(b.RuntimeM),
		Description: description,
		Source:      "audible",
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

func formatRuntime(minutes int) string {
	if minutes <= 0 {
		return ""
	}
	hours := minutes / 60
	rest := minutes % 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, rest)
	}
	return fmt.Sprintf("%dm", rest)
}

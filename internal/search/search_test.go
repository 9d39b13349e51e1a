package search_test

import (
	"context"
	"errors"
	"testing"

	"requestarr/internal/search"
	"requestarr/internal/services"
)

type stubProvider struct {
	name    string
	results []search.Candidate
	err     error
	calls   int
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Search(ctx context.Context, query search.Query) ([]search.Candidate, error) {
	p.calls++
	return p.results, p.err
}

func TestSearchFirstNonEmptyProviderWins(t *testing.T) {
	empty := &stubProvider{name: "audible"}
	fallback := &stubProvider{name: "open_library", results: []search.Candidate{{Title: "Dune", Source: "open_library"}}}
	service := search.NewService(nil, empty, fallback)

	results, err := service.Search(context.Background(), search.Query{Text: "dune"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 || results[0].Source != "open_library" {
		t.Fatalf("unexpected results: %#v", results)
	}
	if empty.calls != 1 || fallback.calls != 1 {
		t.Fatalf("expected both providers consulted, got %d and %d", empty.calls, fallback.calls)
	}
}

func TestSearchStopsAtFirstHit(t *testing.T) {
	primary := &stubProvider{name: "audible", results: []search.Candidate{{Title: "Dune", Source: "audible"}}}
	fallback := &stubProvider{name: "open_library"}
	service := search.NewService(nil, primary, fallback)

	results, err := service.Search(context.Background(), search.Query{Text: "dune"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if results[0].Source != "audible" {
		t.Fatalf("unexpected results: %#v", results)
	}
	if fallback.calls != 0 {
		t.Fatal("fallback should not be consulted after a hit")
	}
}

func TestSearchProviderErrorFallsThrough(t *testing.T) {
	failing := &stubProvider{name: "audible", err: errors.New("timeout")}
	fallback := &stubProvider{name: "open_library", results: []search.Candidate{{Title: "Dune"}}}
	service := search.NewService(nil, failing, fallback)

	results, err := service.Search(context.Background(), search.Query{Text: "dune"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected fallback results, got %#v", results)
	}
}

func TestSearchNoProviders(t *testing.T) {
	service := search.NewService(nil)

	_, err := service.Search(context.Background(), search.Query{Text: "dune"})
	if !errors.Is(err, services.ErrNotConfigured) {
		t.Fatalf("expected not configured error, got %v", err)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	service := search.NewService(nil, &stubProvider{name: "audible"})

	_, err := service.Search(context.Background(), search.Query{Text: "  "})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

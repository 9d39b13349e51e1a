package audible_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"requestarr/internal/search"
	"requestarr/internal/services/audible"
)

func TestSearchResolvesCatalogThroughAudnex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/catalog/products":
			if got := r.URL.Query().Get("keywords"); got != "the hobbit" {
				t.Errorf("unexpected keywords %q", got)
			}
			if got := r.URL.Query().Get("language"); got != "english" {
				t.Errorf("unexpected language %q", got)
			}
			fmt.Fprint(w, `{"total_results":2,"products":[{"asin":"B001"},{"asin":"B002"}]}`)
		case "/books/B001":
			fmt.Fprint(w, `{"asin":"B001","title":"The Hobbit","subtitle":"An Unexpected Journey",
				"authors":[{"name":"J.R.R. Tolkien"}],"narrators":[{"name":"Andy Serkis"}],
				"runtimeLengthMin":125,"summary":"<p>There and back again.</p>"}`)
		case "/books/B002":
			fmt.Fprint(w, `{"asin":"B002","title":"The Silmarillion","authors":[{"name":"J.R.R. Tolkien"}]}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	client := audible.NewClientWithDoer([]string{"us"}, "english", 5*time.Second, server.Client(),
		server.URL+"/catalog/products", server.URL)

	results, err := client.Search(context.Background(), search.Query{Text: "the hobbit"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(results))
	}
	first := results[0]
	if first.Title != "The Hobbit: An Unexpected Journey" {
		t.Fatalf("expected subtitle appended, got %q", first.Title)
	}
	if first.Author != "J.R.R. Tolkien" || first.Narrator != "Andy Serkis" {
		t.Fatalf("unexpected people: %#v", first)
	}
	if first.Duration != "2h 5m" {
		t.Fatalf("unexpected duration %q", first.Duration)
	}
	if first.Description != "There and back again." {
		t.Fatalf("expected HTML stripped, got %q", first.Description)
	}
	if results[1].ASIN != "B002" {
		t.Fatal("expected catalog relevance order preserved")
	}
}

func TestSearchAuthorParameter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/catalog/products" {
			if got := r.URL.Query().Get("author"); got != "tolkien" {
				t.Errorf("expected author param, got query %v", r.URL.Query())
			}
			fmt.Fprint(w, `{"products":[]}`)
			return
		}
		t.Errorf("unexpected path %s", r.URL.Path)
	}))
	t.Cleanup(server.Close)

	client := audible.NewClientWithDoer(nil, "", 5*time.Second, server.Client(),
		server.URL+"/catalog/products", server.URL)

	results, err := client.Search(context.Background(), search.Query{Text: "tolkien", Author: true})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no candidates, got %d", len(results))
	}
}

func TestSearchDropsFailedAudnexLookups(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/catalog/products":
			fmt.Fprint(w, `{"products":[{"asin":"B001"},{"asin":"B404"}]}`)
		case "/books/B001":
			fmt.Fprint(w, `{"asin":"B001","title":"Dune","authors":[{"name":"Frank Herbert"}]}`)
		case "/books/B404":
			http.NotFound(w, r)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	t.Cleanup(server.Close)

	client := audible.NewClientWithDoer([]string{"us"}, "", 5*time.Second, server.Client(),
		server.URL+"/catalog/products", server.URL)

	results, err := client.Search(context.Background(), search.Query{Text: "dune"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 || results[0].ASIN != "B001" {
		t.Fatalf("expected only the resolvable candidate, got %#v", results)
	}
}

func TestSearchCatalogFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	client := audible.NewClientWithDoer([]string{"us"}, "", 5*time.Second, server.Client(),
		server.URL+"/catalog/products", server.URL)

	_, err := client.Search(context.Background(), search.Query{Text: "dune"})
	if err == nil {
		t.Fatal("expected error when every region fails")
	}
}

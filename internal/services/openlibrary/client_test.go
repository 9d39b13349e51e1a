package openlibrary_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"requestarr/internal/search"
	"requestarr/internal/services"
	"requestarr/internal/services/openlibrary"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *openlibrary.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return openlibrary.NewClientWithDoer(5*time.Second, server.Client(), server.URL, "https://covers.example.org")
}

func TestSearchMapsDocs(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("q"); got != "dune" {
			t.Errorf("unexpected query %q", got)
		}
		fmt.Fprint(w, `{"docs":[
			{"title":"Dune","author_name":["Frank Herbert"],"cover_i":123,
			 "isbn":["0441013597","9780441013593"],"first_sentence":["A beginning is the time."]},
			{"title":"Dune Messiah","author_name":["Frank Herbert"],
			 "first_sentence":{"value":"Such a rich store of myths."}}
		]}`)
	})

	results, err := client.Search(context.Background(), search.Query{Text: "dune"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(results))
	}
	first := results[0]
	if first.ISBN != "9780441013593" {
		t.Fatalf("expected ISBN-13 preferred, got %q", first.ISBN)
	}
	if first.CoverURL != "https://covers.example.org/b/id/123-M.jpg" {
		t.Fatalf("unexpected cover URL %q", first.CoverURL)
	}
	if first.Description != "A beginning is the time." {
		t.Fatalf("unexpected description %q", first.Description)
	}
	if results[1].Description != "Such a rich store of myths." {
		t.Fatalf("expected object-form first_sentence handled, got %q", results[1].Description)
	}
	if first.Source != "open_library" {
		t.Fatalf("unexpected source %q", first.Source)
	}
}

func TestSearchServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	})

	_, err := client.Search(context.Background(), search.Query{Text: "dune"})
	if !errors.Is(err, services.ErrUnavailable) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
}

package storytel_test

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
	"requestarr/internal/services/storytel"
)

func newTestClient(t *testing.T, locale string, handler http.HandlerFunc) *storytel.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return storytel.NewClientWithDoer(locale, 5*time.Second, server.Client(), server.URL)
}

func TestSearchMapsBooks(t *testing.T) {
	client := newTestClient(t, "sv", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/search.action" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("request_locale"); got != "sv" {
			t.Errorf("unexpected locale %q", got)
		}
		if got := r.URL.Query().Get("q"); got != "The Hobbit" {
			t.Errorf("expected subtitle stripped, got %q", got)
		}
		fmt.Fprint(w, `{"books":[
			{"slb":{
				"book":{"id":1,"name":"The Hobbit","authorsAsString":"J.R.R. Tolkien","largeCover":"/images/320x320/hobbit.jpg"},
				"abook":{"isbn":"9780261103344","narratorAsString":"Rob Inglis","length":39600000,"description":"<p>A hole in the ground.</p>"}
			}},
			{"book":{"id":2,"name":"The Silmarillion","authorsAsString":"J.R.R. Tolkien"},
			 "ebook":{"isbn":"9780261102736","description":"The elder days."}},
			{"book":{"id":3,"name":"Shelf Stub"}},
			{"book":{"id":0,"name":"No ID"},"abook":{"isbn":"x"}}
		]}`)
	})

	results, err := client.Search(context.Background(), search.Query{Text: "The Hobbit: An Unexpected Journey"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected stubs without editions dropped, got %d candidates", len(results))
	}

	first := results[0]
	if first.Narrator != "Rob Inglis" || first.ISBN != "9780261103344" {
		t.Fatalf("unexpected audiobook fields: %#v", first)
	}
	if first.Duration != "11h 0m" {
		t.Fatalf("unexpected duration %q", first.Duration)
	}
	if first.Description != "A hole in the ground." {
		t.Fatalf("expected markup stripped, got %q", first.Description)
	}
	if first.CoverURL != "https://storytel.com/images/640x640/hobbit.jpg" {
		t.Fatalf("unexpected cover URL %q", first.CoverURL)
	}
	if first.Source != "storytel" {
		t.Fatalf("unexpected source %q", first.Source)
	}

	second := results[1]
	if second.ISBN != "9780261102736" || second.Description != "The elder days." {
		t.Fatalf("expected ebook fallback fields, got %#v", second)
	}
	if second.Narrator != "" || second.Duration != "" {
		t.Fatalf("expected no audiobook fields on ebook-only entry, got %#v", second)
	}
}

func TestSearchServerError(t *testing.T) {
	client := newTestClient(t, "en", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	})

	_, err := client.Search(context.Background(), search.Query{Text: "dune"})
	if !errors.Is(err, services.ErrUnavailable) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
}

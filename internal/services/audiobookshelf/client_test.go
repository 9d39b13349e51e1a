package audiobookshelf_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"requestarr/internal/services"
	"requestarr/internal/services/audiobookshelf"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *audiobookshelf.Client) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := audiobookshelf.NewClientWithDoer(server.URL, "token-1", 5*time.Second, server.Client())
	return server, client
}

func TestFetchCatalogPagesAllBookLibraries(t *testing.T) {
	pageRequests := 0
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer token-1" {
			t.Errorf("unexpected auth header %q", got)
		}
		switch r.URL.Path {
		case "/api/libraries":
			fmt.Fprint(w, `{"libraries":[
				{"id":"lib_books","name":"Audiobooks","mediaType":"book"},
				{"id":"lib_pods","name":"Podcasts","mediaType":"podcast"}
			]}`)
		case "/api/libraries/lib_books/items":
			page := r.URL.Query().Get("page")
			pageRequests++
			switch page {
			case "0":
				fmt.Fprint(w, `{"total":3,"results":[
					{"id":"li_1","media":{"metadata":{"title":"The Hobbit","authorName":"J.R.R. Tolkien"}}},
					{"id":"li_2","media":{"metadata":{"title":"Dune","authors":[{"name":"Frank Herbert"}]}}}
				]}`)
			case "1":
				fmt.Fprint(w, `{"total":3,"results":[
					{"id":"li_3","media":{"metadata":{"title":"Emma","authorName":"Jane Austen"}}}
				]}`)
			default:
				t.Errorf("unexpected page %q", page)
				fmt.Fprint(w, `{"total":3,"results":[]}`)
			}
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
		}
	})

	catalog, err := client.FetchCatalog(context.Background())
	if err != nil {
		t.Fatalf("FetchCatalog failed: %v", err)
	}
	if len(catalog) != 3 {
		t.Fatalf("expected 3 items, got %d", len(catalog))
	}
	if pageRequests != 2 {
		t.Fatalf("expected 2 item pages, got %d", pageRequests)
	}
	if catalog[0].Title != "The Hobbit" || catalog[0].Author != "J.R.R. Tolkien" {
		t.Fatalf("unexpected first item: %#v", catalog[0])
	}
	if catalog[1].Author != "Frank Herbert" {
		t.Fatalf("expected authors list fallback, got %#v", catalog[1])
	}
	if catalog[2].LibraryID != "lib_books" || catalog[2].LibraryName != "Audiobooks" {
		t.Fatalf("expected library tagging, got %#v", catalog[2])
	}
}

func TestFetchCatalogNotConfigured(t *testing.T) {
	client := audiobookshelf.NewClientWithDoer("", "", 0, http.DefaultClient)

	_, err := client.FetchCatalog(context.Background())
	if !errors.Is(err, services.ErrNotConfigured) {
		t.Fatalf("expected not configured error, got %v", err)
	}
}

func TestFetchCatalogSurfacesServerErrors(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})

	_, err := client.FetchCatalog(context.Background())
	if !errors.Is(err, services.ErrUnavailable) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
}

func TestPing(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/libraries" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"libraries":[]}`)
	})

	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}

func TestPingNotConfiguredSkipsNetwork(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	t.Cleanup(server.Close)
	client := audiobookshelf.NewClientWithDoer(server.URL, "", 0, server.Client())

	err := client.Ping(context.Background())
	if !errors.Is(err, services.ErrNotConfigured) {
		t.Fatalf("expected not configured error, got %v", err)
	}
	if called {
		t.Fatal("expected no network call when unconfigured")
	}
}

func TestSearch(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("q"); got != "hobbit" {
			t.Errorf("unexpected query %q", got)
		}
		fmt.Fprint(w, `{"book":[
			{"libraryItem":{"id":"li_9","media":{"metadata":{"title":"The Hobbit","authorName":"J.R.R. Tolkien"}}}}
		]}`)
	})

	items, err := client.Search(context.Background(), "hobbit")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(items) != 1 || items[0].Title != "The Hobbit" {
		t.Fatalf("unexpected results: %#v", items)
	}
}

func TestFetchStatus(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"libraries":[{"id":"lib_books","name":"Audiobooks","mediaType":"book"}]}`)
	})

	status := client.FetchStatus(context.Background())
	if !status.Configured || !status.Reachable {
		t.Fatalf("expected configured and reachable, got %#v", status)
	}
	if len(status.Libraries) != 1 || status.Libraries[0].Name != "Audiobooks" {
		t.Fatalf("unexpected libraries: %#v", status.Libraries)
	}
}

func TestFetchStatusUnreachable(t *testing.T) {
	server, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {})
	server.Close()

	status := client.FetchStatus(context.Background())
	if !status.Configured || status.Reachable {
		t.Fatalf("expected configured but unreachable, got %#v", status)
	}
}

func TestFetchCatalogPageCapIsAnError(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/libraries":
			fmt.Fprint(w, `{"libraries":[{"id":"lib_books","name":"Audiobooks","mediaType":"book"}]}`)
		case "/api/libraries/lib_books/items":
			// A server that never exhausts: every page is full and the
			// reported total stays out of reach.
			fmt.Fprint(w, `{"total":1000000,"results":[
				{"id":"li_x","media":{"metadata":{"title":"Endless","authorName":"Nobody"}}}
			]}`)
		default:
			http.NotFound(w, r)
		}
	})

	catalog, err := client.FetchCatalog(context.Background())
	if !errors.Is(err, services.ErrUnavailable) {
		t.Fatalf("expected unavailable error at the page cap, got %v", err)
	}
	if catalog != nil {
		t.Fatalf("expected no partial catalog, got %d items", len(catalog))
	}
}

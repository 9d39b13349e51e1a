package testsupport

import (
	"context"
	"testing"

	"requestarr/internal/config"
	"requestarr/internal/requests"
)

// MustOpenStore opens a requests.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *requests.Store {
	t.Helper()

	store, err := requests.Open(cfg)
	if err != nil {
		t.Fatalf("requests.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewRequest creates a pending request for tests using the provided store.
func NewRequest(t testing.TB, store *requests.Store, title, author string) *requests.Request {
	t.Helper()

	req, err := store.Add(context.Background(), &requests.Request{
		Title:     title,
		Author:    author,
		Requester: "tester",
		Source:    "audible",
	})
	if err != nil {
		t.Fatalf("store.Add: %v", err)
	}
	return req
}

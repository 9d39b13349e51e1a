package api_test

import (
	"context"
	"errors"
	"testing"

	"requestarr/internal/api"
	"requestarr/internal/requests"
	"requestarr/internal/services"
	"requestarr/internal/testsupport"
)

func newService(t *testing.T) (*api.RequestService, *requests.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	return api.NewRequestService(store), store
}

func TestCreateAndDescribe(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	view, err := svc.Create(ctx, api.CreateRequestInput{
		Title:     "  The Hobbit  ",
		Author:    "J.R.R. Tolkien",
		Requester: "alice",
		Source:    "audible",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if view.Title != "The Hobbit" {
		t.Fatalf("expected trimmed title, got %q", view.Title)
	}
	if view.Status != string(requests.StatusPending) {
		t.Fatalf("expected pending, got %q", view.Status)
	}

	described, err := svc.Describe(ctx, view.ID)
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if described == nil || described.Requester != "alice" {
		t.Fatalf("unexpected describe result: %#v", described)
	}
}

func TestCreateRejectsBlankTitle(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Create(context.Background(), api.CreateRequestInput{Title: "  "})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestListRejectsUnknownStatus(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.List(context.Background(), "bogus")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	testsupport.NewRequest(t, store, "Dune", "Frank Herbert")
	rejected := testsupport.NewRequest(t, store, "Emma", "Jane Austen")
	if _, err := store.SetStatus(ctx, rejected.ID, requests.StatusRejected, ""); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}

	views, err := svc.List(ctx, "rejected")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(views) != 1 || views[0].Title != "Emma" {
		t.Fatalf("unexpected filtered list: %#v", views)
	}
}

func TestSetStatusAndRemove(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	req := testsupport.NewRequest(t, store, "Dune", "Frank Herbert")

	view, err := svc.SetStatus(ctx, req.ID, api.SetStatusInput{Status: "in_progress", ManagerNote: "ordered"})
	if err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	if view.Status != string(requests.StatusInProgress) || view.ManagerNote != "ordered" {
		t.Fatalf("unexpected view: %#v", view)
	}

	if err := svc.Remove(ctx, req.ID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := svc.Remove(ctx, req.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found on second remove, got %v", err)
	}
}

func TestStatsIncludesZeroCounts(t *testing.T) {
	svc, store := newService(t)
	testsupport.NewRequest(t, store, "Dune", "Frank Herbert")

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats["pending"] != 1 {
		t.Fatalf("unexpected stats: %#v", stats)
	}
	if _, present := stats["fulfilled"]; !present {
		t.Fatal("expected zero counts for every known status")
	}
}

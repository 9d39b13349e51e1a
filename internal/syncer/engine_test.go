package syncer_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"requestarr/internal/matching"
	"requestarr/internal/requests"
	"requestarr/internal/services"
	"requestarr/internal/services/audiobookshelf"
	"requestarr/internal/syncer"
	"requestarr/internal/testsupport"
)

type fakeCatalog struct {
	items   []audiobookshelf.Item
	err     error
	calls   int
	started chan struct{}
	release chan struct{}
}

func (c *fakeCatalog) FetchCatalog(ctx context.Context) ([]audiobookshelf.Item, error) {
	c.calls++
	if c.started != nil {
		close(c.started)
		c.started = nil
	}
	if c.release != nil {
		<-c.release
	}
	if c.err != nil {
		return nil, c.err
	}
	return c.items, nil
}

func newEngine(t *testing.T, catalog *fakeCatalog) (*syncer.Engine, *requests.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	return syncer.New(cfg, store, catalog, nil), store
}

func TestRunFulfillsCertainMatch(t *testing.T) {
	catalog := &fakeCatalog{items: []audiobookshelf.Item{
		{ID: "li_1", Title: "The Hobbit", Author: "J. R. R. Tolkien"},
		{ID: "li_2", Title: "Dune", Author: "Frank Herbert"},
	}}
	engine, store := newEngine(t, catalog)
	ctx := context.Background()
	req := testsupport.NewRequest(t, store, "The Hobbit", "J.R.R. Tolkien")

	log, err := engine.Run(ctx, requests.TriggerManual)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if log.Outcome != requests.OutcomeSuccess {
		t.Fatalf("expected success outcome, got %s", log.Outcome)
	}
	if log.RequestsChecked != 1 || log.CertainMatches != 1 {
		t.Fatalf("unexpected counters: %#v", log)
	}
	if len(log.Details) != 1 || log.Details[0].ItemID != "li_1" {
		t.Fatalf("unexpected details: %#v", log.Details)
	}

	updated, err := store.GetByID(ctx, req.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if updated.Status != requests.StatusFulfilled || !updated.FulfilledBySync {
		t.Fatalf("expected fulfilled by sync, got %#v", updated)
	}
	if updated.MatchedTitle != "The Hobbit" || updated.MatchedAuthor != "J. R. R. Tolkien" {
		t.Fatalf("expected match metadata, got %#v", updated)
	}
	if updated.MatchScore < 0.85 {
		t.Fatalf("unexpected match score %v", updated.MatchScore)
	}
	if updated.LastSyncCheckedAt == nil {
		t.Fatal("expected last sync timestamp")
	}
}

func TestRunMarksPossibleMatchIdempotently(t *testing.T) {
	catalog := &fakeCatalog{items: []audiobookshelf.Item{
		{ID: "li_1", Title: "The Hobbit", Author: "Unknown Narrator Collective"},
	}}
	engine, store := newEngine(t, catalog)
	ctx := context.Background()
	req := testsupport.NewRequest(t, store, "The Hobbit", "J.R.R. Tolkien")

	for run := 0; run < 2; run++ {
		log, err := engine.Run(ctx, requests.TriggerScheduled)
		if err != nil {
			t.Fatalf("run %d failed: %v", run, err)
		}
		if log.PossibleMatches != 1 {
			t.Fatalf("run %d: expected one possible match, got %#v", run, log)
		}
		updated, err := store.GetByID(ctx, req.ID)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if updated.Status != requests.StatusPossibleMatch {
			t.Fatalf("run %d: expected possible_match, got %s", run, updated.Status)
		}
		if updated.FulfilledBySync {
			t.Fatalf("run %d: possible match must not set fulfilled_by_sync", run)
		}
	}

	logs, err := store.ListSyncLogs(ctx, 10)
	if err != nil {
		t.Fatalf("ListSyncLogs failed: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected a log per run, got %d", len(logs))
	}
}

func TestRunNoMatchLeavesStatusUntouched(t *testing.T) {
	catalog := &fakeCatalog{items: []audiobookshelf.Item{
		{ID: "li_1", Title: "Completely Different Book", Author: "Someone Else"},
	}}
	engine, store := newEngine(t, catalog)
	ctx := context.Background()
	req := testsupport.NewRequest(t, store, "The Hobbit", "J.R.R. Tolkien")
	if _, err := store.SetStatus(ctx, req.ID, requests.StatusInProgress, ""); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}

	log, err := engine.Run(ctx, requests.TriggerManual)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if log.NoMatches != 1 {
		t.Fatalf("expected one no-match, got %#v", log)
	}

	updated, err := store.GetByID(ctx, req.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if updated.Status != requests.StatusInProgress {
		t.Fatalf("no-match must not change status, got %s", updated.Status)
	}
	if updated.LastSyncCheckedAt == nil {
		t.Fatal("expected last sync timestamp even without a match")
	}
}

func TestRunComparesEveryPairOnce(t *testing.T) {
	catalog := &fakeCatalog{items: []audiobookshelf.Item{
		{ID: "li_1", Title: "Book One"},
		{ID: "li_2", Title: "Book Two"},
		{ID: "li_3", Title: "Book Three"},
	}}
	engine, store := newEngine(t, catalog)
	ctx := context.Background()
	testsupport.NewRequest(t, store, "Alpha", "")
	testsupport.NewRequest(t, store, "Beta", "")

	var comparisons atomic.Int64
	engine.SetMatcher(syncer.MatcherFunc(func(req matching.Request, candidate matching.Candidate, threshold float64) matching.Match {
		comparisons.Add(1)
		return matching.Classify(req, candidate, threshold)
	}))

	if _, err := engine.Run(ctx, requests.TriggerManual); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := comparisons.Load(); got != 6 {
		t.Fatalf("expected 2x3 comparisons, got %d", got)
	}
}

func TestRunCatalogFailureWritesFailureLogWithoutMutations(t *testing.T) {
	catalog := &fakeCatalog{err: services.Wrap(services.ErrUnavailable, "audiobookshelf", "request", "connection refused", nil)}
	engine, store := newEngine(t, catalog)
	ctx := context.Background()
	req := testsupport.NewRequest(t, store, "The Hobbit", "J.R.R. Tolkien")

	log, err := engine.Run(ctx, requests.TriggerScheduled)
	if err != nil {
		t.Fatalf("catalog failure must not surface as an error, got %v", err)
	}
	if log.Outcome != requests.OutcomeFailure || log.ErrorMessage == "" {
		t.Fatalf("unexpected failure log: %#v", log)
	}
	if log.ID == 0 {
		t.Fatal("expected failure log persisted")
	}

	updated, err := store.GetByID(ctx, req.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if updated.Status != requests.StatusPending || updated.LastSyncCheckedAt != nil {
		t.Fatalf("failed run must not touch requests, got %#v", updated)
	}
}

func TestRunPropagatesUnclassifiedCatalogError(t *testing.T) {
	catalog := &fakeCatalog{err: errors.New("catalog stub exploded")}
	engine, store := newEngine(t, catalog)
	ctx := context.Background()
	testsupport.NewRequest(t, store, "The Hobbit", "J.R.R. Tolkien")

	if _, err := engine.Run(ctx, requests.TriggerManual); err == nil {
		t.Fatal("expected unclassified catalog error to surface")
	}

	logs, err := store.ListSyncLogs(ctx, 10)
	if err != nil {
		t.Fatalf("ListSyncLogs failed: %v", err)
	}
	if len(logs) != 0 {
		t.Fatalf("unclassified errors must not write a failure log, got %d", len(logs))
	}
}

func TestRunSkipsBlankTitleItems(t *testing.T) {
	catalog := &fakeCatalog{items: []audiobookshelf.Item{
		{ID: "li_1", Title: "  "},
		{ID: "li_2", Title: "The Hobbit", Author: "J.R.R. Tolkien"},
	}}
	engine, store := newEngine(t, catalog)
	testsupport.NewRequest(t, store, "The Hobbit", "J.R.R. Tolkien")

	log, err := engine.Run(context.Background(), requests.TriggerManual)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if log.SkippedItems != 1 {
		t.Fatalf("expected one skipped item, got %#v", log)
	}
	if log.Outcome != requests.OutcomePartial {
		t.Fatalf("expected partial outcome with skipped items, got %s", log.Outcome)
	}
	if log.CertainMatches != 1 {
		t.Fatalf("remaining items must still match, got %#v", log)
	}
}

func TestRunRejectsConcurrentTrigger(t *testing.T) {
	catalog := &fakeCatalog{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	engine, _ := newEngine(t, catalog)
	started := catalog.started

	done := make(chan error, 1)
	go func() {
		_, err := engine.Run(context.Background(), requests.TriggerScheduled)
		done <- err
	}()

	<-started
	_, err := engine.Run(context.Background(), requests.TriggerManual)
	if !errors.Is(err, services.ErrSyncAlreadyRunning) {
		t.Fatalf("expected sync already running, got %v", err)
	}
	if !engine.Running() {
		t.Fatal("expected Running to report the in-flight run")
	}

	close(catalog.release)
	if err := <-done; err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if engine.Running() {
		t.Fatal("expected guard released after the run")
	}
}

func TestRunTieBreaksByItemID(t *testing.T) {
	catalog := &fakeCatalog{items: []audiobookshelf.Item{
		{ID: "li_2", Title: "The Hobbit", Author: "J.R.R. Tolkien"},
		{ID: "li_1", Title: "The Hobbit", Author: "J.R.R. Tolkien"},
	}}
	engine, store := newEngine(t, catalog)
	ctx := context.Background()
	testsupport.NewRequest(t, store, "The Hobbit", "J.R.R. Tolkien")

	log, err := engine.Run(ctx, requests.TriggerManual)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(log.Details) != 1 || log.Details[0].ItemID != "li_1" {
		t.Fatalf("expected lowest item ID to win the tie, got %#v", log.Details)
	}
}

func TestRunLeavesFulfilledRequestTerminal(t *testing.T) {
	catalog := &fakeCatalog{items: []audiobookshelf.Item{
		{ID: "li_1", Title: "The Hobbit", Author: "J. R. R. Tolkien"},
	}}
	engine, store := newEngine(t, catalog)
	ctx := context.Background()
	req := testsupport.NewRequest(t, store, "The Hobbit", "J.R.R. Tolkien")

	if _, err := engine.Run(ctx, requests.TriggerManual); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	fulfilled, err := store.GetByID(ctx, req.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fulfilled.Status != requests.StatusFulfilled {
		t.Fatalf("expected fulfilled after first run, got %s", fulfilled.Status)
	}

	// A later catalog state, even one without the matched item, must not
	// touch a fulfilled request.
	catalog.items = []audiobookshelf.Item{
		{ID: "li_9", Title: "The Hobbit", Author: "A Different Tolkien Impersonator"},
	}
	log, err := engine.Run(ctx, requests.TriggerScheduled)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if log.RequestsChecked != 0 {
		t.Fatalf("fulfilled request must not be rechecked, got %#v", log)
	}

	after, err := store.GetByID(ctx, req.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if after.Status != requests.StatusFulfilled || !after.FulfilledBySync {
		t.Fatalf("expected fulfilled to stay terminal, got %#v", after)
	}
	if after.MatchedTitle != fulfilled.MatchedTitle ||
		after.MatchedAuthor != fulfilled.MatchedAuthor ||
		after.MatchScore != fulfilled.MatchScore {
		t.Fatalf("match metadata changed across runs: %#v vs %#v", after, fulfilled)
	}
	if after.LastSyncCheckedAt == nil || fulfilled.LastSyncCheckedAt == nil ||
		!after.LastSyncCheckedAt.Equal(*fulfilled.LastSyncCheckedAt) {
		t.Fatalf("fulfilled request must keep its original sync stamp: %#v vs %#v",
			after.LastSyncCheckedAt, fulfilled.LastSyncCheckedAt)
	}
}

package syncer

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"requestarr/internal/config"
	"requestarr/internal/logging"
	"requestarr/internal/matching"
	"requestarr/internal/requests"
	"requestarr/internal/services"
	"requestarr/internal/services/audiobookshelf"
)

const defaultThreshold = 0.85

// Catalog supplies the library contents a run reconciles against.
type Catalog interface {
	FetchCatalog(ctx context.Context) ([]audiobookshelf.Item, error)
}

// Matcher classifies one request against one catalog candidate.
type Matcher interface {
	Classify(req matching.Request, candidate matching.Candidate, threshold float64) matching.Match
}

// MatcherFunc adapts a plain function to the Matcher interface.
type MatcherFunc func(req matching.Request, candidate matching.Candidate, threshold float64) matching.Match

func (f MatcherFunc) Classify(req matching.Request, candidate matching.Candidate, threshold float64) matching.Match {
	return f(req, candidate, threshold)
}

// Engine executes sync runs. Scheduled and manual triggers share the same
// run guard so at most one run mutates the store at a time.
type Engine struct {
	store     *requests.Store
	catalog   Catalog
	matcher   Matcher
	threshold float64
	logger    *slog.Logger

	mu sync.Mutex
}

// New builds an engine with the default classifier. The threshold comes from
// configuration.
func New(cfg *config.Config, store *requests.Store, catalog Catalog, logger *slog.Logger) *Engine {
	threshold := defaultThreshold
	if cfg != nil && cfg.Sync.Threshold > 0 {
		threshold = cfg.Sync.Threshold
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		store:     store,
		catalog:   catalog,
		matcher:   MatcherFunc(matching.Classify),
		threshold: threshold,
		logger:    logging.NewComponentLogger(logger, "syncer"),
	}
}

// SetMatcher replaces the classifier. Intended for tests.
func (e *Engine) SetMatcher(matcher Matcher) {
	if matcher != nil {
		e.matcher = matcher
	}
}

// Running reports whether a run currently holds the guard.
func (e *Engine) Running() bool {
	if e.mu.TryLock() {
		e.mu.Unlock()
		return false
	}
	return true
}

// Run executes one sync run and returns its log. When another run holds the
// guard it returns services.ErrSyncAlreadyRunning immediately. A classified
// catalog failure does not mutate any request: a failure log is written and
// returned with a nil error. Unclassified errors, like cancellation, and
// store errors are returned as-is.
func (e *Engine) Run(ctx context.Context, trigger requests.TriggerKind) (*requests.SyncLog, error) {
	if !e.mu.TryLock() {
		return nil, services.ErrSyncAlreadyRunning
	}
	defer e.mu.Unlock()

	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, e.logger).With(logging.String("trigger", string(trigger)))

	log := &requests.SyncLog{
		RunID:       runID,
		TriggeredBy: trigger,
		StartedAt:   time.Now().UTC(),
	}

	eligible, err := e.store.ListEligible(ctx)
	if err != nil {
		return nil, err
	}

	items, err := e.catalog.FetchCatalog(ctx)
	if err != nil {
		if !services.IsCatalogFailure(err) {
			return nil, err
		}
		logger.Error("sync aborted, catalog unavailable", logging.Error(err))
		return e.finishFailure(ctx, log, err)
	}

	candidates := make([]matching.Candidate, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.Title) == "" {
			log.SkippedItems++
			continue
		}
		candidates = append(candidates, matching.Candidate{
			ID:     item.ID,
			Title:  item.Title,
			Author: item.Author,
		})
	}

	checkedAt := time.Now().UTC()
	updates := make([]requests.SyncUpdate, 0, len(eligible))
	for _, request := range eligible {
		update := e.resolveRequest(request, candidates, checkedAt, log)
		updates = append(updates, update)
	}

	finished := time.Now().UTC()
	log.FinishedAt = &finished
	log.Outcome = requests.OutcomeSuccess
	if log.SkippedItems > 0 {
		log.Outcome = requests.OutcomePartial
	}

	if err := e.store.CommitSyncRun(ctx, updates, log); err != nil {
		logger.Error("sync commit failed", logging.Error(err))
		if _, failErr := e.finishFailure(ctx, &requests.SyncLog{
			RunID:       runID,
			TriggeredBy: trigger,
			StartedAt:   log.StartedAt,
		}, err); failErr != nil {
			logger.Error("failure log write failed", logging.Error(failErr))
		}
		return nil, err
	}

	logger.Info("sync completed",
		logging.String("outcome", string(log.Outcome)),
		logging.Int("requests_checked", log.RequestsChecked),
		logging.Int("certain_matches", log.CertainMatches),
		logging.Int("possible_matches", log.PossibleMatches),
		logging.Int("no_matches", log.NoMatches),
		logging.Int("skipped_items", log.SkippedItems))
	return log, nil
}

// resolveRequest scores one request against every candidate and produces its
// store update, tallying counters and match details on the log as it goes.
func (e *Engine) resolveRequest(request *requests.Request, candidates []matching.Candidate, checkedAt time.Time, log *requests.SyncLog) requests.SyncUpdate {
	log.RequestsChecked++

	matchReq := matching.Request{Title: request.Title, Author: request.Author}
	matches := make([]matching.Match, 0, len(candidates))
	for _, candidate := range candidates {
		matches = append(matches, e.matcher.Classify(matchReq, candidate, e.threshold))
	}

	update := requests.SyncUpdate{RequestID: request.ID, CheckedAt: checkedAt}
	best, ok := matching.BestOf(matches)
	if !ok {
		log.NoMatches++
		return update
	}

	update.HasMatch = true
	update.MatchedTitle = best.Candidate.Title
	update.MatchedAuthor = best.Candidate.Author
	update.MatchScore = best.TitleScore
	switch best.Verdict {
	case matching.VerdictCertain:
		log.CertainMatches++
		update.Status = requests.StatusFulfilled
		update.FulfilledBySync = true
	default:
		log.PossibleMatches++
		update.Status = requests.StatusPossibleMatch
	}

	log.Details = append(log.Details, requests.MatchDetail{
		RequestID:    request.ID,
		RequestTitle: request.Title,
		ItemID:       best.Candidate.ID,
		ItemTitle:    best.Candidate.Title,
		ItemAuthor:   best.Candidate.Author,
		TitleScore:   best.TitleScore,
		AuthorScore:  best.AuthorScore,
		Verdict:      string(best.Verdict),
		ResultStatus: update.Status,
	})
	return update
}

func (e *Engine) finishFailure(ctx context.Context, log *requests.SyncLog, cause error) (*requests.SyncLog, error) {
	finished := time.Now().UTC()
	log.FinishedAt = &finished
	log.Outcome = requests.OutcomeFailure
	log.ErrorMessage = cause.Error()
	if err := e.store.AppendSyncLog(ctx, log); err != nil {
		return nil, err
	}
	return log, nil
}

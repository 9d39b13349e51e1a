package requests

import (
	"strings"
	"time"
)

// Status represents the lifecycle of an audiobook request.
type Status string

const (
	StatusPending       Status = "pending"
	StatusInProgress    Status = "in_progress"
	StatusPossibleMatch Status = "possible_match"
	StatusFulfilled     Status = "fulfilled"
	StatusRejected      Status = "rejected"
	StatusCancelled     Status = "cancelled"
)

var allStatuses = []Status{
	StatusPending,
	StatusInProgress,
	StatusPossibleMatch,
	StatusFulfilled,
	StatusRejected,
	StatusCancelled,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// eligibleStatuses are the open states the sync engine considers each run.
var eligibleStatuses = map[Status]struct{}{
	StatusPending:       {},
	StatusInProgress:    {},
	StatusPossibleMatch: {},
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// EligibleStatuses returns the statuses the sync engine considers each run.
func EligibleStatuses() []Status {
	return []Status{StatusPending, StatusInProgress, StatusPossibleMatch}
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsEligible reports whether a status is open for automatic resolution.
func (s Status) IsEligible() bool {
	_, ok := eligibleStatuses[s]
	return ok
}

// IsTerminal reports whether a status ends the request lifecycle.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusFulfilled, StatusRejected, StatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransition reports whether a manual manager edit may move a request from
// one status to another. Terminal states are final; open states may move to
// any other state. Setting the same status again is always allowed so note
// edits can reuse the same path.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	if from.IsTerminal() {
		return false
	}
	_, known := statusSet[to]
	return known
}

// Request represents an audiobook request persisted in SQLite.
type Request struct {
	ID                int64
	Title             string
	Author            string
	Narrator          string
	CoverURL          string
	ISBN              string
	ASIN              string
	Source            string
	Requester         string
	Status            Status
	UserNote          string
	ManagerNote       string
	FulfilledBySync   bool
	MatchedTitle      string
	MatchedAuthor     string
	MatchScore        float64
	LastSyncCheckedAt *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TriggerKind identifies what started a sync run.
type TriggerKind string

const (
	TriggerScheduled TriggerKind = "scheduled"
	TriggerManual    TriggerKind = "manual"
)

// Outcome classifies a completed sync run.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomePartial Outcome = "partial"
	OutcomeFailure Outcome = "failure"
)

// MatchDetail is one per-request entry recorded in a sync log.
type MatchDetail struct {
	RequestID    int64   `json:"request_id"`
	RequestTitle string  `json:"request_title"`
	ItemID       string  `json:"item_id"`
	ItemTitle    string  `json:"item_title"`
	ItemAuthor   string  `json:"item_author,omitempty"`
	TitleScore   float64 `json:"title_score"`
	AuthorScore  float64 `json:"author_score,omitempty"`
	Verdict      string  `json:"verdict"`
	ResultStatus Status  `json:"result_status"`
}

// SyncLog is an immutable audit record of one sync run.
type SyncLog struct {
	ID              int64
	RunID           string
	TriggeredBy     TriggerKind
	StartedAt       time.Time
	FinishedAt      *time.Time
	Outcome         Outcome
	RequestsChecked int
	CertainMatches  int
	PossibleMatches int
	NoMatches       int
	SkippedItems    int
	ErrorMessage    string
	Details         []MatchDetail
}

// SyncUpdate describes one request mutation applied by a sync run.
type SyncUpdate struct {
	RequestID       int64
	Status          Status
	HasMatch        bool
	MatchedTitle    string
	MatchedAuthor   string
	MatchScore      float64
	FulfilledBySync bool
	CheckedAt       time.Time
}

// Stats counts requests per status.
type Stats map[Status]int

// Open returns the number of requests in engine-eligible statuses.
func (s Stats) Open() int {
	total := 0
	for status, count := range s {
		if status.IsEligible() {
			total += count
		}
	}
	return total
}

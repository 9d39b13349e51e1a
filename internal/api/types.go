package api

import (
	"time"

	"requestarr/internal/requests"
	"requestarr/internal/search"
	"requestarr/internal/services/audiobookshelf"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// RequestView describes a request in a transport-friendly format.
type RequestView struct {
	ID                int64   `json:"id"`
	Title             string  `json:"title"`
	Author            string  `json:"author,omitempty"`
	Narrator          string  `json:"narrator,omitempty"`
	CoverURL          string  `json:"coverUrl,omitempty"`
	ISBN              string  `json:"isbn,omitempty"`
	ASIN              string  `json:"asin,omitempty"`
	Source            string  `json:"source,omitempty"`
	Requester         string  `json:"requester,omitempty"`
	Status            string  `json:"status"`
	UserNote          string  `json:"userNote,omitempty"`
	ManagerNote       string  `json:"managerNote,omitempty"`
	FulfilledBySync   bool    `json:"fulfilledBySync"`
	MatchedTitle      string  `json:"matchedTitle,omitempty"`
	MatchedAuthor     string  `json:"matchedAuthor,omitempty"`
	MatchScore        float64 `json:"matchScore,omitempty"`
	LastSyncCheckedAt string  `json:"lastSyncCheckedAt,omitempty"`
	CreatedAt         string  `json:"createdAt,omitempty"`
	UpdatedAt         string  `json:"updatedAt,omitempty"`
}

// MatchDetailView is one per-request match record inside a sync log.
type MatchDetailView struct {
	RequestID    int64   `json:"requestId"`
	RequestTitle string  `json:"requestTitle"`
	ItemID       string  `json:"itemId"`
	ItemTitle    string  `json:"itemTitle"`
	ItemAuthor   string  `json:"itemAuthor,omitempty"`
	TitleScore   float64 `json:"titleScore"`
	AuthorScore  float64 `json:"authorScore,omitempty"`
	Verdict      string  `json:"verdict"`
	ResultStatus string  `json:"resultStatus"`
}

// SyncLogView describes one sync run.
type SyncLogView struct {
	ID              int64             `json:"id"`
	RunID           string            `json:"runId"`
	TriggeredBy     string            `json:"triggeredBy"`
	StartedAt       string            `json:"startedAt"`
	FinishedAt      string            `json:"finishedAt,omitempty"`
	Outcome         string            `json:"outcome"`
	RequestsChecked int               `json:"requestsChecked"`
	CertainMatches  int               `json:"certainMatches"`
	PossibleMatches int               `json:"possibleMatches"`
	NoMatches       int               `json:"noMatches"`
	SkippedItems    int               `json:"skippedItems"`
	ErrorMessage    string            `json:"errorMessage,omitempty"`
	Details         []MatchDetailView `json:"details,omitempty"`
}

// LibraryView is one Audiobookshelf book library.
type LibraryView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ABSStatus reports Audiobookshelf connectivity.
type ABSStatus struct {
	Configured bool          `json:"configured"`
	Reachable  bool          `json:"reachable"`
	Libraries  []LibraryView `json:"libraries,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running        bool           `json:"running"`
	PID            int            `json:"pid"`
	DatabasePath   string         `json:"databasePath"`
	LockFilePath   string         `json:"lockFilePath"`
	SyncRunning    bool           `json:"syncRunning"`
	Audiobookshelf ABSStatus      `json:"audiobookshelf"`
	RequestCounts  map[string]int `json:"requestCounts"`
	OpenRequests   int            `json:"openRequests"`
	LastSync       *SyncLogView   `json:"lastSync,omitempty"`
}

// CreateRequestInput carries the fields accepted when filing a request.
type CreateRequestInput struct {
	Title     string `json:"title"`
	Author    string `json:"author,omitempty"`
	Narrator  string `json:"narrator,omitempty"`
	CoverURL  string `json:"coverUrl,omitempty"`
	ISBN      string `json:"isbn,omitempty"`
	ASIN      string `json:"asin,omitempty"`
	Source    string `json:"source,omitempty"`
	Requester string `json:"requester,omitempty"`
	UserNote  string `json:"userNote,omitempty"`
}

// SetStatusInput carries a manual status transition.
type SetStatusInput struct {
	Status      string `json:"status"`
	ManagerNote string `json:"managerNote,omitempty"`
}

// RequestListResponse wraps a collection of requests.
type RequestListResponse struct {
	Requests []RequestView `json:"requests"`
}

// RequestItemResponse wraps a single request.
type RequestItemResponse struct {
	Request RequestView `json:"request"`
}

// SyncLogListResponse wraps sync run history.
type SyncLogListResponse struct {
	Logs []SyncLogView `json:"logs"`
}

// SyncLogResponse wraps a single sync run.
type SyncLogResponse struct {
	Log SyncLogView `json:"log"`
}

// SearchResponse wraps provider search results.
type SearchResponse struct {
	Results []search.Candidate `json:"results"`
}

// LibrarySearchResponse wraps items already present in Audiobookshelf.
type LibrarySearchResponse struct {
	Items []audiobookshelf.Item `json:"items"`
}

// FromRequest converts a store request into its transport form.
func FromRequest(req *requests.Request) RequestView {
	if req == nil {
		return RequestView{}
	}
	return RequestView{
		ID:                req.ID,
		Title:             req.Title,
		Author:            req.Author,
		Narrator:          req.Narrator,
		CoverURL:          req.CoverURL,
		ISBN:              req.ISBN,
		ASIN:              req.ASIN,
		Source:            req.Source,
		Requester:         req.Requester,
		Status:            string(req.Status),
		UserNote:          req.UserNote,
		ManagerNote:       req.ManagerNote,
		FulfilledBySync:   req.FulfilledBySync,
		MatchedTitle:      req.MatchedTitle,
		MatchedAuthor:     req.MatchedAuthor,
		MatchScore:        req.MatchScore,
		LastSyncCheckedAt: formatTimePtr(req.LastSyncCheckedAt),
		CreatedAt:         formatTime(req.CreatedAt),
		UpdatedAt:         formatTime(req.UpdatedAt),
	}
}

// FromRequests converts a slice of store requests.
func FromRequests(items []*requests.Request) []RequestView {
	views := make([]RequestView, 0, len(items))
	for _, item := range items {
		views = append(views, FromRequest(item))
	}
	return views
}

// FromSyncLog converts a store sync log into its transport form.
func FromSyncLog(log *requests.SyncLog) SyncLogView {
	if log == nil {
		return SyncLogView{}
	}
	details := make([]MatchDetailView, 0, len(log.Details))
	for _, detail := range log.Details {
		details = append(details, MatchDetailView{
			RequestID:    detail.RequestID,
			RequestTitle: detail.RequestTitle,
			ItemID:       detail.ItemID,
			ItemTitle:    detail.ItemTitle,
			ItemAuthor:   detail.ItemAuthor,
			TitleScore:   detail.TitleScore,
			AuthorScore:  detail.AuthorScore,
			Verdict:      detail.Verdict,
			ResultStatus: string(detail.ResultStatus),
		})
	}
	return SyncLogView{
		ID:              log.ID,
		RunID:           log.RunID,
		TriggeredBy:     string(log.TriggeredBy),
		StartedAt:       formatTime(log.StartedAt),
		FinishedAt:      formatTimePtr(log.FinishedAt),
		Outcome:         string(log.Outcome),
		RequestsChecked: log.RequestsChecked,
		CertainMatches:  log.CertainMatches,
		PossibleMatches: log.PossibleMatches,
		NoMatches:       log.NoMatches,
		SkippedItems:    log.SkippedItems,
		ErrorMessage:    log.ErrorMessage,
		Details:         details,
	}
}

// FromSyncLogs converts sync history newest-first as stored.
func FromSyncLogs(logs []*requests.SyncLog) []SyncLogView {
	views := make([]SyncLogView, 0, len(logs))
	for _, log := range logs {
		views = append(views, FromSyncLog(log))
	}
	return views
}

// FromABSStatus converts a client status into its transport form.
func FromABSStatus(status audiobookshelf.Status) ABSStatus {
	libraries := make([]LibraryView, 0, len(status.Libraries))
	for _, lib := range status.Libraries {
		libraries = append(libraries, LibraryView{ID: lib.ID, Name: lib.Name})
	}
	return ABSStatus{
		Configured: status.Configured,
		Reachable:  status.Reachable,
		Libraries:  libraries,
	}
}

// MergeRequestStats converts per-status counts to string keys, including
// zero entries for every known status.
func MergeRequestStats(stats requests.Stats) map[string]int {
	merged := make(map[string]int, len(stats))
	for _, status := range requests.AllStatuses() {
		merged[string(status)] = stats[status]
	}
	return merged
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.Format(dateTimeFormat)
}

func formatTimePtr(value *time.Time) string {
	if value == nil {
		return ""
	}
	return formatTime(*value)
}

package api

import (
	"context"
	"strings"

	"requestarr/internal/requests"
	"requestarr/internal/services"
)

// RequestStore abstracts the persistence interactions the request surface
// needs.
type RequestStore interface {
	Add(ctx context.Context, req *requests.Request) (*requests.Request, error)
	List(ctx context.Context, statuses ...requests.Status) ([]*requests.Request, error)
	GetByID(ctx context.Context, id int64) (*requests.Request, error)
	SetStatus(ctx context.Context, id int64, to requests.Status, managerNote string) (*requests.Request, error)
	Remove(ctx context.Context, id int64) (bool, error)
	Stats(ctx context.Context) (requests.Stats, error)
}

// RequestService exposes request operations returning API DTOs.
type RequestService struct {
	store RequestStore
}

// NewRequestService constructs a RequestService around the provided store.
func NewRequestService(store RequestStore) *RequestService {
	if store == nil {
		return nil
	}
	return &RequestService{store: store}
}

// Create files a new request from user input.
func (s *RequestService) Create(ctx context.Context, input CreateRequestInput) (RequestView, error) {
	if s == nil || s.store == nil {
		return RequestView{}, services.ErrNotConfigured
	}
	req, err := s.store.Add(ctx, &requests.Request{
		Title:     strings.TrimSpace(input.Title),
		Author:    strings.TrimSpace(input.Author),
		Narrator:  strings.TrimSpace(input.Narrator),
		CoverURL:  strings.TrimSpace(input.CoverURL),
		ISBN:      strings.TrimSpace(input.ISBN),
		ASIN:      strings.TrimSpace(input.ASIN),
		Source:    strings.TrimSpace(input.Source),
		Requester: strings.TrimSpace(input.Requester),
		UserNote:  strings.TrimSpace(input.UserNote),
	})
	if err != nil {
		return RequestView{}, err
	}
	return FromRequest(req), nil
}

// List returns requests filtered by status strings. Unknown status values
// are rejected.
func (s *RequestService) List(ctx context.Context, statusFilters ...string) ([]RequestView, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	statuses := make([]requests.Status, 0, len(statusFilters))
	for _, filter := range statusFilters {
		if strings.TrimSpace(filter) == "" {
			continue
		}
		status, ok := requests.ParseStatus(filter)
		if !ok {
			return nil, services.Wrap(services.ErrValidation, "api", "list requests", "unknown status "+filter, nil)
		}
		statuses = append(statuses, status)
	}
	items, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromRequests(items), nil
}

// Describe fetches a single request; nil when absent.
func (s *RequestService) Describe(ctx context.Context, id int64) (*RequestView, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	req, err := s.store.GetByID(ctx, id)
	if err != nil || req == nil {
		return nil, err
	}
	view := FromRequest(req)
	return &view, nil
}

// SetStatus applies a manual manager transition.
func (s *RequestService) SetStatus(ctx context.Context, id int64, input SetStatusInput) (RequestView, error) {
	if s == nil || s.store == nil {
		return RequestView{}, services.ErrNotConfigured
	}
	status, ok := requests.ParseStatus(input.Status)
	if !ok {
		return RequestView{}, services.Wrap(services.ErrValidation, "api", "set status", "unknown status "+input.Status, nil)
	}
	req, err := s.store.SetStatus(ctx, id, status, strings.TrimSpace(input.ManagerNote))
	if err != nil {
		return RequestView{}, err
	}
	return FromRequest(req), nil
}

// Remove deletes a request outright.
func (s *RequestService) Remove(ctx context.Context, id int64) error {
	if s == nil || s.store == nil {
		return services.ErrNotConfigured
	}
	removed, err := s.store.Remove(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return services.Wrap(services.ErrNotFound, "api", "remove request", "", nil)
	}
	return nil
}

// Stats returns per-status counts keyed by status string.
func (s *RequestService) Stats(ctx context.Context) (map[string]int, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return MergeRequestStats(stats), nil
}

package api

import (
	"context"

	"requestarr/internal/requests"
	"requestarr/internal/services"
)

// SyncStore abstracts the sync-log reads the API surface needs.
type SyncStore interface {
	ListSyncLogs(ctx context.Context, limit int) ([]*requests.SyncLog, error)
	GetSyncLog(ctx context.Context, id int64) (*requests.SyncLog, error)
}

// SyncRunner triggers a sync run. Satisfied by *syncer.Engine.
type SyncRunner interface {
	Run(ctx context.Context, trigger requests.TriggerKind) (*requests.SyncLog, error)
}

// SyncService exposes sync operations returning API DTOs.
type SyncService struct {
	store  SyncStore
	runner SyncRunner
}

// NewSyncService constructs a SyncService around the store and runner.
func NewSyncService(store SyncStore, runner SyncRunner) *SyncService {
	if store == nil {
		return nil
	}
	return &SyncService{store: store, runner: runner}
}

// Trigger starts a manual sync run and returns its log. A run already in
// flight surfaces services.ErrSyncAlreadyRunning.
func (s *SyncService) Trigger(ctx context.Context) (SyncLogView, error) {
	if s == nil || s.runner == nil {
		return SyncLogView{}, services.ErrNotConfigured
	}
	log, err := s.runner.Run(ctx, requests.TriggerManual)
	if err != nil {
		return SyncLogView{}, err
	}
	return FromSyncLog(log), nil
}

// History lists recent sync logs, newest first.
func (s *SyncService) History(ctx context.Context, limit int) ([]SyncLogView, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	logs, err := s.store.ListSyncLogs(ctx, limit)
	if err != nil {
		return nil, err
	}
	return FromSyncLogs(logs), nil
}

// Describe fetches a single sync log; nil when absent.
func (s *SyncService) Describe(ctx context.Context, id int64) (*SyncLogView, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	log, err := s.store.GetSyncLog(ctx, id)
	if err != nil || log == nil {
		return nil, err
	}
	view := FromSyncLog(log)
	return &view, nil
}

// LastRun returns the most recent sync log, nil when no run has happened.
func (s *SyncService) LastRun(ctx context.Context) (*SyncLogView, error) {
	views, err := s.History(ctx, 1)
	if err != nil || len(views) == 0 {
		return nil, err
	}
	return &views[0], nil
}

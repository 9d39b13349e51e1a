package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"requestarr/internal/config"
	"requestarr/internal/logging"
	"requestarr/internal/requests"
	"requestarr/internal/services"
)

const defaultInterval = 6 * time.Hour

// SyncRunner executes one sync run. Satisfied by *syncer.Engine.
type SyncRunner interface {
	Run(ctx context.Context, trigger requests.TriggerKind) (*requests.SyncLog, error)
}

// Scheduler fires scheduled sync runs on a fixed interval.
type Scheduler struct {
	runner   SyncRunner
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// New builds a scheduler with the interval from configuration.
func New(cfg *config.Config, runner SyncRunner, logger *slog.Logger) *Scheduler {
	interval := defaultInterval
	if cfg != nil && cfg.Sync.IntervalHours > 0 {
		interval = time.Duration(cfg.Sync.IntervalHours) * time.Hour
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Scheduler{
		runner:   runner,
		interval: interval,
		logger:   logging.NewComponentLogger(logger, "scheduler"),
	}
}

// SetInterval overrides the tick interval. Intended for tests.
func (s *Scheduler) SetInterval(interval time.Duration) {
	if interval > 0 {
		s.interval = interval
	}
}

// Start launches the tick loop. Starting twice is an error.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("scheduler already started")
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.started = true
	s.wg.Add(1)
	go s.loop(loopCtx)
	s.logger.Info("scheduler started", logging.Duration("interval", s.interval))
	return nil
}

// Stop cancels the loop and waits for an in-flight tick to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.started = false
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs one scheduled sync. Failures are logged and never interrupt the
// loop; the next tick always fires.
func (s *Scheduler) tick(ctx context.Context) {
	log, err := s.runner.Run(ctx, requests.TriggerScheduled)
	if err != nil {
		if errors.Is(err, services.ErrSyncAlreadyRunning) {
			s.logger.Debug("scheduled sync skipped, run already in flight")
			return
		}
		s.logger.Error("scheduled sync failed", logging.Error(err))
		return
	}
	if log.Outcome == requests.OutcomeFailure {
		s.logger.Warn("scheduled sync aborted", logging.String("error", log.ErrorMessage))
		return
	}
	s.logger.Info("scheduled sync completed",
		logging.String("outcome", string(log.Outcome)),
		logging.Int("requests_checked", log.RequestsChecked),
		logging.Int("certain_matches", log.CertainMatches))
}

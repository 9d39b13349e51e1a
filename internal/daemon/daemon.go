package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"requestarr/internal/api"
	"requestarr/internal/config"
	"requestarr/internal/logging"
	"requestarr/internal/requests"
	"requestarr/internal/scheduler"
	"requestarr/internal/search"
	"requestarr/internal/services/audiobookshelf"
	"requestarr/internal/syncer"
)

// Daemon coordinates the background services and enforces single-instance
// execution.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *requests.Store
	engine    *syncer.Engine
	scheduler *scheduler.Scheduler
	abs       *audiobookshelf.Client
	searchSvc *search.Service

	apiServer *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *requests.Store, engine *syncer.Engine, sched *scheduler.Scheduler, abs *audiobookshelf.Client, searchSvc *search.Service, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || engine == nil || sched == nil {
		return nil, errors.New("daemon requires config, store, engine, and scheduler")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := filepath.Join(cfg.Paths.DataDir, "requestarrd.lock")
	d := &Daemon{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		engine:    engine,
		scheduler: sched,
		abs:       abs,
		searchSvc: searchSvc,
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}
	server, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.apiServer = server
	return d, nil
}

// Start acquires the daemon lock and launches the scheduler and API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another requestarr daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.scheduler.Start(runCtx); err != nil {
		d.releaseStart()
		return fmt.Errorf("start scheduler: %w", err)
	}
	if err := d.apiServer.start(runCtx); err != nil {
		d.scheduler.Stop()
		d.releaseStart()
		return err
	}

	d.running.Store(true)
	d.logger.Info("requestarr daemon started", logging.String("lock", d.lockPath))
	return nil
}

func (d *Daemon) releaseStart() {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	_ = d.lock.Unlock()
}

// Stop shuts down background services and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.scheduler.Stop()
	d.apiServer.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("requestarr daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// APIAddress returns the bound API listener address, empty before Start.
func (d *Daemon) APIAddress() string {
	if d.apiServer == nil {
		return ""
	}
	return d.apiServer.address()
}

// Status reports daemon runtime information.
func (d *Daemon) Status(ctx context.Context) (api.DaemonStatus, error) {
	status := api.DaemonStatus{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
		SyncRunning:  d.engine.Running(),
	}
	if d.abs != nil {
		status.Audiobookshelf = api.FromABSStatus(d.abs.FetchStatus(ctx))
	}

	stats, err := d.store.Stats(ctx)
	if err != nil {
		return status, err
	}
	status.RequestCounts = api.MergeRequestStats(stats)
	status.OpenRequests = stats.Open()

	logs, err := d.store.ListSyncLogs(ctx, 1)
	if err != nil {
		return status, err
	}
	if len(logs) > 0 {
		view := api.FromSyncLog(logs[0])
		view.Details = nil
		status.LastSync = &view
	}
	return status, nil
}

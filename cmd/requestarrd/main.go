package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"requestarr/internal/config"
	"requestarr/internal/daemon"
	"requestarr/internal/logging"
	"requestarr/internal/requests"
	"requestarr/internal/scheduler"
	"requestarr/internal/search"
	"requestarr/internal/services/audible"
	"requestarr/internal/services/audiobookshelf"
	"requestarr/internal/services/openlibrary"
	"requestarr/internal/services/storytel"
	"requestarr/internal/syncer"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := requests.Open(cfg)
	if err != nil {
		logger.Error("open request store", logging.Error(err))
		return
	}
	defer store.Close()

	abs := audiobookshelf.NewClient(cfg)
	engine := syncer.New(cfg, store, abs, logger)
	sched := scheduler.New(cfg, engine, logger)
	searchSvc := search.NewService(logger, buildProviders(cfg)...)

	d, err := daemon.New(cfg, store, engine, sched, abs, searchSvc, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	logger.Info("requestarrd listening", logging.String("addr", d.APIAddress()))
	<-ctx.Done()
	logger.Info("requestarrd shutting down")
}

func buildProviders(cfg *config.Config) []search.Provider {
	var providers []search.Provider
	if cfg.Search.AudibleEnabled {
		providers = append(providers, audible.NewClient(cfg))
	}
	if cfg.Search.StorytelEnabled {
		providers = append(providers, storytel.NewClient(cfg))
	}
	if cfg.Search.OpenLibraryEnabled {
		providers = append(providers, openlibrary.NewClient(cfg))
	}
	return providers
}

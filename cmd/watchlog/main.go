package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"github.com/amaumene/watchlog/internal/api"
	"github.com/amaumene/watchlog/internal/api/handlers"
	"github.com/amaumene/watchlog/internal/cache"
	"github.com/amaumene/watchlog/internal/config"
	"github.com/amaumene/watchlog/internal/controllers"
	"github.com/amaumene/watchlog/internal/document"
	"github.com/amaumene/watchlog/internal/library"
	"github.com/amaumene/watchlog/internal/scheduler"
	"github.com/amaumene/watchlog/internal/services/omdb"
	"github.com/amaumene/watchlog/internal/services/tmdb"
	"github.com/amaumene/watchlog/internal/utils"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := utils.NewLogger(cfg.LogLevel, cfg.LogFile)
	logger.Info("Starting watchlog")

	cacheStore, err := cache.NewStore(cfg.CacheFile, logger)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer cacheStore.Close()

	fs := afero.NewOsFs()

	tmdbClient := tmdb.NewClient(cfg, logger)
	omdbClient := omdb.NewClient(cfg, logger)
	fetcher := controllers.NewFetcher(cfg, tmdbClient, omdbClient, cacheStore, logger)

	adapter := document.NewAdapter(cfg, fs, logger)
	defer adapter.Close(false)

	libraryStore := library.NewStore(fs, cfg.DataDir, logger)
	tracker := controllers.NewTracker(adapter, libraryStore, cacheStore, logger)

	jobs := scheduler.NewScheduler(cfg, fetcher, tracker, cacheStore, logger)
	if err := jobs.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer jobs.Stop()

	handler := handlers.NewHandler(fetcher, tracker, cfg.DataDir, logger)
	server := api.NewServer(cfg.ServerPort, handler, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-sigCh:
		logger.WithField("signal", sig.String()).Info("Shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	logger.Info("Stopped")
	return nil
}

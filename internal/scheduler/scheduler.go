// Package scheduler runs the recurring maintenance jobs: trimming the
// offline cache to its configured size and refreshing the cached
// details of unfinished tracked series.
package scheduler

import (
	"context"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/amaumene/watchlog/internal/cache"
	"github.com/amaumene/watchlog/internal/config"
	"github.com/amaumene/watchlog/internal/controllers"
)

// Scheduler owns the cron instance and its jobs.
type Scheduler struct {
	cfg     *config.Config
	fetcher *controllers.Fetcher
	tracker *controllers.Tracker
	cache   *cache.Store
	cron    *cron.Cron
	logger  *logrus.Logger
}

// NewScheduler creates a new scheduler
func NewScheduler(cfg *config.Config, fetcher *controllers.Fetcher, tracker *controllers.Tracker, cacheStore *cache.Store, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cfg:     cfg,
		fetcher: fetcher,
		tracker: tracker,
		cache:   cacheStore,
		cron:    cron.New(),
		logger:  logger,
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	// Trim the offline cache hourly.
	if _, err := s.cron.AddFunc("0 * * * *", s.trimCache); err != nil {
		return err
	}

	// Refresh unfinished series every 6 hours so the offline cache
	// keeps up with airing schedules.
	if _, err := s.cron.AddFunc("0 */6 * * *", s.refreshSeries); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("Scheduler started")
	return nil
}

// Stop stops the cron loop and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) trimCache() {
	if err := s.cache.Trim(s.cfg.CacheSize); err != nil {
		s.logger.WithError(err).Warn("Cache trim failed")
	}
}

func (s *Scheduler) refreshSeries() {
	if s.cfg.OfflineMode {
		return
	}

	entries, err := s.tracker.UnfinishedSeries()
	if err != nil {
		s.logger.WithError(err).Warn("Failed to list unfinished series")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	refreshed := 0
	for _, entry := range entries {
		id, err := strconv.ParseInt(entry.Field("tmdb_id"), 10, 64)
		if err != nil {
			continue
		}
		if _, err := s.fetcher.GetSeriesDetail(ctx, id, false, true); err != nil {
			s.logger.WithError(err).WithField("series_id", id).Warn("Series refresh failed")
			continue
		}
		refreshed++
	}

	if refreshed > 0 {
		s.logger.WithField("count", refreshed).Info("Refreshed unfinished series")
	}
}

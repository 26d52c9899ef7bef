package sweepers

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tarifario/price-tracker/internal/database"
	"github.com/tarifario/price-tracker/internal/jobs"
	"github.com/tarifario/price-tracker/internal/metrics"
	"github.com/tarifario/price-tracker/internal/storage"
)

// CacheSweeper periodically ages out old cache files and archive rows
type CacheSweeper struct {
	store    storage.Storage
	archive  *database.PriceArchive
	loc      *time.Location
	config   jobs.CleanupConfig
	metrics  *metrics.Recorder
	logger   *zerolog.Logger
	interval time.Duration
	stopChan chan struct{}
}

// NewCacheSweeper creates a new sweeper for cache retention
func NewCacheSweeper(store storage.Storage, archive *database.PriceArchive, loc *time.Location, config jobs.CleanupConfig, interval time.Duration, logger *zerolog.Logger) *CacheSweeper {
	return &CacheSweeper{
		store:    store,
		archive:  archive,
		loc:      loc,
		config:   config,
		metrics:  metrics.NewRecorder(),
		logger:   logger,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the periodic retention sweep
func (s *CacheSweeper) Start(ctx context.Context) {
	s.logger.Info().
		Dur("interval", s.interval).
		Int("retention_days", s.config.RetentionDays).
		Msg("Starting cache sweeper")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Cache sweeper stopping (context cancelled)")
			return
		case <-s.stopChan:
			s.logger.Info().Msg("Cache sweeper stopping (stop signal)")
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.logger.Error().Err(err).Msg("Cache sweep failed")
			}
		}
	}
}

// Stop signals the sweeper to stop
func (s *CacheSweeper) Stop() {
	close(s.stopChan)
}

// Sweep runs one retention pass
func (s *CacheSweeper) Sweep(ctx context.Context) error {
	s.logger.Debug().Msg("Running cache retention sweep")

	deleted, err := jobs.RunAllCleanupJobs(ctx, s.store, s.archive, s.loc, s.config, s.metrics)
	if err != nil {
		return err
	}

	if deleted > 0 {
		s.logger.Info().
			Int("deleted", deleted).
			Msg("Swept expired cache files")
	}

	return nil
}

// Package jobs holds the retention cleanup routines for the disk cache
// and the optional price archive.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/tarifario/price-tracker/internal/database"
	"github.com/tarifario/price-tracker/internal/metrics"
	"github.com/tarifario/price-tracker/internal/pricing"
	"github.com/tarifario/price-tracker/internal/storage"
)

// CleanupConfig configures retention for cleanup jobs
type CleanupConfig struct {
	RetentionDays int
}

// DefaultCleanupConfig returns sensible retention defaults
func DefaultCleanupConfig() CleanupConfig {
	return CleanupConfig{
		RetentionDays: 90,
	}
}

// CleanupCacheFiles deletes daily CSV cache files older than the
// retention window. The file date comes from the cache key, not from
// file mtimes, so re-downloaded historical days still age out by their
// price date. Returns the number of files deleted.
func CleanupCacheFiles(ctx context.Context, store storage.Storage, loc *time.Location, cfg CleanupConfig) (int, error) {
	cutoff := pricing.Midnight(time.Now().In(loc)).AddDate(0, 0, -cfg.RetentionDays)

	keys, err := store.List(ctx, "prices_")
	if err != nil {
		return 0, fmt.Errorf("list cache files: %w", err)
	}

	deleted := 0
	for _, key := range keys {
		day, ok := storage.DayFromCacheKey(key, loc)
		if !ok {
			continue
		}
		if !day.Before(cutoff) {
			continue
		}
		if err := store.Delete(ctx, key); err != nil {
			return deleted, fmt.Errorf("delete %s: %w", key, err)
		}
		deleted++
	}

	return deleted, nil
}

// CleanupArchive deletes archived price days older than the retention
// window. A nil or disabled archive is a no-op.
func CleanupArchive(ctx context.Context, archive *database.PriceArchive, loc *time.Location, cfg CleanupConfig) (int64, error) {
	if archive == nil || !archive.Enabled() {
		return 0, nil
	}

	cutoff := pricing.Midnight(time.Now().In(loc)).AddDate(0, 0, -cfg.RetentionDays)
	return archive.DeletePriceDaysBefore(ctx, cutoff)
}

// RunAllCleanupJobs runs cache and archive cleanup in sequence and
// records the sweep in metrics. Archive failures do not abort the run.
func RunAllCleanupJobs(ctx context.Context, store storage.Storage, archive *database.PriceArchive, loc *time.Location, cfg CleanupConfig, rec *metrics.Recorder) (int, error) {
	deleted, err := CleanupCacheFiles(ctx, store, loc, cfg)
	if rec != nil && deleted > 0 {
		rec.RecordCacheSweepDeletes(deleted)
	}
	if err != nil {
		return deleted, err
	}

	if _, err := CleanupArchive(ctx, archive, loc, cfg); err != nil {
		return deleted, fmt.Errorf("archive cleanup: %w", err)
	}

	return deleted, nil
}

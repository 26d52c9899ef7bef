// Package source fetches the upstream tariff table and layers memory and
// disk caches in front of it. One CSV file covers all providers; fetches
// are deduplicated per date and the parsed results cached per instance.
package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	phttp "github.com/tarifario/price-tracker/internal/http"
	"github.com/tarifario/price-tracker/internal/http/ratelimit"
	"github.com/tarifario/price-tracker/internal/metrics"
	"github.com/tarifario/price-tracker/internal/parsers/csv"
	"github.com/tarifario/price-tracker/internal/pricing"
	"github.com/tarifario/price-tracker/internal/storage"
)

// Upstream defaults. The published table is maintained by Tiago Felícia
// at github.com/tiagofelicia/tiagofelicia.github.io.
const (
	DefaultRawBaseURL = "https://raw.githubusercontent.com/tiagofelicia/tiagofelicia.github.io"
	DefaultAPIBaseURL = "https://api.github.com/repos/tiagofelicia/tiagofelicia.github.io"
	DefaultFilePath   = "data/precos-horarios.csv"
)

// Spec identifies one provider/tariff instance and its VAT treatment.
type Spec struct {
	Provider string
	Tariff   string
	VATRate  float64
}

// Key returns the cache key for this instance.
func (s Spec) Key() string {
	return pricing.InstanceKey(s.Provider, s.Tariff)
}

// Config holds the upstream endpoints and cache tuning for a Fetcher.
type Config struct {
	RawBaseURL      string
	APIBaseURL      string
	FilePath        string
	MemoryTTL       time.Duration
	DownloadTimeout time.Duration
}

// DefaultConfig returns the production endpoints with a one hour memory
// cache TTL.
func DefaultConfig() Config {
	return Config{
		RawBaseURL:      DefaultRawBaseURL,
		APIBaseURL:      DefaultAPIBaseURL,
		FilePath:        DefaultFilePath,
		MemoryTTL:       time.Hour,
		DownloadTimeout: 60 * time.Second,
	}
}

// Fetcher retrieves daily price sets for provider/tariff instances.
type Fetcher struct {
	config  Config
	client  *phttp.Client
	store   storage.Storage
	parser  *csv.Parser
	cache   *memoryCache
	flight  flightGroup
	loc     *time.Location
	metrics *metrics.Recorder
	logger  zerolog.Logger
}

// NewFetcher creates a fetcher backed by the given HTTP client and disk
// store. All timestamps are interpreted in loc.
func NewFetcher(config Config, client *phttp.Client, store storage.Storage, loc *time.Location) *Fetcher {
	if config.MemoryTTL <= 0 {
		config.MemoryTTL = time.Hour
	}
	if config.DownloadTimeout <= 0 {
		config.DownloadTimeout = 60 * time.Second
	}

	return &Fetcher{
		config:  config,
		client:  client,
		store:   store,
		parser:  csv.NewParser(csv.DefaultOptions(), loc),
		cache:   newMemoryCache(config.MemoryTTL),
		loc:     loc,
		metrics: metrics.NewRecorder(),
		logger:  log.With().Str("component", "source").Logger(),
	}
}

// Location returns the timezone the fetcher interprets the table in.
func (f *Fetcher) Location() *time.Location {
	return f.loc
}

// Fetch returns the daily set for one instance and date.
//
// The current table always carries today (complete) and tomorrow
// (partial). Today is served from a complete disk copy when possible,
// tomorrow lives in the memory cache only, and past dates come from the
// commit history. An empty set is a valid result, not an error.
func (f *Fetcher) Fetch(ctx context.Context, spec Spec, day time.Time, bypassCache bool) (pricing.DailySet, error) {
	day = pricing.Midnight(day.In(f.loc))
	dateKey := day.Format("2006-01-02")
	instKey := spec.Key()

	now := time.Now().In(f.loc)
	today := pricing.Midnight(now)
	isPast := day.Before(today)

	if !bypassCache {
		if records := f.cache.get(dateKey, instKey); records != nil {
			f.metrics.RecordCacheHit("memory")
			return pricing.NewDailySet(day, spec.Provider, spec.Tariff, records), nil
		}
		f.metrics.RecordCacheMiss("memory")
	} else {
		f.cache.purge(dateKey)
	}

	var content []byte
	var err error

	switch {
	case isPast:
		content, err = f.pastContent(ctx, day, bypassCache)
		if err != nil {
			var notFound *NotFoundError
			if errors.As(err, &notFound) {
				// No commit covers the date. Report the gap, serve nothing.
				f.logger.Warn().Str("date", dateKey).Msg("No historical data for date")
				return pricing.NewDailySet(day, spec.Provider, spec.Tariff, nil), nil
			}
			return pricing.DailySet{}, err
		}

	default:
		if day.Equal(today) && !bypassCache {
			if set, ok := f.completeCachedToday(ctx, spec, day); ok {
				f.metrics.RecordCacheHit("disk")
				f.cache.set(dateKey, instKey, set.Records)
				return set, nil
			}
			f.metrics.RecordCacheMiss("disk")
		}

		content, err = f.fetchCurrent(ctx, day)
		if err != nil {
			return pricing.DailySet{}, err
		}
	}

	records, result, err := f.parser.Parse(content, spec.Provider, spec.Tariff, spec.VATRate)
	if err != nil {
		return pricing.DailySet{}, fmt.Errorf("failed to parse tariff file for %s: %w", dateKey, err)
	}
	f.metrics.RecordParseRowErrors(spec.Provider, len(result.Errors))

	set := pricing.NewDailySet(day, spec.Provider, spec.Tariff, records)

	if !isPast {
		f.persistIfLarger(ctx, spec, day, content, set.Len())
	}

	f.cache.set(dateKey, instKey, set.Records)

	f.logger.Debug().
		Str("date", dateKey).
		Str("instance", instKey).
		Int("records", set.Len()).
		Int("skipped", result.SkippedNaN+len(result.Errors)).
		Msg("Fetched daily price set")

	return set, nil
}

// pastContent loads a past date from disk or, failing that, from the
// commit history. Historical downloads are written back to disk.
func (f *Fetcher) pastContent(ctx context.Context, day time.Time, bypassCache bool) ([]byte, error) {
	key := storage.CacheKey(day)

	if !bypassCache {
		if content, err := f.store.Get(ctx, key); err == nil {
			f.metrics.RecordCacheHit("disk")
			return content, nil
		}
		f.metrics.RecordCacheMiss("disk")
	}

	start := time.Now()
	content, err := f.fetchHistoricalGuarded(ctx, day)
	if err != nil {
		var notFound *NotFoundError
		if errors.As(err, &notFound) {
			f.metrics.RecordFetch("history", "not_found", time.Since(start))
		} else {
			f.metrics.RecordFetch("history", "error", time.Since(start))
		}
		return nil, err
	}
	f.metrics.RecordFetch("history", "ok", time.Since(start))

	if err := f.store.Put(ctx, key, content, &storage.Metadata{
		ContentType: "text/csv",
		SourceURL:   f.config.APIBaseURL,
		FetchedAt:   time.Now(),
	}); err != nil {
		f.logger.Warn().Err(err).Str("key", key).Msg("Failed to persist historical file")
	}

	return content, nil
}

// fetchHistoricalGuarded runs the history lookup behind the per-date
// in-flight guard so instances sharing a date share the download.
func (f *Fetcher) fetchHistoricalGuarded(ctx context.Context, day time.Time) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := "history_" + day.Format("2006-01-02")
	content, err, _ := f.flight.Do(key, func() ([]byte, error) {
		loadCtx, cancel := context.WithTimeout(context.Background(), f.config.DownloadTimeout)
		defer cancel()
		return f.fetchHistorical(loadCtx, day)
	})
	return content, err
}

// fetchCurrent downloads the current table from the main branch. Calls
// for the same date collapse into one download.
func (f *Fetcher) fetchCurrent(ctx context.Context, day time.Time) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/main/%s", f.config.RawBaseURL, f.config.FilePath)

	content, err, _ := f.flight.Do(day.Format("2006-01-02"), func() ([]byte, error) {
		// Dedicated context so one caller's cancellation does not fail
		// the shared download.
		loadCtx, cancel := context.WithTimeout(context.Background(), f.config.DownloadTimeout)
		defer cancel()

		start := time.Now()
		body, err := f.client.GetBytes(loadCtx, url)
		if err != nil {
			var fetchErr *ratelimit.FetchRetryError
			if errors.As(err, &fetchErr) && fetchErr.NotFound() {
				f.metrics.RecordFetch("primary", "not_found", time.Since(start))
				return nil, &NotFoundError{URL: url, Day: day}
			}
			f.metrics.RecordFetch("primary", "error", time.Since(start))
			return nil, &NetworkError{URL: url, Err: err}
		}

		f.metrics.RecordFetch("primary", "ok", time.Since(start))
		f.logger.Info().Str("url", url).Int("bytes", len(body)).Msg("Fetched current tariff file")
		return body, nil
	})
	return content, err
}

// completeCachedToday returns today's set from the disk cache when the
// cached file already holds a full day for this instance.
func (f *Fetcher) completeCachedToday(ctx context.Context, spec Spec, day time.Time) (pricing.DailySet, bool) {
	content, err := f.store.Get(ctx, storage.CacheKey(day))
	if err != nil {
		return pricing.DailySet{}, false
	}

	records, _, err := f.parser.Parse(content, spec.Provider, spec.Tariff, spec.VATRate)
	if err != nil {
		f.logger.Warn().Err(err).Str("date", day.Format("2006-01-02")).Msg("Cached file unreadable, refetching")
		return pricing.DailySet{}, false
	}

	set := pricing.NewDailySet(day, spec.Provider, spec.Tariff, records)
	if !set.Complete() {
		return pricing.DailySet{}, false
	}
	return set, true
}

// persistIfLarger writes the raw file to disk only when it yields
// strictly more records for the date than the cached copy, so a partial
// fetch never clobbers a complete one.
func (f *Fetcher) persistIfLarger(ctx context.Context, spec Spec, day time.Time, content []byte, newCount int) {
	key := storage.CacheKey(day)
	dateKey := day.Format("2006-01-02")

	if existing, err := f.store.Get(ctx, key); err == nil {
		existingRecords, _, parseErr := f.parser.Parse(existing, spec.Provider, spec.Tariff, spec.VATRate)
		if parseErr == nil {
			existingCount := pricing.NewDailySet(day, spec.Provider, spec.Tariff, existingRecords).Len()
			if newCount <= existingCount {
				f.metrics.RecordSupersedeSkip()
				f.logger.Debug().
					Str("date", dateKey).
					Int("cached", existingCount).
					Int("fetched", newCount).
					Msg("Keeping larger cached file")
				return
			}
		}
	}

	if err := f.store.Put(ctx, key, content, &storage.Metadata{
		ContentType: "text/csv",
		SourceURL:   fmt.Sprintf("%s/main/%s", f.config.RawBaseURL, f.config.FilePath),
		FetchedAt:   time.Now(),
		RowCount:    newCount,
	}); err != nil {
		f.logger.Warn().Err(err).Str("key", key).Msg("Failed to persist tariff file")
		return
	}

	f.logger.Debug().Str("date", dateKey).Int("records", newCount).Msg("Persisted tariff file")
}

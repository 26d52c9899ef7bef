// Package coordinator drives the periodic refresh cycle for one
// provider/tariff instance: today's set, tomorrow's partial set and the
// aggregates derived from them.
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/tarifario/price-tracker/internal/metrics"
	"github.com/tarifario/price-tracker/internal/pricing"
	"github.com/tarifario/price-tracker/internal/source"
)

// State is the coordinator lifecycle state.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// PriceSource is the fetch dependency, satisfied by *source.Fetcher.
type PriceSource interface {
	Fetch(ctx context.Context, spec source.Spec, day time.Time, bypassCache bool) (pricing.DailySet, error)
	Location() *time.Location
}

// Archiver persists successfully fetched days. Optional.
type Archiver interface {
	ArchiveDay(ctx context.Context, set pricing.DailySet) error
}

// Config tunes the refresh loop.
type Config struct {
	// ScanInterval is the tick period of the refresh loop.
	ScanInterval time.Duration
	// CutoffHour is the local hour from which tomorrow's data is
	// expected upstream; past it, every tick bypasses the cache for
	// tomorrow until a non-empty set arrives.
	CutoffHour int
}

// DefaultConfig returns the production refresh cadence.
func DefaultConfig() Config {
	return Config{
		ScanInterval: 5 * time.Minute,
		CutoffHour:   13,
	}
}

// Snapshot is an immutable view of the coordinator's data.
type Snapshot struct {
	Spec       source.Spec        `json:"-"`
	Key        string             `json:"key"`
	State      string             `json:"state"`
	Today      pricing.DailySet   `json:"today"`
	Tomorrow   pricing.DailySet   `json:"tomorrow"`
	Aggregates pricing.Aggregates `json:"aggregates"`
	LastUpdate time.Time          `json:"last_update"`
	LastError  string             `json:"last_error,omitempty"`
}

// Coordinator periodically refreshes one instance. Ticks never overlap;
// forced refreshes serialize behind the same lock.
type Coordinator struct {
	spec     source.Spec
	src      PriceSource
	archiver Archiver
	config   Config
	metrics  *metrics.Recorder
	logger   zerolog.Logger

	refreshMu sync.Mutex

	mu            sync.RWMutex
	state         State
	today         pricing.DailySet
	tomorrow      pricing.DailySet
	lastUpdate    time.Time
	lastError     error
	everSucceeded bool

	// nowFn is replaceable in tests to pin the cutoff clock.
	nowFn func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a coordinator for one instance. archiver may be nil.
func New(spec source.Spec, src PriceSource, archiver Archiver, config Config) *Coordinator {
	if config.ScanInterval <= 0 {
		config.ScanInterval = 5 * time.Minute
	}
	if config.CutoffHour <= 0 {
		config.CutoffHour = 13
	}

	return &Coordinator{
		spec:     spec,
		src:      src,
		archiver: archiver,
		config:   config,
		metrics:  metrics.NewRecorder(),
		nowFn:    time.Now,
		logger: log.With().
			Str("component", "coordinator").
			Str("instance", spec.Key()).
			Logger(),
	}
}

// Key returns the instance key this coordinator serves.
func (c *Coordinator) Key() string {
	return c.spec.Key()
}

// Spec returns the instance spec.
func (c *Coordinator) Spec() source.Spec {
	return c.spec
}

// Start launches the refresh loop. The first refresh runs immediately.
func (c *Coordinator) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})

	go func() {
		defer close(c.done)

		if err := c.Refresh(runCtx, false); err != nil {
			c.logger.Error().Err(err).Msg("Initial refresh failed")
		}

		ticker := time.NewTicker(c.config.ScanInterval)
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				if err := c.Refresh(runCtx, false); err != nil {
					c.logger.Error().Err(err).Msg("Refresh failed")
				}
			}
		}
	}()
}

// Stop terminates the refresh loop and waits for it to exit.
func (c *Coordinator) Stop() {
	if c.cancel != nil {
		c.cancel()
		<-c.done
	}
}

// Refresh runs one refresh cycle: today and tomorrow fetched in
// parallel. A failure keeps the previous data; it only surfaces as an
// error when no refresh has ever succeeded.
func (c *Coordinator) Refresh(ctx context.Context, bypassCache bool) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	start := time.Now()
	c.setState(StateFetching)

	now := c.nowFn().In(c.src.Location())
	today := pricing.Midnight(now)
	tomorrow := today.Add(24 * time.Hour)

	c.mu.RLock()
	tomorrowHeld := c.tomorrow
	c.mu.RUnlock()

	// Past the cutoff hour the upstream table should carry tomorrow;
	// keep bypassing the cache until it shows up.
	tomorrowBypass := bypassCache
	if now.Hour() >= c.config.CutoffHour && (tomorrowHeld.Empty() || !pricing.SameDay(tomorrowHeld.Day, tomorrow)) {
		tomorrowBypass = true
	}

	var todaySet, tomorrowSet pricing.DailySet

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		set, err := c.src.Fetch(gctx, c.spec, today, bypassCache)
		if err != nil {
			return fmt.Errorf("today: %w", err)
		}
		todaySet = set
		return nil
	})
	g.Go(func() error {
		set, err := c.src.Fetch(gctx, c.spec, tomorrow, tomorrowBypass)
		if err != nil {
			return fmt.Errorf("tomorrow: %w", err)
		}
		tomorrowSet = set
		return nil
	})

	if err := g.Wait(); err != nil {
		return c.recordFailure(start, err)
	}

	c.mu.Lock()
	c.today = todaySet
	c.tomorrow = tomorrowSet
	c.lastUpdate = time.Now()
	c.lastError = nil
	c.everSucceeded = true
	c.state = StateReady
	c.mu.Unlock()

	result := "ok"
	if todaySet.Empty() {
		result = "empty"
	}
	c.metrics.RecordRefresh(c.spec.Key(), result, time.Since(start))
	c.metrics.RecordRecordCount(c.spec.Key(), "today", todaySet.Len())
	c.metrics.RecordRecordCount(c.spec.Key(), "tomorrow", tomorrowSet.Len())
	c.metrics.RecordDataAge(c.spec.Key(), 0)

	c.archive(ctx, todaySet)
	c.archive(ctx, tomorrowSet)

	c.logger.Debug().
		Int("today", todaySet.Len()).
		Int("tomorrow", tomorrowSet.Len()).
		Dur("duration", time.Since(start)).
		Msg("Refresh completed")

	return nil
}

// ForceUpdate runs a cache-bypassing refresh. A nil date refreshes the
// live today/tomorrow state. A past date only returns that day's data
// for inspection and never mutates live state.
func (c *Coordinator) ForceUpdate(ctx context.Context, date *time.Time) (pricing.DailySet, error) {
	now := c.nowFn().In(c.src.Location())
	today := pricing.Midnight(now)

	if date != nil {
		day := pricing.Midnight(date.In(c.src.Location()))
		if day.Before(today) {
			return c.src.Fetch(ctx, c.spec, day, true)
		}
	}

	if err := c.Refresh(ctx, true); err != nil {
		return pricing.DailySet{}, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if date != nil && !pricing.SameDay(*date, today) {
		return c.tomorrow, nil
	}
	return c.today, nil
}

// Snapshot returns the current state with aggregates computed for now.
func (c *Coordinator) Snapshot() Snapshot {
	return c.SnapshotAt(c.nowFn().In(c.src.Location()))
}

// SnapshotAt returns the current state with aggregates computed for t.
func (c *Coordinator) SnapshotAt(t time.Time) Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{
		Spec:       c.spec,
		Key:        c.spec.Key(),
		State:      c.state.String(),
		Today:      c.today,
		Tomorrow:   c.tomorrow,
		Aggregates: c.today.AggregateAt(t),
		LastUpdate: c.lastUpdate,
	}
	if c.lastError != nil {
		snap.LastError = c.lastError.Error()
	}
	return snap
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Coordinator) recordFailure(start time.Time, err error) error {
	c.mu.Lock()
	firstFailure := !c.everSucceeded
	c.lastError = err
	if firstFailure {
		c.state = StateFailed
	} else {
		// Keep serving the previous data.
		c.state = StateReady
	}
	c.mu.Unlock()

	c.metrics.RecordRefresh(c.spec.Key(), "error", time.Since(start))
	c.logger.Warn().Err(err).Bool("has_prior_data", !firstFailure).Msg("Refresh cycle failed")

	if firstFailure {
		return err
	}
	return nil
}

func (c *Coordinator) archive(ctx context.Context, set pricing.DailySet) {
	if c.archiver == nil || set.Empty() {
		return
	}
	if err := c.archiver.ArchiveDay(ctx, set); err != nil {
		c.logger.Warn().Err(err).Str("day", set.Day.Format("2006-01-02")).Msg("Failed to archive day")
	}
}

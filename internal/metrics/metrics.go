package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// fetchTotal tracks upstream fetch attempts by outcome.
	fetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_fetch_total",
		Help: "Total number of upstream fetches by source and result",
	}, []string{"source", "result"}) // source: primary, history; result: ok, not_found, error

	// fetchDuration tracks how long upstream fetches take.
	fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tracker_fetch_duration_seconds",
		Help:    "Time taken to fetch tariff data by source",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"source"})

	// cacheHits tracks memory and disk cache hits.
	cacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_cache_hits_total",
		Help: "Total number of cache hits by layer",
	}, []string{"layer"}) // layer: memory, disk

	// cacheMisses tracks memory and disk cache misses.
	cacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_cache_misses_total",
		Help: "Total number of cache misses by layer",
	}, []string{"layer"})

	// supersedeSkips tracks fetched files discarded because the cached
	// copy held at least as many rows.
	supersedeSkips = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracker_cache_supersede_skips_total",
		Help: "Total number of fetched files discarded in favor of a larger cached copy",
	})

	// parseRowErrors tracks malformed rows skipped during parsing.
	parseRowErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_parse_row_errors_total",
		Help: "Total number of malformed data rows skipped by provider",
	}, []string{"provider"})

	// refreshTotal tracks coordinator refresh cycles by outcome.
	refreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_refresh_total",
		Help: "Total number of refresh cycles by instance and result",
	}, []string{"instance", "result"}) // result: ok, empty, error

	// refreshDuration tracks refresh cycle latency per instance.
	refreshDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tracker_refresh_duration_seconds",
		Help:    "Time taken for a full refresh cycle by instance",
		Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"instance"})

	// recordCount tracks the number of price records held per instance and day.
	recordCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tracker_price_records",
		Help: "Number of price records currently held by instance and day",
	}, []string{"instance", "day"}) // day: today, tomorrow

	// dataAge tracks how stale each instance's data is.
	dataAge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tracker_data_age_seconds",
		Help: "Seconds since the last successful refresh by instance",
	}, []string{"instance"})

	// selectionChanges tracks active selection switches.
	selectionChanges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracker_selection_changes_total",
		Help: "Total number of active selection updates",
	})

	// cacheSweepDeletes tracks cache files removed by the sweeper.
	cacheSweepDeletes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracker_cache_sweep_deletes_total",
		Help: "Total number of expired cache files removed",
	})
)

// Recorder provides methods to record tracker metrics.
type Recorder struct{}

// NewRecorder creates a new metrics recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// RecordFetch records an upstream fetch attempt.
func (r *Recorder) RecordFetch(source, result string, duration time.Duration) {
	fetchTotal.WithLabelValues(source, result).Inc()
	fetchDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordCacheHit records a cache hit for a layer.
func (r *Recorder) RecordCacheHit(layer string) {
	cacheHits.WithLabelValues(layer).Inc()
}

// RecordCacheMiss records a cache miss for a layer.
func (r *Recorder) RecordCacheMiss(layer string) {
	cacheMisses.WithLabelValues(layer).Inc()
}

// RecordSupersedeSkip records a fetched file discarded by the supersede rule.
func (r *Recorder) RecordSupersedeSkip() {
	supersedeSkips.Inc()
}

// RecordParseRowErrors records malformed rows skipped for a provider.
func (r *Recorder) RecordParseRowErrors(provider string, count int) {
	if count > 0 {
		parseRowErrors.WithLabelValues(provider).Add(float64(count))
	}
}

// RecordRefresh records a refresh cycle for an instance.
func (r *Recorder) RecordRefresh(instance, result string, duration time.Duration) {
	refreshTotal.WithLabelValues(instance, result).Inc()
	refreshDuration.WithLabelValues(instance).Observe(duration.Seconds())
}

// RecordRecordCount records the number of records held for a day.
func (r *Recorder) RecordRecordCount(instance, day string, count int) {
	recordCount.WithLabelValues(instance, day).Set(float64(count))
}

// RecordDataAge records the staleness of an instance's data.
func (r *Recorder) RecordDataAge(instance string, age time.Duration) {
	dataAge.WithLabelValues(instance).Set(age.Seconds())
}

// RecordSelectionChange records an active selection update.
func (r *Recorder) RecordSelectionChange() {
	selectionChanges.Inc()
}

// RecordCacheSweepDeletes records cache files removed by the sweeper.
func (r *Recorder) RecordCacheSweepDeletes(count int) {
	if count > 0 {
		cacheSweepDeletes.Add(float64(count))
	}
}

// ClearInstanceMetrics clears gauges for a removed instance.
func (r *Recorder) ClearInstanceMetrics(instance string) {
	recordCount.DeleteLabelValues(instance, "today")
	recordCount.DeleteLabelValues(instance, "tomorrow")
	dataAge.DeleteLabelValues(instance)
}

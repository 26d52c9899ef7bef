package ratelimit

import (
	"sync"
	"time"
)

// Config holds outbound request pacing and retry configuration
type Config struct {
	RequestsPerSecond int           `json:"requestsPerSecond"`
	MaxRetries        int           `json:"maxRetries"`
	InitialBackoff    time.Duration `json:"initialBackoff"`
	MaxBackoff        time.Duration `json:"maxBackoff"`
	AttemptTimeout    time.Duration `json:"attemptTimeout"`
}

// DefaultConfig returns the default configuration: three total attempts
// with doubling backoff, each attempt bounded by its own timeout.
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 2,
		MaxRetries:        2,
		InitialBackoff:    time.Second,
		MaxBackoff:        30 * time.Second,
		AttemptTimeout:    10 * time.Second,
	}
}

// Throttler paces outbound requests to respect the upstream host.
type Throttler struct {
	mu          sync.Mutex
	config      Config
	lastRequest time.Time
}

// NewThrottler creates a throttler with the given config.
func NewThrottler(config Config) *Throttler {
	return &Throttler{config: config}
}

// Throttle blocks until the minimum inter-request interval has elapsed.
func (t *Throttler) Throttle() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.config.RequestsPerSecond <= 0 {
		return
	}

	minInterval := time.Second / time.Duration(t.config.RequestsPerSecond)
	elapsed := time.Since(t.lastRequest)
	if elapsed < minInterval {
		time.Sleep(minInterval - elapsed)
	}
	t.lastRequest = time.Now()
}

// Reset clears the throttler state, useful after long pauses and in tests.
func (t *Throttler) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastRequest = time.Time{}
}

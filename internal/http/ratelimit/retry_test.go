package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRetryableStatus(t *testing.T) {
	assert.True(t, IsRetryableStatus(429))
	assert.True(t, IsRetryableStatus(500))
	assert.True(t, IsRetryableStatus(503))
	assert.True(t, IsRetryableStatus(599))

	assert.False(t, IsRetryableStatus(200))
	assert.False(t, IsRetryableStatus(301))
	assert.False(t, IsRetryableStatus(400))
	assert.False(t, IsRetryableStatus(404))
	assert.False(t, IsRetryableStatus(600))
}

func TestCalculateBackoffGrowsAndCaps(t *testing.T) {
	config := Config{InitialBackoff: time.Second, MaxBackoff: 5 * time.Second}

	first := CalculateBackoff(0, config)
	assert.GreaterOrEqual(t, first, time.Second)
	assert.LessOrEqual(t, first, time.Second+time.Second/4)

	second := CalculateBackoff(1, config)
	assert.GreaterOrEqual(t, second, 2*time.Second)
	assert.LessOrEqual(t, second, 2*time.Second+time.Second/2)

	// Attempt 10 would be 1024s uncapped.
	capped := CalculateBackoff(10, config)
	assert.GreaterOrEqual(t, capped, 5*time.Second)
	assert.LessOrEqual(t, capped, 5*time.Second+5*time.Second/4)
}

func TestCalculateRateLimitBackoffHonorsRetryAfter(t *testing.T) {
	config := DefaultConfig()

	d := CalculateRateLimitBackoff(0, config, "7")
	assert.GreaterOrEqual(t, d, 7*time.Second)
	assert.Less(t, d, 8*time.Second)

	// Garbage header falls back to the exponential curve.
	d = CalculateRateLimitBackoff(0, config, "soon")
	assert.GreaterOrEqual(t, d, config.InitialBackoff)
}

func TestFetchRetryErrorMessage(t *testing.T) {
	err := &FetchRetryError{URL: "http://example.com/prices.csv", Attempts: 3, LastStatus: 503}
	assert.Contains(t, err.Error(), "http://example.com/prices.csv")
	assert.Contains(t, err.Error(), "3 attempt(s)")
	assert.Contains(t, err.Error(), "503")
}

func TestFetchRetryErrorNotFound(t *testing.T) {
	require.True(t, (&FetchRetryError{LastStatus: 404}).NotFound())
	require.False(t, (&FetchRetryError{LastStatus: 500}).NotFound())
}

func TestThrottlePacesRequests(t *testing.T) {
	throttler := NewThrottler(Config{RequestsPerSecond: 20})
	throttler.Reset()

	start := time.Now()
	throttler.Throttle()
	throttler.Throttle()
	throttler.Throttle()
	elapsed := time.Since(start)

	// Two inter-request gaps of 50ms each.
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
}

func TestThrottleDisabled(t *testing.T) {
	throttler := NewThrottler(Config{RequestsPerSecond: 0})

	start := time.Now()
	for i := 0; i < 100; i++ {
		throttler.Throttle()
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

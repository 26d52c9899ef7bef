package ratelimit

import (
	"math"
	"math/rand"
	"strconv"
	"time"
)

// FetchRetryError represents an error when all retry attempts are exhausted,
// or a non-retryable HTTP status was returned.
type FetchRetryError struct {
	URL        string
	Attempts   int
	LastStatus int
	LastError  error
}

func (e *FetchRetryError) Error() string {
	msg := "failed to fetch " + e.URL + " after " + strconv.Itoa(e.Attempts) + " attempt(s)"
	if e.LastStatus != 0 {
		msg += " (HTTP " + strconv.Itoa(e.LastStatus) + ")"
	}
	if e.LastError != nil {
		msg += ": " + e.LastError.Error()
	}
	return msg
}

func (e *FetchRetryError) Unwrap() error { return e.LastError }

// NotFound reports whether the terminal status was 404.
func (e *FetchRetryError) NotFound() bool { return e.LastStatus == 404 }

// IsRetryableStatus checks if an HTTP status code is retryable
// Retryable: 429, 500-599
func IsRetryableStatus(status int) bool {
	return status == 429 || (status >= 500 && status < 600)
}

// CalculateBackoff calculates exponential backoff delay for a given attempt
// with jitter (0-25%) to avoid synchronized retries.
func CalculateBackoff(attempt int, config Config) time.Duration {
	delay := float64(config.InitialBackoff) * math.Pow(2.0, float64(attempt))
	capped := math.Min(delay, float64(config.MaxBackoff))
	jitter := rand.Float64() * 0.25 * capped
	return time.Duration(capped + jitter)
}

// CalculateRateLimitBackoff calculates backoff for HTTP 429 responses.
// A server-provided Retry-After wins; otherwise a steeper 3x curve is used.
func CalculateRateLimitBackoff(attempt int, config Config, retryAfterHeader string) time.Duration {
	if retryAfterHeader != "" {
		if seconds, err := strconv.Atoi(retryAfterHeader); err == nil && seconds > 0 {
			jitter := time.Duration(rand.Int63n(int64(time.Second)))
			return time.Duration(seconds)*time.Second + jitter
		}
	}

	delay := float64(config.InitialBackoff) * math.Pow(3.0, float64(attempt))
	capped := math.Min(delay, float64(config.MaxBackoff))
	jitter := rand.Float64() * 0.25 * capped
	return time.Duration(capped + jitter)
}

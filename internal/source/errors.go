package source

import (
	"fmt"
	"time"
)

// NotFoundError indicates the upstream file does not exist for a date.
// Past dates fall back to the commit-history lookup on this error.
type NotFoundError struct {
	URL string
	Day time.Time
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("tariff file not found for %s at %s", e.Day.Format("2006-01-02"), e.URL)
}

// NetworkError indicates the upstream fetch failed after retries.
// Callers with previous data keep serving it and surface the cause.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ConfigurationError indicates an instance or selection that does not
// match the configured catalog.
type ConfigurationError struct {
	Field string
	Value string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s=%q", e.Field, e.Value)
}

// Package router resolves the process-wide active selection to the
// matching instance's price state. It is a pure read-through layer; it
// never fetches or caches.
package router

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tarifario/price-tracker/internal/coordinator"
	"github.com/tarifario/price-tracker/internal/metrics"
)

// Observer is notified with the new key on every selection update.
type Observer func(key string)

// Selection is the single mutable "active instance" slot. One setter,
// any number of observers. Observers fire on every Set, including one
// that writes the same value, so downstream consumers always re-render.
type Selection struct {
	mu        sync.RWMutex
	key       string
	observers []Observer
	metrics   *metrics.Recorder
	logger    zerolog.Logger
}

// NewSelection creates a selection holding the initial key.
func NewSelection(initial string) *Selection {
	return &Selection{
		key:     initial,
		metrics: metrics.NewRecorder(),
		logger:  log.With().Str("component", "router").Logger(),
	}
}

// Get returns the currently selected instance key.
func (s *Selection) Get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key
}

// Set updates the selection and notifies every observer, even when the
// key is unchanged.
func (s *Selection) Set(key string) {
	s.mu.Lock()
	previous := s.key
	s.key = key
	observers := make([]Observer, len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	s.metrics.RecordSelectionChange()
	s.logger.Info().Str("from", previous).Str("to", key).Msg("Active selection updated")

	for _, notify := range observers {
		notify(key)
	}
}

// Subscribe registers an observer for future selection updates.
func (s *Selection) Subscribe(obs Observer) {
	s.mu.Lock()
	s.observers = append(s.observers, obs)
	s.mu.Unlock()
}

// StateSource exposes a registered instance's current snapshot,
// satisfied by *coordinator.Coordinator.
type StateSource interface {
	Key() string
	Snapshot() coordinator.Snapshot
}

// Router maps the active selection onto registered instances.
type Router struct {
	selection *Selection

	mu      sync.RWMutex
	sources map[string]StateSource
}

// New creates a router bound to a selection.
func New(selection *Selection) *Router {
	return &Router{
		selection: selection,
		sources:   make(map[string]StateSource),
	}
}

// Register adds an instance to the routing table.
func (r *Router) Register(src StateSource) {
	r.mu.Lock()
	r.sources[src.Key()] = src
	r.mu.Unlock()
}

// Selection returns the underlying selection slot.
func (r *Router) Selection() *Selection {
	return r.selection
}

// Keys returns the registered instance keys.
func (r *Router) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.sources))
	for key := range r.sources {
		keys = append(keys, key)
	}
	return keys
}

// Known reports whether key is a registered instance.
func (r *Router) Known(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sources[key]
	return ok
}

// Resolve returns the snapshot of the selected instance. An unknown
// selection yields a snapshot with all-nil aggregates and ok=false; it
// is not an error.
func (r *Router) Resolve() (coordinator.Snapshot, bool) {
	key := r.selection.Get()

	r.mu.RLock()
	src, ok := r.sources[key]
	r.mu.RUnlock()

	if !ok {
		return coordinator.Snapshot{Key: key}, false
	}
	return src.Snapshot(), true
}

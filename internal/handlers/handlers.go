// Package handlers implements the HTTP API: instance state, the active
// selection, manual refresh and the price archive.
package handlers

import (
	"github.com/tarifario/price-tracker/internal/coordinator"
	"github.com/tarifario/price-tracker/internal/database"
	"github.com/tarifario/price-tracker/internal/router"
	"github.com/tarifario/price-tracker/internal/storage"
)

// Service carries the handler dependencies.
type Service struct {
	router   *router.Router
	coords   map[string]*coordinator.Coordinator
	archive  *database.PriceArchive
	store    storage.Storage
	cacheDir string
}

// NewService wires the handlers to the running coordinators.
func NewService(r *router.Router, coords map[string]*coordinator.Coordinator, archive *database.PriceArchive, store storage.Storage, cacheDir string) *Service {
	return &Service{
		router:   r,
		coords:   coords,
		archive:  archive,
		store:    store,
		cacheDir: cacheDir,
	}
}

package handlers

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/tarifario/price-tracker/internal/pricing"
)

// InstanceInfo describes one configured instance.
type InstanceInfo struct {
	Key      string  `json:"key"`
	Provider string  `json:"provider"`
	Tariff   string  `json:"tariff"`
	VATRate  float64 `json:"vat_rate"`
	State    string  `json:"state"`
}

// ProvidersResponse lists the configured instances and the full catalog.
type ProvidersResponse struct {
	Instances []InstanceInfo    `json:"instances"`
	Providers []string          `json:"providers"`
	Tariffs   map[string]string `json:"tariffs"`
}

// GetProviders returns the configured instances plus the supported
// provider and tariff catalog.
// GET /internal/providers
func (s *Service) GetProviders(c *gin.Context) {
	instances := make([]InstanceInfo, 0, len(s.coords))
	for _, coord := range s.coords {
		spec := coord.Spec()
		instances = append(instances, InstanceInfo{
			Key:      coord.Key(),
			Provider: spec.Provider,
			Tariff:   spec.Tariff,
			VATRate:  spec.VATRate,
			State:    coord.State().String(),
		})
	}
	sort.Slice(instances, func(i, j int) bool { return instances[i].Key < instances[j].Key })

	c.JSON(http.StatusOK, ProvidersResponse{
		Instances: instances,
		Providers: pricing.Providers,
		Tariffs:   pricing.TariffLabels,
	})
}

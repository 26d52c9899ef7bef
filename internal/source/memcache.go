package source

import (
	"sync"
	"time"

	"github.com/tarifario/price-tracker/internal/pricing"
)

// memoryCache holds parsed records per date and instance with a TTL.
// Tomorrow's data lives only here; it never reaches the disk layer until
// the supersede rule admits it.
type memoryCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]*memoryEntry
}

type memoryEntry struct {
	cachedAt time.Time
	records  map[string][]pricing.Record // instance key -> records
}

func newMemoryCache(ttl time.Duration) *memoryCache {
	return &memoryCache{
		ttl:     ttl,
		entries: make(map[string]*memoryEntry),
	}
}

// get returns the cached records for a date and instance, or nil on a
// miss or an expired entry. Expired entries are dropped lazily.
func (c *memoryCache) get(dateKey, instanceKey string) []pricing.Record {
	c.mu.RLock()
	entry, ok := c.entries[dateKey]
	c.mu.RUnlock()
	if !ok {
		return nil
	}

	if time.Since(entry.cachedAt) >= c.ttl {
		c.mu.Lock()
		if cur, ok := c.entries[dateKey]; ok && cur == entry {
			delete(c.entries, dateKey)
		}
		c.mu.Unlock()
		return nil
	}

	return entry.records[instanceKey]
}

// set stores records for a date and instance. The entry's clock restarts
// on every write for that date.
func (c *memoryCache) set(dateKey, instanceKey string, records []pricing.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[dateKey]
	if !ok {
		entry = &memoryEntry{records: make(map[string][]pricing.Record)}
		c.entries[dateKey] = entry
	}
	entry.records[instanceKey] = records
	entry.cachedAt = time.Now()
}

// purge removes every entry for a date, used by forced refreshes.
func (c *memoryCache) purge(dateKey string) {
	c.mu.Lock()
	delete(c.entries, dateKey)
	c.mu.Unlock()
}

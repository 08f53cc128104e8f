package fetch

import (
	"sync"

	"github.com/pzielin/airwatch/internal/model"
)

// StationCache holds the last-known full station list. Reads return a
// snapshot copy, never a live alias, so a concurrent replace can never tear
// a list an observer is iterating.
type StationCache struct {
	mu       sync.RWMutex
	stations []model.Station
}

// NewStationCache returns an empty cache.
func NewStationCache() *StationCache {
	return &StationCache{}
}

// Replace swaps the cached list for a copy of stations.
func (c *StationCache) Replace(stations []model.Station) {
	copied := make([]model.Station, len(stations))
	copy(copied, stations)

	c.mu.Lock()
	c.stations = copied
	c.mu.Unlock()
}

// Snapshot returns a copy of the cached list.
func (c *StationCache) Snapshot() []model.Station {
	c.mu.RLock()
	defer c.mu.RUnlock()

	copied := make([]model.Station, len(c.stations))
	copy(copied, c.stations)
	return copied
}

// Len returns the cached list size.
func (c *StationCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.stations)
}

package cache

import "geodispatch/pkg/model"

// Cacher defines the result cache interface: fingerprint -> last successful
// lookup result. Implementations never block on the caller's path and never
// fail; persistence errors are absorbed and logged.
//
// Implementations do NOT lock internally. The dispatcher serializes all
// access under its own mutex, which guards the pending queue and the cache
// jointly.
type Cacher interface {
	Get(fingerprint string) ([]model.Place, bool)
	// Set stores the result and returns it, so callers can chain the
	// write-back with delivery.
	Set(fingerprint string, places []model.Place) []model.Place
	// Flush discards all entries.
	Flush()
}

// Memory is the in-process Cacher. Entries live until Flush; there is no
// TTL and no eviction.
type Memory struct {
	entries map[string][]model.Place
}

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string][]model.Place)}
}

func (m *Memory) Get(fingerprint string) ([]model.Place, bool) {
	places, ok := m.entries[fingerprint]
	return places, ok
}

func (m *Memory) Set(fingerprint string, places []model.Place) []model.Place {
	m.entries[fingerprint] = places
	return places
}

func (m *Memory) Flush() {
	m.entries = make(map[string][]model.Place)
}

// Len returns the number of cached fingerprints.
func (m *Memory) Len() int {
	return len(m.entries)
}

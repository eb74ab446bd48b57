// Package resultcache stores terminal command outcomes under a byte and
// entry budget so late pollers can still retrieve results. Eviction is
// approximate LRU: bounded in expectation, not a hard cap against one
// oversized entry.
package resultcache

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/npratt/debugq/internal/config"
)

// baseEntrySize is the fixed per-entry overhead charged by the estimator.
const baseEntrySize = 200

// Result is a cached terminal outcome.
type Result struct {
	OK       bool
	Output   string
	Error    string
	Duration time.Duration
	Data     map[string]string
}

// EstimatedSize returns the byte estimate used for cache accounting.
// It only needs to be monotone in payload size.
func (r *Result) EstimatedSize() int64 {
	return baseEntrySize + 2*int64(len(r.Output)) + 2*int64(len(r.Error)) + 50*int64(len(r.Data))
}

type entry struct {
	result     *Result
	size       int64
	createdAt  time.Time
	lastAccess time.Time
}

// Stats is a point-in-time snapshot of cache occupancy.
type Stats struct {
	Entries    int
	Bytes      int64
	MaxBytes   int64
	MaxEntries int
	UsagePct   float64
}

// Cache is a bounded LRU store of terminal outcomes for one session.
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]*entry
	bytes      int64
	maxBytes   int64
	maxEntries int
	pressure   float64
	logger     *slog.Logger
}

// New creates a Cache with the given limits.
func New(cfg config.CacheConfig, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		entries:    make(map[string]*entry),
		maxBytes:   cfg.MaxBytes,
		maxEntries: cfg.MaxEntries,
		pressure:   cfg.Pressure,
		logger:     logger,
	}
}

// Store admits a result under the eviction policy. Replacing an existing
// id adjusts the byte accounting by the size delta.
func (c *Cache) Store(id string, result *Result) {
	size := result.EstimatedSize()
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[id]; ok {
		c.bytes += size - existing.size
		existing.result = result
		existing.size = size
		existing.createdAt = now
		existing.lastAccess = now
		return
	}

	threshold := int64(float64(c.maxBytes) * c.pressure)
	if c.bytes+size > threshold || len(c.entries) >= c.maxEntries {
		c.evictLocked()
	}

	// Admit even if the eviction pass did not make room; the estimator
	// is best-effort and a single oversized entry must not be lost.
	c.entries[id] = &entry{
		result:     result,
		size:       size,
		createdAt:  now,
		lastAccess: now,
	}
	c.bytes += size
}

// evictLocked removes max(1, ceil(entries/4)) entries in ascending
// lastAccess order. Caller holds the write lock.
func (c *Cache) evictLocked() {
	n := len(c.entries)
	if n == 0 {
		return
	}
	count := (n + 3) / 4
	if count < 1 {
		count = 1
	}

	type victim struct {
		id         string
		lastAccess time.Time
	}
	victims := make([]victim, 0, n)
	for id, e := range c.entries {
		victims = append(victims, victim{id: id, lastAccess: e.lastAccess})
	}
	sort.Slice(victims, func(i, j int) bool {
		return victims[i].lastAccess.Before(victims[j].lastAccess)
	})

	for i := 0; i < count; i++ {
		id := victims[i].id
		c.bytes -= c.entries[id].size
		delete(c.entries, id)
	}

	c.logger.Debug("cache eviction pass",
		"evicted", count,
		"remaining", len(c.entries),
		"bytes", c.bytes,
	)
}

// Get returns the result for an id, refreshing its access time on hit.
func (c *Cache) Get(id string) (*Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	e.lastAccess = time.Now()
	return e.result, true
}

// Has reports whether an id is resident without refreshing access time.
func (c *Cache) Has(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[id]
	return ok
}

// Remove deletes an entry, reporting whether it was present.
func (c *Cache) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		return false
	}
	c.bytes -= e.size
	delete(c.entries, id)
	return true
}

// Clear drops all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
	c.bytes = 0
}

// Stats returns a snapshot of cache occupancy.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var pct float64
	if c.maxBytes > 0 {
		pct = float64(c.bytes) / float64(c.maxBytes) * 100
	}
	return Stats{
		Entries:    len(c.entries),
		Bytes:      c.bytes,
		MaxBytes:   c.maxBytes,
		MaxEntries: c.maxEntries,
		UsagePct:   pct,
	}
}

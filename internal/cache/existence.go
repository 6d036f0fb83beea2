package cache

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"

	"github.com/photovariant/photovariant/internal/naming"
	"github.com/photovariant/photovariant/pkg/types"
)

// Config represents existence cache configuration
type Config struct {
	MaxEntries int `yaml:"max_entries"`
	Shards     int `yaml:"shards"`

	// Matrix lets InvalidateOriginal enumerate an original's variant keys.
	Matrix naming.Matrix `yaml:"-"`
}

// ExistenceCache memoizes storage existence probes per exact key for the
// life of the process. Probe failures are remembered as absent.
type ExistenceCache struct {
	store    types.Store
	shards   []*lruShard
	group    singleflight.Group
	matrix   naming.Matrix
	capacity int

	metrics types.MetricsCollector
	logger  *slog.Logger
}

var _ types.ExistenceChecker = (*ExistenceCache)(nil)

// NewExistenceCache creates a cache in front of store. A nil config uses
// 4096 entries over 16 shards.
func NewExistenceCache(store types.Store, config *Config, metrics types.MetricsCollector) *ExistenceCache {
	if config == nil {
		config = &Config{MaxEntries: 4096, Shards: 16}
	}

	maxEntries := config.MaxEntries
	if maxEntries <= 0 {
		maxEntries = 4096
	}
	shards := config.Shards
	if shards <= 0 {
		shards = 1
	}
	if shards > maxEntries {
		shards = maxEntries
	}

	c := &ExistenceCache{
		store:    store,
		shards:   make([]*lruShard, shards),
		matrix:   config.Matrix,
		capacity: maxEntries,
		metrics:  metrics,
		logger:   slog.Default().With("component", "existence-cache"),
	}

	// Spread the remainder so shard capacities sum to maxEntries.
	per, extra := maxEntries/shards, maxEntries%shards
	for i := range c.shards {
		n := per
		if i < extra {
			n++
		}
		c.shards[i] = newLRUShard(n)
	}

	return c
}

// SetLogger replaces the logger
func (c *ExistenceCache) SetLogger(logger *slog.Logger) {
	if logger != nil {
		c.logger = logger.With("component", "existence-cache")
	}
}

func (c *ExistenceCache) shardFor(key string) *lruShard {
	return c.shards[xxhash.Sum64String(key)%uint64(len(c.shards))]
}

// Exists reports whether key is present in storage. Concurrent callers
// asking for the same uncached key share one probe. If ctx ends before
// the probe completes the caller gets false while the probe finishes
// and memoizes its result for later callers.
func (c *ExistenceCache) Exists(ctx context.Context, key string) bool {
	shard := c.shardFor(key)
	if found, ok := shard.get(key); ok {
		c.recordProbe(found, true)
		return found
	}

	ch := c.group.DoChan(key, func() (any, error) {
		if found, ok := shard.peek(key); ok {
			return found, nil
		}

		gen := shard.generation()
		found, err := c.store.Exists(context.WithoutCancel(ctx), key)
		if err != nil {
			c.logger.Debug("existence probe failed, treating as absent", "key", key, "error", err)
			found = false
		}
		stored, n := shard.putIfCurrent(key, found, gen)
		if !stored {
			c.logger.Debug("discarded existence result invalidated in flight", "key", key)
		}
		if n > 0 {
			c.logger.Debug("evicted existence entries", "count", n)
		}
		c.recordProbe(found, false)
		return found, nil
	})

	select {
	case res := <-ch:
		return res.Val.(bool)
	case <-ctx.Done():
		return false
	}
}

// Peek returns the memoized result for key without probing storage.
func (c *ExistenceCache) Peek(key string) (exists bool, ok bool) {
	return c.shardFor(key).peek(key)
}

// Invalidate forgets key so the next Exists asks storage again. A storage
// check of the shard already in flight returns its answer to its own
// callers but does not memoize it.
func (c *ExistenceCache) Invalidate(key string) bool {
	c.group.Forget(key)
	return c.shardFor(key).remove(key)
}

// InvalidateOriginal forgets every variant key of originalKey along with
// the original itself. It returns the number of entries dropped.
func (c *ExistenceCache) InvalidateOriginal(originalKey string) int {
	keys := []string{originalKey}
	if c.matrix.Size() > 0 {
		keys = c.matrix.Candidates(originalKey)
	}

	dropped := 0
	for _, k := range keys {
		if c.Invalidate(k) {
			dropped++
		}
	}
	if dropped > 0 {
		c.logger.Info("invalidated original", "key", originalKey, "entries", dropped)
	}
	return dropped
}

// Clear drops every memoized result. Required after the generation
// matrix changes and is re-run against keys already probed.
func (c *ExistenceCache) Clear() {
	for _, s := range c.shards {
		s.clear()
	}
	c.logger.Info("existence cache cleared")
}

// Len returns the number of memoized keys.
func (c *ExistenceCache) Len() int {
	n := 0
	for _, s := range c.shards {
		_, _, _, entries := s.snapshot()
		n += entries
	}
	return n
}

// Stats returns cache statistics
func (c *ExistenceCache) Stats() types.CacheStats {
	stats := types.CacheStats{Capacity: c.capacity}
	for _, s := range c.shards {
		hits, misses, evictions, entries := s.snapshot()
		stats.Hits += hits
		stats.Misses += misses
		stats.Evictions += evictions
		stats.Entries += entries
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}
	return stats
}

// String summarizes the cache for logs
func (c *ExistenceCache) String() string {
	s := c.Stats()
	return "entries=" + strconv.Itoa(s.Entries) + "/" + strconv.Itoa(s.Capacity) +
		" shards=" + strconv.Itoa(len(c.shards))
}

func (c *ExistenceCache) recordProbe(found, cached bool) {
	if c.metrics != nil {
		c.metrics.RecordProbe(found, cached)
	}
}

/*
Package cache memoizes "does this key exist" answers for the variant
resolver.

The table is split into shards selected by an xxhash of the key; each
shard is a mutex-guarded LRU list sized so the shard capacities sum to
the configured maximum. Entries never expire: variants are written once
and never replaced in place, so a memoized answer stays valid until
Invalidate, InvalidateOriginal or Clear drops it.

Misses for the same key are coalesced with singleflight, so a burst of
requests for a freshly listed catalog probes storage once per key. A
failed probe is memoized as absent exactly like a confirmed miss; the
resolver always has the original to fall back to.

	c := cache.NewExistenceCache(store, &cache.Config{MaxEntries: 4096, Shards: 16, Matrix: m}, collector)
	if c.Exists(ctx, "images/DSCF3623_1600.avif") {
		// ...
	}
*/
package cache

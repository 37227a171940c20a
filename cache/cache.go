// Package cache implements a versioned, size-bounded, persistent
// key/value cache on top of a caller-supplied string persistence
// backend (see package store). See doc.go for an overview and a worked
// example.
package cache

import (
	"sync"
	"time"

	"github.com/dmitrich-go/vkvcache/codec"
	"github.com/dmitrich-go/vkvcache/evict"
	"github.com/dmitrich-go/vkvcache/internal/crawl"
	"github.com/dmitrich-go/vkvcache/internal/meta"
	"github.com/dmitrich-go/vkvcache/internal/util"
	"github.com/dmitrich-go/vkvcache/metrics"
	"github.com/dmitrich-go/vkvcache/migrate"
	"github.com/dmitrich-go/vkvcache/store"
)

// Cache is a versioned, size-bounded cache of values of type T, backed by
// a shared string-keyed store. All its entries and its metadata record
// live under a namespace derived from Name, so many Caches (even over
// different T) may share one Backend safely. A Cache is safe for
// concurrent use; every operation holds a single mutex for its duration.
type Cache[T any] struct {
	cfg     Config[T]
	adapter *store.Adapter
	engine  *evict.Engine

	mu sync.Mutex

	// ops counts completed Get/Add/Stats calls. It is read lock-free by Stats,
	// so it is padded to its own cache line to avoid false sharing with
	// the mutex above on multi-cache workloads that poll Stats from a
	// different goroutine than the one calling Get/Add.
	ops util.PaddedAtomicInt64
}

// New constructs a Cache from cfg. It panics if cfg.Name, cfg.Encode,
// cfg.Decode, or cfg.Backend is unset — these describe a programming
// error, not recoverable data. Every other field has a usable zero value
// or default.
func New[T any](cfg Config[T]) *Cache[T] {
	if cfg.Name == "" {
		panic("cache: Name must be non-empty")
	}
	if cfg.Encode == nil {
		panic("cache: Encode must be non-nil")
	}
	if cfg.Decode == nil {
		panic("cache: Decode must be non-nil")
	}
	if cfg.Backend == nil {
		panic("cache: Backend must be non-nil")
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NoopMetrics{}
	}
	if cfg.Policy == "" {
		cfg.Policy = codec.LRU
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	adapter := store.New(cfg.Backend)
	return &Cache[T]{
		cfg:     cfg,
		adapter: adapter,
		engine:  evict.New(adapter, cfg.maxBits()),
	}
}

// Get looks up userKey. It reports ok == false on a miss, on a decode
// failure, or if the backend has no record at all — every failure mode
// collapses to a miss, per this module's total-function contract. On a
// hit, Get touches the entry's timestamp so that a rebuild of the
// eviction queue (see evict.Engine.RebuildQueue) sees this key as
// recently used rather than as old as its last Add. The touch is a
// plain overwrite of the entry at its existing key, not a write through
// the eviction engine, so it never itself evicts anything.
func (c *Cache[T]) Get(userKey string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.ops.Add(1)

	var zero T
	m := c.ensureCurrent()

	rawKey := codec.QualifiedKey(c.cfg.Name, userKey)
	raw, ok := c.adapter.Get(rawKey)
	if !ok {
		c.cfg.Metrics.Miss()
		return zero, false
	}
	entry, ok := codec.DecodeEntry(raw)
	if !ok {
		c.cfg.Metrics.Miss()
		return zero, false
	}
	v, ok := c.cfg.Decode(entry.V)
	if !ok {
		c.cfg.Metrics.Miss()
		return zero, false
	}

	touched := codec.Entry{T: c.cfg.Clock().UnixNano(), V: entry.V}
	if rawTouched, err := codec.EncodeEntry(touched); err == nil {
		c.adapter.Set(rawKey, rawTouched)
	}

	c.cfg.Metrics.Hit()
	c.cfg.Metrics.Size(m.Bits, c.engine.MaxBits)
	return v, true
}

// Add stores v under userKey, evicting least-recently-used entries as
// needed to stay within the configured budget. If v cannot be encoded, or
// the entry alone exceeds the budget, or eviction cannot make room, Add
// is a silent no-op (aside from the OnOverflow hook and metrics) — Add
// never returns an error because there is nothing a caller could usefully
// do with one.
func (c *Cache[T]) Add(userKey string, v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.ops.Add(1)

	m := c.ensureCurrent()

	intermediate, err := c.cfg.Encode(v)
	if err != nil {
		return
	}
	entry := codec.Entry{T: c.cfg.Clock().UnixNano(), V: intermediate}
	raw, err := codec.EncodeEntry(entry)
	if err != nil {
		return
	}

	rawKey := codec.QualifiedKey(c.cfg.Name, userKey)
	newSize := codec.Size(rawKey, raw)

	var oldSize int64
	if oldRaw, ok := c.adapter.Get(rawKey); ok {
		oldSize = codec.Size(rawKey, oldRaw)
	}

	if newSize > c.engine.MaxBits {
		// A value this large can never be stored, but a smaller prior
		// entry at the same key must not linger and keep answering Get.
		c.adapter.Remove(rawKey)
		c.cfg.Metrics.Evict(metrics.EvictTooLarge)
		c.fireOverflow(userKey)
		return
	}

	bits := m.Bits - oldSize
	equeue := removeQueued(m.Equeue, rawKey)

	newBits, newEqueue, ok := c.engine.TrySet(c.cfg.Name, newSize, bits, equeue, rawKey, func(int64, []codec.QueueItem) string {
		return raw
	})
	if !ok {
		c.cfg.Metrics.Evict(metrics.EvictLRU)
		c.fireOverflow(userKey)
		c.persistMeta(m.Version, newBits, newEqueue)
		return
	}

	// The just-written key is deliberately left out of newEqueue here:
	// queue maintenance for it is deferred to the next rebuild (see
	// evict.Engine.RebuildQueue), which crawls actual entry timestamps
	// rather than trusting a hand-maintained position. Inserting it at
	// the front would make it the very next eviction victim; at the back
	// would claim a recency the engine can't verify without a crawl.
	c.persistMeta(m.Version, newBits, newEqueue)
	c.cfg.Metrics.Size(newBits, c.engine.MaxBits)
}

// Clear removes every entry and the metadata record belonging to this
// cache's namespace, leaving the rest of a shared backend untouched.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	crawl.Crawl(c.adapter, c.cfg.Name, struct{}{}, func(rawKey, _ string, acc struct{}) struct{} {
		c.adapter.Remove(rawKey)
		c.cfg.Metrics.Evict(metrics.EvictClear)
		return acc
	})
	c.adapter.Remove(codec.MetaKey(c.cfg.Name))
	c.cfg.Metrics.Size(0, c.engine.MaxBits)
}

// Stats reports a snapshot of this cache's resident size and budget, both
// in the module's accounting-bit unit. It is a supplemental introspection
// method beyond the minimal Get/Add/Clear surface.
type Stats struct {
	Version int
	Bits    int64
	MaxBits int64
	Entries int
	Ops     int64
}

// Stats returns a Stats snapshot. Entries is computed by crawling the
// backend, so it reflects the true on-disk count even if the metadata
// record's bit total has drifted. Ops is read lock-free before the lock is
// taken, so Entries/Bits may reflect calls that finished after Ops was
// read and are not counted in it.
func (c *Cache[T]) Stats() Stats {
	ops := c.ops.Load()

	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.ops.Add(1)

	m := c.ensureCurrent()
	n := crawl.Crawl(c.adapter, c.cfg.Name, 0, func(_, _ string, acc int) int { return acc + 1 })

	return Stats{
		Version: m.Version,
		Bits:    m.Bits,
		MaxBits: c.engine.MaxBits,
		Entries: n,
		Ops:     ops,
	}
}

// ensureCurrent loads this cache's metadata record, migrating it to
// cfg.Version (or wiping the namespace, if no migration path exists) when
// the record's version does not match. The caller must hold c.mu.
func (c *Cache[T]) ensureCurrent() codec.Meta {
	m := meta.Load(c.adapter, c.cfg.Name, c.cfg.Version)
	if m.Version == c.cfg.Version {
		return m
	}

	upgrade, ok := migrate.Plan(m.Version, c.cfg.Version, c.cfg.Migrations)
	if !ok {
		c.wipeNamespace()
		return codec.Meta{Version: c.cfg.Version, Policy: c.cfg.Policy}
	}

	bits, equeue := migrate.Apply(c.adapter, c.cfg.Name, c.engine.MaxBits, upgrade)
	c.persistMeta(c.cfg.Version, bits, equeue)
	c.cfg.Metrics.Migrate(m.Version, c.cfg.Version)
	return codec.Meta{Version: c.cfg.Version, Bits: bits, Equeue: equeue, Policy: c.cfg.Policy}
}

// wipeNamespace removes every entry and metadata record for this cache,
// used when no migration path can carry old data forward to cfg.Version.
func (c *Cache[T]) wipeNamespace() {
	crawl.Crawl(c.adapter, c.cfg.Name, struct{}{}, func(rawKey, _ string, acc struct{}) struct{} {
		c.adapter.Remove(rawKey)
		c.cfg.Metrics.Evict(metrics.EvictMigration)
		return acc
	})
	c.adapter.Remove(codec.MetaKey(c.cfg.Name))
}

// persistMeta writes the metadata record via the eviction engine.
func (c *Cache[T]) persistMeta(version int, bits int64, equeue []codec.QueueItem) {
	meta.Persist(c.engine, c.cfg.Name, version, bits, equeue)
}

// fireOverflow invokes cfg.OnOverflow, if set, in its own goroutine.
func (c *Cache[T]) fireOverflow(userKey string) {
	if c.cfg.OnOverflow == nil {
		return
	}
	go c.cfg.OnOverflow(userKey)
}

// removeQueued returns equeue with any item matching rawKey removed.
func removeQueued(equeue []codec.QueueItem, rawKey string) []codec.QueueItem {
	out := make([]codec.QueueItem, 0, len(equeue))
	for _, it := range equeue {
		if it.Key == rawKey {
			continue
		}
		out = append(out, it)
	}
	return out
}

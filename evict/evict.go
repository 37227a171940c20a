// Package evict implements the size-aware write path: attempt a write,
// and on overflow evict least-recently-used entries one at a time until
// the write fits (or the cache is accepted as empty).
package evict

import (
	"sort"

	"github.com/dmitrich-go/vkvcache/codec"
	"github.com/dmitrich-go/vkvcache/internal/crawl"
	"github.com/dmitrich-go/vkvcache/store"
)

// MakeValue builds the raw string to persist at rawKey, given the current
// (possibly post-eviction) bit total and eviction queue. It is a closure
// so that a metadata write can reflect bits/equeue as they stand after
// victims have been evicted mid-retry.
type MakeValue func(bits int64, equeue []codec.QueueItem) string

// Engine performs the eviction loop described in spec §4.7 against a
// single store.Adapter.
type Engine struct {
	Adapter *store.Adapter
	MaxBits int64
}

// New returns an Engine bound to adapter with the given byte budget
// (expressed in bits, per the descriptor's MaxBits).
func New(adapter *store.Adapter, maxBits int64) *Engine {
	return &Engine{Adapter: adapter, MaxBits: maxBits}
}

// TrySet attempts to write rawKey with the value produced by makeValue,
// given that the write will change the cache's total bit count by
// bitsDiff. On success it returns the updated (bits, equeue, true). On
// overflow it evicts entries from the front of equeue one at a time,
// retrying after each, until the write fits or the queue (and a rebuild of
// it) is exhausted, in which case it gives up and returns (0, nil, false).
// A disabled backend also reports ok == false, but leaves bits/equeue
// untouched, distinguishing "nothing changed" from "accounting was reset".
func (e *Engine) TrySet(name string, bitsDiff, bits int64, equeue []codec.QueueItem, rawKey string, makeValue MakeValue) (int64, []codec.QueueItem, bool) {
	if bits+bitsDiff > e.MaxBits {
		return e.evictAndRetry(name, bitsDiff, bits, equeue, rawKey, makeValue)
	}

	value := makeValue(bits, equeue)
	if ok, quotaExceeded := e.Adapter.Set(rawKey, value); ok {
		return bits + bitsDiff, equeue, true
	} else if !quotaExceeded {
		// A disabled backend: nothing was written, nothing to evict for.
		return bits, equeue, false
	}
	return e.evictAndRetry(name, bitsDiff, bits, equeue, rawKey, makeValue)
}

// evictAndRetry consumes the head of equeue and retries TrySet, rebuilding
// the queue from the backend when it runs dry.
func (e *Engine) evictAndRetry(name string, bitsDiff, bits int64, equeue []codec.QueueItem, rawKey string, makeValue MakeValue) (int64, []codec.QueueItem, bool) {
	if len(equeue) == 0 {
		rebuilt := e.RebuildQueue(name)
		if len(rebuilt) == 0 {
			return 0, nil, false
		}
		return e.evictAndRetry(name, bitsDiff, bits, rebuilt, rawKey, makeValue)
	}

	victim := equeue[0]
	rest := equeue[1:]
	e.Adapter.Remove(victim.Key)
	return e.TrySet(name, bitsDiff, bits-victim.Bits, rest, rawKey, makeValue)
}

// RebuildQueue crawls every entry belonging to the cache named name,
// decoding only the entry's timestamp, and returns a fresh queue ordered
// oldest-first. Entries whose envelope does not decode are removed from
// the backend during the crawl.
func (e *Engine) RebuildQueue(name string) []codec.QueueItem {
	type timed struct {
		key  string
		t    int64
		bits int64
	}

	items := crawl.Crawl(e.Adapter, name, []timed(nil), func(rawKey, rawValue string, acc []timed) []timed {
		entry, ok := codec.DecodeEntry(rawValue)
		if !ok {
			e.Adapter.Remove(rawKey)
			return acc
		}
		return append(acc, timed{key: rawKey, t: entry.T, bits: codec.Size(rawKey, rawValue)})
	})

	sort.Slice(items, func(i, j int) bool { return items[i].t < items[j].t })

	q := make([]codec.QueueItem, len(items))
	for i, it := range items {
		q[i] = codec.QueueItem{Key: it.key, Bits: it.bits}
	}
	return q
}

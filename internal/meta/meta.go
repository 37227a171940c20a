// Package meta loads and persists a cache's metadata record.
package meta

import (
	"github.com/dmitrich-go/vkvcache/codec"
	"github.com/dmitrich-go/vkvcache/evict"
	"github.com/dmitrich-go/vkvcache/store"
)

// Load reads the metadata record for name. On absence, decode failure, or
// backend failure it returns a synthetic empty record at version
// currentVersion.
func Load(a *store.Adapter, name string, currentVersion int) codec.Meta {
	raw, ok := a.Get(codec.MetaKey(name))
	if !ok {
		return empty(currentVersion)
	}
	m, ok := codec.DecodeMeta(raw)
	if !ok {
		return empty(currentVersion)
	}
	return m
}

func empty(version int) codec.Meta {
	return codec.Meta{Version: version, Bits: 0, Equeue: nil, Policy: codec.LRU}
}

// Persist writes the metadata record for name via the eviction engine, so
// that a metadata write that cannot fit on its own drives eviction. If
// eviction still cannot make the record fit, accounting is reset to
// (bits=0, equeue=nil) — the next access will rebuild it from the
// backend.
func Persist(e *evict.Engine, name string, version int, bits int64, equeue []codec.QueueItem) (int64, []codec.QueueItem) {
	key := codec.MetaKey(name)

	makeValue := func(curBits int64, curQueue []codec.QueueItem) string {
		raw, err := codec.EncodeMeta(codec.Meta{
			Version: version,
			Bits:    curBits,
			Equeue:  curQueue,
			Policy:  codec.LRU,
		})
		if err != nil {
			return ""
		}
		return raw
	}

	// The metadata write itself has no size delta against the recorded
	// entry total: bits already accounts for every StoredEntry, and the
	// metadata record's own size is not part of that total (spec §3).
	// If eviction exhausts the queue and the rebuild is also empty,
	// Engine.TrySet already returns (0, nil, false) — exactly the "reset
	// accounting" fallback this function is required to provide.
	newBits, newEqueue, _ := e.TrySet(name, 0, bits, equeue, key, makeValue)
	return newBits, newEqueue
}

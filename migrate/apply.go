package migrate

import (
	"sort"

	"github.com/dmitrich-go/vkvcache/codec"
	"github.com/dmitrich-go/vkvcache/internal/crawl"
	"github.com/dmitrich-go/vkvcache/store"
)

// Apply rewrites every entry belonging to the cache named name under
// upgrade, and returns the resulting (bits, equeue) for the metadata
// record at the new version. Entries whose envelope does not decode, or
// whose upgrade returns absent, are removed from the backend. Surviving
// entries are replayed back in ascending write-time order; if replaying
// the next entry would push the running total past maxBits, replay stops
// and the remaining (newest) entries are dropped — migrations therefore
// prefer older entries when the post-upgrade budget tightens, which is a
// deliberate property, not a bug.
func Apply[T any](a *store.Adapter, name string, maxBits int64, upgrade Upgrade[T]) (int64, []codec.QueueItem) {
	type rewritten struct {
		key string
		t   int64
		raw string
	}

	buffered := crawl.Crawl(a, name, []rewritten(nil), func(rawKey, rawValue string, acc []rewritten) []rewritten {
		entry, ok := codec.DecodeEntry(rawValue)
		if !ok {
			a.Remove(rawKey)
			return acc
		}

		oldVal, ok := entry.V.(T)
		if !ok {
			// The stored intermediate doesn't match T's shape (e.g. a
			// JSON null, or a schema this upgrade chain doesn't start
			// from); upgrade receives T's zero value and decides
			// whether the entry is carried forward.
			var zero T
			oldVal = zero
		}

		userKey := rawKey[len(codec.EntryPrefix(name)):]
		newVal, ok := upgrade(userKey, oldVal)
		if !ok {
			a.Remove(rawKey)
			return acc
		}

		newEntry := codec.Entry{T: entry.T, V: newVal}
		raw, err := codec.EncodeEntry(newEntry)
		if err != nil {
			a.Remove(rawKey)
			return acc
		}
		return append(acc, rewritten{key: rawKey, t: entry.T, raw: raw})
	})

	sort.SliceStable(buffered, func(i, j int) bool { return buffered[i].t < buffered[j].t })

	var bits int64
	var equeue []codec.QueueItem
	stopAt := len(buffered)
	for i, r := range buffered {
		size := codec.Size(r.key, r.raw)
		if bits+size > maxBits {
			// Oldest-first replay stops here; everything from this point
			// on is newer and is silently dropped, per spec §4.6 step 4.
			stopAt = i
			break
		}
		if ok, _ := a.Set(r.key, r.raw); !ok {
			stopAt = i
			break
		}
		bits += size
		equeue = append([]codec.QueueItem{{Key: r.key, Bits: size}}, equeue...)
	}
	for _, r := range buffered[stopAt:] {
		a.Remove(r.key)
	}

	return bits, equeue
}

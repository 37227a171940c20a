// Package crawl scans all raw keys belonging to a named cache and folds
// their values through a caller-supplied stepper.
package crawl

import (
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrich-go/vkvcache/codec"
	"github.com/dmitrich-go/vkvcache/store"
)

// pair is a fetched (rawKey, rawValue) ready for folding.
type pair struct {
	key   string
	value string
	ok    bool
}

// Crawl lists every raw key in a belonging to the cache named name
// (excluding the metadata key itself), fetches their values with bounded
// concurrency, and folds step over them sequentially in the order Keys
// returned. Missing values and single-key failures are skipped, not
// treated as a crawl-aborting error — step never sees them.
func Crawl[Acc any](a *store.Adapter, name string, acc Acc, step func(rawKey, rawValue string, acc Acc) Acc) Acc {
	prefix := codec.EntryPrefix(name)
	all := a.Keys()

	var owned []string
	for _, k := range all {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			owned = append(owned, k)
		}
	}
	if len(owned) == 0 {
		return acc
	}

	results := make([]pair, len(owned))
	workers := runtime.GOMAXPROCS(0)
	if workers > len(owned) {
		workers = len(owned)
	}
	if workers < 1 {
		workers = 1
	}

	var g errgroup.Group
	idx := make(chan int)
	g.Go(func() error {
		for i := range owned {
			idx <- i
		}
		close(idx)
		return nil
	})
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := range idx {
				v, ok := a.Get(owned[i])
				results[i] = pair{key: owned[i], value: v, ok: ok}
			}
			return nil
		})
	}
	_ = g.Wait() // fetchers never return an error; nothing to propagate

	for _, p := range results {
		if !p.ok {
			continue
		}
		acc = step(p.key, p.value, acc)
	}
	return acc
}

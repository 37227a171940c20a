// Package cache provides a versioned, size-bounded key/value cache that
// persists through a caller-supplied string store (see package store).
//
// Design
//
//   - Namespacing: each Cache owns a "#name" metadata key and every entry
//     key "#name#userKey" in whatever store.Backend it is given, so many
//     Caches — even of different T — can safely share one backend.
//
//   - Size accounting: the budget is expressed in kilobytes but tracked
//     internally in an abstract "bits" unit (codec.Size), computed from
//     raw key and value string lengths, not a real byte count.
//
//   - Eviction: a single LRU-like policy. A bounded witness queue
//     (equeue, persisted in the metadata record, capped at 20 entries) is
//     a hint, not ground truth — evict.Engine rebuilds it from a full
//     backend crawl whenever it runs dry. This keeps ordinary reads and
//     writes cheap while keeping the cache self-healing under storage
//     that can be cleared or edited out-of-band.
//
//   - Versioning: Config.Version is the schema this Cache expects to find.
//     A metadata record at a different version is migrated via a shortest
//     path through Config.Migrations (package migrate); if no path
//     exists, the cache's namespace is wiped and rebuilt empty.
//
//   - Errors: nothing in this package's public surface returns an error.
//     Every store failure — disabled storage, quota exceeded, a corrupt
//     envelope — degrades to a miss, a no-op, or an eviction. Config.
//     Metrics and Config.OnOverflow are the only observability surface.
//
// Basic usage
//
//	c := cache.New[string](cache.Config[string]{
//	    Name:      "greetings",
//	    Version:   1,
//	    Kilobytes: 64,
//	    Encode:    func(v string) (codec.Intermediate, error) { return v, nil },
//	    Decode:    func(v codec.Intermediate) (string, bool) { s, ok := v.(string); return s, ok },
//	    Backend:   memstore.New(0),
//	})
//	c.Add("hello", "world")
//	v, ok := c.Get("hello") // v == "world", ok == true
//
// With a schema migration
//
//	c := cache.New[Profile](cache.Config[Profile]{
//	    Name:    "profiles",
//	    Version: 2,
//	    Migrations: []migrate.Edge[codec.Intermediate]{{
//	        From: 1, To: 2,
//	        Upgrade: func(key string, old codec.Intermediate) (codec.Intermediate, bool) {
//	            m, ok := old.(map[string]any)
//	            if !ok {
//	                return nil, false
//	            }
//	            m["timezone"] = "UTC" // field added in v2
//	            return m, true
//	        },
//	    }},
//	    // Encode, Decode, Backend as above.
//	})
//
// Exporting metrics (Prometheus)
//
//	m := prom.New(nil, "myapp", "profiles", nil) // implements metrics.Metrics
//	c := cache.New[Profile](cache.Config[Profile]{Metrics: m /* ... */})
package cache

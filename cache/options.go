package cache

import (
	"time"

	"github.com/dmitrich-go/vkvcache/codec"
	"github.com/dmitrich-go/vkvcache/metrics"
	"github.com/dmitrich-go/vkvcache/migrate"
	"github.com/dmitrich-go/vkvcache/store"
)

// Config configures a Cache. Name, Encode, Decode, and Backend must be
// set or New panics, matching the teacher's "Capacity must be > 0"
// contract for values a caller controls directly. Migrations, by
// contrast, degrade rather than panic on malformed data (see
// migrate.Graph): a malformed edge is dropped, not treated as a
// programming contract violation.
type Config[T any] struct {
	// Name namespaces every raw key this cache touches. Must be non-empty.
	Name string

	// Version is this cache's current schema version. A metadata record
	// found at a different version triggers a migration (or a full
	// Clear, if no path is declared).
	Version int

	// Kilobytes is the byte budget, converted to bits internally
	// (8 * 1024 * Kilobytes). Kilobytes <= 0 makes every Add a no-op and
	// every Get a miss.
	Kilobytes int

	// Encode converts a domain value to the JSON-like intermediate that
	// is actually persisted. Must be non-nil.
	Encode func(T) (codec.Intermediate, error)

	// Decode converts a persisted intermediate back to a domain value.
	// It reports false on any value it cannot decode (treated as a
	// miss). Must be non-nil.
	Decode func(codec.Intermediate) (T, bool)

	// Migrations declares the single-step schema upgrades available to
	// reach Version from whatever version is found on disk. Each
	// upgrade transforms the raw intermediate value, not the domain
	// type T — an upgrade chain exists precisely to turn a stale
	// intermediate shape into one Decode can handle, so it must run
	// before Decode ever sees the value. Edges with From >= To are
	// dropped.
	Migrations []migrate.Edge[codec.Intermediate]

	// Policy is the eviction policy tag. LRU is the only implemented
	// policy; other values are accepted but behave as LRU, and the
	// metadata record is always persisted with the LRU tag.
	Policy codec.Policy

	// OnOverflow, if set, is invoked (fire-and-forget, in its own
	// goroutine) whenever a write could not be accommodated: either the
	// entry alone exceeds the budget, or eviction could not make room.
	OnOverflow func(userKey string)

	// Metrics receives Hit/Miss/Evict/Migrate/Size signals. Defaults to
	// metrics.NoopMetrics.
	Metrics metrics.Metrics

	// Clock overrides the time source (for deterministic tests). Nil
	// uses time.Now.
	Clock func() time.Time

	// Backend is the underlying persistence store. Must be non-nil, or
	// New panics.
	Backend store.Backend
}

// maxBits converts the configured byte budget to the bit-accounting unit
// used throughout this module.
func (c Config[T]) maxBits() int64 {
	if c.Kilobytes <= 0 {
		return 0
	}
	return 8 * 1024 * int64(c.Kilobytes)
}

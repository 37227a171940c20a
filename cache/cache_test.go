package cache

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrich-go/vkvcache/codec"
	"github.com/dmitrich-go/vkvcache/metrics"
	"github.com/dmitrich-go/vkvcache/migrate"
	"github.com/dmitrich-go/vkvcache/store/memstore"
)

func stringConfig(name string, kb int) Config[string] {
	return Config[string]{
		Name:      name,
		Version:   1,
		Kilobytes: kb,
		Encode:    func(v string) (codec.Intermediate, error) { return v, nil },
		Decode: func(v codec.Intermediate) (string, bool) {
			s, ok := v.(string)
			return s, ok
		},
		Backend: memstore.New(0),
	}
}

// Basic Add/Get round trip.
func TestCache_BasicAddGet(t *testing.T) {
	t.Parallel()

	c := New[string](stringConfig("basic", 64))
	if _, ok := c.Get("a"); ok {
		t.Fatal("expect miss before Add")
	}
	c.Add("a", "hello")
	if v, ok := c.Get("a"); !ok || v != "hello" {
		t.Fatalf("Get a want hello, got %q ok=%v", v, ok)
	}
}

// Clear removes every entry belonging to this cache but leaves a
// sibling cache sharing the same backend untouched.
func TestCache_ClearIsNamespaced(t *testing.T) {
	t.Parallel()

	backend := memstore.New(0)
	a := New[string](Config[string]{
		Name: "a", Version: 1, Kilobytes: 64,
		Encode:  func(v string) (codec.Intermediate, error) { return v, nil },
		Decode:  func(v codec.Intermediate) (string, bool) { s, ok := v.(string); return s, ok },
		Backend: backend,
	})
	b := New[string](Config[string]{
		Name: "b", Version: 1, Kilobytes: 64,
		Encode:  func(v string) (codec.Intermediate, error) { return v, nil },
		Decode:  func(v codec.Intermediate) (string, bool) { s, ok := v.(string); return s, ok },
		Backend: backend,
	})

	a.Add("k", "v")
	b.Add("k", "v")
	a.Clear()

	if _, ok := a.Get("k"); ok {
		t.Fatal("a's entry must be gone after a.Clear")
	}
	if _, ok := b.Get("k"); !ok {
		t.Fatal("b's entry must survive a.Clear")
	}
}

// Forces eviction with a tiny budget and confirms the surviving key is
// the one that was added last.
func TestCache_EvictionUnderBudget(t *testing.T) {
	t.Parallel()

	// Each raw entry costs 16*(len(key)+len(value)) bits; size the
	// budget to fit exactly one of these small entries.
	// Each padded value is sized so that one entry fits the 1KB (8192 bit)
	// budget but two never do, forcing eviction on every subsequent Add.
	// The filler must be printable: a null byte would need six characters
	// to JSON-escape, throwing off the size math below.
	cfg := stringConfig("small", 1)
	c := New[string](cfg)

	padded := func(tag string) string { return tag + strings.Repeat("x", 300) }

	c.Add("a", padded("1"))
	c.Add("b", padded("2"))
	c.Add("c", padded("3"))

	if _, ok := c.Get("a"); ok {
		t.Fatal("a must have been evicted")
	}
	if _, ok := c.Get("b"); ok {
		t.Fatal("b must have been evicted")
	}
	if v, ok := c.Get("c"); !ok || v[0] != '3' {
		t.Fatalf("most recent key must survive, got %q ok=%v", v, ok)
	}
}

// A Get rewrites the entry's timestamp, so a touched key outlives
// untouched keys that were actually added more recently, once a queue
// rebuild has to pick a victim from real entry timestamps.
func TestCache_TouchPromotes(t *testing.T) {
	t.Parallel()

	var tick int64
	clock := func() time.Time {
		tick++
		return time.Unix(0, tick)
	}

	cfg := stringConfig("touch", 1) // 8192 bits
	cfg.Clock = clock
	c := New[string](cfg)

	keys := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for _, k := range keys {
		c.Add(k, k)
	}

	// Touch "a": it was the oldest entry, but a Get now rewrites its
	// timestamp to the newest tick of any entry in the cache.
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a must be present before touch")
	}

	// A big enough add forces exactly one eviction; it must claim the
	// oldest *untouched* key ("b"), not "a".
	c.Add("z", strings.Repeat("z", 320))

	if _, ok := c.Get("a"); !ok {
		t.Fatal("a must survive eviction: it was touched after b..h were added")
	}
	if _, ok := c.Get("b"); ok {
		t.Fatal("b must have been evicted: it is now the oldest entry")
	}
}

// An entry larger than the whole budget is rejected and OnOverflow fires.
func TestCache_EntryTooLargeFiresOverflow(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var overflowed []string

	cfg := stringConfig("overflow", 0)
	cfg.Kilobytes = 1
	cfg.Backend = memstore.New(0)
	cfg.OnOverflow = func(userKey string) {
		mu.Lock()
		overflowed = append(overflowed, userKey)
		mu.Unlock()
	}
	c := New[string](cfg)

	huge := make([]byte, 10*1024)
	c.Add("big", string(huge))

	if _, ok := c.Get("big"); ok {
		t.Fatal("entry larger than the budget must never be stored")
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(overflowed)
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(overflowed) != 1 || overflowed[0] != "big" {
		t.Fatalf("want OnOverflow(\"big\") exactly once, got %v", overflowed)
	}
}

// A cache instance re-opened against the same backend at a higher
// version, with no migration declared, starts empty rather than serving
// stale data.
func TestCache_NoMigrationPathWipesNamespace(t *testing.T) {
	t.Parallel()

	backend := memstore.New(0)
	v1 := New[string](Config[string]{
		Name: "evolve", Version: 1, Kilobytes: 64,
		Encode:  func(v string) (codec.Intermediate, error) { return v, nil },
		Decode:  func(v codec.Intermediate) (string, bool) { s, ok := v.(string); return s, ok },
		Backend: backend,
	})
	v1.Add("k", "old-shape")

	v2 := New[string](Config[string]{
		Name: "evolve", Version: 2, Kilobytes: 64,
		Encode:  func(v string) (codec.Intermediate, error) { return v, nil },
		Decode:  func(v codec.Intermediate) (string, bool) { s, ok := v.(string); return s, ok },
		Backend: backend,
	})
	if _, ok := v2.Get("k"); ok {
		t.Fatal("unmigratable data must not survive a version bump")
	}
}

// A declared migration upgrades an entry's intermediate shape in place.
func TestCache_MigrationUpgradesIntermediate(t *testing.T) {
	t.Parallel()

	backend := memstore.New(0)
	v1 := New[map[string]any](Config[map[string]any]{
		Name: "profiles", Version: 1, Kilobytes: 64,
		Encode: func(v map[string]any) (codec.Intermediate, error) { return v, nil },
		Decode: func(v codec.Intermediate) (map[string]any, bool) {
			m, ok := v.(map[string]any)
			return m, ok
		},
		Backend: backend,
	})
	v1.Add("alice", map[string]any{"name": "Alice"})

	v2 := New[map[string]any](Config[map[string]any]{
		Name: "profiles", Version: 2, Kilobytes: 64,
		Encode: func(v map[string]any) (codec.Intermediate, error) { return v, nil },
		Decode: func(v codec.Intermediate) (map[string]any, bool) {
			m, ok := v.(map[string]any)
			return m, ok
		},
		Migrations: []migrate.Edge[codec.Intermediate]{{
			From: 1, To: 2,
			Upgrade: func(_ string, old codec.Intermediate) (codec.Intermediate, bool) {
				m, ok := old.(map[string]any)
				if !ok {
					return nil, false
				}
				m["timezone"] = "UTC"
				return m, true
			},
		}},
		Backend: backend,
	})

	v, ok := v2.Get("alice")
	if !ok {
		t.Fatal("migrated entry must be present")
	}
	if v["timezone"] != "UTC" {
		t.Fatalf("migration must have run, got %v", v)
	}
	if v["name"] != "Alice" {
		t.Fatalf("migration must preserve existing fields, got %v", v)
	}
}

// Stats reports the resident entry count and respects the configured
// budget.
func TestCache_Stats(t *testing.T) {
	t.Parallel()

	c := New[string](stringConfig("stats", 64))
	c.Add("a", "1")
	c.Add("b", "2")

	s := c.Stats()
	if s.Entries != 2 {
		t.Fatalf("want 2 entries, got %d", s.Entries)
	}
	if s.Version != 1 {
		t.Fatalf("want version 1, got %d", s.Version)
	}
	if s.MaxBits <= 0 {
		t.Fatalf("want positive MaxBits, got %d", s.MaxBits)
	}
	if s.Ops != 2 {
		t.Fatalf("want 2 completed ops before this Stats call, got %d", s.Ops)
	}
}

// A disabled backend degrades every operation to a silent no-op/miss.
func TestCache_DisabledBackendDegradesQuietly(t *testing.T) {
	t.Parallel()

	ms := memstore.New(0)
	ms.SetDisabled(true)
	c := New[string](Config[string]{
		Name: "disabled", Version: 1, Kilobytes: 64,
		Encode:  func(v string) (codec.Intermediate, error) { return v, nil },
		Decode:  func(v codec.Intermediate) (string, bool) { s, ok := v.(string); return s, ok },
		Backend: ms,
	})

	c.Add("a", "1") // must not panic
	if _, ok := c.Get("a"); ok {
		t.Fatal("a disabled backend must never yield a hit")
	}
}

// NoopMetrics is the zero-value default; nil Metrics must not panic.
func TestCache_DefaultsToNoopMetrics(t *testing.T) {
	t.Parallel()

	c := New[string](Config[string]{
		Name: "noop", Version: 1, Kilobytes: 64,
		Encode:  func(v string) (codec.Intermediate, error) { return v, nil },
		Decode:  func(v codec.Intermediate) (string, bool) { s, ok := v.(string); return s, ok },
		Backend: memstore.New(0),
	})
	if _, ok := c.cfg.Metrics.(metrics.NoopMetrics); !ok {
		t.Fatalf("want NoopMetrics default, got %T", c.cfg.Metrics)
	}
}

func TestCache_PanicsWithoutRequiredFields(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		cfg  Config[string]
	}{
		{"missing name", Config[string]{Encode: func(v string) (codec.Intermediate, error) { return v, nil }, Decode: func(codec.Intermediate) (string, bool) { return "", true }, Backend: memstore.New(0)}},
		{"missing encode", Config[string]{Name: "x", Decode: func(codec.Intermediate) (string, bool) { return "", true }, Backend: memstore.New(0)}},
		{"missing decode", Config[string]{Name: "x", Encode: func(v string) (codec.Intermediate, error) { return v, nil }, Backend: memstore.New(0)}},
		{"missing backend", Config[string]{Name: "x", Encode: func(v string) (codec.Intermediate, error) { return v, nil }, Decode: func(codec.Intermediate) (string, bool) { return "", true }}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			defer func() {
				if recover() == nil {
					t.Fatalf("%s: want panic", tc.name)
				}
			}()
			New[string](tc.cfg)
		})
	}
}

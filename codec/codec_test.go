package codec

import "testing"

func TestSize(t *testing.T) {
	t.Parallel()

	got := Size("abc", "defgh")
	want := int64(16 * (3 + 5))
	if got != want {
		t.Fatalf("Size(abc, defgh) = %d, want %d", got, want)
	}
}

func TestEntryRoundTrip(t *testing.T) {
	t.Parallel()

	e := Entry{T: 12345, V: map[string]any{"name": "Alice", "age": float64(30)}}
	raw, err := EncodeEntry(e)
	if err != nil {
		t.Fatalf("EncodeEntry: %v", err)
	}

	got, ok := DecodeEntry(raw)
	if !ok {
		t.Fatal("DecodeEntry reported false on a value it just encoded")
	}
	if got.T != e.T {
		t.Fatalf("T = %d, want %d", got.T, e.T)
	}
	m, ok := got.V.(map[string]any)
	if !ok || m["name"] != "Alice" {
		t.Fatalf("V = %v, want map with name=Alice", got.V)
	}
}

func TestDecodeEntryMalformed(t *testing.T) {
	t.Parallel()

	if _, ok := DecodeEntry("not json"); ok {
		t.Fatal("malformed envelope must decode to ok=false")
	}
	if _, ok := DecodeEntry(""); ok {
		t.Fatal("empty envelope must decode to ok=false")
	}
}

func TestMetaRoundTripTrimsQueue(t *testing.T) {
	t.Parallel()

	long := make([]QueueItem, MaxQueueLen+10)
	for i := range long {
		long[i] = QueueItem{Key: "k", Bits: int64(i)}
	}

	raw, err := EncodeMeta(Meta{Version: 3, Bits: 100, Equeue: long})
	if err != nil {
		t.Fatalf("EncodeMeta: %v", err)
	}

	got, ok := DecodeMeta(raw)
	if !ok {
		t.Fatal("DecodeMeta reported false on a value it just encoded")
	}
	if len(got.Equeue) != MaxQueueLen {
		t.Fatalf("Equeue length = %d, want %d (trimmed)", len(got.Equeue), MaxQueueLen)
	}
	if got.Policy != LRU {
		t.Fatalf("Policy = %q, want default LRU", got.Policy)
	}
}

func TestKeyHelpers(t *testing.T) {
	t.Parallel()

	if got := MetaKey("profiles"); got != "#profiles" {
		t.Fatalf("MetaKey = %q", got)
	}
	if got := QualifiedKey("profiles", "alice"); got != "#profiles#alice" {
		t.Fatalf("QualifiedKey = %q", got)
	}
	if got := EntryPrefix("profiles"); got != "#profiles#" {
		t.Fatalf("EntryPrefix = %q", got)
	}
	// The metadata key itself must never match the entry prefix of its
	// own cache, or a crawl would treat metadata as an entry.
	if prefix := EntryPrefix("profiles"); len(MetaKey("profiles")) >= len(prefix) && MetaKey("profiles")[:len(prefix)] == prefix {
		t.Fatal("MetaKey must not start with its own EntryPrefix")
	}
}

// Package codec defines the on-disk envelopes for cache entries and
// metadata, and the byte-size accounting used by the eviction engine.
package codec

import (
	"encoding/json"
	"unicode/utf16"
)

// Intermediate is the JSON-like value produced by a Cache's Encode
// function and consumed by its Decode function. encoding/json already
// decodes arbitrary JSON into exactly this shape — nil, bool, float64,
// string, []any, or map[string]any — so there is no need for a hand-rolled
// tagged union to carry the same information.
type Intermediate = any

// Policy names the eviction policy for a cache's metadata record. LRU is
// the only policy this module implements; other values are accepted at
// construction and persisted unchanged (reserved for future policies).
type Policy string

// LRU is the only eviction policy defined by this package.
const LRU Policy = "LRU"

// Entry is the envelope stored at a cache's qualified key.
type Entry struct {
	T int64       `json:"t"`
	V Intermediate `json:"v"`
}

// QueueItem is one member of a metadata record's eviction queue: a
// qualified key and its last-known bit size.
type QueueItem struct {
	Key  string `json:"k"`
	Bits int64  `json:"v"`
}

// MaxQueueLen is the cap on equeue length when persisted (spec §3).
const MaxQueueLen = 20

// Meta is the envelope stored at a cache's metadata key.
type Meta struct {
	Version int         `json:"version"`
	Bits    int64       `json:"bits"`
	Equeue  []QueueItem `json:"equeue"`
	Policy  Policy      `json:"policy"`
}

// Size implements the exact accounting formula used by every budget
// comparison in this module: 16 bits per UTF-16 code unit of the raw key
// and raw value strings. This is an abstract size proxy, not a byte count,
// and must stay bit-exact with any metadata persisted by prior sessions.
func Size(rawKey, rawValue string) int64 {
	return 16 * int64(utf16Len(rawKey)+utf16Len(rawValue))
}

// utf16Len counts the UTF-16 code units needed to represent s.
func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// EncodeEntry marshals an entry envelope to its raw string form.
func EncodeEntry(e Entry) (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeEntry unmarshals an entry envelope. A malformed or absent value
// decodes to (Entry{}, false), never an error — callers treat decode
// failure as "miss".
func DecodeEntry(raw string) (Entry, bool) {
	var e Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return Entry{}, false
	}
	return e, true
}

// EncodeMeta marshals a metadata envelope, trimming Equeue to MaxQueueLen
// before encoding (the in-memory queue may be longer during a migration
// replay; only the first MaxQueueLen entries are ever persisted).
func EncodeMeta(m Meta) (string, error) {
	if len(m.Equeue) > MaxQueueLen {
		m.Equeue = m.Equeue[:MaxQueueLen]
	}
	if m.Policy == "" {
		m.Policy = LRU
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeMeta unmarshals a metadata envelope. A malformed or absent value
// decodes to (Meta{}, false); the caller synthesizes an empty record.
func DecodeMeta(raw string) (Meta, bool) {
	var m Meta
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return Meta{}, false
	}
	return m, true
}

// MetaKey returns the raw metadata key for a cache named name.
func MetaKey(name string) string { return "#" + name }

// QualifiedKey returns the raw entry key for userKey in the cache named
// name.
func QualifiedKey(name, userKey string) string { return "#" + name + "#" + userKey }

// EntryPrefix returns the prefix that every entry key of the cache named
// name begins with. It deliberately excludes the metadata key itself,
// which has no trailing "#".
func EntryPrefix(name string) string { return "#" + name + "#" }

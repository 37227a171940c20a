// Package store wraps a caller-supplied string-keyed persistence backend
// behind a narrow, error-swallowing facade.
//
// The canonical Backend is a browser's synchronous per-origin storage API:
// string keys, string values, a hard per-origin byte quota, and a store
// that a user may clear out-of-band at any time. This package does not
// implement such a backend — it only states the contract (Backend) and
// provides Adapter, which is the only thing the rest of this module talks
// to.
package store

import "errors"

// ErrDisabled indicates the backend is unavailable in this session (e.g.
// storage is disabled by the host, or a sandboxed origin has no access to
// it). It is non-recoverable within a session.
var ErrDisabled = errors.New("store: backend disabled")

// ErrQuotaExceeded indicates a Set would exceed the backend's byte quota.
// It is the signal that drives the eviction engine.
var ErrQuotaExceeded = errors.New("store: quota exceeded")

// Backend is the contract required of the underlying string persistence
// store. Implementations need not be safe for concurrent use by multiple
// goroutines unless the caller intends to share one Backend across
// multiple Cache values accessed concurrently.
type Backend interface {
	// Get returns the value last Set for rawKey, or ok == false if absent.
	// An error other than ErrDisabled must not be returned.
	Get(rawKey string) (value string, ok bool, err error)

	// Set stores value at rawKey. It fails with ErrQuotaExceeded iff the
	// write would exceed the backend's quota; otherwise it succeeds
	// durably, or fails with ErrDisabled.
	Set(rawKey, value string) error

	// Remove deletes rawKey. Removing an absent key is not an error.
	Remove(rawKey string) error

	// Clear deletes every key in the backend, including keys owned by
	// other callers sharing the same namespace.
	Clear() error

	// Keys enumerates all keys currently present, in no particular order.
	Keys() ([]string, error)
}

// Adapter wraps a Backend and translates its two failure modes into the
// "total function" contract the rest of this module relies on: ErrDisabled
// degrades every method to its zero result, and ErrQuotaExceeded is
// reported back only from Set (as a boolean), never as an error value.
type Adapter struct {
	b Backend
}

// New wraps b in an Adapter. A nil b is valid and behaves as an
// always-disabled backend.
func New(b Backend) *Adapter {
	return &Adapter{b: b}
}

// Get returns the value at rawKey, or ok == false on a miss or if the
// backend is disabled.
func (a *Adapter) Get(rawKey string) (value string, ok bool) {
	if a.b == nil {
		return "", false
	}
	v, ok, err := a.b.Get(rawKey)
	if err != nil {
		return "", false
	}
	return v, ok
}

// Set attempts to store value at rawKey. It returns quotaExceeded == true
// when the backend refused the write because it would exceed the quota;
// the caller is expected to evict and retry. A disabled backend is
// reported as a quiet failure (ok == false, quotaExceeded == false).
func (a *Adapter) Set(rawKey, value string) (ok, quotaExceeded bool) {
	if a.b == nil {
		return false, false
	}
	err := a.b.Set(rawKey, value)
	switch {
	case err == nil:
		return true, false
	case errors.Is(err, ErrQuotaExceeded):
		return false, true
	default:
		return false, false
	}
}

// Remove deletes rawKey, swallowing any backend failure.
func (a *Adapter) Remove(rawKey string) {
	if a.b == nil {
		return
	}
	_ = a.b.Remove(rawKey)
}

// Clear deletes every key in the backend, swallowing any backend failure.
func (a *Adapter) Clear() {
	if a.b == nil {
		return
	}
	_ = a.b.Clear()
}

// Keys enumerates all keys currently present. A disabled backend reports
// an empty list rather than an error.
func (a *Adapter) Keys() []string {
	if a.b == nil {
		return nil
	}
	ks, err := a.b.Keys()
	if err != nil {
		return nil
	}
	return ks
}

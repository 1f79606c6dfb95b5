// Package hashindex implements the fixed-bucket chained dictionary of §4.1:
// an associative store keyed by string, value an opaque byte copy.
// internal/datastore keys its databases in a plain map and
// internal/pluginreg's module cache is badger-backed; neither uses Index.
package hashindex

import "sync"

// Index is a thread-safe associative store. Go's map already chains on
// collision, so the bucket/chain structure of the original C hash table is
// realized directly as a map — the byte-string keying the spec describes
// as NUL-terminated is just a Go string, whose length is carried with it
// (the mismatched value/len guard of §4.1 is therefore structurally
// impossible in this signature and is not reimplemented).
type Index struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New returns an empty Index.
func New() *Index {
	return &Index{data: make(map[string][]byte)}
}

// Insert copies value and stores it under key, replacing any existing
// value in place.
func (idx *Index) Insert(key string, value []byte) {
	cp := make([]byte, len(value))
	copy(cp, value)

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.data[key] = cp
}

// Lookup returns a copy of the value stored under key, and whether it was
// found.
func (idx *Index) Lookup(key string) ([]byte, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	v, ok := idx.data[key]
	if !ok {
		return nil, false
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, true
}

// Delete removes key. Idempotent on absence.
func (idx *Index) Delete(key string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.data, key)
}

// Keys returns every key currently stored, in no particular order.
func (idx *Index) Keys() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	keys := make([]string, 0, len(idx.data))
	for k := range idx.data {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of stored entries.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.data)
}

package heap

import "sync"

// StringPool interns Java string constants so that `ldc` of the same text
// always yields the same heap handle (spec §4.7, §8's "Interning" testable
// property), grounded on the original implementation's string_pool.rs.
type StringPool struct {
	mu   sync.Mutex
	pool map[string]Handle
}

// NewStringPool creates an empty StringPool.
func NewStringPool() *StringPool {
	return &StringPool{pool: make(map[string]Handle)}
}

// GetOrNew returns the handle for text, allocating a new String object in
// heap on first use and caching it for subsequent calls.
func (sp *StringPool) GetOrNew(heap *Heap, text string) Handle {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	if h, ok := sp.pool[text]; ok {
		return h
	}
	h := heap.AllocString(text)
	sp.pool[text] = h
	return h
}

// Contains reports whether text has already been interned.
func (sp *StringPool) Contains(text string) bool {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	_, ok := sp.pool[text]
	return ok
}

// Package dedup tracks content hashes seen during an import run so the
// Import stage can skip duplicate files without a round trip to the store
// for every single candidate, adapted from the teacher's LRU/TTL
// deduplication cache and re-pointed at content hashes instead of log-line
// hashes.
package dedup

import (
	"container/list"
	"sync"
)

// Manager is an in-memory LRU set of content hashes already known to be
// stored. Import checks it before adding a file to a batch and records each
// hash the store inserts; it is not loaded from the store. It never
// substitutes for the store's unique-hash constraint — it only avoids
// submitting obvious duplicates in a batch.
type Manager struct {
	maxSize int

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front = most recently used
}

// NewManager builds a Manager holding at most maxSize hashes, evicting the
// least recently used entry once full.
func NewManager(maxSize int) *Manager {
	if maxSize <= 0 {
		maxSize = 100_000
	}
	return &Manager{
		maxSize: maxSize,
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
}

// Seen reports whether hash has already been recorded.
func (m *Manager) Seen(hash string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.entries[hash]
	if !ok {
		return false
	}
	m.order.MoveToFront(el)
	return true
}

// Record marks hash as seen, evicting the least recently used entry if the
// cache is at capacity.
func (m *Manager) Record(hash string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.entries[hash]; ok {
		m.order.MoveToFront(el)
		return
	}

	el := m.order.PushFront(hash)
	m.entries[hash] = el

	for m.order.Len() > m.maxSize {
		oldest := m.order.Back()
		if oldest == nil {
			break
		}
		m.order.Remove(oldest)
		delete(m.entries, oldest.Value.(string))
	}
}

// Len returns the number of hashes currently cached.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

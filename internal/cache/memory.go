package cache

import (
	"errors"
	"sync"
	"time"
)

type MemoryStore struct {
	mu             sync.RWMutex
	entries        map[string]Entry
	maxObjectBytes int64
	now            func() time.Time
}

func NewMemoryStore(maxObjectBytes int64) *MemoryStore {
	if maxObjectBytes <= 0 {
		maxObjectBytes = MaxCachedBytes
	}
	return &MemoryStore{
		entries:        make(map[string]Entry),
		maxObjectBytes: maxObjectBytes,
		now:            time.Now,
	}
}

// SetNowFunc installs a clock for TTL tests.
func (m *MemoryStore) SetNowFunc(now func() time.Time) {
	if m == nil || now == nil {
		return
	}
	m.now = now
}

func (m *MemoryStore) Now() time.Time {
	if m == nil || m.now == nil {
		return time.Now()
	}
	return m.now()
}

// Get returns the live entry for key. Expired entries are evicted lazily
// on access; there is no background sweep.
func (m *MemoryStore) Get(key string) (Entry, bool) {
	if m == nil {
		return Entry{}, false
	}

	now := m.Now()
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return Entry{}, false
	}
	if !entry.ExpiresAt.IsZero() && now.After(entry.ExpiresAt) {
		m.Delete(key)
		return Entry{}, false
	}
	return entry, true
}

func (m *MemoryStore) Set(key string, entry Entry) error {
	if m == nil {
		return errors.New("cache store not initialized")
	}
	if m.maxObjectBytes > 0 && int64(len(entry.Body)) > m.maxObjectBytes {
		return errors.New("cache entry exceeds max object bytes")
	}
	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(key string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

func (m *MemoryStore) Len() int {
	if m == nil {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

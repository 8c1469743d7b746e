package content

import (
	"sync"
	"time"
)

type memoEntry struct {
	value   any
	expires time.Time
}

// memo is the facade's read cache. Keys are per collection ("projects",
// "blog") or per page ("page:home").
//
// A read takes a token before going to the store and hands it back to set.
// Any invalidation in between moves the key's generation and the stale
// value is dropped.
type memo struct {
	mu      sync.RWMutex
	entries map[string]memoEntry
	gens    map[string]uint64
	epoch   uint64
	ttl     time.Duration
	now     func() time.Time
}

type memoToken struct {
	epoch uint64
	gen   uint64
}

func newMemo(ttl time.Duration, now func() time.Time) *memo {
	return &memo{
		entries: make(map[string]memoEntry),
		gens:    make(map[string]uint64),
		ttl:     ttl,
		now:     now,
	}
}

// token captures the key's generation before a store read.
func (m *memo) token(key string) memoToken {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return memoToken{epoch: m.epoch, gen: m.gens[key]}
}

func (m *memo) get(key string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if !e.expires.IsZero() && m.now().After(e.expires) {
		return nil, false
	}
	return e.value, true
}

// set stores value unless key was invalidated or flushed after tok was
// taken. It reports whether the value was kept.
func (m *memo) set(key string, tok memoToken, value any) bool {
	e := memoEntry{value: value}
	if m.ttl > 0 {
		e.expires = m.now().Add(m.ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if tok.epoch != m.epoch || tok.gen != m.gens[key] {
		return false
	}
	m.entries[key] = e
	return true
}

func (m *memo) invalidate(key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.gens[key]++
	m.mu.Unlock()
}

func (m *memo) flush() {
	m.mu.Lock()
	m.entries = make(map[string]memoEntry)
	m.epoch++
	m.mu.Unlock()
}

func pageCacheKey(page string) string {
	return "page:" + page
}

package idempotency

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore is a thread-safe in-memory implementation of Store.
//
// It bounds memory two ways:
//   - Entries carry a TTL and stop being served once expired
//   - A maximum entry count, with oldest-first eviction by creation time
//
// Expired entries are removed when a read discovers them or when Sweep
// runs; eviction happens inline on writes that hit the capacity bound.
type InMemoryStore struct {
	mu         sync.Mutex
	entries    map[string]*storedEntry
	ttl        time.Duration
	maxEntries int
	clock      Clock

	// creation-order tracking, newest at head
	ages *ageList
}

// storedEntry holds a cached result with its lifetime bounds.
type storedEntry struct {
	value     any
	createdAt time.Time
	expiresAt time.Time
}

// ageList maintains a doubly-linked list of keys ordered by creation
// time, newest first. The tail is always the oldest entry.
type ageList struct {
	head *ageNode
	tail *ageNode
	keys map[string]*ageNode
}

// ageNode represents a node in the creation-order list.
type ageNode struct {
	key  string
	prev *ageNode
	next *ageNode
}

// InMemoryStoreConfig holds configuration for InMemoryStore.
type InMemoryStoreConfig struct {
	// TTL is how long a stored result stays fresh.
	// Default: 5 minutes
	TTL time.Duration

	// MaxEntries is the maximum number of entries to keep in memory.
	// When this limit is reached, the oldest entries by creation time
	// are evicted.
	// Default: 10000
	MaxEntries int

	// Clock provides time operations for testing.
	// Default: SystemClock
	Clock Clock
}

// DefaultInMemoryStoreConfig returns the default configuration.
func DefaultInMemoryStoreConfig() InMemoryStoreConfig {
	return InMemoryStoreConfig{
		TTL:        5 * time.Minute,
		MaxEntries: 10000,
		Clock:      &SystemClock{},
	}
}

// NewInMemoryStore creates a new in-memory idempotency store with the
// given configuration.
func NewInMemoryStore(config InMemoryStoreConfig) *InMemoryStore {
	if config.TTL <= 0 {
		config.TTL = 5 * time.Minute
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = 10000
	}
	if config.Clock == nil {
		config.Clock = &SystemClock{}
	}

	return &InMemoryStore{
		entries:    make(map[string]*storedEntry),
		ttl:        config.TTL,
		maxEntries: config.MaxEntries,
		clock:      config.Clock,
		ages:       newAgeList(),
	}
}

// newAgeList creates a new creation-order list.
func newAgeList() *ageList {
	return &ageList{
		keys: make(map[string]*ageNode),
	}
}

// Get returns the fresh entry for the given key. An expired entry is
// removed and reported as a miss, so the next Put replaces it.
//
// This method is thread-safe.
func (s *InMemoryStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, exists := s.entries[key]
	if !exists {
		return Entry{}, false, nil
	}

	if !s.clock.Now().Before(stored.expiresAt) {
		delete(s.entries, key)
		s.ages.remove(key)
		return Entry{}, false, nil
	}

	return Entry{
		Value:     stored.value,
		CreatedAt: stored.createdAt,
		ExpiresAt: stored.expiresAt,
	}, true, nil
}

// Put stores a result under the given key with a fresh lifetime. An
// existing entry is replaced and counts as newly created for eviction
// ordering. When the capacity bound is hit, the oldest entries are
// evicted to make room.
//
// This method is thread-safe.
func (s *InMemoryStore) Put(ctx context.Context, key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, exists := s.entries[key]
	if !exists && len(s.entries) >= s.maxEntries {
		s.evictOldest(len(s.entries) - s.maxEntries + 1)
	}

	now := s.clock.Now()
	s.entries[key] = &storedEntry{
		value:     value,
		createdAt: now,
		expiresAt: now.Add(s.ttl),
	}
	s.ages.push(key)

	return nil
}

// Sweep removes expired entries eagerly.
//
// Returns the number of entries removed. This method is thread-safe.
func (s *InMemoryStore) Sweep(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	removed := 0
	for key, stored := range s.entries {
		if !now.Before(stored.expiresAt) {
			delete(s.entries, key)
			s.ages.remove(key)
			removed++
		}
	}

	return removed, nil
}

// Len returns the number of stored entries, including expired entries
// that have not been swept yet.
//
// This method is thread-safe.
func (s *InMemoryStore) Len(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries), nil
}

// evictOldest removes n entries starting from the oldest creation time.
//
// This method must be called while holding the lock.
func (s *InMemoryStore) evictOldest(n int) {
	for evicted := 0; evicted < n && s.ages.tail != nil; evicted++ {
		key := s.ages.tail.key
		delete(s.entries, key)
		s.ages.remove(key)
	}
}

// push moves a key to the newest position, adding it if absent.
//
// This method must be called while holding the lock.
func (l *ageList) push(key string) {
	if _, exists := l.keys[key]; exists {
		l.remove(key)
	}

	newNode := &ageNode{
		key:  key,
		next: l.head,
	}

	if l.head != nil {
		l.head.prev = newNode
	}
	l.head = newNode

	if l.tail == nil {
		l.tail = newNode
	}

	l.keys[key] = newNode
}

// remove removes a key from the creation-order list.
//
// This method must be called while holding the lock.
func (l *ageList) remove(key string) {
	node, exists := l.keys[key]
	if !exists {
		return
	}

	if node.prev != nil {
		node.prev.next = node.next
	} else {
		l.head = node.next
	}

	if node.next != nil {
		node.next.prev = node.prev
	} else {
		l.tail = node.prev
	}

	delete(l.keys, key)
}

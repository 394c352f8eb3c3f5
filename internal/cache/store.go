// Package cache implements the concurrent LRU response cache: a
// process-wide, byte-bounded associative store keyed by request
// fingerprint, with O(1) lookup, promotion and eviction under a single
// reader/writer lock.
package cache

import (
	"sync"

	"github.com/WillKirkmanM/proxy/internal/logging"
)

// Store is a concurrent LRU response cache. It owns every entry
// exclusively: Lookup always hands the caller a fresh copy of the
// payload, never a borrowed slice into the arena, so a caller can hold
// the returned bytes across any later cache mutation.
type Store struct {
	mu sync.RWMutex

	arena []entry
	free  []int32
	index map[string]int32

	head, tail int32

	currentBytes  int64
	maxTotalBytes int64
	maxEntryBytes int64

	closed bool

	logger     *logging.Logger
	onEviction func(freedBytes int64)
}

// Option configures a Store at construction time. Functional options
// keep New's signature stable as observability hooks are added, the
// pattern this repo borrows from the cache libraries in the retrieval
// pack rather than growing New's parameter list.
type Option func(*Store)

// WithLogger attaches a structured logger; Store emits one record per
// eviction and per successful insert when a logger is set. A nil
// logger is a valid, silent default.
func WithLogger(l *logging.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithEvictionMetrics attaches a callback invoked once per evicted
// entry with the number of bytes it freed, so a caller can mirror
// evictions into its own instrumentation without the store knowing
// about any particular metrics backend.
func WithEvictionMetrics(fn func(freedBytes int64)) Option {
	return func(s *Store) { s.onEviction = fn }
}

// New constructs a ready-to-use store with the given byte bounds.
// Both bounds must be positive and maxEntryBytes must not exceed
// maxTotalBytes, or New returns ErrInvalidConfig.
func New(maxTotalBytes, maxEntryBytes int64, opts ...Option) (*Store, error) {
	if maxTotalBytes <= 0 || maxEntryBytes <= 0 || maxEntryBytes > maxTotalBytes {
		return nil, ErrInvalidConfig
	}

	s := &Store{
		index:         make(map[string]int32),
		head:          nilIndex,
		tail:          nilIndex,
		maxTotalBytes: maxTotalBytes,
		maxEntryBytes: maxEntryBytes,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Close releases every live entry and marks the store unusable. Every
// subsequent Lookup reports a miss and every Insert declines silently.
// Idempotent: calling Close twice is a no-op on the second call,
// matching the stdlib's io.Closer convention.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.arena = nil
	s.free = nil
	s.index = nil
	s.head, s.tail = nilIndex, nilIndex
	s.currentBytes = 0
}

// Lookup implements the optimistic-shared-probe / upgrade / re-probe
// protocol: a hit promotes the entry to MRU and returns an owned copy
// of its payload; a miss never mutates the store.
func (s *Store) Lookup(key string) (payload []byte, ok bool) {
	s.mu.RLock()
	_, hit := s.index[key]
	s.mu.RUnlock()

	if !hit {
		return nil, false
	}

	// Lock upgrade is not atomic: re-probe under the exclusive lock,
	// because a concurrent insert or eviction may have removed the
	// entry between the shared probe above and this acquisition.
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, false
	}

	idx, hit := s.index[key]
	if !hit {
		return nil, false
	}

	s.promote(idx)

	out := make([]byte, s.arena[idx].size)
	copy(out, s.arena[idx].payload)
	return out, true
}

// Insert stores a copy of payload under key as the new MRU entry. If
// key is already present, its payload is replaced in place. If
// len(payload) exceeds the per-entry cap, Insert is a silent no-op and
// reports inserted=false. Insert never mutates the store when it
// declines to admit the entry.
func (s *Store) Insert(key string, payload []byte) (inserted bool) {
	size := int64(len(payload))
	if size <= 0 || size > s.maxEntryBytes {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	stored := make([]byte, size)
	copy(stored, payload)

	if idx, exists := s.index[key]; exists {
		old := s.arena[idx].size
		s.arena[idx].payload = stored
		s.arena[idx].size = size
		s.currentBytes += size - old
		s.promote(idx)
		s.evictUntilFits(0)
		s.log("cache insert (update)", key, size)
		return true
	}

	s.evictUntilFits(size)

	idx := s.allocate()
	s.arena[idx] = entry{key: key, payload: stored, size: size, prev: nilIndex, next: nilIndex}
	s.pushFront(idx)
	s.index[key] = idx
	s.currentBytes += size

	s.log("cache insert", key, size)
	return true
}

// evictUntilFits runs the eviction loop: while adding incoming bytes
// would push current_bytes over the total cap and the recency
// sequence is non-empty, evict the tail. Best-effort: it is permitted
// to stop once the sequence is empty even if the cap is still exceeded
// by the new entry alone (that case is impossible for an entry that
// already passed the per-entry cap check).
func (s *Store) evictUntilFits(incoming int64) {
	for s.currentBytes+incoming > s.maxTotalBytes && s.tail != nilIndex {
		victim := s.tail
		key := s.arena[victim].key
		size := s.arena[victim].size

		s.detach(victim)
		delete(s.index, key)
		s.currentBytes -= size
		s.release(victim)

		if s.onEviction != nil {
			s.onEviction(size)
		}
		s.log("cache eviction", key, size)
	}
}

// allocate returns an arena index ready to hold a new entry, reusing
// a freed slot when one is available.
func (s *Store) allocate() int32 {
	if n := len(s.free); n > 0 {
		idx := s.free[n-1]
		s.free = s.free[:n-1]
		return idx
	}
	s.arena = append(s.arena, entry{})
	return int32(len(s.arena) - 1)
}

// release returns an evicted arena slot to the free list and drops its
// payload so it can be garbage collected promptly.
func (s *Store) release(idx int32) {
	s.arena[idx] = entry{prev: nilIndex, next: nilIndex}
	s.free = append(s.free, idx)
}

func (s *Store) log(msg, key string, size int64) {
	if s.logger == nil {
		return
	}
	s.logger.Event(msg, key, size)
}

// Len reports the number of live entries. Intended for tests and
// diagnostics.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.index)
}

// CurrentBytes reports the current total bytes held in the cache.
// Intended for tests and diagnostics.
func (s *Store) CurrentBytes() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentBytes
}

// MaxEntryBytes reports the immutable per-entry cap, so collaborators
// (the forwarding pipeline's capture buffer) can stop growing a
// response that could never be admitted anyway.
func (s *Store) MaxEntryBytes() int64 {
	return s.maxEntryBytes
}

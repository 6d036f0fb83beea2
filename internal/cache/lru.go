package cache

import (
	"container/list"
	"sync"
)

// lruShard is one mutex-guarded slice of the existence table. Values are
// booleans so capacity is counted in entries, not bytes.
type lruShard struct {
	mu        sync.Mutex
	capacity  int
	items     map[string]*list.Element
	evictList *list.List

	// gen advances on every remove and clear
	gen uint64

	hits      uint64
	misses    uint64
	evictions uint64
}

// lruEntry represents the value stored in the list element
type lruEntry struct {
	key    string
	exists bool
}

func newLRUShard(capacity int) *lruShard {
	return &lruShard{
		capacity:  capacity,
		items:     make(map[string]*list.Element, capacity),
		evictList: list.New(),
	}
}

// get returns the memoized result and marks it most recently used
func (s *lruShard) get(key string) (exists bool, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.items[key]
	if !ok {
		s.misses++
		return false, false
	}

	s.evictList.MoveToFront(elem)
	s.hits++
	return elem.Value.(*lruEntry).exists, true
}

// peek reads without touching recency or statistics
func (s *lruShard) peek(key string) (exists bool, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.items[key]
	if !ok {
		return false, false
	}
	return elem.Value.(*lruEntry).exists, true
}

// generation returns the current invalidation generation
func (s *lruShard) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// putIfCurrent stores a result unless the shard was invalidated since gen
// was read. It reports whether the result was stored and how many entries
// were evicted.
func (s *lruShard) putIfCurrent(key string, exists bool, gen uint64) (bool, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen {
		return false, 0
	}
	return true, s.putLocked(key, exists)
}

// putLocked stores a result and reports how many entries were evicted
func (s *lruShard) putLocked(key string, exists bool) int {
	if elem, ok := s.items[key]; ok {
		elem.Value.(*lruEntry).exists = exists
		s.evictList.MoveToFront(elem)
		return 0
	}

	s.items[key] = s.evictList.PushFront(&lruEntry{key: key, exists: exists})

	evicted := 0
	for s.evictList.Len() > s.capacity {
		oldest := s.evictList.Back()
		s.evictList.Remove(oldest)
		delete(s.items, oldest.Value.(*lruEntry).key)
		evicted++
	}
	s.evictions += uint64(evicted)
	return evicted
}

// remove drops key and reports whether it was present
func (s *lruShard) remove(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	elem, ok := s.items[key]
	if !ok {
		return false
	}
	s.evictList.Remove(elem)
	delete(s.items, key)
	return true
}

func (s *lruShard) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	s.items = make(map[string]*list.Element, s.capacity)
	s.evictList.Init()
}

func (s *lruShard) snapshot() (hits, misses, evictions uint64, entries int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits, s.misses, s.evictions, s.evictList.Len()
}

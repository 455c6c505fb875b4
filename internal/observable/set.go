package observable

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

var ErrIndexOutOfRange = errors.New("index out of range")

// Set is an insertion-ordered collection of unique elements.
// Listeners receive a copy of the full ordered contents.
//
// Like Value, each mutation holds dispatchMu until its listeners return.
type Set[T comparable] struct {
	dispatchMu sync.Mutex

	mu        sync.Mutex
	items     []T
	listeners listeners[[]T]
}

func NewSet[T comparable](items ...T) *Set[T] {
	return &Set[T]{items: dedup(items)}
}

func dedup[T comparable](items []T) []T {
	out := make([]T, 0, len(items))
	seen := make(map[T]struct{}, len(items))
	for _, it := range items {
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}

// Values returns a copy of the elements in insertion order.
func (s *Set[T]) Values() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items)
}

func (s *Set[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Set[T]) Contains(item T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.items, item)
}

// Replace swaps the whole contents. Later duplicates in items are dropped.
func (s *Set[T]) Replace(items []T) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	s.items = dedup(items)
	s.notifyLocked()
}

// Add inserts item if absent and reports whether it was inserted.
// Listeners fire either way.
func (s *Set[T]) Add(item T) bool {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	added := !slices.Contains(s.items, item)
	if added {
		s.items = append(s.items, item)
	}
	s.notifyLocked()
	return added
}

// DeleteAt removes the element at position i. Out of range indexes leave the
// set untouched and notify nobody.
func (s *Set[T]) DeleteAt(i int) error {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	if i < 0 || i >= len(s.items) {
		n := len(s.items)
		s.mu.Unlock()
		return fmt.Errorf("delete at %d (len %d): %w", i, n, ErrIndexOutOfRange)
	}
	s.items = slices.Delete(slices.Clone(s.items), i, i+1)
	s.notifyLocked()
	return nil
}

// notifyLocked releases s.mu before invoking listeners. The caller holds
// dispatchMu.
func (s *Set[T]) notifyLocked() {
	fns := s.listeners.snapshot()
	snap := slices.Clone(s.items)
	s.mu.Unlock()

	for _, fn := range fns {
		fn(slices.Clone(snap))
	}
}

func (s *Set[T]) AddListener(id string, fn func([]T)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.listeners.add(id, fn)
	s.mu.Unlock()
}

func (s *Set[T]) RemoveListener(id string) {
	s.mu.Lock()
	s.listeners.remove(id)
	s.mu.Unlock()
}

func (s *Set[T]) RemoveAllListeners() {
	s.mu.Lock()
	s.listeners.clear()
	s.mu.Unlock()
}

func (s *Set[T]) ListenerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listeners.len()
}

func (s *Set[T]) String() string {
	return fmt.Sprint(s.Values())
}

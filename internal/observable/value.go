package observable

import (
	"fmt"
	"sync"
)

// Value holds a single value of type T.
//
// Mutations are serialized with their listener dispatch, so concurrent Sets
// reach listeners in the order they were applied. Listeners may call Get and
// the listener methods but must not call Set on the same Value.
type Value[T any] struct {
	dispatchMu sync.Mutex

	mu        sync.Mutex
	v         T
	listeners listeners[T]
}

func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{v: initial}
}

func (o *Value[T]) Get() T {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.v
}

// Set replaces the value and notifies every listener with it.
func (o *Value[T]) Set(v T) {
	o.dispatchMu.Lock()
	defer o.dispatchMu.Unlock()

	o.mu.Lock()
	o.v = v
	fns := o.listeners.snapshot()
	o.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// AddListener registers fn under id, replacing any listener with that id.
func (o *Value[T]) AddListener(id string, fn func(T)) {
	if fn == nil {
		return
	}
	o.mu.Lock()
	o.listeners.add(id, fn)
	o.mu.Unlock()
}

func (o *Value[T]) RemoveListener(id string) {
	o.mu.Lock()
	o.listeners.remove(id)
	o.mu.Unlock()
}

func (o *Value[T]) RemoveAllListeners() {
	o.mu.Lock()
	o.listeners.clear()
	o.mu.Unlock()
}

func (o *Value[T]) ListenerCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.listeners.len()
}

func (o *Value[T]) String() string {
	return fmt.Sprint(o.Get())
}

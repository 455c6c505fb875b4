package storage

import (
	"context"
	"sync"
)

// Memory is a process-local backend. Tests use it as the fake backend.
type Memory struct {
	mu     sync.Mutex
	data   map[string][]byte
	closed bool
}

// NewMemory returns a Memory backend preloaded with seed.
// Seed values that cannot be JSON encoded are skipped.
func NewMemory(seed map[string]any) *Memory {
	m := &Memory{data: map[string][]byte{}}
	for k, v := range seed {
		if b, err := marshal(v); err == nil {
			m.data[k] = b
		}
	}
	return m
}

func (m *Memory) Get(ctx context.Context, key string) (any, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, false, ErrClosed
	}
	b, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	v, err := decode(b)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (m *Memory) Set(ctx context.Context, key string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return ErrEmptyKey
	}
	b, err := marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.data[key] = b
	return nil
}

// Keys returns the stored keys in no particular order.
func (m *Memory) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.data))
	for k := range m.data {
		out = append(out, k)
	}
	return out
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

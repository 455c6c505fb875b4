package preferences

import (
	"context"
	"errors"
	"sync"
	"time"

	"clintoncat/internal/storage"
)

// countingBackend wraps a Memory backend and records every write.
type countingBackend struct {
	*storage.Memory

	mu     sync.Mutex
	writes []string
	getErr error
	// delay, when set, is slept before each write.
	delay func() time.Duration
}

func newCountingBackend(seed map[string]any) *countingBackend {
	return &countingBackend{Memory: storage.NewMemory(seed)}
}

func (c *countingBackend) Get(ctx context.Context, key string) (any, bool, error) {
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	return c.Memory.Get(ctx, key)
}

func (c *countingBackend) Set(ctx context.Context, key string, value any) error {
	if c.delay != nil {
		time.Sleep(c.delay())
	}
	c.mu.Lock()
	c.writes = append(c.writes, key)
	c.mu.Unlock()
	return c.Memory.Set(ctx, key, value)
}

func (c *countingBackend) writeCount(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, k := range c.writes {
		if key == "" || k == key {
			n++
		}
	}
	return n
}

func (c *countingBackend) reset() {
	c.mu.Lock()
	c.writes = nil
	c.mu.Unlock()
}

var errBackendDown = errors.New("backend down")

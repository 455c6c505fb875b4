package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"clintoncat/internal/fswatch"
	logx "clintoncat/pkg/logx"
)

// fileStore keeps every key in one JSON object on disk.
//
// Reads go to disk each time so that writes from another process are seen
// without a restart. Writes rewrite the whole object to <path>.tmp and
// rename it over <path>, so readers never observe a partial file.
type fileStore struct {
	log  logx.Logger
	path string

	mu     sync.Mutex
	closed bool
}

func openFile(cfg Config, log logx.Logger) (Backend, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage path is required for file driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating storage dir: %w", err)
	}
	s := &fileStore{log: log.With(logx.String("path", path)), path: path}
	// Surface unreadable files at open time rather than on first Get.
	if _, err := s.readLocked(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *fileStore) Get(ctx context.Context, key string) (any, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false, ErrClosed
	}
	data, err := s.readLocked()
	if err != nil {
		return nil, false, err
	}
	raw, ok := data[key]
	if !ok {
		return nil, false, nil
	}
	v, err := decode(raw)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (s *fileStore) Set(ctx context.Context, key string, value any) error {
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

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	data, err := s.readLocked()
	if err != nil {
		return err
	}
	data[key] = b
	return s.writeLocked(data)
}

// Watch reports writes to the backing file, including this process's own.
func (s *fileStore) Watch(ctx context.Context, onChange func()) error {
	return fswatch.File(ctx, s.path, fswatch.Options{Log: s.log}, onChange)
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *fileStore) readLocked() (map[string]json.RawMessage, error) {
	data := map[string]json.RawMessage{}
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return data, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.path, err)
	}
	return data, nil
}

func (s *fileStore) writeLocked(data map[string]json.RawMessage) error {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return err
	}
	if s.log.Enabled(logx.LevelTrace) {
		s.log.Trace("storage file written", logx.Int("keys", len(data)), logx.Int("bytes", len(b)))
	}
	return nil
}

package storage

import (
	"fmt"
	"strings"

	logx "clintoncat/pkg/logx"
)

// Open initializes the configured backend.
func Open(cfg Config, log logx.Logger) (Backend, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "memory", "mem":
		return NewMemory(nil), nil
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	case "":
		return nil, fmt.Errorf("storage driver is required")
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Driver)
	}
}

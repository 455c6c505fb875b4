package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"clintoncat/internal/config"
	"clintoncat/internal/storage"
	logx "clintoncat/pkg/logx"
)

const defaultBusyTimeout = 1 * time.Second

// ValidateConfig is config.Validate plus the storage mapping Open performs.
// It has the config.Manager validator signature.
func ValidateConfig(_ context.Context, cfg *config.Config) error {
	if err := config.Validate(cfg); err != nil {
		return err
	}
	if _, err := mapStorageConfig("storage.sync", cfg.Storage.Sync); err != nil {
		return err
	}
	_, err := mapStorageConfig("storage.local", cfg.Storage.Local)
	return err
}

func mapStorageConfig(name string, bc config.BackendConfig) (storage.Config, error) {
	driver := strings.ToLower(strings.TrimSpace(bc.Driver))
	path := strings.TrimSpace(bc.Path)

	switch driver {
	case "memory", "mem":
		return storage.Config{Driver: "memory"}, nil
	case "file":
		if path == "" {
			return storage.Config{}, fmt.Errorf("%s.path is required when driver=file", name)
		}
		return storage.Config{Driver: "file", Path: path}, nil
	case "sqlite", "sqlite3":
		if path == "" {
			return storage.Config{}, fmt.Errorf("%s.path is required when driver=sqlite", name)
		}
		busy, err := config.ParseDurationOrDefault(name+".busy_timeout", bc.BusyTimeout, defaultBusyTimeout)
		if err != nil {
			return storage.Config{}, err
		}
		return storage.Config{Driver: driver, Path: path, BusyTimeout: busy}, nil
	case "":
		return storage.Config{}, fmt.Errorf("%s.driver is required", name)
	default:
		return storage.Config{}, fmt.Errorf("unknown %s.driver: %s", name, bc.Driver)
	}
}

func mapLoggingConfig(lc config.LoggingConfig) logx.Config {
	return logx.Config{
		Level:   lc.Level,
		Console: lc.Console,
		File: logx.FileConfig{
			Enabled: lc.File.Enabled,
			Path:    lc.File.Path,
		},
		Events: logx.EventsConfig{
			Enabled:    lc.Events.Enabled,
			MinLevel:   lc.Events.MinLevel,
			RatePerSec: lc.Events.RatePerSec,
		},
	}
}

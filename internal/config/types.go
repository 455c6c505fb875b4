package config

import (
	"fmt"
	"strings"
)

type Config struct {
	Logging    LoggingConfig    `json:"logging"`
	Storage    StorageConfig    `json:"storage"`
	Background BackgroundConfig `json:"background"`
}

type LoggingConfig struct {
	Level   string        `json:"level"`
	Console bool          `json:"console"`
	File    LoggingFile   `json:"file"`
	Events  LoggingEvents `json:"events"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LoggingEvents forwards warn+ records onto the event bus so the background
// worker can surface them.
type LoggingEvents struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// StorageConfig names the two backends every context binds.
//
// Sync holds preferences shared across contexts; Local holds bulkier
// device-scoped data.
//
// Example:
//
//	"storage": {
//	  "sync":  { "driver": "file",   "path": "./clintoncat_data/sync.json" },
//	  "local": { "driver": "sqlite", "path": "./clintoncat_data/local.db", "busy_timeout": "2s" }
//	}
type StorageConfig struct {
	Sync  BackendConfig `json:"sync"`
	Local BackendConfig `json:"local"`
}

type BackendConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// BackgroundConfig controls the long-running background context.
type BackgroundConfig struct {
	// Watch enables native change notification where the sync driver has it.
	// Omitted means true.
	Watch *bool `json:"watch,omitempty"`
	// Resync is a cron spec (e.g. "@every 30s", "*/5 * * * *"). "off" disables it.
	Resync string `json:"resync,omitempty"`
	// SDNotify reports readiness to systemd when NOTIFY_SOCKET is set.
	SDNotify bool `json:"sd_notify,omitempty"`
}

const DefaultResync = "@every 30s"

// WatchEnabled resolves the Watch default.
func (b BackgroundConfig) WatchEnabled() bool {
	return b.Watch == nil || *b.Watch
}

// ResyncSpec returns the effective cron spec, or "" when resync is disabled.
func (b BackgroundConfig) ResyncSpec() string {
	s := strings.TrimSpace(b.Resync)
	switch strings.ToLower(s) {
	case "":
		return DefaultResync
	case "off", "none", "disabled":
		return ""
	}
	return s
}

// Default returns the config used when no file is given. Fields omitted from
// a config file keep these values.
func Default() Config {
	return Config{
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
			Events:  LoggingEvents{MinLevel: "warn", RatePerSec: 5},
		},
		Storage: StorageConfig{
			Sync:  BackendConfig{Driver: "file", Path: "./clintoncat_data/sync.json"},
			Local: BackendConfig{Driver: "sqlite", Path: "./clintoncat_data/local.db", BusyTimeout: "1s"},
		},
		Background: BackgroundConfig{Resync: DefaultResync},
	}
}

var knownDrivers = map[string]bool{"memory": true, "mem": true, "file": true, "sqlite": true, "sqlite3": true}

// Validate checks fields that would otherwise only fail at open time.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	for name, b := range map[string]BackendConfig{"storage.sync": cfg.Storage.Sync, "storage.local": cfg.Storage.Local} {
		d := strings.ToLower(strings.TrimSpace(b.Driver))
		if !knownDrivers[d] {
			return fmt.Errorf("%s.driver: unknown driver %q", name, b.Driver)
		}
		if d != "memory" && d != "mem" && strings.TrimSpace(b.Path) == "" {
			return fmt.Errorf("%s.path is required when driver=%s", name, d)
		}
		if _, err := ParseDurationField(name+".busy_timeout", b.BusyTimeout); err != nil {
			return err
		}
	}
	return nil
}

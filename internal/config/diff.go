package config

import (
	"sort"
	"strings"

	logx "clintoncat/pkg/logx"
)

// SummarizeChange returns the changed sections and log-safe attrs describing
// the new values. Paths are reported as set/unset only.
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 4)
	attrs := make([]logx.Field, 0, 12)

	ol, nl := oldCfg.Logging, newCfg.Logging
	if ol.Level != nl.Level || ol.Console != nl.Console || ol.File != nl.File || ol.Events != nl.Events {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", nl.Level),
			logx.Bool("logging.console", nl.Console),
			logx.Bool("logging.file_enabled", nl.File.Enabled),
			logx.Bool("logging.events_enabled", nl.Events.Enabled),
		)
	}

	for _, s := range []struct {
		name     string
		old, new BackendConfig
	}{
		{"storage.sync", oldCfg.Storage.Sync, newCfg.Storage.Sync},
		{"storage.local", oldCfg.Storage.Local, newCfg.Storage.Local},
	} {
		if backendKey(s.old) == backendKey(s.new) {
			continue
		}
		changed = append(changed, s.name)
		attrs = append(attrs,
			logx.String(s.name+".driver", strings.TrimSpace(s.new.Driver)),
			logx.Bool(s.name+".path_set", strings.TrimSpace(s.new.Path) != ""),
		)
	}

	ob, nb := oldCfg.Background, newCfg.Background
	if ob.WatchEnabled() != nb.WatchEnabled() || ob.ResyncSpec() != nb.ResyncSpec() || ob.SDNotify != nb.SDNotify {
		changed = append(changed, "background")
		attrs = append(attrs,
			logx.Bool("background.watch", nb.WatchEnabled()),
			logx.String("background.resync", nb.ResyncSpec()),
		)
	}

	sort.Strings(changed)
	return changed, attrs
}

func backendKey(b BackendConfig) string {
	return strings.ToLower(strings.TrimSpace(b.Driver)) + "|" + strings.TrimSpace(b.Path) + "|" + strings.TrimSpace(b.BusyTimeout)
}

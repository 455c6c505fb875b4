package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestParseJSONKeepsDefaults(t *testing.T) {
	t.Parallel()
	p := writeFile(t, "config.json", `{"logging":{"level":"debug","console":true}}`)
	cfg, err := NewManager(p).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("level = %q", cfg.Logging.Level)
	}
	def := Default()
	if cfg.Storage != def.Storage {
		t.Fatalf("storage = %+v, want defaults", cfg.Storage)
	}
	if cfg.Background.ResyncSpec() != DefaultResync || !cfg.Background.WatchEnabled() {
		t.Fatalf("background = %+v", cfg.Background)
	}
}

func TestParseYAML(t *testing.T) {
	t.Parallel()
	p := writeFile(t, "config.yaml", `
storage:
  sync:
    driver: memory
  local:
    driver: sqlite
    path: ./local.db
    busy_timeout: 2s
background:
  watch: false
  resync: "off"
`)
	cfg, err := NewManager(p).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Sync.Driver != "memory" || cfg.Storage.Local.BusyTimeout != "2s" {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
	if cfg.Background.WatchEnabled() || cfg.Background.ResyncSpec() != "" {
		t.Fatalf("background = %+v", cfg.Background)
	}
}

func TestParseRejectsUnknownAndTrailing(t *testing.T) {
	t.Parallel()
	for name, body := range map[string]string{
		"unknown":  `{"telegram":{}}`,
		"trailing": `{} {}`,
	} {
		p := writeFile(t, "config.json", body)
		if _, err := NewManager(p).Parse(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	good := Default()
	if err := Validate(&good); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	bad := Default()
	bad.Storage.Sync.Driver = "redis"
	if err := Validate(&bad); err == nil {
		t.Fatal("unknown driver accepted")
	}

	bad = Default()
	bad.Storage.Local.Path = ""
	if err := Validate(&bad); err == nil {
		t.Fatal("sqlite without path accepted")
	}

	bad = Default()
	bad.Storage.Local.BusyTimeout = "soon"
	if err := Validate(&bad); err == nil {
		t.Fatal("bad duration accepted")
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	t.Parallel()
	d, err := ParseDurationOrDefault("x", "", time.Second)
	if err != nil || d != time.Second {
		t.Fatalf("empty -> %v, %v", d, err)
	}
	if _, err := ParseDurationField("x", "-1s"); err == nil {
		t.Fatal("negative duration accepted")
	}
}

func TestSummarizeChange(t *testing.T) {
	t.Parallel()
	a := Default()
	b := Default()
	b.Logging.Level = "debug"
	b.Storage.Local = BackendConfig{Driver: "memory"}

	changed, attrs := SummarizeChange(&a, &b)
	if !slices.Equal(changed, []string{"logging", "storage.local"}) {
		t.Fatalf("changed = %v", changed)
	}
	if len(attrs) == 0 {
		t.Fatal("expected attrs")
	}
	if changed, _ := SummarizeChange(&a, &a); len(changed) != 0 {
		t.Fatalf("identical configs reported %v", changed)
	}
}

func TestReloadUsesCustomValidator(t *testing.T) {
	t.Parallel()
	p := writeFile(t, "config.json", `{"logging":{"level":"info"}}`)
	m := NewManager(p)
	if m.Path() != p {
		t.Fatalf("Path() = %q, want %q", m.Path(), p)
	}
	if _, err := m.Load(); err != nil {
		t.Fatal(err)
	}
	m.SetValidator(func(_ context.Context, cfg *Config) error {
		if cfg.Logging.Level == "trace" {
			return errors.New("trace not allowed")
		}
		return nil
	})

	if err := os.WriteFile(p, []byte(`{"logging":{"level":"trace"}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if m.reload(context.Background()) {
		t.Fatal("config rejected by validator was published")
	}
	if m.Get().Logging.Level != "info" {
		t.Fatalf("committed level = %q", m.Get().Logging.Level)
	}
}

func TestReloadPublishesOnlyOnChange(t *testing.T) {
	t.Parallel()
	p := writeFile(t, "config.json", `{"logging":{"level":"info"}}`)
	m := NewManager(p)
	if _, err := m.Load(); err != nil {
		t.Fatal(err)
	}
	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	if m.reload(context.Background()) {
		t.Fatal("unchanged file was published")
	}

	if err := os.WriteFile(p, []byte(`{"logging":{"level":"debug"}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if !m.reload(context.Background()) {
		t.Fatal("changed file was not published")
	}
	got := <-ch
	if got.Logging.Level != "debug" || m.Get().Logging.Level != "debug" {
		t.Fatalf("published level = %q", got.Logging.Level)
	}

	if err := os.WriteFile(p, []byte(`{"storage":{"sync":{"driver":"bogus"}}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if m.reload(context.Background()) {
		t.Fatal("invalid config was published")
	}
}

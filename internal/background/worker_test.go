package background

import (
	"context"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"clintoncat/internal/config"
	"clintoncat/internal/eventbus"
	"clintoncat/internal/preferences"
	"clintoncat/internal/storage"
	logx "clintoncat/pkg/logx"
)

func boolPtr(b bool) *bool { return &b }

func newWorker(t *testing.T, pref storage.Backend, cfg config.BackgroundConfig) (*Worker, *preferences.Registry) {
	t.Helper()
	reg := preferences.New()
	w := New(reg, pref, storage.NewMemory(nil), cfg, eventbus.New(), logx.Nop())
	if err := w.OnInstalled(context.Background()); err != nil {
		t.Fatalf("OnInstalled: %v", err)
	}
	return w, reg
}

func TestShouldSkip(t *testing.T) {
	t.Parallel()
	w, reg := newWorker(t, storage.NewMemory(nil), config.BackgroundConfig{})
	reg.DomainExclusions.Add("example.co.uk")

	tests := []struct {
		url  string
		want bool
	}{
		{"https://rossmanngroup.com/", true},
		{"https://www.rossmanngroup.com/about", true},
		{"https://shop.example.co.uk/cart", true},
		{"https://example.com/", false},
		{"https://notrossmanngroup.com/", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := w.ShouldSkip(tt.url); got != tt.want {
			t.Fatalf("ShouldSkip(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}

	reg.IsEnabled.Set(false)
	if !w.ShouldSkip("https://example.com/") {
		t.Fatal("disabled worker did not skip")
	}
}

func TestOnInstalledTwiceKeepsState(t *testing.T) {
	t.Parallel()
	pref := storage.NewMemory(nil)
	w, reg := newWorker(t, pref, config.BackgroundConfig{})
	reg.NotificationType.Set(preferences.Toast)

	if err := w.OnInstalled(context.Background()); err != nil {
		t.Fatal(err)
	}
	if reg.NotificationType.Get() != preferences.Toast {
		t.Fatalf("notification type = %v after reinstall", reg.NotificationType.Get())
	}
	if n := reg.NotificationType.ListenerCount(); n != 1 {
		t.Fatalf("listeners = %d", n)
	}
}

func TestResyncAdoptsOtherWriters(t *testing.T) {
	t.Parallel()
	pref := storage.NewMemory(nil)
	w, reg := newWorker(t, pref, config.BackgroundConfig{})

	if err := pref.Set(context.Background(), preferences.DomainExclusionsKey, []string{"a.com", "b.com"}); err != nil {
		t.Fatal(err)
	}
	w.Resync(context.Background(), "test")
	if got := reg.DomainExclusions.Values(); !slices.Equal(got, []string{"a.com", "b.com"}) {
		t.Fatalf("exclusions = %v", got)
	}
}

func TestRunFollowsFileWrites(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "sync.json")
	pref, err := storage.Open(storage.Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer pref.Close()

	w, reg := newWorker(t, pref, config.BackgroundConfig{Watch: boolPtr(true), Resync: "off"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// A second handle stands in for another execution context.
	other, err := storage.Open(storage.Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer other.Close()

	deadline := time.Now().Add(5 * time.Second)
	for reg.IsEnabled.Get() {
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("watcher never adopted is_enabled=false")
		}
		// Re-write until the watcher is up and sees it.
		if err := other.Set(context.Background(), preferences.IsEnabledKey, false); err != nil {
			t.Fatal(err)
		}
		time.Sleep(100 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunResyncSchedule(t *testing.T) {
	t.Parallel()
	pref := storage.NewMemory(nil)
	w, reg := newWorker(t, pref, config.BackgroundConfig{Watch: boolPtr(false), Resync: "@every 1s"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	if err := pref.Set(context.Background(), preferences.NotificationTypeKey, 3); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for reg.NotificationType.Get() != preferences.Notification {
		if time.Now().After(deadline) {
			t.Fatal("resync never adopted notification_type=3")
		}
		time.Sleep(50 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestRunRejectsBadResync(t *testing.T) {
	t.Parallel()
	w, _ := newWorker(t, storage.NewMemory(nil), config.BackgroundConfig{Resync: "every now and then"})
	if err := w.Run(context.Background()); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestRunNotifiesSystemd(t *testing.T) {
	t.Parallel()
	w, _ := newWorker(t, storage.NewMemory(nil), config.BackgroundConfig{Watch: boolPtr(false), Resync: "off", SDNotify: true})

	var mu sync.Mutex
	var states []string
	w.notify = func(state string) (bool, error) {
		mu.Lock()
		states = append(states, state)
		mu.Unlock()
		return true, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	if !slices.Equal(states, []string{daemon.SdNotifyReady, daemon.SdNotifyStopping}) {
		t.Fatalf("states = %v", states)
	}
}

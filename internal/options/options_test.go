package options

import (
	"context"
	"errors"
	"slices"
	"testing"

	"clintoncat/internal/observable"
	"clintoncat/internal/preferences"
	"clintoncat/internal/storage"
	logx "clintoncat/pkg/logx"
)

func newOptions(t *testing.T) (*Options, *preferences.Registry, *storage.Memory) {
	t.Helper()
	pref := storage.NewMemory(nil)
	reg := preferences.New()
	if err := reg.InitDefaults(context.Background(), pref, storage.NewMemory(nil)); err != nil {
		t.Fatal(err)
	}
	return New(reg, logx.Nop()), reg, pref
}

func TestAttachRendersAndFollowsChanges(t *testing.T) {
	t.Parallel()
	o, reg, _ := newOptions(t)
	var renders [][]string
	o.Attach(func(items []string) { renders = append(renders, items) })

	if _, err := o.AddExclusion("https://www.example.com/page"); err != nil {
		t.Fatal(err)
	}
	if len(renders) != 2 || !slices.Equal(renders[1], []string{"rossmanngroup.com", "example.com"}) {
		t.Fatalf("renders = %v", renders)
	}

	o.Detach()
	reg.DomainExclusions.Add("other.com")
	if len(renders) != 2 {
		t.Fatal("render called after Detach")
	}
}

func TestExclusionEditingPersists(t *testing.T) {
	t.Parallel()
	o, _, pref := newOptions(t)
	ctx := context.Background()

	if _, err := o.AddExclusion("example.org"); err != nil {
		t.Fatal(err)
	}
	if _, err := o.AddExclusion("sub.example.org"); err != nil {
		t.Fatal(err)
	}
	if got := o.Exclusions(); !slices.Equal(got, []string{"rossmanngroup.com", "example.org"}) {
		t.Fatalf("Exclusions() = %v", got)
	}

	if err := o.RemoveExclusion(0); err != nil {
		t.Fatal(err)
	}
	raw, _, _ := pref.Get(ctx, preferences.DomainExclusionsKey)
	if got, _ := preferences.ParseDomainExclusions(raw); !slices.Equal(got, []string{"example.org"}) {
		t.Fatalf("persisted = %v", got)
	}

	if err := o.RemoveExclusion(3); !errors.Is(err, observable.ErrIndexOutOfRange) {
		t.Fatalf("RemoveExclusion(3) err = %v", err)
	}

	o.ClearExclusions()
	raw, _, _ = pref.Get(ctx, preferences.DomainExclusionsKey)
	if got, ok := preferences.ParseDomainExclusions(raw); !ok || len(got) != 0 {
		t.Fatalf("persisted after clear = %#v", raw)
	}
}

func TestAddExclusionInvalidLeavesSet(t *testing.T) {
	t.Parallel()
	o, reg, _ := newOptions(t)
	before := reg.DomainExclusions.Values()
	if _, err := o.AddExclusion("nope"); !errors.Is(err, ErrInvalidDomain) {
		t.Fatalf("err = %v", err)
	}
	if !slices.Equal(reg.DomainExclusions.Values(), before) {
		t.Fatal("invalid input changed the set")
	}
}

func TestChangeNotificationTypeOnlyWhenDifferent(t *testing.T) {
	t.Parallel()
	o, reg, _ := newOptions(t)
	n := 0
	reg.NotificationType.AddListener("count", func(preferences.NotificationType) { n++ })

	if err := o.ChangeNotificationType(preferences.IconOnly); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatal("unchanged type was reassigned")
	}
	if err := o.ChangeNotificationType(preferences.OtherTab); err != nil {
		t.Fatal(err)
	}
	if n != 1 || reg.NotificationType.Get() != preferences.OtherTab {
		t.Fatalf("n=%d type=%v", n, reg.NotificationType.Get())
	}
	if err := o.ChangeNotificationType(preferences.NotificationType(9)); !errors.Is(err, ErrInvalidNotificationType) {
		t.Fatalf("err = %v", err)
	}
}

func TestSetEnabled(t *testing.T) {
	t.Parallel()
	o, reg, pref := newOptions(t)
	o.SetEnabled(false)
	if reg.IsEnabled.Get() {
		t.Fatal("IsEnabled still true")
	}
	if v, _, _ := pref.Get(context.Background(), preferences.IsEnabledKey); v != false {
		t.Fatalf("persisted is_enabled = %#v", v)
	}
}

package preferences

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"clintoncat/internal/eventbus"
	"clintoncat/internal/observable"
	"clintoncat/internal/storage"
	logx "clintoncat/pkg/logx"
)

const (
	IsEnabledKey        = "is_enabled"
	DomainExclusionsKey = "domain_exclusions"
	NotificationTypeKey = "notification_type"
)

// ErrNoBackend is returned by persistence calls made before InitDefaults
// (or SetBackingStores) bound a backend.
var ErrNoBackend = errors.New("no backend bound")

const DefaultEnabled = true

const DefaultNotificationType = IconOnly

// DefaultDomainExclusions returns a fresh copy of the built-in exclusion list.
func DefaultDomainExclusions() []string {
	return []string{"rossmanngroup.com"}
}

type State int32

const (
	Uninitialized State = iota
	Initializing
	Ready
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Snapshot is a point-in-time copy of all slots.
type Snapshot struct {
	Enabled          bool             `json:"is_enabled"`
	DomainExclusions []string         `json:"domain_exclusions"`
	NotificationType NotificationType `json:"notification_type"`
}

// Registry is the preference state of one execution context.
type Registry struct {
	IsEnabled        *observable.Value[bool]
	DomainExclusions *observable.Set[string]
	NotificationType *observable.Value[NotificationType]

	id  string
	log logx.Logger
	bus eventbus.Bus

	mu         sync.Mutex
	state      State
	prefStore  storage.Backend
	localStore storage.Backend
	persistCtx context.Context
	// skipEcho holds, per key, the encoding of a value Reload is about to
	// adopt so the persistence listener does not write it straight back.
	skipEcho map[string]string
}

type Option func(*Registry)

func WithLogger(log logx.Logger) Option { return func(r *Registry) { r.log = log } }

// WithBus publishes a pref.changed event after every persisted mutation.
func WithBus(bus eventbus.Bus) Option { return func(r *Registry) { r.bus = bus } }

// WithID overrides the generated context id.
func WithID(id string) Option { return func(r *Registry) { r.id = id } }

func New(opts ...Option) *Registry {
	r := &Registry{
		IsEnabled:        observable.NewValue(DefaultEnabled),
		DomainExclusions: observable.NewSet[string](),
		NotificationType: observable.NewValue(DefaultNotificationType),
		skipEcho:         map[string]string{},
	}
	for _, o := range opts {
		o(r)
	}
	if r.id == "" {
		r.id = uuid.NewString()
	}
	if r.log.IsZero() {
		r.log = logx.Nop()
	}
	r.log = r.log.With(logx.String("ctx_id", r.id))
	return r
}

func (r *Registry) ID() string { return r.id }

func (r *Registry) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Registry) Snapshot() Snapshot {
	return Snapshot{
		Enabled:          r.IsEnabled.Get(),
		DomainExclusions: r.DomainExclusions.Values(),
		NotificationType: r.NotificationType.Get(),
	}
}

// SetBackingStores binds the preference (sync) and local backends without
// loading anything. ctx is used for writes made by persistence listeners;
// its cancellation is ignored so that shutdown does not drop a final write.
func (r *Registry) SetBackingStores(ctx context.Context, prefStore, localStore storage.Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefStore = prefStore
	r.localStore = localStore
	r.persistCtx = context.WithoutCancel(ctx)
}

func (r *Registry) clearAllListeners() {
	r.IsEnabled.RemoveAllListeners()
	r.DomainExclusions.RemoveAllListeners()
	r.NotificationType.RemoveAllListeners()
}

func (r *Registry) attachEnabled() {
	r.IsEnabled.AddListener(IsEnabledKey, func(v bool) {
		r.persist(IsEnabledKey, v)
	})
}

func (r *Registry) attachDomainExclusions() {
	r.DomainExclusions.AddListener(DomainExclusionsKey, func(v []string) {
		r.persist(DomainExclusionsKey, v)
	})
}

func (r *Registry) attachNotificationType() {
	r.NotificationType.AddListener(NotificationTypeKey, func(v NotificationType) {
		r.persist(NotificationTypeKey, int(v))
	})
}

// InitDefaults binds both backends, drops every listener on the three slots
// and then, slot by slot, adopts the persisted value or seeds the default.
//
// Adopted values are not written back. Seeded defaults are written once,
// through the freshly attached persistence listener. Calling InitDefaults
// again is safe: listeners are replaced, never duplicated.
func (r *Registry) InitDefaults(ctx context.Context, prefStore, localStore storage.Backend) error {
	r.log.Debug("defaulting settings")
	r.SetBackingStores(ctx, prefStore, localStore)
	r.setState(Initializing)
	r.clearAllListeners()

	raw, ok, err := r.loadRaw(ctx, IsEnabledKey)
	if err != nil {
		return err
	}
	if v, valid := ParseEnabled(raw); ok && valid {
		r.IsEnabled.Set(v)
		r.attachEnabled()
	} else {
		r.logFallback(IsEnabledKey, ok, raw)
		r.attachEnabled()
		r.IsEnabled.Set(DefaultEnabled)
	}

	raw, ok, err = r.loadRaw(ctx, DomainExclusionsKey)
	if err != nil {
		return err
	}
	if v, valid := ParseDomainExclusions(raw); ok && valid {
		r.DomainExclusions.Replace(v)
		r.attachDomainExclusions()
	} else {
		r.logFallback(DomainExclusionsKey, ok, raw)
		r.attachDomainExclusions()
		r.DomainExclusions.Replace(DefaultDomainExclusions())
	}

	raw, ok, err = r.loadRaw(ctx, NotificationTypeKey)
	if err != nil {
		return err
	}
	if v, valid := ParseNotificationType(raw); ok && valid {
		r.NotificationType.Set(v)
		r.attachNotificationType()
	} else {
		r.logFallback(NotificationTypeKey, ok, raw)
		r.attachNotificationType()
		r.NotificationType.Set(DefaultNotificationType)
	}

	r.setState(Ready)
	return nil
}

func (r *Registry) loadRaw(ctx context.Context, key string) (any, bool, error) {
	raw, ok, err := r.getPreference(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("init %s: %w", key, err)
	}
	return raw, ok, nil
}

func (r *Registry) logFallback(key string, present bool, raw any) {
	if present {
		r.log.Debug("malformed stored preference; using default", logx.String("key", key), logx.Any("raw", raw))
		return
	}
	r.log.Debug("no stored preference; using default", logx.String("key", key))
}

func (r *Registry) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// Reload re-reads every slot from the preference backend and adopts values
// that parse and differ from memory. Adopted values are not written back.
// It returns the keys that changed.
func (r *Registry) Reload(ctx context.Context) ([]string, error) {
	var changed []string

	raw, ok, err := r.getPreference(ctx, IsEnabledKey)
	if err != nil {
		return nil, err
	}
	if v, valid := ParseEnabled(raw); ok && valid && v != r.IsEnabled.Get() {
		r.adopt(IsEnabledKey, v, func() { r.IsEnabled.Set(v) })
		changed = append(changed, IsEnabledKey)
	}

	raw, ok, err = r.getPreference(ctx, DomainExclusionsKey)
	if err != nil {
		return changed, err
	}
	if v, valid := ParseDomainExclusions(raw); ok && valid {
		v = dedupStrings(v)
		if !slices.Equal(v, r.DomainExclusions.Values()) {
			r.adopt(DomainExclusionsKey, v, func() { r.DomainExclusions.Replace(v) })
			changed = append(changed, DomainExclusionsKey)
		}
	}

	raw, ok, err = r.getPreference(ctx, NotificationTypeKey)
	if err != nil {
		return changed, err
	}
	if v, valid := ParseNotificationType(raw); ok && valid && v != r.NotificationType.Get() {
		r.adopt(NotificationTypeKey, int(v), func() { r.NotificationType.Set(v) })
		changed = append(changed, NotificationTypeKey)
	}

	if len(changed) > 0 {
		r.log.Debug("preferences reloaded", logx.Strings("keys", changed))
		r.publish(eventbus.TypePrefReloaded, "", changed)
	}
	return changed, nil
}

func (r *Registry) adopt(key string, persisted any, apply func()) {
	enc := encode(persisted)
	r.mu.Lock()
	r.skipEcho[key] = enc
	r.mu.Unlock()

	apply()

	r.mu.Lock()
	if r.skipEcho[key] == enc {
		delete(r.skipEcho, key)
	}
	r.mu.Unlock()
}

func (r *Registry) persist(key string, value any) {
	r.mu.Lock()
	ctx := r.persistCtx
	if tok, ok := r.skipEcho[key]; ok && tok == encode(value) {
		delete(r.skipEcho, key)
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := r.SetPreference(ctx, key, value); err != nil {
		r.log.Warn("persist preference failed", logx.String("key", key), logx.Err(err))
		return
	}
	r.publish(eventbus.TypePrefChanged, key, value)
}

func (r *Registry) publish(typ, key string, data any) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(eventbus.Event{Type: typ, Context: r.id, Key: key, Data: data})
}

// Dump logs and returns a one-line snapshot of all slots.
func (r *Registry) Dump() string {
	msg := fmt.Sprintf("IsEnabled = %s, DomainExclusions = %s, NotificationType = %s",
		r.IsEnabled.String(), r.DomainExclusions.String(), r.NotificationType.Get())
	r.log.Info(msg)
	return msg
}

func (r *Registry) SetPreference(ctx context.Context, key string, value any) error {
	b, err := r.backend(true)
	if err != nil {
		return err
	}
	if err := b.Set(ctx, key, value); err != nil {
		return fmt.Errorf("set preference %s: %w", key, err)
	}
	if r.log.Enabled(logx.LevelDebug) {
		r.log.Debug("set preference", logx.String("key", key), logx.String("value", encode(value)))
	}
	return nil
}

// GetPreference returns the raw stored value; ok is false when the key is absent.
func (r *Registry) GetPreference(ctx context.Context, key string) (any, bool, error) {
	return r.getPreference(ctx, key)
}

func (r *Registry) getPreference(ctx context.Context, key string) (any, bool, error) {
	b, err := r.backend(true)
	if err != nil {
		return nil, false, err
	}
	v, ok, err := b.Get(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("get preference %s: %w", key, err)
	}
	r.log.Debug("get preference", logx.String("key", key), logx.Bool("found", ok), logx.Any("value", v))
	return v, ok, nil
}

func (r *Registry) SetStorage(ctx context.Context, key string, value any) error {
	b, err := r.backend(false)
	if err != nil {
		return err
	}
	if err := b.Set(ctx, key, value); err != nil {
		return fmt.Errorf("set storage %s: %w", key, err)
	}
	if r.log.Enabled(logx.LevelDebug) {
		r.log.Debug("set storage", logx.String("key", key), logx.String("value", encode(value)))
	}
	return nil
}

func (r *Registry) GetStorage(ctx context.Context, key string) (any, bool, error) {
	b, err := r.backend(false)
	if err != nil {
		return nil, false, err
	}
	v, ok, err := b.Get(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("get storage %s: %w", key, err)
	}
	r.log.Debug("get storage", logx.String("key", key), logx.Bool("found", ok), logx.Any("value", v))
	return v, ok, nil
}

func (r *Registry) backend(pref bool) (storage.Backend, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if pref {
		if r.prefStore == nil {
			return nil, fmt.Errorf("preference store: %w; call InitDefaults first", ErrNoBackend)
		}
		return r.prefStore, nil
	}
	if r.localStore == nil {
		return nil, fmt.Errorf("local store: %w; call InitDefaults first", ErrNoBackend)
	}
	return r.localStore, nil
}

// PreferenceStore returns the bound preference backend, or nil.
func (r *Registry) PreferenceStore() storage.Backend {
	b, _ := r.backend(true)
	return b
}

func encode(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func dedupStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

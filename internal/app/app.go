// Package app opens one execution context: logging, event bus, both storage
// backends and an initialized preferences registry.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"clintoncat/internal/background"
	"clintoncat/internal/config"
	"clintoncat/internal/eventbus"
	"clintoncat/internal/options"
	"clintoncat/internal/preferences"
	"clintoncat/internal/storage"
	logx "clintoncat/pkg/logx"
)

// Kind names an execution context. Each kind gets its own registry.
type Kind string

const (
	KindBackground Kind = "background"
	KindOptions    Kind = "options"
	KindPopup      Kind = "popup"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindBackground, KindOptions, KindPopup:
		return k, nil
	case "":
		return KindPopup, nil
	default:
		return "", fmt.Errorf("unknown context %q (want background, options or popup)", s)
	}
}

type Context struct {
	Kind Kind
	ID   string

	Registry *preferences.Registry
	Pref     storage.Backend
	Local    storage.Backend
	Bus      *eventbus.MemBus
	Log      logx.Logger

	Options *options.Options
	// Background is only set for KindBackground.
	Background *background.Worker

	logs *logx.Service

	mu  sync.Mutex
	cfg config.Config
}

// Open builds a context from cfg and runs InitDefaults against its backends.
// On error everything opened so far is closed.
func Open(ctx context.Context, cfg *config.Config, kind Kind) (*Context, error) {
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	if err := ValidateConfig(ctx, cfg); err != nil {
		return nil, err
	}

	id := string(kind) + "-" + uuid.NewString()
	bus := eventbus.New()
	logs, root := logx.New(mapLoggingConfig(cfg.Logging), bus)
	log := root.With(logx.String("ctx", id))

	c := &Context{Kind: kind, ID: id, Bus: bus, Log: log.With(logx.String("comp", "app")), cfg: *cfg, logs: logs}

	prefCfg, err := mapStorageConfig("storage.sync", cfg.Storage.Sync)
	if err != nil {
		c.Close()
		return nil, err
	}
	localCfg, err := mapStorageConfig("storage.local", cfg.Storage.Local)
	if err != nil {
		c.Close()
		return nil, err
	}
	if c.Pref, err = storage.Open(prefCfg, log.With(logx.String("comp", "storage"), logx.String("store", "sync"))); err != nil {
		c.Close()
		return nil, fmt.Errorf("open sync storage: %w", err)
	}
	if c.Local, err = storage.Open(localCfg, log.With(logx.String("comp", "storage"), logx.String("store", "local"))); err != nil {
		c.Close()
		return nil, fmt.Errorf("open local storage: %w", err)
	}

	c.Registry = preferences.New(
		preferences.WithID(id),
		preferences.WithBus(bus),
		preferences.WithLogger(root.With(logx.String("comp", "preferences"))),
	)

	c.Options = options.New(c.Registry, log.With(logx.String("comp", "options")))
	if kind == KindBackground {
		c.Background = background.New(c.Registry, c.Pref, c.Local, cfg.Background, bus, log.With(logx.String("comp", "background")))
		err = c.Background.OnInstalled(ctx)
	} else {
		err = c.Registry.InitDefaults(ctx, c.Pref, c.Local)
	}
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("init defaults: %w", err)
	}

	c.Log.Debug("context ready",
		logx.String("kind", string(kind)),
		logx.String("sync", prefCfg.Driver),
		logx.String("local", localCfg.Driver),
	)
	return c, nil
}

// ApplyConfig takes a reloaded config. Logging changes apply immediately;
// storage and background changes are only reported since the backends stay
// open for the life of the context.
func (c *Context) ApplyConfig(next *config.Config) {
	if next == nil {
		return
	}
	c.mu.Lock()
	prev := c.cfg
	changed, attrs := config.SummarizeChange(&prev, next)
	if len(changed) > 0 {
		c.cfg = *next
	}
	c.mu.Unlock()
	if len(changed) == 0 {
		return
	}
	c.logs.Apply(mapLoggingConfig(next.Logging))

	fields := append([]logx.Field{logx.Strings("changed", changed)}, attrs...)
	c.Log.Info("config reloaded", fields...)
	for _, k := range changed {
		if k != "logging" {
			c.Log.Warn("config change needs a restart to take effect", logx.String("section", k))
		}
	}
}

// Config returns the config the context was opened or last reloaded with.
func (c *Context) Config() config.Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

func (c *Context) Close() error {
	var errs []error
	if c.Pref != nil {
		errs = append(errs, c.Pref.Close())
	}
	if c.Local != nil {
		errs = append(errs, c.Local.Close())
	}
	if c.logs != nil {
		errs = append(errs, c.logs.Close())
	}
	return errors.Join(errs...)
}

// Package background is the long-lived execution context: it seeds the
// registry on install, answers per-URL skip queries and keeps memory in step
// with changes other contexts make to the preference backend.
package background

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"clintoncat/internal/config"
	"clintoncat/internal/domain"
	"clintoncat/internal/eventbus"
	"clintoncat/internal/preferences"
	"clintoncat/internal/storage"
	logx "clintoncat/pkg/logx"
)

type Worker struct {
	reg   *preferences.Registry
	pref  storage.Backend
	local storage.Backend
	cfg   config.BackgroundConfig
	bus   eventbus.Bus
	log   logx.Logger

	parser cron.Parser
	notify func(state string) (bool, error)

	resyncMu sync.Mutex
}

func New(reg *preferences.Registry, pref, local storage.Backend, cfg config.BackgroundConfig, bus eventbus.Bus, log logx.Logger) *Worker {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Worker{
		reg:    reg,
		pref:   pref,
		local:  local,
		cfg:    cfg,
		bus:    bus,
		log:    log,
		parser: cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		notify: func(state string) (bool, error) { return daemon.SdNotify(false, state) },
	}
}

// OnInstalled seeds the registry. It is safe to call on every start.
func (w *Worker) OnInstalled(ctx context.Context) error {
	return w.reg.InitDefaults(ctx, w.pref, w.local)
}

// ShouldSkip reports whether the extension should stay quiet on rawURL:
// either it is disabled, or the URL's host falls under an excluded domain.
func (w *Worker) ShouldSkip(rawURL string) bool {
	if !w.reg.IsEnabled.Get() {
		return true
	}
	host := domain.Hostname(rawURL)
	if host == "" {
		return false
	}
	for _, d := range w.reg.DomainExclusions.Values() {
		if domain.Matches(host, d) {
			return true
		}
	}
	return false
}

// Resync adopts whatever the preference backend currently holds.
func (w *Worker) Resync(ctx context.Context, reason string) {
	w.resyncMu.Lock()
	defer w.resyncMu.Unlock()

	changed, err := w.reg.Reload(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Warn("preference resync failed", logx.String("reason", reason), logx.Err(err))
		}
		return
	}
	if len(changed) > 0 {
		w.log.Info("preferences updated from storage", logx.String("reason", reason), logx.Strings("keys", changed))
	}
}

// Run blocks until ctx is canceled or a watcher fails.
func (w *Worker) Run(ctx context.Context) error {
	var c *cron.Cron
	if spec := w.cfg.ResyncSpec(); spec != "" {
		sched, err := w.parser.Parse(spec)
		if err != nil {
			return fmt.Errorf("background.resync %q: %w", spec, err)
		}
		c = cron.New(cron.WithParser(w.parser))
		c.Schedule(sched, cron.FuncJob(func() { w.Resync(ctx, "cron") }))
	}

	g, gctx := errgroup.WithContext(ctx)

	if w.cfg.WatchEnabled() {
		if watcher, ok := w.pref.(storage.Watcher); ok {
			g.Go(func() error {
				err := watcher.Watch(gctx, func() { w.Resync(gctx, "watch") })
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		} else {
			w.log.Debug("preference backend has no change feed; relying on resync")
		}
	}

	if c != nil {
		c.Start()
		g.Go(func() error {
			<-gctx.Done()
			<-c.Stop().Done()
			return nil
		})
	}

	if w.bus != nil {
		events, unsubscribe := w.bus.Subscribe(64)
		g.Go(func() error {
			defer unsubscribe()
			for {
				select {
				case <-gctx.Done():
					return nil
				case e := <-events:
					w.logEvent(e)
				}
			}
		})
	}

	w.sdNotify(daemon.SdNotifyReady)
	w.log.Info("background worker running",
		logx.Bool("watch", w.cfg.WatchEnabled()),
		logx.String("resync", w.cfg.ResyncSpec()),
	)

	err := g.Wait()
	w.sdNotify(daemon.SdNotifyStopping)
	return err
}

func (w *Worker) logEvent(e eventbus.Event) {
	switch e.Type {
	case eventbus.TypePrefChanged:
		w.log.Debug("preference written", logx.String("key", e.Key), logx.Any("value", e.Data))
	case eventbus.TypePrefReloaded:
		w.log.Debug("preferences reloaded", logx.Any("keys", e.Data))
	}
}

func (w *Worker) sdNotify(state string) {
	if !w.cfg.SDNotify || w.notify == nil {
		return
	}
	sent, err := w.notify(state)
	switch {
	case err != nil:
		w.log.Warn("sd_notify failed", logx.String("state", state), logx.Err(err))
	case !sent:
		w.log.Debug("sd_notify skipped: NOTIFY_SOCKET not set")
	}
}

// Package options implements the settings-editing consumer of a Registry:
// the exclusion list, the notification type picker and the enable toggle.
package options

import (
	"errors"
	"fmt"

	"clintoncat/internal/domain"
	"clintoncat/internal/preferences"
	logx "clintoncat/pkg/logx"
)

// ListenerID is the id the options surface registers on the exclusion set.
const ListenerID = "exclude-options"

// ErrInvalidDomain is domain.ErrInvalid, re-exported for callers of AddExclusion.
var ErrInvalidDomain = domain.ErrInvalid

var ErrInvalidNotificationType = errors.New("invalid notification type")

type Options struct {
	reg *preferences.Registry
	log logx.Logger
}

func New(reg *preferences.Registry, log logx.Logger) *Options {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Options{reg: reg, log: log}
}

// Attach renders the current exclusions once and again on every change.
func (o *Options) Attach(render func([]string)) {
	if render == nil {
		return
	}
	o.reg.DomainExclusions.AddListener(ListenerID, render)
	render(o.reg.DomainExclusions.Values())
}

func (o *Options) Detach() {
	o.reg.DomainExclusions.RemoveListener(ListenerID)
}

// AddExclusion reduces input to its registrable domain and adds it.
func (o *Options) AddExclusion(input string) (string, error) {
	d, err := domain.Registrable(input)
	if err != nil {
		return "", err
	}
	if !o.reg.DomainExclusions.Add(d) {
		o.log.Debug("domain already excluded", logx.String("domain", d))
	}
	return d, nil
}

func (o *Options) RemoveExclusion(index int) error {
	return o.reg.DomainExclusions.DeleteAt(index)
}

func (o *Options) ClearExclusions() {
	o.reg.DomainExclusions.Replace(nil)
}

func (o *Options) Exclusions() []string {
	return o.reg.DomainExclusions.Values()
}

// ChangeNotificationType assigns t unless it is already the current value.
func (o *Options) ChangeNotificationType(t preferences.NotificationType) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidNotificationType, int(t))
	}
	if t != o.reg.NotificationType.Get() {
		o.reg.NotificationType.Set(t)
	}
	return nil
}

func (o *Options) SetEnabled(enabled bool) {
	o.reg.IsEnabled.Set(enabled)
}

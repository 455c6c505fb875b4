package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"clintoncat/internal/app"
	"clintoncat/internal/config"
	"clintoncat/internal/preferences"
	logx "clintoncat/pkg/logx"
)

var errUsage = errors.New("bad usage")

func needsBackground(cmd string) bool {
	return cmd == "background" || cmd == "check"
}

func run(ctx context.Context, c *app.Context, cfgm *config.Manager, args []string, out io.Writer) error {
	cmd, rest := args[0], args[1:]
	reg := c.Registry

	switch cmd {
	case "dump":
		fmt.Fprintln(out, reg.Dump())
		return nil

	case "get":
		if len(rest) != 1 {
			return fmt.Errorf("%w: get <slot>", errUsage)
		}
		return printSlot(out, reg, rest[0])

	case "enable", "disable":
		c.Options.SetEnabled(cmd == "enable")
		fmt.Fprintf(out, "%s = %t\n", preferences.IsEnabledKey, reg.IsEnabled.Get())
		return nil

	case "exclude":
		return runExclude(c, rest, out)

	case "notify":
		if len(rest) == 0 {
			current := reg.NotificationType.Get()
			for _, t := range preferences.AllNotificationTypes() {
				mark := " "
				if t == current {
					mark = "*"
				}
				fmt.Fprintf(out, "%s %d %-12s %s\n", mark, int(t), t, t.Label())
			}
			return nil
		}
		t, err := preferences.ParseNotificationTypeName(rest[0])
		if err != nil {
			return err
		}
		if err := c.Options.ChangeNotificationType(t); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s = %s\n", preferences.NotificationTypeKey, reg.NotificationType.Get())
		return nil

	case "check":
		if len(rest) != 1 {
			return fmt.Errorf("%w: check <url>", errUsage)
		}
		if c.Background.ShouldSkip(rest[0]) {
			fmt.Fprintln(out, "skip")
		} else {
			fmt.Fprintln(out, "active")
		}
		return nil

	case "background":
		return runBackground(ctx, c, cfgm)

	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func printSlot(out io.Writer, reg *preferences.Registry, slot string) error {
	switch strings.ToLower(strings.TrimSpace(slot)) {
	case preferences.IsEnabledKey, "enabled":
		fmt.Fprintln(out, reg.IsEnabled.Get())
	case preferences.DomainExclusionsKey, "exclusions":
		for _, d := range reg.DomainExclusions.Values() {
			fmt.Fprintln(out, d)
		}
	case preferences.NotificationTypeKey, "notify":
		fmt.Fprintln(out, reg.NotificationType.Get())
	default:
		return fmt.Errorf("unknown slot %q", slot)
	}
	return nil
}

func runExclude(c *app.Context, args []string, out io.Writer) error {
	sub := "list"
	if len(args) > 0 {
		sub, args = args[0], args[1:]
	}
	switch sub {
	case "list":
		for i, d := range c.Options.Exclusions() {
			fmt.Fprintf(out, "%d\t%s\n", i, d)
		}
		return nil
	case "add":
		if len(args) != 1 {
			return fmt.Errorf("%w: exclude add <domain>", errUsage)
		}
		d, err := c.Options.AddExclusion(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(out, d)
		return nil
	case "rm":
		if len(args) != 1 {
			return fmt.Errorf("%w: exclude rm <index>", errUsage)
		}
		i, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("%w: index %q is not a number", errUsage, args[0])
		}
		return c.Options.RemoveExclusion(i)
	case "clear":
		c.Options.ClearExclusions()
		return nil
	default:
		return fmt.Errorf("%w: unknown exclude command %q", errUsage, sub)
	}
}

// runBackground runs the worker and, when a config file is in use, applies
// its reloads until ctx is done.
func runBackground(ctx context.Context, c *app.Context, cfgm *config.Manager) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.Background.Run(gctx) })

	if cfgm != nil {
		cfgm.SetLogger(c.Log.With(logx.String("comp", "config")))
		cfgm.SetValidator(app.ValidateConfig)
		c.Log.Info("watching config", logx.String("path", cfgm.Path()))
		updates := cfgm.Subscribe(4)
		g.Go(func() error {
			err := cfgm.Watch(gctx)
			cfgm.Unsubscribe(updates)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
		g.Go(func() error {
			for next := range updates {
				c.ApplyConfig(next)
			}
			return nil
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

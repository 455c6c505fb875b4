package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"clintoncat/internal/app"
	"clintoncat/internal/config"
	logx "clintoncat/pkg/logx"
)

const usage = `usage: clintoncat [-config path] [-context background|options|popup] <command>

commands:
  dump                     print every preference
  get <slot>               print one preference (is_enabled, domain_exclusions, notification_type)
  enable | disable         toggle the extension
  exclude list             list excluded domains
  exclude add <domain>     exclude a domain (URLs and hosts are reduced to the registrable domain)
  exclude rm <index>       remove the exclusion at index
  exclude clear            remove every exclusion
  notify [type]            show or set the notification type
  check <url>              report whether the extension stays quiet on url
  background               run the background worker until interrupted
`

func main() {
	var cfgPath, kindName string
	flag.StringVar(&cfgPath, "config", "", "path to config json/yaml (defaults when empty)")
	flag.StringVar(&kindName, "context", "", "execution context: background, options or popup")
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	// Used until the context's own logging service exists.
	boot := logx.NewConsole("info").With(logx.String("comp", "boot"))

	kind, err := app.ParseKind(kindName)
	if err != nil {
		boot.Error("fatal", logx.Err(err))
		os.Exit(2)
	}
	if needsBackground(args[0]) {
		kind = app.KindBackground
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var cfgm *config.Manager
	cfg := config.Default()
	if cfgPath != "" {
		cfgm = config.NewManager(cfgPath)
		loaded, err := cfgm.Load()
		if err != nil {
			boot.Error("config load failed", logx.String("path", cfgm.Path()), logx.Err(err))
			os.Exit(1)
		}
		cfg = *loaded
	}

	c, err := app.Open(ctx, &cfg, kind)
	if err != nil {
		boot.Error("open context failed", logx.String("context", string(kind)), logx.Err(err))
		os.Exit(1)
	}

	err = run(ctx, c, cfgm, args, os.Stdout)
	_ = c.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

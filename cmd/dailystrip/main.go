package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/five82/dailystrip/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.StringP("config", "c", "", "config file path (.toml, .yaml or .yml; optional)")
	prefsPath := flag.String("prefs", "", "preferences file path (optional)")
	interval := flag.Duration("interval", 0, "fetch every interval, overriding the configured schedule (e.g. 2h)")
	headless := flag.Bool("headless", false, "run without the viewer and log strip events")
	once := flag.Bool("once", false, "download the current strip once and exit")
	acknowledge := flag.Bool("acknowledge-disclaimer", false, "accept the strip source disclaimer and remember it")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{
		ConfigPath:            *configPath,
		PrefsPath:             *prefsPath,
		Interval:              *interval,
		Headless:              *headless,
		Once:                  *once,
		AcknowledgeDisclaimer: *acknowledge,
	}

	if err := app.Run(ctx, opts); err != nil {
		if errors.Is(err, context.Canceled) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "dailystrip: %v\n", err)
		return 1
	}
	return 0
}

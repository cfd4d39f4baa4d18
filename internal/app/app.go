package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/five82/dailystrip/internal/archive"
	"github.com/five82/dailystrip/internal/config"
	"github.com/five82/dailystrip/internal/fetch"
	"github.com/five82/dailystrip/internal/httpapi"
	"github.com/five82/dailystrip/internal/poller"
	"github.com/five82/dailystrip/internal/prefs"
	"github.com/five82/dailystrip/internal/ui"
)

// ErrDisclaimerNotAcknowledged is returned by a one-shot run that is not
// allowed to download.
var ErrDisclaimerNotAcknowledged = errors.New("disclaimer not acknowledged; run with --acknowledge-disclaimer")

// Options configure the dailystrip application.
type Options struct {
	ConfigPath string
	PrefsPath  string        // empty uses default ~/.config/dailystrip/prefs.toml
	Interval   time.Duration // overrides the configured schedule when > 0
	Headless   bool          // log events instead of starting the viewer
	Once       bool          // download once and exit
	// AcknowledgeDisclaimer persists acceptance before anything else runs.
	AcknowledgeDisclaimer bool
}

// Run boots dailystrip until the context is cancelled or the viewer exits.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.Interval > 0 {
		cfg.FetchAutomatically = true
		cfg.FetchCron = ""
		cfg.FetchInterval = opts.Interval
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("interval: %w", err)
		}
	}

	userPrefs, _ := prefs.Load(opts.PrefsPath)

	gate := newDisclaimerGate(opts.PrefsPath, cfg.DisclaimerAcknowledged || userPrefs.DisclaimerAcknowledged)
	if opts.AcknowledgeDisclaimer {
		if err := gate.acknowledge(); err != nil {
			return fmt.Errorf("save disclaimer acceptance: %w", err)
		}
	}

	viewer := !opts.Headless && !opts.Once
	logger, closeLog, err := newLogger(cfg, viewer)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer closeLog()

	client, err := fetch.NewClient(cfg.SourceURL,
		fetch.WithTimeout(cfg.RequestTimeout),
		fetch.WithUserAgent(cfg.UserAgent),
	)
	if err != nil {
		return fmt.Errorf("init strip client: %w", err)
	}

	p := poller.New(client,
		poller.WithLogger(logger.With("component", "poller")),
		poller.WithGate(gate),
		poller.WithJobTimeout(2*cfg.RequestTimeout+30*time.Second),
	)
	defer p.Close()

	if cfg.ArchiveDir != "" {
		arch := archive.New(afero.NewOsFs(), cfg.ArchiveDir, logger.With("component", "archive"))
		if meta, err := arch.Latest(); err == nil {
			logger.Info("last archived strip", "file", meta.File, "title", meta.Title, "fetched_at", meta.FetchedAt)
		}
		p.Subscribe(arch)
	}

	if opts.Once {
		return runOnce(p, logger)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	if cfg.APIBind != "" {
		router := httpapi.NewRouter(p, logger.With("component", "api"))
		g.Go(func() error {
			if err := httpapi.Serve(gctx, cfg.APIBind, router, logger); err != nil {
				return fmt.Errorf("api server: %w", err)
			}
			return nil
		})
	}

	if !viewer {
		p.Subscribe(eventLogger(logger))
	}

	// Populate the cache before the first tick.
	p.Refresh()
	p.Start(cfg.Schedule())

	g.Go(func() error {
		defer cancel()
		if !viewer {
			<-gctx.Done()
			return nil
		}
		return ui.Run(gctx, ui.Options{
			Controller:   p,
			Acknowledged: gate.DisclaimerAcknowledged,
			Acknowledge: func() error {
				if err := gate.acknowledge(); err != nil {
					return err
				}
				p.Start(cfg.Schedule())
				p.Refresh()
				return nil
			},
			SourceURL:  client.SourceURL(),
			ArchiveDir: cfg.ArchiveDir,
			ThemeName:  userPrefs.Theme,
			PrefsPath:  opts.PrefsPath,
		}, p)
	})

	return g.Wait()
}

// runOnce performs a single forced download and reports its outcome.
func runOnce(p *poller.Poller, logger *slog.Logger) error {
	if !p.Refresh() {
		return ErrDisclaimerNotAcknowledged
	}
	p.Wait()

	snap := p.Snapshot()
	if snap.LastError != nil {
		return fmt.Errorf("fetch strip: %w", snap.LastError)
	}
	s := snap.Strip
	logger.Info("strip downloaded", "title", s.Title(), "checksum", s.Checksum().Short(), "bytes", s.Size())
	return nil
}

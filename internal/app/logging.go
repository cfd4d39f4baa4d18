package app

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/five82/dailystrip/internal/config"
	"github.com/five82/dailystrip/internal/fetch"
	"github.com/five82/dailystrip/internal/notify"
)

// newLogger builds the process logger. While the viewer owns the terminal
// logs go to cfg.LogFile; otherwise, or when LogFile is empty, to stderr.
func newLogger(cfg config.Config, viewer bool) (*slog.Logger, func(), error) {
	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	if !viewer || cfg.LogFile == "" {
		if viewer {
			// Nowhere to write without corrupting the screen.
			return slog.New(slog.DiscardHandler), func() {}, nil
		}
		return slog.New(slog.NewTextHandler(os.Stderr, handlerOpts)), func() {}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(file, handlerOpts))
	return logger, func() { _ = file.Close() }, nil
}

// eventLogger reports hub events in headless mode.
func eventLogger(logger *slog.Logger) notify.Listener {
	return notify.ListenerFunc(func(ev notify.Event) {
		switch ev.Outcome {
		case fetch.Updated:
			logger.Info("new strip",
				"job", ev.JobID,
				"title", ev.Strip.Title(),
				"checksum", ev.Strip.Checksum().Short(),
				"bytes", ev.Strip.Size(),
			)
		case fetch.Failed:
			logger.Warn("strip unavailable", "job", ev.JobID, "err", ev.Err)
		}
	})
}

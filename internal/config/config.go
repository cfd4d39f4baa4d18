package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/five82/dailystrip/internal/schedule"
)

// Config captures the settings dailystrip needs.
type Config struct {
	SourceURL              string
	UserAgent              string
	RequestTimeout         time.Duration
	FetchAutomatically     bool
	FetchInterval          time.Duration
	FetchCron              string
	DisclaimerAcknowledged bool
	ArchiveDir             string
	APIBind                string
	LogLevel               string
	LogFile                string
}

const (
	defaultConfigPath     = "~/.config/dailystrip/config.toml"
	defaultSourceURL      = "https://xkcd.com/"
	defaultRequestTimeout = 30 * time.Second
	defaultFetchInterval  = time.Hour
	defaultLogLevel       = "info"
	defaultLogFile        = "~/.local/state/dailystrip/dailystrip.log"
)

// raw mirrors the file format. Durations are strings such as "90m".
type raw struct {
	SourceURL              string  `toml:"source_url" yaml:"source_url"`
	UserAgent              string  `toml:"user_agent" yaml:"user_agent"`
	RequestTimeout         string  `toml:"request_timeout" yaml:"request_timeout"`
	FetchAutomatically     *bool   `toml:"fetch_automatically" yaml:"fetch_automatically"`
	FetchInterval          string  `toml:"fetch_interval" yaml:"fetch_interval"`
	FetchCron              string  `toml:"fetch_cron" yaml:"fetch_cron"`
	DisclaimerAcknowledged bool    `toml:"disclaimer_acknowledged" yaml:"disclaimer_acknowledged"`
	ArchiveDir             string  `toml:"archive_dir" yaml:"archive_dir"`
	APIBind                string  `toml:"api_bind" yaml:"api_bind"`
	LogLevel               string  `toml:"log_level" yaml:"log_level"`
	LogFile                *string `toml:"log_file" yaml:"log_file"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		SourceURL:          defaultSourceURL,
		RequestTimeout:     defaultRequestTimeout,
		FetchAutomatically: true,
		FetchInterval:      defaultFetchInterval,
		LogLevel:           defaultLogLevel,
		LogFile:            mustExpand(defaultLogFile),
	}
}

// Load locates and parses the config, falling back to defaults when missing.
// Files ending in .yaml or .yml are read as YAML, everything else as TOML.
// Environment variables override file values.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("open config: %w", err)
	default:
		defer file.Close()
		bytes, err := io.ReadAll(file)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		var r raw
		if err := decode(resolved, bytes, &r); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
		if err := apply(&cfg, r); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("load from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func decode(path string, bytes []byte, r *raw) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(bytes, r)
	default:
		return toml.Unmarshal(bytes, r)
	}
}

func apply(cfg *Config, r raw) error {
	if v := strings.TrimSpace(r.SourceURL); v != "" {
		cfg.SourceURL = v
	}
	cfg.UserAgent = strings.TrimSpace(r.UserAgent)
	if v := strings.TrimSpace(r.RequestTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("request_timeout: %w", err)
		}
		cfg.RequestTimeout = d
	}
	if r.FetchAutomatically != nil {
		cfg.FetchAutomatically = *r.FetchAutomatically
	}
	if v := strings.TrimSpace(r.FetchInterval); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("fetch_interval: %w", err)
		}
		cfg.FetchInterval = d
	}
	cfg.FetchCron = strings.TrimSpace(r.FetchCron)
	cfg.DisclaimerAcknowledged = r.DisclaimerAcknowledged
	if v := strings.TrimSpace(r.ArchiveDir); v != "" {
		cfg.ArchiveDir = mustExpand(v)
	}
	cfg.APIBind = strings.TrimSpace(r.APIBind)
	if v := strings.TrimSpace(r.LogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if r.LogFile != nil {
		// An explicit empty log_file sends logs to stderr.
		if v := strings.TrimSpace(*r.LogFile); v != "" {
			cfg.LogFile = mustExpand(v)
		} else {
			cfg.LogFile = ""
		}
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := strings.TrimSpace(os.Getenv("DAILYSTRIP_SOURCE_URL")); v != "" {
		cfg.SourceURL = v
	}
	if v := strings.TrimSpace(os.Getenv("DAILYSTRIP_INTERVAL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid DAILYSTRIP_INTERVAL: %w", err)
		}
		cfg.FetchInterval = d
	}
	if v := strings.TrimSpace(os.Getenv("DAILYSTRIP_API_BIND")); v != "" {
		cfg.APIBind = v
	}
	return nil
}

// Validate checks values that would otherwise fail later.
func (c Config) Validate() error {
	if strings.TrimSpace(c.SourceURL) == "" {
		return errors.New("source_url is required")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request_timeout must be positive")
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if !c.FetchAutomatically {
		return nil
	}
	if c.FetchCron == "" && c.FetchInterval < schedule.MinInterval {
		return fmt.Errorf("fetch_interval must be at least %s", schedule.MinInterval)
	}
	return c.Schedule().Validate()
}

// Schedule returns the unattended fetch schedule these settings describe.
func (c Config) Schedule() schedule.Config {
	if !c.FetchAutomatically {
		return schedule.Disabled()
	}
	if c.FetchCron != "" {
		return schedule.Cron(c.FetchCron)
	}
	return schedule.Every(c.FetchInterval)
}

// ParseLogLevel maps a config log level onto slog.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log_level %q", level)
	}
}

// DefaultPath returns the config path used when none is given.
func DefaultPath() string {
	return mustExpand(defaultConfigPath)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}

// Package schedule describes when unattended strip fetches happen.
package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/adhocore/gronx"
)

// MinInterval guards against hammering the strip source.
const MinInterval = time.Minute

// Config is an immutable description of unattended fetching. Build a new
// value whenever settings change; never mutate one in place.
type Config struct {
	Enabled  bool
	Interval time.Duration
	// Cron, when set, replaces Interval with a cron expression.
	Cron string
}

// Disabled returns the configuration that never schedules a fetch.
func Disabled() Config {
	return Config{}
}

// Every returns an enabled configuration firing at a fixed interval.
func Every(interval time.Duration) Config {
	return Config{Enabled: true, Interval: interval}
}

// Cron returns an enabled configuration following a cron expression.
func Cron(expr string) Config {
	return Config{Enabled: true, Cron: strings.TrimSpace(expr)}
}

// Validate reports why an enabled configuration cannot be armed.
// A disabled configuration is always valid.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if expr := strings.TrimSpace(c.Cron); expr != "" {
		if !gronx.New().IsValid(expr) {
			return fmt.Errorf("invalid cron expression %q", expr)
		}
		return nil
	}
	if c.Interval <= 0 {
		return errors.New("interval must be positive")
	}
	return nil
}

// Next returns the first fire time strictly after the given instant.
func (c Config) Next(after time.Time) (time.Time, error) {
	if err := c.Validate(); err != nil {
		return time.Time{}, err
	}
	if !c.Enabled {
		return time.Time{}, errors.New("schedule disabled")
	}
	if expr := strings.TrimSpace(c.Cron); expr != "" {
		return gronx.NextTickAfter(expr, after, false)
	}
	return after.Add(c.Interval), nil
}

// String renders the schedule for logs and the status line.
func (c Config) String() string {
	switch {
	case !c.Enabled:
		return "disabled"
	case strings.TrimSpace(c.Cron) != "":
		return "cron " + strings.TrimSpace(c.Cron)
	default:
		return "every " + c.Interval.String()
	}
}

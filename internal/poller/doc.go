// Package poller schedules strip fetches and applies their results.
//
// # Overview
//
// Poller is the single owner of the strip cache (state.Store) and the
// listener hub (notify.Hub). Everything else reads the cache or subscribes
// through the Poller; only its completion path writes.
//
// # Scheduling
//
//	Start(cfg)   arm a recurring timer (disabled cfg: stay stopped)
//	Start(cfg2)  disarm the old timer, then arm the new one
//	Stop()       disarm; an in-flight fetch still completes and applies
//	FetchNow(c)  manual trigger conditioned on checksum c
//	Refresh()    manual trigger forcing a full download
//	Close()      teardown: disarm, cancel, wait, drop late results
//
// Each armed timer carries an id. Ticks from a timer that has since been
// replaced or stopped are ignored, so at most one timer ever drives fetches.
//
// # Backpressure
//
// At most one fetch is in flight. The slot is a golang.org/x/sync semaphore
// of weight one taken with TryAcquire: a trigger that finds it taken is
// dropped, not queued. The slot is released only after the cache and every
// listener have been updated, so the next trigger sees current state.
//
// Listeners run on the fetch goroutine. A listener may call Close, which then
// skips waiting for that goroutine; it must not call Wait.
//
// # Outcomes
//
//   - Unchanged: cache untouched, no notification
//   - Updated: cache replaced, listeners notified with the new strip
//   - Failed: cache set to the missing strip, listeners notified with it
//
// A fetcher that reports Failed without an error is treated as a malformed
// response.
//
// Fetch errors are logged and never returned to callers. There is no retry
// before the next tick or manual trigger.
//
// # Disclaimer Gate
//
// When a Gate is installed and reports false, Start arms nothing and
// FetchNow returns false. Call Start again once the gate opens.
package poller

// Package state provides the single-slot strip cache.
//
// # Overview
//
// Store holds the last successfully fetched strip, or the missing-strip
// sentinel, together with a little bookkeeping for the status line: when the
// slot last changed, the last fetch error and how many fetches have failed
// in a row.
//
// # Concurrency Model
//
// Store uses a readers-writer lock:
//
//   - Set(), RecordFailure(): write lock, called only by the poller's
//     completion path
//   - Get(), Snapshot(): read lock, safe from any goroutine while a fetch
//     is in flight
//
// The lock is never held during network I/O.
//
// # Update Semantics
//
//	store.Set(strip)
//	→ snapshot.Strip = strip
//	→ snapshot.LastError = nil
//	→ snapshot.ConsecutiveFailures = 0
//
//	store.RecordFailure(err)
//	→ snapshot.Strip = strip.Missing()
//	→ snapshot.LastError = err
//	→ snapshot.ConsecutiveFailures++
//
// A failed fetch discards the last good strip. Listeners are told about the
// missing strip, matching what they would see before any fetch succeeded.
//
// # Testing Considerations
//
// The zero value is ready to use and returns the missing strip from Get.
package state

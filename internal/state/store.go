package state

import (
	"sync"
	"time"

	"github.com/five82/dailystrip/internal/strip"
)

// Snapshot represents the cached strip and fetch bookkeeping.
type Snapshot struct {
	Strip               strip.Strip
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive failed fetches
}

// IsOffline returns true when the source has failed several fetches in a row.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Store is the single-slot strip cache. The zero value holds the missing strip.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
	set      bool
}

// Get returns the cached strip, or the missing strip if nothing was stored.
func (s *Store) Get() strip.Strip {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.set {
		return strip.Missing()
	}
	return s.snapshot.Strip
}

// Set replaces the cached strip after a successful download.
func (s *Store) Set(st strip.Strip) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.Strip = st
	s.snapshot.LastError = nil
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.ConsecutiveFailures = 0
	s.set = true
}

// RecordFailure downgrades the cache to the missing strip and records err.
func (s *Store) RecordFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.Strip = strip.Missing()
	s.snapshot.LastError = err
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.ConsecutiveFailures++
	s.set = true
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	if !s.set {
		snap.Strip = strip.Missing()
	}
	return snap
}

package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/five82/dailystrip/internal/fetch"
	"github.com/five82/dailystrip/internal/strip"
)

// Event describes the cache after a fetch attempt that changed it.
type Event struct {
	// Strip is the newly cached strip, or the missing strip on failure.
	Strip   strip.Strip
	Outcome fetch.Outcome
	// Err is set when Outcome is fetch.Failed.
	Err   error
	JobID string
	At    time.Time
}

// Listener is notified after each fetch that updated the cache. Listeners
// run on the notifying goroutine.
type Listener interface {
	StripUpdated(Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(Event)

// StripUpdated calls f(e).
func (f ListenerFunc) StripUpdated(e Event) { f(e) }

// Subscription identifies a registered listener.
type Subscription uint64

type entry struct {
	id       Subscription
	listener Listener
}

// Hub is an ordered registry of listeners. The zero value is ready to use.
type Hub struct {
	mu      sync.RWMutex
	seq     uint64
	entries []entry
	active  map[Subscription]struct{}
	logger  *slog.Logger
}

// NewHub returns a Hub that logs listener panics to logger.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{logger: logger}
}

// Subscribe registers l and returns its token. A nil listener is ignored
// and yields the zero Subscription.
func (h *Hub) Subscribe(l Listener) Subscription {
	if l == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.active == nil {
		h.active = make(map[Subscription]struct{})
	}
	h.seq++
	id := Subscription(h.seq)
	h.entries = append(h.entries, entry{id: id, listener: l})
	h.active[id] = struct{}{}
	return id
}

// Unsubscribe removes a registration. Unknown tokens are ignored.
func (h *Hub) Unsubscribe(id Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.active[id]; !ok {
		return
	}
	delete(h.active, id)
	for i, e := range h.entries {
		if e.id == id {
			h.entries = append(h.entries[:i:i], h.entries[i+1:]...)
			break
		}
	}
}

// Len returns the number of registered listeners.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// NotifyAll delivers e synchronously to every listener registered at the
// time of the call, in subscription order. A listener unsubscribed before
// its turn is skipped.
func (h *Hub) NotifyAll(e Event) {
	h.mu.RLock()
	round := make([]entry, len(h.entries))
	copy(round, h.entries)
	h.mu.RUnlock()

	for _, en := range round {
		if !h.subscribed(en.id) {
			continue
		}
		h.deliver(en, e)
	}
}

func (h *Hub) subscribed(id Subscription) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.active[id]
	return ok
}

func (h *Hub) deliver(en entry, e Event) {
	defer func() {
		if r := recover(); r != nil {
			h.log().Error("listener panicked", "subscription", uint64(en.id), "panic", r)
		}
	}()
	en.listener.StripUpdated(e)
}

func (h *Hub) log() *slog.Logger {
	if h.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return h.logger
}

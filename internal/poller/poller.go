package poller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/five82/dailystrip/internal/fetch"
	"github.com/five82/dailystrip/internal/notify"
	"github.com/five82/dailystrip/internal/schedule"
	"github.com/five82/dailystrip/internal/state"
	"github.com/five82/dailystrip/internal/strip"
)

const defaultJobTimeout = 2 * time.Minute

// Gate reports whether fetching is currently permitted.
type Gate interface {
	DisclaimerAcknowledged() bool
}

// GateFunc adapts a function to Gate.
type GateFunc func() bool

// DisclaimerAcknowledged calls f.
func (f GateFunc) DisclaimerAcknowledged() bool { return f() }

// ArmFunc arms a recurring timer that calls fire on every tick of cfg and
// returns a function that disarms it. It must not block.
type ArmFunc func(cfg schedule.Config, fire func()) (disarm func())

// Option configures a Poller.
type Option func(*Poller)

// WithLogger sets the logger used for fetch outcomes.
func WithLogger(l *slog.Logger) Option {
	return func(p *Poller) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithGate installs the disclaimer gate. Without one fetching is always allowed.
func WithGate(g Gate) Option {
	return func(p *Poller) { p.gate = g }
}

// WithArmFunc replaces the timer implementation.
func WithArmFunc(arm ArmFunc) Option {
	return func(p *Poller) {
		if arm != nil {
			p.arm = arm
		}
	}
}

// WithJobTimeout bounds a single fetch. Zero disables the bound.
func WithJobTimeout(d time.Duration) Option {
	return func(p *Poller) { p.jobTimeout = d }
}

// Status is a point-in-time view of the scheduler.
type Status struct {
	Schedule  schedule.Config
	Scheduled bool
	Busy      bool
	Closed    bool
}

// job is one fetch attempt.
type job struct {
	id         string
	previous   strip.Checksum
	generation uint64
}

// Poller schedules strip fetches, keeps at most one in flight, and owns the
// strip cache and the listener hub.
type Poller struct {
	fetcher    fetch.Fetcher
	store      *state.Store
	hub        *notify.Hub
	logger     *slog.Logger
	gate       Gate
	arm        ArmFunc
	jobTimeout time.Duration

	slot       *semaphore.Weighted
	inflight   atomic.Bool
	delivering atomic.Bool // listeners are running on the job goroutine
	wg         sync.WaitGroup

	mu         sync.Mutex
	cfg        schedule.Config
	disarm     func()
	armID      uint64
	generation uint64
	closed     bool

	ctx    context.Context
	cancel context.CancelFunc
}

// New returns a stopped Poller that fetches through f.
func New(f fetch.Fetcher, opts ...Option) *Poller {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Poller{
		fetcher:    f,
		store:      &state.Store{},
		logger:     slog.New(slog.DiscardHandler),
		arm:        armTimer,
		jobTimeout: defaultJobTimeout,
		slot:       semaphore.NewWeighted(1),
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.hub = notify.NewHub(p.logger)
	return p
}

// Start arms the recurring timer for cfg, replacing any existing one. A
// disabled or invalid cfg, or a closed gate, leaves the poller stopped.
func (p *Poller) Start(cfg schedule.Config) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.disarmLocked()

	if !cfg.Enabled {
		p.logger.Debug("unattended fetching disabled")
		return
	}
	if !p.gateOpen() {
		p.logger.Info("disclaimer not acknowledged, not scheduling fetches")
		return
	}
	if err := cfg.Validate(); err != nil {
		p.logger.Warn("ignoring schedule", "schedule", cfg.String(), "err", err)
		return
	}

	p.cfg = cfg
	p.armID++
	id := p.armID
	p.disarm = p.arm(cfg, func() { p.tick(id) })
	p.logger.Info("fetch schedule armed", "schedule", cfg.String())
}

// Stop disarms the timer. A fetch already in flight still completes and
// its result is applied.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disarmLocked()
}

func (p *Poller) disarmLocked() {
	if p.disarm != nil {
		p.disarm()
		p.disarm = nil
		p.logger.Debug("fetch schedule disarmed", "schedule", p.cfg.String())
	}
	p.armID++
	p.cfg = schedule.Disabled()
}

// FetchNow submits a fetch conditioned on previous. It returns false when
// the trigger was dropped: a fetch is already in flight, the gate is
// closed, or the poller was closed.
func (p *Poller) FetchNow(previous strip.Checksum) bool {
	return p.submit(previous, 0)
}

// Refresh forces a full download regardless of the cached strip.
func (p *Poller) Refresh() bool {
	return p.FetchNow(strip.EmptyChecksum)
}

func (p *Poller) tick(armID uint64) {
	if !p.submit(p.store.Get().Checksum(), armID) {
		p.logger.Debug("scheduled fetch skipped")
	}
}

// submit admits one job if the single slot is free. A non-zero armID ties
// the trigger to the timer that produced it, so ticks from a disarmed timer
// are ignored.
func (p *Poller) submit(previous strip.Checksum, armID uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return false
	}
	if armID != 0 && (armID != p.armID || p.disarm == nil) {
		return false
	}
	if !p.gateOpen() {
		return false
	}
	if !p.slot.TryAcquire(1) {
		return false
	}

	j := job{id: uuid.NewString(), previous: previous, generation: p.generation}
	p.inflight.Store(true)
	p.wg.Add(1)
	go p.run(j)
	return true
}

func (p *Poller) run(j job) {
	defer p.wg.Done()
	defer p.release()

	ctx := p.ctx
	if p.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.jobTimeout)
		defer cancel()
	}

	res, err := p.fetch(ctx, j)
	p.complete(j, res, err)
}

// release frees the slot. It holds mu like submit, so a caller that sees
// Busy report false can submit again.
func (p *Poller) release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inflight.Store(false)
	p.slot.Release(1)
}

func (p *Poller) fetch(ctx context.Context, j job) (res fetch.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fetcher panicked: %v", r)
		}
	}()
	p.logger.Debug("fetching strip", "job", j.id, "checksum", j.previous.Short())
	return p.fetcher.Fetch(ctx, j.previous)
}

// complete applies a finished job to the cache and listeners. Results from
// jobs submitted before Close are discarded.
func (p *Poller) complete(j job, res fetch.Result, err error) {
	if !p.current(j.generation) {
		p.logger.Debug("discarding stale fetch result", "job", j.id)
		return
	}

	if err == nil && res.Outcome == fetch.Failed {
		err = fmt.Errorf("%w: fetcher reported a failure without an error", fetch.ErrMalformedResponse)
	}

	now := time.Now()
	switch {
	case err != nil:
		p.logger.Warn("strip fetch failed", "job", j.id, "err", err)
		p.store.RecordFailure(err)
		p.notify(notify.Event{Strip: strip.Missing(), Outcome: fetch.Failed, Err: err, JobID: j.id, At: now})
	case res.Outcome == fetch.Updated:
		p.logger.Info("strip updated", "job", j.id, "checksum", res.Strip.Checksum().Short(), "title", res.Strip.Title())
		p.store.Set(res.Strip)
		p.notify(notify.Event{Strip: res.Strip, Outcome: fetch.Updated, JobID: j.id, At: now})
	default:
		p.logger.Debug("strip unchanged", "job", j.id, "checksum", j.previous.Short())
	}
}

func (p *Poller) notify(ev notify.Event) {
	p.delivering.Store(true)
	defer p.delivering.Store(false)
	p.hub.NotifyAll(ev)
}

func (p *Poller) current(generation uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.closed && generation == p.generation
}

func (p *Poller) gateOpen() bool {
	return p.gate == nil || p.gate.DisclaimerAcknowledged()
}

// Wait blocks until no fetch is in flight. It must not race with new
// submissions.
func (p *Poller) Wait() {
	p.wg.Wait()
}

// Close stops the timer, cancels any in-flight fetch and waits for it. Late
// results are dropped and further triggers are ignored.
//
// A listener may call Close. Listeners run on the fetch goroutine, so Close
// then returns without waiting for it; the running delivery finishes and
// nothing is applied after it.
func (p *Poller) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.disarmLocked()
	p.closed = true
	p.generation++
	p.mu.Unlock()

	p.cancel()
	if p.delivering.Load() {
		return
	}
	p.wg.Wait()
}

// Strip returns the cached strip, never blocking on I/O.
func (p *Poller) Strip() strip.Strip {
	return p.store.Get()
}

// Cached returns the cached strip and false when it is the missing strip.
func (p *Poller) Cached() (strip.Strip, bool) {
	s := p.store.Get()
	return s, !s.IsMissing()
}

// Snapshot returns the cache with its fetch bookkeeping.
func (p *Poller) Snapshot() state.Snapshot {
	return p.store.Snapshot()
}

// Subscribe registers l for updates.
func (p *Poller) Subscribe(l notify.Listener) notify.Subscription {
	return p.hub.Subscribe(l)
}

// Unsubscribe removes a registration.
func (p *Poller) Unsubscribe(id notify.Subscription) {
	p.hub.Unsubscribe(id)
}

// Busy reports whether a fetch is in flight.
func (p *Poller) Busy() bool {
	return p.inflight.Load()
}

// Status returns the scheduler state.
func (p *Poller) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Status{
		Schedule:  p.cfg,
		Scheduled: p.disarm != nil,
		Busy:      p.inflight.Load(),
		Closed:    p.closed,
	}
}

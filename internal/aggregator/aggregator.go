// Package aggregator maintains the live activity feed and fans snapshots out to subscribers.
package aggregator

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hay-kot/shoppulse/internal/core/feed"
)

// DefaultInterval is the period between generated snapshots.
const DefaultInterval = 5 * time.Second

// ErrClosed is returned by Subscribe after Close.
var ErrClosed = errors.New("aggregator closed")

// Generator produces the synthetic data the aggregator publishes.
// *feed.Generator satisfies it.
type Generator interface {
	Activity(id int64) feed.Activity
	Snapshot(activities ...feed.Activity) feed.Snapshot
}

// Reason describes why a snapshot was produced.
type Reason string

const (
	ReasonConnect Reason = "connect"
	ReasonTick    Reason = "tick"
)

// Observer is notified after snapshots are delivered and when the subscriber count
// changes. Observers run synchronously under the aggregator lock and must not call
// back into the aggregator.
type Observer interface {
	OnSnapshot(snap feed.Snapshot, reason Reason, delivered int)
	OnSubscribers(n int)
}

// Subscription is the handle for one registered consumer.
type Subscription struct {
	id  uint64
	fn  func(feed.Snapshot)
	agg *Aggregator
}

// ID returns the subscription's registration number.
func (s *Subscription) ID() uint64 { return s.id }

// Close disconnects the subscription. It is safe to call more than once.
func (s *Subscription) Close() { s.agg.Disconnect(s) }

// Aggregator keeps a bounded, duplicate-free, newest-first window of recent activity
// and broadcasts a snapshot to every subscriber on each tick. All subscribers share
// a single ticker, which runs only while at least one subscription exists.
//
// Subscriber callbacks are invoked synchronously, in registration order, while the
// aggregator lock is held. A callback must not call Connect or Disconnect.
type Aggregator struct {
	gen       Generator
	interval  time.Duration
	capacity  int
	newTicker TickerFactory
	log       zerolog.Logger
	observers []Observer

	mu        sync.Mutex
	subs      []*Subscription
	retained  []feed.Activity
	latest    feed.Snapshot
	hasLatest bool
	nextID    int64
	nextSubID uint64
	session   uint64
	ticker    Ticker
	stop      chan struct{}
	closed    bool

	wg sync.WaitGroup
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithInterval sets the tick period.
func WithInterval(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.interval = d
		}
	}
}

// WithCapacity sets the number of activities retained in the feed.
func WithCapacity(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.capacity = n
		}
	}
}

// WithTicker replaces the ticker factory, mainly for tests.
func WithTicker(f TickerFactory) Option {
	return func(a *Aggregator) {
		if f != nil {
			a.newTicker = f
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(a *Aggregator) {
		a.log = l
	}
}

// WithObserver registers an observer. Observers are called in registration order.
func WithObserver(o Observer) Option {
	return func(a *Aggregator) {
		if o != nil {
			a.observers = append(a.observers, o)
		}
	}
}

// New creates an aggregator. It does nothing until the first Connect.
func New(gen Generator, opts ...Option) *Aggregator {
	a := &Aggregator{
		gen:       gen,
		interval:  DefaultInterval,
		capacity:  feed.MaxRecent,
		newTicker: NewTimeTicker,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Connect registers fn and immediately calls it with a fresh snapshot. The first
// subscription of a session starts the shared ticker. After Close, Connect returns
// an inert subscription and fn is never called.
func (a *Aggregator) Connect(fn func(feed.Snapshot)) *Subscription {
	if fn == nil {
		fn = func(feed.Snapshot) {}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.nextSubID++
	sub := &Subscription{id: a.nextSubID, fn: fn, agg: a}
	if a.closed {
		return sub
	}
	a.subs = append(a.subs, sub)

	if a.ticker == nil {
		a.startLocked()
	}

	snap := a.produceLocked()
	sub.fn(snap.Clone())

	a.log.Debug().
		Uint64("subscription", sub.id).
		Int("subscribers", len(a.subs)).
		Msg("subscriber connected")

	for _, o := range a.observers {
		o.OnSubscribers(len(a.subs))
		o.OnSnapshot(snap.Clone(), ReasonConnect, 1)
	}

	return sub
}

// Disconnect removes sub. Removing the last subscription stops the ticker and
// clears the retained feed, so the next Connect starts a fresh session.
func (a *Aggregator) Disconnect(sub *Subscription) {
	if sub == nil {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	idx := slices.Index(a.subs, sub)
	if idx < 0 {
		return
	}
	a.subs = slices.Delete(a.subs, idx, idx+1)

	a.log.Debug().
		Uint64("subscription", sub.id).
		Int("subscribers", len(a.subs)).
		Msg("subscriber disconnected")

	if len(a.subs) == 0 {
		a.stopLocked()
	}

	for _, o := range a.observers {
		o.OnSubscribers(len(a.subs))
	}
}

// Subscribe implements live.Source for in-process consumers. An in-process
// subscription cannot break, so fail is never called.
func (a *Aggregator) Subscribe(ctx context.Context, fn func(feed.Snapshot), _ func(error)) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	closed := a.closed
	a.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	sub := a.Connect(fn)
	return sub.Close, nil
}

// Subscribers returns the number of connected subscriptions.
func (a *Aggregator) Subscribers() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.subs)
}

// Running reports whether the ticker is active.
func (a *Aggregator) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ticker != nil
}

// Latest returns a copy of the most recent snapshot of the current session.
func (a *Aggregator) Latest() (feed.Snapshot, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.hasLatest {
		return feed.Snapshot{}, false
	}
	return a.latest.Clone(), true
}

// Close disconnects every subscriber and waits for the ticker loop to exit.
// Later Connect calls are no-ops.
func (a *Aggregator) Close() {
	a.mu.Lock()
	a.closed = true
	n := len(a.subs)
	a.subs = nil
	a.stopLocked()
	if n > 0 {
		for _, o := range a.observers {
			o.OnSubscribers(0)
		}
	}
	a.mu.Unlock()

	a.wg.Wait()
}

// startLocked starts a new session and its ticker loop.
func (a *Aggregator) startLocked() {
	a.session++
	a.retained = nil
	a.ticker = a.newTicker(a.interval)
	a.stop = make(chan struct{})

	a.log.Info().
		Uint64("session", a.session).
		Dur("interval", a.interval).
		Msg("live feed started")

	a.wg.Add(1)
	go a.run(a.session, a.ticker, a.stop)
}

// stopLocked stops the ticker and drops all session state.
func (a *Aggregator) stopLocked() {
	if a.ticker == nil {
		return
	}

	a.ticker.Stop()
	close(a.stop)
	a.ticker = nil
	a.stop = nil
	a.retained = nil
	a.latest = feed.Snapshot{}
	a.hasLatest = false

	a.log.Info().Uint64("session", a.session).Msg("live feed stopped")
}

func (a *Aggregator) run(session uint64, t Ticker, stop <-chan struct{}) {
	defer a.wg.Done()
	for {
		select {
		case <-stop:
			return
		case <-t.C():
			a.tick(session)
		}
	}
}

// tick produces one snapshot and broadcasts it, unless the session it was
// scheduled for has ended in the meantime.
func (a *Aggregator) tick(session uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.ticker == nil || a.session != session {
		return
	}

	snap := a.produceLocked()
	for _, sub := range a.subs {
		sub.fn(snap.Clone())
	}

	a.log.Debug().
		Int64("activity", snap.RecentActivities[0].ID).
		Int("subscribers", len(a.subs)).
		Msg("broadcast snapshot")

	for _, o := range a.observers {
		o.OnSnapshot(snap.Clone(), ReasonTick, len(a.subs))
	}
}

// produceLocked generates a snapshot with one new activity merged into the
// retained window and makes the merged window the new retained state.
func (a *Aggregator) produceLocked() feed.Snapshot {
	a.nextID++
	snap := a.gen.Snapshot(a.gen.Activity(a.nextID))
	snap.RecentActivities = feed.Merge(snap.RecentActivities, a.retained, a.capacity)

	a.retained = snap.RecentActivities
	a.latest = snap
	a.hasLatest = true

	return snap
}

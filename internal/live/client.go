// Package live provides the consumer side of the live dashboard feed: connection
// state, the latest snapshot, and manual reconnection.
package live

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hay-kot/shoppulse/internal/core/feed"
)

// ErrNotConnected is returned by the static connection failure message.
var ErrNotConnected = errors.New("unable to connect to live updates")

// Source is anything snapshots can be subscribed to. fn receives every snapshot;
// fail is called at most once if the subscription breaks, after the source has
// released its resources. The returned cancel func ends the subscription, after
// which neither is called.
type Source interface {
	Subscribe(ctx context.Context, fn func(feed.Snapshot), fail func(error)) (cancel func(), err error)
}

// Status is the connection state of a Client.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusConnecting Status = "connecting"
	StatusConnected  Status = "connected"
	StatusError      Status = "error"
)

// Options configures a Client.
type Options struct {
	// ConnectDelay simulates connection latency before the first subscription.
	ConnectDelay time.Duration
	// ReconnectDelay is the pause between tearing down and re-subscribing.
	ReconnectDelay time.Duration
}

// Client tracks one subscription to a Source and the latest snapshot it delivered.
type Client struct {
	source Source
	opts   Options
	log    zerolog.Logger

	mu      sync.Mutex
	status  Status
	err     error
	data    feed.Snapshot
	hasData bool
	cancel  func()
	// attempt invalidates callbacks from superseded subscriptions
	attempt uint64

	updates chan struct{}
}

// NewClient creates an idle client for source.
func NewClient(source Source, opts Options, log zerolog.Logger) *Client {
	return &Client{
		source:  source,
		opts:    opts,
		log:     log,
		status:  StatusIdle,
		updates: make(chan struct{}, 1),
	}
}

// Connect waits for the configured connect delay and subscribes to the source.
// On failure the client moves to StatusError and the error is returned.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.status == StatusConnected || c.status == StatusConnecting {
		c.mu.Unlock()
		return nil
	}
	c.attempt++
	attempt := c.attempt
	c.status = StatusConnecting
	c.err = nil
	c.mu.Unlock()
	c.notify()

	return c.connect(ctx, attempt, c.opts.ConnectDelay)
}

// Reconnect tears down the current subscription, clears the retained data,
// waits for the reconnect delay and connects again.
func (c *Client) Reconnect(ctx context.Context) error {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.attempt++
	attempt := c.attempt
	c.status = StatusConnecting
	c.err = nil
	c.data = feed.Snapshot{}
	c.hasData = false
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.notify()

	c.log.Info().Dur("delay", c.opts.ReconnectDelay).Msg("reconnecting to live updates")

	return c.connect(ctx, attempt, c.opts.ReconnectDelay)
}

// Close ends the subscription. The client can be connected again afterwards.
func (c *Client) Close() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.attempt++
	c.status = StatusIdle
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.notify()
}

// Status returns the current connection status.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Err returns the connection error while in StatusError.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Data returns a copy of the latest snapshot, if any.
func (c *Client) Data() (feed.Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasData {
		return feed.Snapshot{}, false
	}
	return c.data.Clone(), true
}

// Updates signals whenever status or data changes. Signals coalesce: a receiver
// should re-read Status and Data after each one.
func (c *Client) Updates() <-chan struct{} {
	return c.updates
}

func (c *Client) connect(ctx context.Context, attempt uint64, delay time.Duration) error {
	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return c.failAttempt(attempt, ctx.Err())
		case <-timer.C:
		}
	}

	cancel, err := c.source.Subscribe(ctx,
		func(s feed.Snapshot) { c.receive(attempt, s) },
		func(err error) { c.lost(attempt, err) },
	)
	if err != nil {
		return c.failAttempt(attempt, err)
	}

	c.mu.Lock()
	if c.attempt != attempt {
		// superseded by Close, Reconnect or a failure while subscribing
		err := c.err
		c.mu.Unlock()
		cancel()
		return err
	}
	c.cancel = cancel
	c.status = StatusConnected
	c.mu.Unlock()

	c.log.Debug().Msg("connected to live updates")
	c.notify()
	return nil
}

func (c *Client) failAttempt(attempt uint64, err error) error {
	wrapped := fmt.Errorf("%w: %w", ErrNotConnected, err)

	c.mu.Lock()
	if c.attempt == attempt {
		c.status = StatusError
		c.err = wrapped
	}
	c.mu.Unlock()

	c.log.Error().Err(err).Msg("live updates connection failed")
	c.notify()
	return wrapped
}

// lost moves a connected client into the error state when its source drops.
func (c *Client) lost(attempt uint64, err error) {
	c.mu.Lock()
	if c.attempt != attempt {
		c.mu.Unlock()
		return
	}
	c.attempt++
	c.cancel = nil
	c.status = StatusError
	c.err = fmt.Errorf("%w: %w", ErrNotConnected, err)
	c.mu.Unlock()

	c.log.Warn().Err(err).Msg("live updates disconnected")
	c.notify()
}

func (c *Client) receive(attempt uint64, s feed.Snapshot) {
	c.mu.Lock()
	if c.attempt != attempt {
		c.mu.Unlock()
		return
	}
	c.data = s
	c.hasData = true
	c.mu.Unlock()
	c.notify()
}

func (c *Client) notify() {
	select {
	case c.updates <- struct{}{}:
	default:
	}
}

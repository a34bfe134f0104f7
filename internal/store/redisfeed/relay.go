// Package redisfeed relays aggregator snapshots through Redis so other processes
// can read the latest snapshot or follow the live feed.
package redisfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hay-kot/shoppulse/internal/aggregator"
	"github.com/hay-kot/shoppulse/internal/core/feed"
)

// ErrNoSnapshot is returned by Latest when no snapshot is cached.
var ErrNoSnapshot = errors.New("no snapshot published")

const defaultQueueSize = 16

// Options names the Redis keys used by the relay.
type Options struct {
	Channel   string
	LatestKey string
}

// Dial connects to Redis and verifies the connection.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rc := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return rc, nil
}

// op is one queued relay action. A nil snapshot clears the cached one.
type op struct {
	snap *feed.Snapshot
}

// Relay publishes every aggregator snapshot to a channel and caches the latest
// one under a key. It implements aggregator.Observer; Redis is only touched from
// Run, so observers never wait on the network.
type Relay struct {
	rc    *redis.Client
	opts  Options
	log   zerolog.Logger
	queue chan op
}

var _ aggregator.Observer = (*Relay)(nil)

// NewRelay creates a relay. Call Run to start publishing.
func NewRelay(rc *redis.Client, opts Options, log zerolog.Logger) *Relay {
	return &Relay{
		rc:    rc,
		opts:  opts,
		log:   log,
		queue: make(chan op, defaultQueueSize),
	}
}

// OnSnapshot queues snap for publishing. Snapshots are dropped when the queue is full.
func (r *Relay) OnSnapshot(snap feed.Snapshot, _ aggregator.Reason, _ int) {
	r.enqueue(op{snap: &snap})
}

// OnSubscribers clears the cached snapshot once the feed stops. The clear is never
// dropped: when the queue is full the oldest queued snapshots make room for it.
func (r *Relay) OnSubscribers(n int) {
	if n != 0 {
		return
	}

	for {
		select {
		case r.queue <- op{}:
			return
		default:
		}

		select {
		case <-r.queue:
			r.log.Warn().Msg("relay queue full, dropping snapshot")
		default:
		}
	}
}

func (r *Relay) enqueue(o op) {
	select {
	case r.queue <- o:
	default:
		r.log.Warn().Msg("relay queue full, dropping snapshot")
	}
}

// Run publishes queued snapshots until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	r.log.Info().
		Str("channel", r.opts.Channel).
		Str("key", r.opts.LatestKey).
		Msg("snapshot relay started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case o := <-r.queue:
			var err error
			if o.snap == nil {
				err = r.clear(ctx)
			} else {
				err = r.Publish(ctx, *o.snap)
			}
			if err != nil && ctx.Err() == nil {
				r.log.Error().Err(err).Msg("relay snapshot")
			}
		}
	}
}

// Publish caches snap as the latest snapshot and publishes it to the channel.
func (r *Relay) Publish(ctx context.Context, snap feed.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	_, err = r.rc.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.opts.LatestKey, data, 0)
		pipe.Publish(ctx, r.opts.Channel, data)
		return nil
	})
	if err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	return nil
}

func (r *Relay) clear(ctx context.Context) error {
	if err := r.rc.Del(ctx, r.opts.LatestKey).Err(); err != nil {
		return fmt.Errorf("clear latest snapshot: %w", err)
	}
	return nil
}

// Latest returns the cached snapshot, or ErrNoSnapshot.
func Latest(ctx context.Context, rc *redis.Client, key string) (feed.Snapshot, error) {
	data, err := rc.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return feed.Snapshot{}, ErrNoSnapshot
		}
		return feed.Snapshot{}, fmt.Errorf("get latest snapshot: %w", err)
	}

	var snap feed.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return feed.Snapshot{}, fmt.Errorf("decode latest snapshot: %w", err)
	}
	return snap, nil
}

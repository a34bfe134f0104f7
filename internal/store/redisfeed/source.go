package redisfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hay-kot/shoppulse/internal/core/feed"
)

const defaultHealthInterval = 5 * time.Second

// Source follows the snapshots a Relay publishes. It implements live.Source.
type Source struct {
	rc             *redis.Client
	opts           Options
	log            zerolog.Logger
	healthInterval time.Duration
}

// NewSource creates a source reading the relay's channel and latest key.
func NewSource(rc *redis.Client, opts Options, log zerolog.Logger) *Source {
	return &Source{rc: rc, opts: opts, log: log, healthInterval: defaultHealthInterval}
}

// WithHealthInterval sets how often the connection is pinged while subscribed.
func (s *Source) WithHealthInterval(d time.Duration) *Source {
	if d > 0 {
		s.healthInterval = d
	}
	return s
}

// Subscribe delivers the cached snapshot, if any, followed by every published
// one. The server is pinged every health interval and fail is called once it
// stops answering. cancel must not be called from fn.
func (s *Source) Subscribe(ctx context.Context, fn func(feed.Snapshot), fail func(error)) (func(), error) {
	subCtx, stopCtx := context.WithCancel(context.WithoutCancel(ctx))

	pubsub := s.rc.Subscribe(subCtx, s.opts.Channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		stopCtx()
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", s.opts.Channel, err)
	}

	var (
		mu      sync.Mutex
		stopped bool
	)
	deliver := func(snap feed.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		if !stopped {
			fn(snap)
		}
	}

	go func() {
		if snap, err := Latest(subCtx, s.rc, s.opts.LatestKey); err == nil {
			deliver(snap)
		} else if !errors.Is(err, ErrNoSnapshot) {
			s.log.Warn().Err(err).Msg("read latest snapshot")
		}

		lost := s.follow(subCtx, pubsub, deliver)
		if lost == nil {
			return
		}
		_ = pubsub.Close()

		mu.Lock()
		wasStopped := stopped
		stopped = true
		mu.Unlock()
		if !wasStopped && fail != nil {
			fail(lost)
		}
	}()

	cancel := func() {
		mu.Lock()
		stopped = true
		mu.Unlock()
		stopCtx()
		_ = pubsub.Close()
	}
	return cancel, nil
}

// follow delivers published snapshots until ctx ends, returning nil, or until
// the subscription is lost, returning the cause.
func (s *Source) follow(ctx context.Context, pubsub *redis.PubSub, deliver func(feed.Snapshot)) error {
	health := time.NewTicker(s.healthInterval)
	defer health.Stop()

	msgs := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("redis subscription closed")
			}
			var snap feed.Snapshot
			if err := json.Unmarshal([]byte(msg.Payload), &snap); err != nil {
				s.log.Warn().Err(err).Msg("decode snapshot")
				continue
			}
			deliver(snap)
		case <-health.C:
			pingCtx, cancel := context.WithTimeout(ctx, s.healthInterval)
			err := s.rc.Ping(pingCtx).Err()
			cancel()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("redis connection lost: %w", err)
			}
		}
	}
}

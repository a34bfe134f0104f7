package commands

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/shoppulse/internal/aggregator"
	"github.com/hay-kot/shoppulse/internal/core/config"
	"github.com/hay-kot/shoppulse/internal/core/feed"
	"github.com/hay-kot/shoppulse/internal/live"
	"github.com/hay-kot/shoppulse/internal/store/jsonfile"
	"github.com/hay-kot/shoppulse/internal/store/redisfeed"
	"github.com/hay-kot/shoppulse/internal/wsclient"
)

// newGenerator builds the synthetic data generator. A zero seed picks a random one.
func newGenerator(cfg config.FeedConfig) *feed.Generator {
	s1, s2 := cfg.Seed, cfg.Seed
	if cfg.Seed == 0 {
		s1, s2 = rand.Uint64(), rand.Uint64()
	}
	rnd := rand.New(rand.NewPCG(s1, s2))
	return feed.NewGenerator(rnd, feed.SystemClock, cfg.Customers, cfg.Technicians)
}

// newAggregator builds an aggregator from the feed config.
func newAggregator(cfg *config.Config, log zerolog.Logger, observers ...aggregator.Observer) *aggregator.Aggregator {
	opts := []aggregator.Option{
		aggregator.WithInterval(cfg.Feed.TickInterval),
		aggregator.WithCapacity(cfg.Feed.Capacity),
		aggregator.WithLogger(log),
	}
	for _, o := range observers {
		opts = append(opts, aggregator.WithObserver(o))
	}
	return aggregator.New(newGenerator(cfg.Feed), opts...)
}

// openJournal returns the activity journal, or nil when it is disabled.
func openJournal(cfg *config.Config, log zerolog.Logger) *jsonfile.ActivityStore {
	if !cfg.Journal.Enabled {
		return nil
	}
	return jsonfile.NewActivityStore(cfg.DataDir).
		WithMaxEntries(cfg.Journal.MaxEntries).
		WithLogger(log)
}

// sourceFlags selects where consumer commands read snapshots from.
type sourceFlags struct {
	url   string
	redis bool
}

func (sf *sourceFlags) cliFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "url",
			Aliases:     []string{"u"},
			Usage:       "connect to a running `shoppulse serve` (e.g. http://localhost:8080)",
			Sources:     cli.EnvVars("SHOPPULSE_URL"),
			Destination: &sf.url,
		},
		&cli.BoolFlag{
			Name:        "redis",
			Usage:       "subscribe to the snapshot relay configured under redis",
			Destination: &sf.redis,
		},
	}
}

// feedSource is an opened snapshot source and the resources behind it.
type feedSource struct {
	live.Source
	Label string
	close func()
}

// Close releases the source's resources.
func (fs feedSource) Close() {
	if fs.close != nil {
		fs.close()
	}
}

// open picks a source: a remote server, the Redis relay, or an in-process aggregator.
func (sf *sourceFlags) open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (feedSource, error) {
	switch {
	case sf.url != "" && sf.redis:
		return feedSource{}, errors.New("--url and --redis are mutually exclusive")

	case sf.url != "":
		endpoint, err := wsclient.Endpoint(sf.url)
		if err != nil {
			return feedSource{}, err
		}
		return feedSource{
			Source: wsclient.New(endpoint, log),
			Label:  endpoint,
		}, nil

	case sf.redis:
		if !cfg.Redis.Enabled() {
			return feedSource{}, errors.New("--redis requires redis.addr in the config file")
		}
		rc, err := redisfeed.Dial(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return feedSource{}, err
		}
		opts := redisfeed.Options{Channel: cfg.Redis.Channel, LatestKey: cfg.Redis.LatestKey}
		return feedSource{
			Source: redisfeed.NewSource(rc, opts, log),
			Label:  fmt.Sprintf("redis://%s/%s", cfg.Redis.Addr, cfg.Redis.Channel),
			close:  func() { _ = rc.Close() },
		}, nil

	default:
		journal := openJournal(cfg, log)
		if journal == nil {
			agg := newAggregator(cfg, log)
			return feedSource{Source: agg, Label: "in-process", close: agg.Close}, nil
		}

		agg := newAggregator(cfg, log, journal)

		runCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = journal.Run(runCtx)
		}()

		return feedSource{
			Source: agg,
			Label:  "in-process",
			close: func() {
				agg.Close()
				stop()
				<-done
			},
		}, nil
	}
}

// newLiveClient wraps src in a live client using the configured delays.
func newLiveClient(src live.Source, cfg *config.Config, log zerolog.Logger) *live.Client {
	return live.NewClient(src, live.Options{
		ConnectDelay:   cfg.Live.ConnectDelay,
		ReconnectDelay: cfg.Live.ReconnectDelay,
	}, log)
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/hay-kot/shoppulse/internal/aggregator"
	"github.com/hay-kot/shoppulse/internal/httpapi"
	"github.com/hay-kot/shoppulse/internal/metrics"
	"github.com/hay-kot/shoppulse/internal/store/redisfeed"
	"github.com/hay-kot/shoppulse/internal/styles"
)

const shutdownTimeout = 10 * time.Second

type ServeCmd struct {
	flags *Flags

	// Command-specific flags
	addr      string
	noMetrics bool
}

// NewServeCmd creates a new serve command
func NewServeCmd(flags *Flags) *ServeCmd {
	return &ServeCmd{flags: flags}
}

// Register adds the serve command to the application
func (cmd *ServeCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "serve",
		Usage:     "Serve the live feed over WebSocket and SSE",
		UsageText: "shoppulse serve [options]",
		Description: `Runs the aggregator and exposes it over HTTP.

Endpoints:
  /ws        WebSocket, one JSON snapshot per message
  /stream    Server-Sent Events, one snapshot per event
  /snapshot  latest snapshot as JSON (204 when idle)
  /healthz   subscriber count and ticker state
  /metrics   Prometheus metrics

The ticker only runs while at least one client is connected. When redis.addr is
configured every snapshot is also published to the relay channel.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Aliases:     []string{"a"},
				Usage:       "listen address (overrides server.addr)",
				Sources:     cli.EnvVars("SHOPPULSE_ADDR"),
				Destination: &cmd.addr,
			},
			&cli.BoolFlag{
				Name:        "no-metrics",
				Usage:       "disable the /metrics endpoint",
				Destination: &cmd.noMetrics,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ServeCmd) run(ctx context.Context, c *cli.Command) error {
	cfg := cmd.flags.Config
	logger := log.With().Str("component", "serve").Logger()

	addr := cfg.Server.Addr
	if cmd.addr != "" {
		addr = cmd.addr
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	observers := []aggregator.Observer{collector}

	journal := openJournal(cfg, log.With().Str("component", "journal").Logger())
	if journal != nil {
		observers = append(observers, journal)
	}

	var relay *redisfeed.Relay
	if cfg.Redis.Enabled() {
		rc, err := redisfeed.Dial(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("connect relay: %w", err)
		}
		defer rc.Close() //nolint:errcheck

		relay = redisfeed.NewRelay(rc, redisfeed.Options{
			Channel:   cfg.Redis.Channel,
			LatestKey: cfg.Redis.LatestKey,
		}, log.With().Str("component", "relay").Logger())
		observers = append(observers, relay)
	}

	agg := newAggregator(cfg, log.With().Str("component", "aggregator").Logger(), observers...)
	defer agg.Close()

	apiOpts := httpapi.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		WriteTimeout:   cfg.Server.WriteTimeout,
		OnDrop:         collector.Dropped,
	}
	if !cmd.noMetrics {
		apiOpts.Gatherer = reg
	}

	g, gctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:              addr,
		Handler:           httpapi.New(agg, apiOpts, logger).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		// Streams end with the server context so Shutdown does not wait on them.
		BaseContext: func(net.Listener) context.Context { return gctx },
	}

	_, _ = fmt.Fprint(c.Root().ErrWriter, styles.Summary(
		[2]string{"listen", addr},
		[2]string{"tick", cfg.Feed.TickInterval.String()},
		[2]string{"journal", journalLabel(cfg.Journal.Enabled, cfg.JournalFile())},
		[2]string{"relay", relayLabel(cfg.Redis.Enabled(), cfg.Redis.Addr)},
	)+"\n")

	g.Go(func() error {
		logger.Info().Str("addr", addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if relay != nil {
		g.Go(func() error {
			return relay.Run(gctx)
		})
	}

	if journal != nil {
		g.Go(func() error {
			return journal.Run(gctx)
		})
	}

	return g.Wait()
}

func journalLabel(enabled bool, path string) string {
	if !enabled {
		return "disabled"
	}
	return path
}

func relayLabel(enabled bool, addr string) string {
	if !enabled {
		return "disabled"
	}
	return addr
}

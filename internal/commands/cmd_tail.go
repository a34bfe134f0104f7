package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/shoppulse/internal/core/feed"
	"github.com/hay-kot/shoppulse/internal/live"
	"github.com/hay-kot/shoppulse/internal/printer"
)

type TailCmd struct {
	flags  *Flags
	source sourceFlags

	// Command-specific flags
	count   int
	json    bool
	timeout string
}

// NewTailCmd creates a new tail command
func NewTailCmd(flags *Flags) *TailCmd {
	return &TailCmd{flags: flags}
}

// Register adds the tail command to the application
func (cmd *TailCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "tail",
		Usage:     "Print activities as they arrive",
		UsageText: "shoppulse tail [--url <server> | --redis] [--count N] [--json]",
		Description: `Subscribes to the live feed and prints each new activity, oldest first.

Without --url or --redis an in-process aggregator is used.

Examples:
  shoppulse tail                              # local feed until interrupted
  shoppulse tail --url http://localhost:8080  # follow a running server
  shoppulse tail --count 10 --json            # ten activities as JSON lines
  shoppulse tail --timeout 1m                 # stop after one minute`,
		Flags: append(cmd.source.cliFlags(),
			&cli.IntFlag{
				Name:        "count",
				Aliases:     []string{"n"},
				Usage:       "exit after printing N activities",
				Destination: &cmd.count,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print activities as JSON lines",
				Destination: &cmd.json,
			},
			&cli.StringFlag{
				Name:        "timeout",
				Usage:       "stop after this long (e.g., 30s, 5m); empty waits forever",
				Destination: &cmd.timeout,
			},
		),
		Action: cmd.run,
	})

	return app
}

// tailLine is the --json representation of one printed activity.
type tailLine struct {
	Activity feed.Activity `json:"activity"`
	At       time.Time     `json:"at"`
}

func (cmd *TailCmd) run(ctx context.Context, c *cli.Command) error {
	if cmd.timeout != "" {
		timeout, err := time.ParseDuration(cmd.timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout: %w", err)
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cfg := cmd.flags.Config
	logger := log.With().Str("component", "tail").Logger()

	src, err := cmd.source.open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer src.Close()

	client := newLiveClient(src, cfg, logger)
	defer client.Close()

	if err := client.Connect(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	}

	w := c.Root().Writer
	printed := 0
	var prev feed.Snapshot

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil
			}
			return ctx.Err()
		case <-client.Updates():
		}

		if client.Status() == live.StatusError {
			return client.Err()
		}

		snap, ok := client.Data()
		if !ok {
			continue
		}

		for _, act := range unseenActivities(prev, snap) {
			if err := cmd.print(w, act, snap.LastUpdated); err != nil {
				return err
			}
			printed++
			if cmd.count > 0 && printed >= cmd.count {
				return nil
			}
		}
		prev = snap
	}
}

func (cmd *TailCmd) print(w io.Writer, act feed.Activity, at time.Time) error {
	if cmd.json {
		return json.NewEncoder(w).Encode(tailLine{Activity: act, At: at})
	}
	printer.New(w).Activity(act, at.Local())
	return nil
}

// unseenActivities returns the activities in next that prev did not contain,
// oldest first.
func unseenActivities(prev, next feed.Snapshot) []feed.Activity {
	seen := make(map[int64]bool, len(prev.RecentActivities))
	for _, act := range prev.RecentActivities {
		seen[act.ID] = true
	}

	var out []feed.Activity
	for i := len(next.RecentActivities) - 1; i >= 0; i-- {
		act := next.RecentActivities[i]
		if !seen[act.ID] {
			out = append(out, act)
		}
	}
	return out
}

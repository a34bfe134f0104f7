package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/shoppulse/internal/printer"
	"github.com/hay-kot/shoppulse/internal/store/jsonfile"
)

type HistoryCmd struct {
	flags *Flags

	// Command-specific flags
	clear bool
	limit int
	since string
	json  bool
}

// NewHistoryCmd creates a new history command
func NewHistoryCmd(flags *Flags) *HistoryCmd {
	return &HistoryCmd{flags: flags}
}

// Register adds the history command to the application
func (cmd *HistoryCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "history",
		Usage:     "View or clear the activity journal",
		UsageText: "shoppulse history [options]",
		Description: `Lists activities recorded by previous feeds, newest first.

Every activity that reached the top of a feed is journaled once. Use --since to
restrict the window and --clear to remove all entries.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "clear",
				Aliases:     []string{"c"},
				Usage:       "clear the journal",
				Destination: &cmd.clear,
			},
			&cli.IntFlag{
				Name:        "limit",
				Aliases:     []string{"n"},
				Usage:       "show at most N entries",
				Value:       20,
				Destination: &cmd.limit,
			},
			&cli.StringFlag{
				Name:        "since",
				Usage:       "only show entries newer than this (e.g., 15m, 2h)",
				Destination: &cmd.since,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print entries as JSON lines",
				Destination: &cmd.json,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *HistoryCmd) run(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)

	if !cmd.flags.Config.Journal.Enabled {
		return errors.New("journal is disabled (journal.enabled: false)")
	}

	store := jsonfile.NewActivityStore(cmd.flags.Config.DataDir)

	if cmd.clear {
		return cmd.runClear(p, store)
	}

	return cmd.runList(ctx, c, store)
}

func (cmd *HistoryCmd) runList(ctx context.Context, c *cli.Command, store *jsonfile.ActivityStore) error {
	var since time.Time
	if cmd.since != "" {
		d, err := time.ParseDuration(cmd.since)
		if err != nil {
			return fmt.Errorf("invalid --since: %w", err)
		}
		since = time.Now().Add(-d)
	}

	entries, err := store.ListSince(since, cmd.limit)
	if err != nil {
		return fmt.Errorf("list history: %w", err)
	}

	out := c.Root().Writer

	if cmd.json {
		enc := json.NewEncoder(out)
		for _, e := range entries {
			if err := enc.Encode(e); err != nil {
				return err
			}
		}
		return nil
	}

	if len(entries) == 0 {
		printer.Ctx(ctx).Infof("No activity recorded")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTYPE\tCUSTOMER\tREASON\tTIME")

	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			e.Activity.ID,
			e.Activity.Kind,
			e.Activity.Customer,
			e.Reason,
			e.RecordedAt.Local().Format("2006-01-02 15:04:05"),
		)
	}

	return w.Flush()
}

func (cmd *HistoryCmd) runClear(p *printer.Printer, store *jsonfile.ActivityStore) error {
	if err := store.Clear(); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}

	p.Successf("Activity journal cleared")
	return nil
}

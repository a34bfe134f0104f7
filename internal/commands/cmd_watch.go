package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/hay-kot/shoppulse/internal/tui"
)

type WatchCmd struct {
	flags  *Flags
	source sourceFlags
}

// NewWatchCmd creates a new watch command
func NewWatchCmd(flags *Flags) *WatchCmd {
	return &WatchCmd{
		flags: flags,
	}
}

// Flags returns the dashboard flags for registration on the root command
func (cmd *WatchCmd) Flags() []cli.Flag {
	return cmd.source.cliFlags()
}

// Run executes the dashboard. Exported for use as default command.
func (cmd *WatchCmd) Run(ctx context.Context, c *cli.Command) error {
	return cmd.run(ctx, c)
}

func (cmd *WatchCmd) run(ctx context.Context, _ *cli.Command) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("the dashboard needs a terminal; use `shoppulse tail` for plain output")
	}

	cfg := cmd.flags.Config
	logger := log.With().Str("component", "watch").Logger()

	src, err := cmd.source.open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer src.Close()

	client := newLiveClient(src, cfg, logger)
	defer client.Close()

	m := tui.New(ctx, client, tui.Options{Source: src.Label})
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run dashboard: %w", err)
	}

	return nil
}

package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/shoppulse/internal/core/config"
	"github.com/hay-kot/shoppulse/internal/core/feed"
	"github.com/hay-kot/shoppulse/internal/printer"
	"github.com/hay-kot/shoppulse/internal/store/jsonfile"
)

func snapshotOf(ids ...int64) feed.Snapshot {
	snap := feed.Snapshot{}
	for _, id := range ids {
		snap.RecentActivities = append(snap.RecentActivities, feed.NewActivity(id, feed.KindTaskCreated, "Sarah Johnson"))
	}
	return snap
}

func TestUnseenActivities(t *testing.T) {
	tests := []struct {
		name string
		prev feed.Snapshot
		next feed.Snapshot
		want []int64
	}{
		{name: "first snapshot", next: snapshotOf(3, 2, 1), want: []int64{1, 2, 3}},
		{name: "one new", prev: snapshotOf(2, 1), next: snapshotOf(3, 2, 1), want: []int64{3}},
		{name: "nothing new", prev: snapshotOf(2, 1), next: snapshotOf(2, 1), want: nil},
		{name: "window slid", prev: snapshotOf(5, 4, 3, 2, 1), next: snapshotOf(6, 5, 4, 3, 2), want: []int64{6}},
		{name: "ids restarted", prev: snapshotOf(9, 8), next: snapshotOf(1), want: []int64{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, feed.IDs(unseenActivities(tt.prev, tt.next)))
		})
	}
}

func TestNewGenerator_SeedIsDeterministic(t *testing.T) {
	cfg := config.FeedConfig{Seed: 42}

	a := newGenerator(cfg)
	b := newGenerator(cfg)
	for i := int64(1); i <= 10; i++ {
		assert.Equal(t, a.Activity(i), b.Activity(i))
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Feed.Seed = 7
	cfg.Live.ConnectDelay = 0
	cfg.Live.ReconnectDelay = 0
	return &cfg
}

func TestSourceFlags_Open(t *testing.T) {
	ctx := context.Background()

	t.Run("mutually exclusive", func(t *testing.T) {
		sf := sourceFlags{url: "http://localhost:8080", redis: true}
		_, err := sf.open(ctx, testConfig(t), zerolog.Nop())
		require.Error(t, err)
	})

	t.Run("redis requires addr", func(t *testing.T) {
		sf := sourceFlags{redis: true}
		_, err := sf.open(ctx, testConfig(t), zerolog.Nop())
		require.ErrorContains(t, err, "redis.addr")
	})

	t.Run("bad url", func(t *testing.T) {
		sf := sourceFlags{url: "ftp://example.com"}
		_, err := sf.open(ctx, testConfig(t), zerolog.Nop())
		require.Error(t, err)
	})

	t.Run("url", func(t *testing.T) {
		sf := sourceFlags{url: "http://localhost:8080"}
		src, err := sf.open(ctx, testConfig(t), zerolog.Nop())
		require.NoError(t, err)
		defer src.Close()
		assert.Equal(t, "ws://localhost:8080/ws", src.Label)
	})

	t.Run("in-process records journal", func(t *testing.T) {
		cfg := testConfig(t)
		sf := sourceFlags{}
		src, err := sf.open(ctx, cfg, zerolog.Nop())
		require.NoError(t, err)
		defer src.Close()
		assert.Equal(t, "in-process", src.Label)

		got := make(chan feed.Snapshot, 1)
		cancel, err := src.Subscribe(ctx, func(s feed.Snapshot) {
			select {
			case got <- s:
			default:
			}
		}, nil)
		require.NoError(t, err)
		defer cancel()

		snap := <-got
		require.Len(t, snap.RecentActivities, 1)

		journal := jsonfile.NewActivityStore(cfg.DataDir)
		require.Eventually(t, func() bool {
			entries, err := journal.List(0)
			return err == nil && len(entries) >= 1
		}, time.Second, 10*time.Millisecond)

		entries, err := journal.List(0)
		require.NoError(t, err)
		assert.Equal(t, snap.RecentActivities[0].ID, entries[len(entries)-1].Activity.ID)
	})
}

// runApp runs a root command with the given subcommand registered and returns stdout.
func runApp(t *testing.T, register func(*cli.Command) *cli.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := register(&cli.Command{
		Name:      "shoppulse",
		Writer:    &out,
		ErrWriter: &bytes.Buffer{},
	})
	err := app.Run(context.Background(), append([]string{"shoppulse"}, args...))
	return out.String(), err
}

func TestTailCmd(t *testing.T) {
	cfg := testConfig(t)
	cfg.Feed.TickInterval = 10 * time.Millisecond
	flags := &Flags{Config: cfg}

	out, err := runApp(t, NewTailCmd(flags).Register, "tail", "--count", "3", "--json", "--timeout", "5s")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)

	var ids []int64
	for _, line := range lines {
		var tl tailLine
		require.NoError(t, json.Unmarshal([]byte(line), &tl))
		ids = append(ids, tl.Activity.ID)
	}
	assert.Equal(t, []int64{1, 2, 3}, ids, "activities print oldest first without repeats")
}

func TestHistoryCmd(t *testing.T) {
	cfg := testConfig(t)
	flags := &Flags{Config: cfg}

	store := jsonfile.NewActivityStore(cfg.DataDir)
	for i := int64(1); i <= 3; i++ {
		require.NoError(t, store.Record(jsonfile.Entry{
			Activity: feed.NewActivity(i, feed.KindPaymentReceived, "David Wilson"),
			Reason:   "tick",
		}))
	}

	out, err := runApp(t, NewHistoryCmd(flags).Register, "history", "--limit", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "payment_received")
	assert.Equal(t, 3, strings.Count(out, "\n"), "header plus two entries")

	out, err = runApp(t, NewHistoryCmd(flags).Register, "history", "--json", "--since", "1h")
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(out, "\n"))

	_, err = runApp(t, NewHistoryCmd(flags).Register, "history", "--clear")
	require.NoError(t, err)

	entries, err := store.List(0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestConfigCmd(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.AllowedOrigins = []string{"http://localhost:3000"}
	flags := &Flags{Config: cfg}

	out, err := runApp(t, NewConfigValidateCmd(flags).Register, "config", "validate", "--format", "json")
	require.NoError(t, err)

	var result struct {
		Valid bool `json:"valid"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.True(t, result.Valid)

	out, err = runApp(t, NewConfigValidateCmd(flags).Register, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "tick_interval: 5s")
	assert.Contains(t, out, "- http://localhost:3000")
}

func TestConfigValidateCmd_TextWarnings(t *testing.T) {
	cfg := testConfig(t)
	cfg.Feed.TickInterval = 100 * time.Millisecond
	warnings := cfg.Warnings()
	require.NotEmpty(t, warnings)

	var buf bytes.Buffer
	cmd := NewConfigValidateCmd(&Flags{Config: cfg})
	require.NoError(t, cmd.outputText(printer.New(&buf), nil, warnings))

	out := buf.String()
	assert.Contains(t, out, "tick_interval")
	assert.Contains(t, out, fmt.Sprintf("%s%s Configuration is valid with %d warning(s)", printer.ColorYellow, printer.Dot, len(warnings)))
}

func TestDoctorCmd(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.AllowedOrigins = []string{"http://localhost:3000"}
	flags := &Flags{Config: cfg}

	out, err := runApp(t, NewDoctorCmd(flags).Register, "doctor", "--format", "json")
	require.NoError(t, err)

	var result struct {
		Healthy bool `json:"healthy"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.True(t, result.Healthy)
}

package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/hay-kot/shoppulse/internal/core/feed"
	"github.com/hay-kot/shoppulse/internal/live"
)

// Key constants for event handling.
const (
	keyCtrlC = "ctrl+c"
)

// Client is the live connection the dashboard renders. *live.Client satisfies it.
type Client interface {
	Connect(ctx context.Context) error
	Reconnect(ctx context.Context) error
	Status() live.Status
	Err() error
	Data() (feed.Snapshot, bool)
	Updates() <-chan struct{}
}

// Options configures the dashboard.
type Options struct {
	// Source describes where snapshots come from, shown in the header.
	Source string
}

// updateMsg is sent whenever the client signals a change.
type updateMsg struct{}

// connectDoneMsg is sent when a connect or reconnect attempt returns.
type connectDoneMsg struct {
	err error
}

// Model is the main Bubble Tea model for the dashboard.
type Model struct {
	ctx     context.Context
	client  Client
	opts    Options
	keys    keyMap
	help    help.Model
	spinner spinner.Model

	status  live.Status
	err     error
	snap    feed.Snapshot
	hasData bool

	// selectedID keeps the cursor on the same activity as new ones arrive.
	selected   int
	selectedID int64

	width  int
	height int
}

// New creates a dashboard for client. ctx bounds connection attempts.
func New(ctx context.Context, client Client, opts Options) Model {
	return Model{
		ctx:    ctx,
		client: client,
		opts:   opts,
		keys:   defaultKeyMap(),
		help:   help.New(),
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(spinnerStyle),
		),
		status: client.Status(),
	}
}

// Init starts the connection and begins listening for updates.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.connect(m.client.Connect),
		waitForUpdate(m.client.Updates()),
		m.spinner.Tick,
	)
}

// Update handles incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case updateMsg:
		m.refresh()
		return m, waitForUpdate(m.client.Updates())

	case connectDoneMsg:
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Reconnect):
		if m.status == live.StatusConnecting {
			return m, nil
		}
		m.status = live.StatusConnecting
		m.err = nil
		m.snap = feed.Snapshot{}
		m.hasData = false
		return m, m.connect(m.client.Reconnect)

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.moveSelection(-1)
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.moveSelection(1)
		return m, nil
	}

	return m, nil
}

// refresh copies the client state into the model.
func (m *Model) refresh() {
	m.status = m.client.Status()
	m.err = m.client.Err()
	m.snap, m.hasData = m.client.Data()
	m.syncSelection()
}

func (m *Model) moveSelection(delta int) {
	n := len(m.snap.RecentActivities)
	if n == 0 {
		return
	}
	m.selected = min(max(m.selected+delta, 0), n-1)
	m.selectedID = m.snap.RecentActivities[m.selected].ID
}

// syncSelection follows the selected activity to its new position, or clamps the
// cursor when it has dropped out of the feed.
func (m *Model) syncSelection() {
	acts := m.snap.RecentActivities
	if len(acts) == 0 {
		m.selected = 0
		m.selectedID = 0
		return
	}

	for i, act := range acts {
		if act.ID == m.selectedID {
			m.selected = i
			return
		}
	}

	if m.selectedID == 0 {
		m.selected = 0
	}
	m.selected = min(m.selected, len(acts)-1)
	m.selectedID = acts[m.selected].ID
}

// Selected returns the activity under the cursor.
func (m Model) Selected() (feed.Activity, bool) {
	if m.selected >= len(m.snap.RecentActivities) {
		return feed.Activity{}, false
	}
	return m.snap.RecentActivities[m.selected], true
}

func (m Model) connect(fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return connectDoneMsg{err: fn(ctx)}
	}
}

// waitForUpdate blocks until the client signals a change.
func waitForUpdate(updates <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-updates
		return updateMsg{}
	}
}

package ui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/dailystrip/internal/notify"
	"github.com/five82/dailystrip/internal/poller"
	"github.com/five82/dailystrip/internal/prefs"
	"github.com/five82/dailystrip/internal/state"
	"github.com/five82/dailystrip/internal/strip"
)

const defaultPollTick = time.Second

// Controller is the part of the poller the viewer drives.
type Controller interface {
	Snapshot() state.Snapshot
	Status() poller.Status
	FetchNow(previous strip.Checksum) bool
	Refresh() bool
}

// Options configures the UI.
type Options struct {
	Controller Controller
	// Acknowledged reports whether fetching is permitted. Nil means always.
	Acknowledged func() bool
	// Acknowledge records the user's acceptance of the disclaimer.
	Acknowledge func() error
	SourceURL   string
	ArchiveDir  string
	ThemeName   string
	PrefsPath   string
	PollTick    time.Duration
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctrl         Controller
	acknowledged func() bool
	acknowledge  func() error
	sourceURL    string
	archiveDir   string
	prefsPath    string
	pollTick     time.Duration

	// UI state
	theme    Theme
	keys     keyMap
	help     help.Model
	width    int
	height   int
	showHelp bool
	flash    string

	// Data state
	snapshot  state.Snapshot
	status    poller.Status
	lastEvent *notify.Event
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = defaultPollTick
	}

	m := Model{
		ctrl:         opts.Controller,
		acknowledged: opts.Acknowledged,
		acknowledge:  opts.Acknowledge,
		sourceURL:    opts.SourceURL,
		archiveDir:   opts.ArchiveDir,
		prefsPath:    opts.PrefsPath,
		pollTick:     pollTick,
		theme:        GetTheme(opts.ThemeName),
		keys:         DefaultKeyMap(),
		help:         help.New(),
		width:        80,
		height:       24,
		snapshot:     state.Snapshot{Strip: strip.Missing()},
	}
	if m.ctrl != nil {
		m.snapshot = m.ctrl.Snapshot()
		m.status = m.ctrl.Status()
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tickCmd(m.pollTick)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		m.refresh()
		return m, tickCmd(m.pollTick)

	case EventMsg:
		ev := notify.Event(msg)
		m.lastEvent = &ev
		m.refresh()
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true

	case key.Matches(msg, m.keys.Refresh):
		m.trigger(true)

	case key.Matches(msg, m.keys.Fetch):
		m.trigger(false)

	case key.Matches(msg, m.keys.Acknowledge):
		m.acceptDisclaimer()

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		if m.prefsPath != "" {
			name := m.theme.Name
			_, _ = prefs.Update(m.prefsPath, func(p *prefs.Prefs) { p.Theme = name })
		}
	}
	return m, nil
}

func (m *Model) trigger(force bool) {
	if m.ctrl == nil {
		return
	}
	if !m.isAcknowledged() {
		m.flash = "Accept the disclaimer (a) before downloading"
		return
	}

	var submitted bool
	if force {
		submitted = m.ctrl.Refresh()
	} else {
		submitted = m.ctrl.FetchNow(m.snapshot.Strip.Checksum())
	}
	switch {
	case submitted && force:
		m.flash = "Downloading strip..."
	case submitted:
		m.flash = "Checking for a new strip..."
	default:
		m.flash = "A download is already in progress"
	}
	m.refresh()
}

func (m *Model) acceptDisclaimer() {
	if m.isAcknowledged() {
		m.flash = "Disclaimer already accepted"
		return
	}
	if m.acknowledge == nil {
		return
	}
	if err := m.acknowledge(); err != nil {
		m.flash = fmt.Sprintf("Could not save acceptance: %v", err)
		return
	}
	m.flash = "Disclaimer accepted"
	m.refresh()
}

func (m Model) isAcknowledged() bool {
	return m.acknowledged == nil || m.acknowledged()
}

func (m *Model) refresh() {
	if m.ctrl == nil {
		return
	}
	m.snapshot = m.ctrl.Snapshot()
	m.status = m.ctrl.Status()
}

// Messages

type tickMsg time.Time

// EventMsg carries a hub notification into the program.
type EventMsg notify.Event

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Listener forwards hub notifications to a running program.
func Listener(p *tea.Program) notify.Listener {
	return notify.ListenerFunc(func(ev notify.Event) {
		p.Send(EventMsg(ev))
	})
}

// Subscriber registers hub listeners.
type Subscriber interface {
	Subscribe(l notify.Listener) notify.Subscription
	Unsubscribe(id notify.Subscription)
}

// Run starts the Bubble Tea program and blocks until the user quits or ctx
// is done. Hub events reach the model through sub for as long as it runs.
func Run(ctx context.Context, opts Options, sub Subscriber) error {
	p := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	if sub != nil {
		id := sub.Subscribe(Listener(p))
		defer sub.Unsubscribe(id)
	}
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

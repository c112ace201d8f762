package sim

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/knob/internal/knob"
	"github.com/muurk/knob/internal/ui"
)

// SampleWindow is how often queued UI events are drawn and accumulated
// encoder ticks are sent as one rotation burst.
const SampleWindow = 100 * time.Millisecond

// Engine is the part of the controller the simulator drives.
type Engine interface {
	HandleInput(ctx context.Context, ev knob.Event)
	HandleRotation(ctx context.Context, ticks int)
	SetCurrentScreen(id string) bool
}

type frameMsg time.Time

// Model is the bubbletea model of the simulator.
type Model struct {
	ctx    context.Context
	engine Engine
	queue  *ui.Queue
	power  *knob.StaticPower

	Screen  *Screen
	Current string
	Ticks   int

	Width int
	keys  keyMap
	help  help.Model
	bar   progress.Model
}

// NewModel creates a simulator drawing events from queue and sending
// inputs to engine. power may be nil.
func NewModel(ctx context.Context, engine Engine, queue *ui.Queue, power *knob.StaticPower) Model {
	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	return Model{
		ctx:    ctx,
		engine: engine,
		queue:  queue,
		power:  power,
		Screen: NewScreen(),
		Width:  ui.MinTerminalWidth,
		keys:   newKeyMap(),
		help:   help.New(),
		bar:    bar,
	}
}

func frame() tea.Cmd {
	return tea.Tick(SampleWindow, func(t time.Time) tea.Msg { return frameMsg(t) })
}

// Init starts the frame ticker.
func (m Model) Init() tea.Cmd {
	return frame()
}

// Update handles key presses and frame ticks.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		if m.Width > ui.MaxContentWidth {
			m.Width = ui.MaxContentWidth
		}
		m.help.Width = m.Width
		return m, nil

	case frameMsg:
		return m, tea.Batch(m.flush(), frame())

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// flush draws pending UI events and sends the accumulated rotation.
func (m *Model) flush() tea.Cmd {
	if m.queue != nil {
		m.queue.Flush(m.Screen)
	}
	m.Screen.Expire()
	m.syncCurrent()

	if m.Ticks == 0 {
		return nil
	}
	ticks := m.Ticks
	m.Ticks = 0
	return m.send(func(e Engine) { e.HandleRotation(m.ctx, ticks) })
}

// syncCurrent keeps the shown screen valid after a manifest change.
func (m *Model) syncCurrent() {
	mf := m.Screen.Manifest
	if mf == nil || len(mf.Screens) == 0 {
		m.Current = ""
		return
	}
	if _, ok := mf.Screen(m.Current); ok {
		return
	}
	m.Current = mf.Nav.Default
	if _, ok := mf.Screen(m.Current); !ok {
		m.Current = mf.Screens[0].ID
	}
}

func (m Model) send(fn func(Engine)) tea.Cmd {
	if m.engine == nil {
		return nil
	}
	engine := m.engine
	return func() tea.Msg {
		fn(engine)
		return nil
	}
}

func (m Model) input(in knob.Input, element int) tea.Cmd {
	ev := knob.Event{Input: in, Element: element}
	return m.send(func(e Engine) { e.HandleInput(m.ctx, ev) })
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.Screen.Settings {
		if key.Matches(msg, m.keys.Back, m.keys.Quit) {
			m.Screen.Settings = false
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.CW):
		m.Ticks++
		return m, nil
	case key.Matches(msg, m.keys.CCW):
		m.Ticks--
		return m, nil
	case key.Matches(msg, m.keys.Press):
		return m, m.input(knob.InputPlayPause, 0)
	case key.Matches(msg, m.keys.LongPress):
		return m, m.input(knob.InputLongPress, 0)
	case key.Matches(msg, m.keys.Next):
		return m, m.input(knob.InputNextTrack, 0)
	case key.Matches(msg, m.keys.Prev):
		return m, m.input(knob.InputPrevTrack, 0)
	case key.Matches(msg, m.keys.Menu):
		return m, m.input(knob.InputMenu, 0)
	case key.Matches(msg, m.keys.Mute):
		return m, m.input(knob.InputMute, 0)
	case key.Matches(msg, m.keys.Screen):
		return m, m.nextScreen()
	case key.Matches(msg, m.keys.Charging):
		if m.power != nil {
			m.power.SetCharging(!m.power.Charging())
		}
		return m, nil
	case key.Matches(msg, m.keys.Sleep):
		if m.power != nil {
			m.power.SetDisplaySleeping(!m.power.DisplaySleeping())
		}
		return m, nil
	case key.Matches(msg, m.keys.Tap):
		return m, m.input(knob.InputTap, digit(msg))
	case key.Matches(msg, m.keys.LongTap):
		return m, m.input(knob.InputLongTap, digit(msg))
	}
	return m, nil
}

// nextScreen cycles through the manifest screens in nav order.
func (m *Model) nextScreen() tea.Cmd {
	mf := m.Screen.Manifest
	if mf == nil || len(mf.Screens) == 0 {
		return nil
	}
	order := mf.Nav.Order
	if len(order) == 0 {
		for _, s := range mf.Screens {
			order = append(order, s.ID)
		}
	}
	next := order[0]
	for i, id := range order {
		if id == m.Current && i+1 < len(order) {
			next = order[i+1]
			break
		}
	}
	m.Current = next
	return m.send(func(e Engine) { e.SetCurrentScreen(next) })
}

// digit returns the zero-based element index of a "1".."9" key, with or
// without the alt modifier.
func digit(msg tea.KeyMsg) int {
	s := strings.TrimPrefix(msg.String(), "alt+")
	if len(s) != 1 || s[0] < '1' || s[0] > '9' {
		return -1
	}
	return int(s[0] - '1')
}

// View renders the display and key help.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(ui.HeaderBorderStyle(m.Width).Render(m.Screen.Render(m.Current, m.Width-4, m.bar)))
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	b.WriteString("\n")
	return b.String()
}

package sim

import "github.com/charmbracelet/bubbles/key"

// keyMap binds keyboard keys to knob gestures.
type keyMap struct {
	CW        key.Binding
	CCW       key.Binding
	Press     key.Binding
	LongPress key.Binding
	Next      key.Binding
	Prev      key.Binding
	Menu      key.Binding
	Mute      key.Binding
	Tap       key.Binding
	LongTap   key.Binding
	Screen    key.Binding
	Charging  key.Binding
	Sleep     key.Binding
	Back      key.Binding
	Help      key.Binding
	Quit      key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.CW, k.CCW, k.Press, k.Menu, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.CW, k.CCW, k.Press, k.LongPress},
		{k.Next, k.Prev, k.Mute, k.Menu},
		{k.Tap, k.LongTap, k.Screen},
		{k.Charging, k.Sleep, k.Help, k.Quit},
	}
}

func newKeyMap() keyMap {
	return keyMap{
		CW: key.NewBinding(
			key.WithKeys("right", "up", "k"),
			key.WithHelp("→/↑", "turn cw"),
		),
		CCW: key.NewBinding(
			key.WithKeys("left", "down", "j"),
			key.WithHelp("←/↓", "turn ccw"),
		),
		Press: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "press"),
		),
		LongPress: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "long press"),
		),
		Next: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "next"),
		),
		Prev: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "prev"),
		),
		Menu: key.NewBinding(
			key.WithKeys("m", "z"),
			key.WithHelp("m", "zones"),
		),
		Mute: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "mute"),
		),
		Tap: key.NewBinding(
			key.WithKeys("1", "2", "3", "4", "5", "6"),
			key.WithHelp("1-6", "tap element"),
		),
		LongTap: key.NewBinding(
			key.WithKeys("alt+1", "alt+2", "alt+3", "alt+4", "alt+5", "alt+6"),
			key.WithHelp("alt+1-6", "hold element"),
		),
		Screen: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next screen"),
		),
		Charging: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "toggle charging"),
		),
		Sleep: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "toggle display sleep"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

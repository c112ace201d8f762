package knob

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/muurk/knob/internal/bridge"
	"github.com/muurk/knob/internal/logging"
	"github.com/muurk/knob/internal/manifest"
)

// Input is a physical input on the knob.
type Input int

const (
	InputNone Input = iota
	InputVolumeUp
	InputVolumeDown
	InputPlayPause
	InputNextTrack
	InputPrevTrack
	InputMenu
	InputMute
	InputLongPress
	InputTap
	InputLongTap
)

var inputNames = map[Input]string{
	InputNone:       "none",
	InputVolumeUp:   "volume_up",
	InputVolumeDown: "volume_down",
	InputPlayPause:  "play_pause",
	InputNextTrack:  "next",
	InputPrevTrack:  "prev",
	InputMenu:       "menu",
	InputMute:       "mute",
	InputLongPress:  "long_press",
	InputTap:        "tap",
	InputLongTap:    "long_tap",
}

// String returns the name used for the input in interaction maps.
func (in Input) String() string {
	if name, ok := inputNames[in]; ok {
		return name
	}
	return "unknown"
}

// ParseInput is the inverse of Input.String.
func ParseInput(name string) (Input, bool) {
	for in, n := range inputNames {
		if n == name {
			return in, true
		}
	}
	return InputNone, false
}

// Event is one input. Element is the tapped element index for InputTap and
// InputLongTap, or the picker row when the zone picker is open.
type Event struct {
	Input   Input
	Element int
}

// Action names handled on the knob instead of the bridge.
const (
	ActionVolumeUp   = "volume_up"
	ActionVolumeDown = "volume_down"
)

// screenTable is the part of a screen the dispatcher needs.
type screenTable struct {
	id       string
	encoder  *manifest.Encoder
	elements []manifest.Element
}

// dispatchTables are cached from the last full manifest. Fast-only
// manifests leave them untouched.
type dispatchTables struct {
	screens      []screenTable
	defaultID    string
	current      string
	interactions manifest.Interactions
}

func (t *dispatchTables) update(m *manifest.Manifest) {
	t.interactions = append(manifest.Interactions(nil), m.Interactions...)
	if len(m.Screens) == 0 {
		return
	}

	screens := make([]screenTable, 0, len(m.Screens))
	for i := range m.Screens {
		s := &m.Screens[i]
		st := screenTable{id: s.ID}
		if s.Encoder != nil {
			enc := cloneEncoder(*s.Encoder)
			st.encoder = &enc
		}
		for _, el := range s.Elements {
			st.elements = append(st.elements, cloneElement(el))
		}
		screens = append(screens, st)
	}
	t.screens = screens

	t.defaultID = m.Nav.Default
	if t.defaultID == "" && len(screens) > 0 {
		t.defaultID = screens[0].id
	}
	if t.find(t.current) == nil {
		t.current = t.defaultID
	}
}

func (t *dispatchTables) find(id string) *screenTable {
	if id == "" {
		return nil
	}
	for i := range t.screens {
		if t.screens[i].id == id {
			return &t.screens[i]
		}
	}
	return nil
}

func cloneAction(a *manifest.Action) *manifest.Action {
	if a == nil {
		return nil
	}
	cp := manifest.Action{Name: a.Name}
	if len(a.Params) > 0 {
		cp.Params = append(json.RawMessage(nil), a.Params...)
	}
	return &cp
}

func cloneEncoder(e manifest.Encoder) manifest.Encoder {
	return manifest.Encoder{
		CW:        *cloneAction(&e.CW),
		CCW:       *cloneAction(&e.CCW),
		Press:     cloneAction(e.Press),
		LongPress: cloneAction(e.LongPress),
	}
}

func cloneElement(el manifest.Element) manifest.Element {
	return manifest.Element{
		Display:     el.Display,
		OnTap:       cloneAction(el.OnTap),
		OnLongPress: cloneAction(el.OnLongPress),
	}
}

// SetCurrentScreen records the screen the UI is showing. Unknown ids are
// ignored and false is returned.
func (c *Controller) SetCurrentScreen(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tables.find(id) == nil {
		return false
	}
	c.tables.current = id
	return true
}

// CurrentScreen returns the screen inputs are dispatched against.
func (c *Controller) CurrentScreen() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tables.current
}

// HandleInput dispatches a single input.
func (c *Controller) HandleInput(ctx context.Context, ev Event) {
	ticks := 0
	switch ev.Input {
	case InputVolumeUp:
		ticks = 1
	case InputVolumeDown:
		ticks = -1
	}
	c.dispatch(ctx, ev, ticks)
}

// HandleRotation dispatches a burst of encoder ticks collected over one
// sampling window. Positive ticks are clockwise.
func (c *Controller) HandleRotation(ctx context.Context, ticks int) {
	if ticks == 0 {
		return
	}
	in := InputVolumeUp
	if ticks < 0 {
		in = InputVolumeDown
	}
	c.dispatch(ctx, Event{Input: in}, ticks)
}

func (c *Controller) dispatch(ctx context.Context, ev Event, ticks int) {
	if c.handlePicker(ev, ticks) {
		return
	}

	c.mu.Lock()
	var screen screenTable
	if s := c.tables.find(c.tables.current); s != nil {
		screen = *s
	}
	interactions := c.tables.interactions
	c.mu.Unlock()

	if screen.encoder != nil {
		if a, ok := encoderAction(screen.encoder, ev.Input); ok {
			logging.Debug("Input dispatched by encoder",
				zap.String("input", ev.Input.String()),
				zap.String("screen", screen.id),
				zap.String("action", a.Name),
			)
			c.runAction(ctx, a, ticks)
			return
		}
	}

	if a, ok := elementAction(screen.elements, ev); ok {
		logging.Debug("Input dispatched by element",
			zap.Int("element", ev.Element),
			zap.String("action", a.Name),
		)
		c.runAction(ctx, a, ticks)
		return
	}

	if ev.Input == InputMenu {
		c.openPicker()
		return
	}

	if name, ok := interactions.Lookup(ev.Input.String()); ok && name != "" {
		logging.Debug("Input dispatched by interactions",
			zap.String("input", ev.Input.String()),
			zap.String("action", name),
		)
		c.runAction(ctx, manifest.Action{Name: name}, ticks)
		return
	}

	c.defaultAction(ctx, ev.Input, ticks)
}

func encoderAction(enc *manifest.Encoder, in Input) (manifest.Action, bool) {
	var a *manifest.Action
	switch in {
	case InputVolumeUp:
		a = &enc.CW
	case InputVolumeDown:
		a = &enc.CCW
	case InputPlayPause:
		a = enc.Press
	case InputLongPress:
		a = enc.LongPress
	}
	if a == nil || a.IsZero() {
		return manifest.Action{}, false
	}
	return *a, true
}

func elementAction(elements []manifest.Element, ev Event) (manifest.Action, bool) {
	if ev.Input != InputTap && ev.Input != InputLongTap {
		return manifest.Action{}, false
	}
	if ev.Element < 0 || ev.Element >= len(elements) {
		return manifest.Action{}, false
	}
	a := elements[ev.Element].OnTap
	if ev.Input == InputLongTap {
		a = elements[ev.Element].OnLongPress
	}
	if a == nil || a.IsZero() {
		return manifest.Action{}, false
	}
	return *a, true
}

func (c *Controller) defaultAction(ctx context.Context, in Input, ticks int) {
	switch in {
	case InputVolumeUp, InputVolumeDown:
		c.adjustVolume(ctx, ticks)
	case InputPlayPause:
		c.control(ctx, manifest.Action{Name: "play_pause"})
	case InputNextTrack:
		c.control(ctx, manifest.Action{Name: "next"})
	case InputPrevTrack:
		c.control(ctx, manifest.Action{Name: "prev"})
	case InputMute:
		c.control(ctx, manifest.Action{Name: "mute"})
	case InputLongPress:
		c.ui.ShowSettings()
	case InputMenu:
		c.openPicker()
	default:
		logging.Debug("Input not handled", zap.String("input", in.String()))
	}
}

// runAction performs a manifest action. Volume actions go through the
// predictor; everything else is sent to the bridge.
func (c *Controller) runAction(ctx context.Context, a manifest.Action, ticks int) {
	n := ticks
	if n < 0 {
		n = -n
	}
	if n == 0 {
		n = 1
	}
	switch a.Name {
	case ActionVolumeUp:
		c.adjustVolume(ctx, n)
	case ActionVolumeDown:
		c.adjustVolume(ctx, -n)
	default:
		c.control(ctx, a)
	}
}

// control posts an action to the bridge and reports a failure once.
func (c *Controller) control(ctx context.Context, a manifest.Action) {
	c.mu.Lock()
	base, zoneID := c.baseURL(), c.cfg.ZoneID
	c.mu.Unlock()

	req := bridge.ControlRequest{ZoneID: zoneID, Action: a.Name, Params: a.Params}
	if err := c.bridgeFor(base).Control(ctx, req); err != nil {
		logging.Warn("Control failed",
			zap.String("action", a.Name),
			zap.String("error", bridge.ShortMessage(err)),
		)
		c.ui.SetMessage(failureMessage(a.Name))
	}
}

func failureMessage(action string) string {
	switch action {
	case "play_pause":
		return "Play/pause failed"
	case "next":
		return "Next track failed"
	case "prev":
		return "Previous track failed"
	case "mute":
		return "Mute failed"
	case "vol_abs", ActionVolumeUp, ActionVolumeDown:
		return "Volume change failed"
	default:
		return "Command failed"
	}
}

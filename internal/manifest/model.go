package manifest

import "encoding/json"

// Capacity limits. Text limits are in bytes and exclude the terminator the
// device firmware reserves, so a 128-byte slot holds 127 bytes of text.
const (
	MaxScreens      = 4
	MaxLines        = 4
	MaxListItems    = 16
	MaxText         = 127
	MaxID           = 31
	MaxURL          = 255
	MaxSHA          = 8
	MaxInteractions = 12
	MaxControls     = 6
	MaxActionLen    = 31
	MaxInputLen     = 31
	MaxElements     = 6
	MaxParamsJSON   = 127
	MaxIcon         = 31
	MaxLabel        = 63
	MaxZoneID       = 63
	MaxVolumeType   = 15
	MaxColor        = 7
)

// ZonesScreenID is the list screen the bridge uses for zone selection.
const ZonesScreenID = "zones"

// Manifest is one parsed /knob/manifest document.
type Manifest struct {
	Version      uint32
	SHA          string
	Fast         FastState
	Screens      []Screen
	Nav          Nav
	Interactions Interactions
}

// FastState is the part of the manifest that changes on every poll.
type FastState struct {
	ZoneID       string
	IsPlaying    bool
	Volume       float64
	VolumeMin    float64
	VolumeMax    float64
	VolumeStep   float64
	VolumeType   string // "db", "number" or "fixed"
	SeekPosition int
	Length       int
	Transport    Transport
}

// Transport lists which transport controls the zone currently permits.
type Transport struct {
	Play  bool
	Pause bool
	Next  bool
	Prev  bool
}

// ScreenKind identifies the body type of a screen.
type ScreenKind int

const (
	KindMedia ScreenKind = iota
	KindList
	KindCard
	KindProgress
	KindStatus
)

func (k ScreenKind) String() string {
	switch k {
	case KindMedia:
		return "media"
	case KindList:
		return "list"
	case KindCard:
		return "card"
	case KindProgress:
		return "progress"
	case KindStatus:
		return "status"
	default:
		return "unknown"
	}
}

// Body is implemented by the five screen body types. The interface is sealed
// so a type switch over Media, List, Card, Progress and Status is exhaustive.
type Body interface {
	Kind() ScreenKind
	sealed()
}

// TextStyle selects the font used for a text line.
type TextStyle int

const (
	StyleTitle TextStyle = iota
	StyleSubtitle
	StyleDetail
)

// TextLine is a single styled line of text.
type TextLine struct {
	Text  string
	Style TextStyle
}

// Media is the now-playing screen.
type Media struct {
	ImageURL        string
	ImageKey        string
	BackgroundColor string
	Lines           []TextLine
}

// ListItem is one row of a List screen.
type ListItem struct {
	ID       string
	Label    string
	Sublabel string
	Selected bool
}

// List is a selectable list, such as the zone picker.
type List struct {
	Title string
	Items []ListItem
}

// Card shows a few lines of context text.
type Card struct {
	Lines []TextLine
}

// Progress shows a labelled progress bar in the range 0..1.
type Progress struct {
	Label    string
	Progress float64
}

// Status shows a message with an icon name.
type Status struct {
	Message string
	Icon    string
}

func (Media) Kind() ScreenKind    { return KindMedia }
func (List) Kind() ScreenKind     { return KindList }
func (Card) Kind() ScreenKind     { return KindCard }
func (Progress) Kind() ScreenKind { return KindProgress }
func (Status) Kind() ScreenKind   { return KindStatus }

func (Media) sealed()    {}
func (List) sealed()     {}
func (Card) sealed()     {}
func (Progress) sealed() {}
func (Status) sealed()   {}

// Action is a named command with optional bridge-defined parameters.
type Action struct {
	Name   string
	Params json.RawMessage
}

// IsZero reports whether the action has no name.
func (a Action) IsZero() bool {
	return a.Name == ""
}

// Display describes how an element is drawn.
type Display struct {
	Icon   string
	Label  string
	Active bool
}

// Element is a tappable control with its own behaviour.
type Element struct {
	Display     Display
	OnTap       *Action
	OnLongPress *Action
}

// Encoder maps rotary encoder gestures to actions for one screen.
type Encoder struct {
	CW        Action
	CCW       Action
	Press     *Action
	LongPress *Action
}

// Screen is one renderable page of the manifest.
type Screen struct {
	ID       string
	Body     Body
	Controls []string
	Elements []Element
	Encoder  *Encoder
}

// Kind returns the kind of the screen body.
func (s *Screen) Kind() ScreenKind {
	return s.Body.Kind()
}

// Nav holds the screen order and the screen shown first.
type Nav struct {
	Order   []string
	Default string
}

// Mapping binds a physical input name to a logical action name.
type Mapping struct {
	Input  string
	Action string
}

// Interactions is the legacy input map, kept in document order.
type Interactions []Mapping

// Lookup returns the action mapped to input.
func (in Interactions) Lookup(input string) (string, bool) {
	for _, m := range in {
		if m.Input == input {
			return m.Action, true
		}
	}
	return "", false
}

// FastOnly builds a manifest that carries only fast state. It is used when
// the bridge reports that the screens are unchanged.
func FastOnly(sha string, fast FastState) *Manifest {
	return &Manifest{
		Version: 1,
		SHA:     Truncate(sha, MaxSHA),
		Fast:    fast,
	}
}

// Screen returns the screen with the given id.
func (m *Manifest) Screen(id string) (*Screen, bool) {
	for i := range m.Screens {
		if m.Screens[i].ID == id {
			return &m.Screens[i], true
		}
	}
	return nil, false
}

// MarkSelectedZone flags the item matching zoneID in the zones list screen
// and clears the flag on every other item.
func (m *Manifest) MarkSelectedZone(zoneID string) {
	for i := range m.Screens {
		s := &m.Screens[i]
		if s.ID != ZonesScreenID {
			continue
		}
		list, ok := s.Body.(List)
		if !ok {
			continue
		}
		for j := range list.Items {
			list.Items[j].Selected = list.Items[j].ID == zoneID
		}
		s.Body = list
	}
}

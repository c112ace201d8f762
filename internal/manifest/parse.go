package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/muurk/knob/internal/logging"
)

var (
	// ErrEmpty is returned for an empty document.
	ErrEmpty = errors.New("manifest: empty document")

	// ErrInvalidJSON is returned when the document is not a JSON object.
	ErrInvalidJSON = errors.New("manifest: invalid JSON")

	// ErrMissingFast is returned when the required "fast" object is absent.
	ErrMissingFast = errors.New("manifest: missing fast state")
)

// Parse decodes a full manifest document. Missing optional sections leave
// their zero values; a missing "fast" object rejects the whole document and
// no partial manifest is returned.
func Parse(data []byte) (*Manifest, error) {
	root, err := decodeRoot(data)
	if err != nil {
		return nil, err
	}

	fast, ok := root.object("fast")
	if !ok {
		return nil, ErrMissingFast
	}

	m := &Manifest{
		Version: root.uint32("version"),
		SHA:     root.str("sha", MaxSHA),
		Fast:    parseFast(fast),
	}

	for _, raw := range root.array("screens") {
		if len(m.Screens) >= MaxScreens {
			break
		}
		if screen, ok := parseScreen(raw); ok {
			m.Screens = append(m.Screens, screen)
		}
	}

	if nav, ok := root.object("nav"); ok {
		m.Nav = parseNav(nav)
	}

	if raw, ok := root["interactions"]; ok {
		m.Interactions = parseInteractions(raw)
		if len(m.Interactions) > 0 {
			logging.Debug("Parsed interaction mappings", zap.Int("count", len(m.Interactions)))
		}
	}

	return m, nil
}

// ParseFastOnly decodes only the fast state of a manifest document. It
// yields the same FastState as Parse for any document Parse accepts.
func ParseFastOnly(data []byte) (FastState, error) {
	root, err := decodeRoot(data)
	if err != nil {
		return FastState{}, err
	}
	fast, ok := root.object("fast")
	if !ok {
		return FastState{}, ErrMissingFast
	}
	return parseFast(fast), nil
}

// ParseSHAOnly extracts the manifest SHA. A document without a "sha" string
// yields an empty SHA, matching Parse.
func ParseSHAOnly(data []byte) (string, error) {
	root, err := decodeRoot(data)
	if err != nil {
		return "", err
	}
	return root.str("sha", MaxSHA), nil
}

func decodeRoot(data []byte) (object, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmpty
	}
	var root object
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if root == nil {
		return nil, ErrInvalidJSON
	}
	return root, nil
}

func parseFast(o object) FastState {
	fast := FastState{
		ZoneID:     o.str("zone_id", MaxZoneID),
		IsPlaying:  o.isTrue("is_playing"),
		Volume:     o.number("volume"),
		VolumeMin:  o.number("volume_min"),
		VolumeMax:  o.number("volume_max"),
		VolumeStep: 1,
		VolumeType: o.str("volume_type", MaxVolumeType),
	}
	if step, ok := o.numberOK("volume_step"); ok {
		fast.VolumeStep = step
	}
	fast.SeekPosition = int(o.number("seek_position"))
	fast.Length = int(o.number("length"))

	if t, ok := o.object("transport"); ok {
		fast.Transport = Transport{
			Play:  t.isTrue("play"),
			Pause: t.isTrue("pause"),
			Next:  t.isTrue("next"),
			Prev:  t.isTrue("prev"),
		}
	}
	return fast
}

func parseScreen(raw json.RawMessage) (Screen, bool) {
	o, ok := asObject(raw)
	if !ok {
		return Screen{}, false
	}
	kind, ok := o.strOK("type")
	if !ok {
		return Screen{}, false
	}

	s := Screen{
		ID:       o.str("id", MaxID),
		Controls: parseControls(o),
		Elements: parseElements(o),
		Encoder:  parseEncoder(o),
	}

	switch kind {
	case "media":
		s.Body = Media{
			ImageURL:        o.str("image_url", MaxURL),
			ImageKey:        o.str("image_key", MaxText),
			BackgroundColor: o.str("background_color", MaxColor),
			Lines:           parseLines(o.array("lines")),
		}
	case "list":
		s.Body = parseList(o)
	case "card":
		s.Body = Card{Lines: parseLines(o.array("lines"))}
	case "progress":
		s.Body = Progress{
			Label:    o.str("label", MaxText),
			Progress: o.number("progress"),
		}
	case "status":
		s.Body = Status{
			Message: o.str("message", MaxText),
			Icon:    o.str("icon", MaxIcon),
		}
	default:
		logging.Debug("Skipping unknown screen type", zap.String("type", kind), zap.String("id", s.ID))
		return Screen{}, false
	}
	return s, true
}

func parseLines(arr []json.RawMessage) []TextLine {
	var lines []TextLine
	for _, raw := range arr {
		if len(lines) >= MaxLines {
			break
		}
		o, _ := asObject(raw)
		line := TextLine{Text: o.str("text", MaxText), Style: StyleDetail}
		switch o.str("style", MaxID) {
		case "title":
			line.Style = StyleTitle
		case "subtitle":
			line.Style = StyleSubtitle
		}
		lines = append(lines, line)
	}
	return lines
}

func parseList(o object) List {
	list := List{Title: o.str("title", MaxText)}
	for _, raw := range o.array("items") {
		if len(list.Items) >= MaxListItems {
			break
		}
		item, _ := asObject(raw)
		list.Items = append(list.Items, ListItem{
			ID:       item.str("id", MaxID),
			Label:    item.str("label", MaxText),
			Sublabel: item.str("sublabel", MaxText),
			Selected: item.isTrue("selected"),
		})
	}
	return list
}

func parseControls(o object) []string {
	var controls []string
	for _, raw := range o.array("controls") {
		if len(controls) >= MaxControls {
			break
		}
		if s, ok := asString(raw); ok {
			controls = append(controls, Truncate(s, MaxActionLen))
		}
	}
	return controls
}

func parseElements(o object) []Element {
	arr := o.array("elements")
	if len(arr) > MaxElements {
		arr = arr[:MaxElements]
	}
	var elements []Element
	for _, raw := range arr {
		eo, ok := asObject(raw)
		if !ok {
			continue
		}
		var el Element
		if d, ok := eo.object("display"); ok {
			el.Display = Display{
				Icon:   d.str("icon", MaxIcon),
				Label:  d.str("label", MaxLabel),
				Active: d.isTrue("active"),
			}
		}
		if a, ok := eo.object("on_tap"); ok {
			action := parseAction(a)
			el.OnTap = &action
		}
		if a, ok := eo.object("on_long_press"); ok {
			action := parseAction(a)
			el.OnLongPress = &action
		}
		elements = append(elements, el)
	}
	return elements
}

func parseEncoder(o object) *Encoder {
	eo, ok := o.object("encoder")
	if !ok {
		return nil
	}
	enc := &Encoder{}
	if a, ok := eo.object("cw"); ok {
		enc.CW = parseAction(a)
	}
	if a, ok := eo.object("ccw"); ok {
		enc.CCW = parseAction(a)
	}
	if a, ok := eo.object("press"); ok {
		action := parseAction(a)
		enc.Press = &action
	}
	if a, ok := eo.object("long_press"); ok {
		action := parseAction(a)
		enc.LongPress = &action
	}
	return enc
}

func parseAction(o object) Action {
	action := Action{Name: o.str("action", MaxActionLen)}
	raw, ok := o["params"]
	if !ok || isNull(raw) {
		return action
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return action
	}
	if buf.Len() > MaxParamsJSON {
		logging.Warn("Dropping oversized action params",
			zap.String("action", action.Name),
			zap.Int("length", buf.Len()),
		)
		return action
	}
	action.Params = json.RawMessage(buf.Bytes())
	return action
}

func parseNav(o object) Nav {
	var nav Nav
	for _, raw := range o.array("order") {
		if len(nav.Order) >= MaxScreens {
			break
		}
		if s, ok := asString(raw); ok {
			nav.Order = append(nav.Order, Truncate(s, MaxID))
		}
	}
	if def, ok := o.strOK("default"); ok {
		nav.Default = Truncate(def, MaxID)
	} else if len(nav.Order) > 0 {
		nav.Default = nav.Order[0]
	}
	return nav
}

// parseInteractions walks the object with a token decoder so mappings keep
// the order the bridge sent them in.
func parseInteractions(raw json.RawMessage) Interactions {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil || tok != json.Delim('{') {
		return nil
	}

	var out Interactions
	for dec.More() && len(out) < MaxInteractions {
		keyTok, err := dec.Token()
		if err != nil {
			return out
		}
		key, _ := keyTok.(string)

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return out
		}
		if action, ok := asString(value); ok {
			out = append(out, Mapping{
				Input:  Truncate(key, MaxInputLen),
				Action: Truncate(action, MaxActionLen),
			})
		}
	}
	return out
}

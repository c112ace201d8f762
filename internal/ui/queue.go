package ui

import (
	"context"

	"go.uber.org/zap"

	"github.com/muurk/knob/internal/config"
	"github.com/muurk/knob/internal/logging"
	"github.com/muurk/knob/internal/manifest"
)

// DefaultQueueSize is the number of pending events a Queue holds.
const DefaultQueueSize = 64

// Event is one deferred call on a Sink. It captures its arguments by value.
type Event struct {
	Name  string
	apply func(Sink)
}

// Queue is a Sink that hands calls to a single consumer goroutine through a
// bounded channel. Posting never blocks; a full queue drops the event.
type Queue struct {
	events chan Event
}

// NewQueue creates a queue holding up to size events.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{events: make(chan Event, size)}
}

// Post enqueues an event, dropping it when the queue is full.
func (q *Queue) Post(ev Event) bool {
	select {
	case q.events <- ev:
		return true
	default:
		logging.Warn("UI queue full, dropping event", zap.String("event", ev.Name))
		return false
	}
}

// Len returns the number of pending events.
func (q *Queue) Len() int {
	return len(q.events)
}

// Run applies events to target until ctx is cancelled.
func (q *Queue) Run(ctx context.Context, target Sink) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-q.events:
			ev.apply(target)
		}
	}
}

// Flush applies every pending event to target without blocking and returns
// how many were applied.
func (q *Queue) Flush(target Sink) int {
	n := 0
	for {
		select {
		case ev := <-q.events:
			ev.apply(target)
			n++
		default:
			return n
		}
	}
}

func (q *Queue) SetStatus(online bool) {
	q.Post(Event{Name: "status", apply: func(s Sink) { s.SetStatus(online) }})
}

func (q *Queue) SetMessage(msg string) {
	q.Post(Event{Name: "message", apply: func(s Sink) { s.SetMessage(msg) }})
}

func (q *Queue) SetZoneName(name string) {
	q.Post(Event{Name: "zone_name", apply: func(s Sink) { s.SetZoneName(name) }})
}

func (q *Queue) SetNetworkStatus(status string) {
	q.Post(Event{Name: "network_status", apply: func(s Sink) { s.SetNetworkStatus(status) }})
}

func (q *Queue) ShowVolumeChange(volume, step float64) {
	q.Post(Event{Name: "volume", apply: func(s Sink) { s.ShowVolumeChange(volume, step) }})
}

func (q *Queue) UpdateManifest(m *manifest.Manifest) {
	if m == nil {
		return
	}
	q.Post(Event{Name: "manifest", apply: func(s Sink) { s.UpdateManifest(m) }})
}

func (q *Queue) UpdateNowPlaying(line1, line2 string) {
	q.Post(Event{Name: "now_playing", apply: func(s Sink) { s.UpdateNowPlaying(line1, line2) }})
}

func (q *Queue) SetArtwork(url string) {
	q.Post(Event{Name: "artwork", apply: func(s Sink) { s.SetArtwork(url) }})
}

func (q *Queue) ShowZonePicker(p Picker) {
	p.Entries = append([]PickerEntry(nil), p.Entries...)
	q.Post(Event{Name: "zone_picker", apply: func(s Sink) { s.ShowZonePicker(p) }})
}

func (q *Queue) HideZonePicker() {
	q.Post(Event{Name: "hide_zone_picker", apply: func(s Sink) { s.HideZonePicker() }})
}

func (q *Queue) ShowSettings() {
	q.Post(Event{Name: "settings", apply: func(s Sink) { s.ShowSettings() }})
}

func (q *Queue) ApplyKnobConfig(k config.Knob, charging bool) {
	q.Post(Event{Name: "knob_config", apply: func(s Sink) { s.ApplyKnobConfig(k, charging) }})
}

var _ Sink = (*Queue)(nil)

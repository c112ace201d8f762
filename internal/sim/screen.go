package sim

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/knob/internal/config"
	"github.com/muurk/knob/internal/manifest"
	"github.com/muurk/knob/internal/ui"
)

// MessageTimeout is how long a transient message stays on screen.
const MessageTimeout = 3 * time.Second

// Screen is the simulated knob display. It implements ui.Sink and is only
// touched from the bubbletea update goroutine.
type Screen struct {
	Online   bool
	Zone     string
	Banner   string
	Message  string
	Volume   float64
	Manifest *manifest.Manifest
	Lines    [2]string
	Artwork  string
	Picker   *ui.Picker
	Settings bool
	Knob     config.Knob
	Charging bool

	volumeMin, volumeMax float64
	messageAt            time.Time
	now                  func() time.Time
}

// NewScreen returns an empty display.
func NewScreen() *Screen {
	return &Screen{
		Knob:      config.DefaultKnob(),
		Charging:  true,
		volumeMin: -80,
		now:       time.Now,
	}
}

func (s *Screen) SetStatus(online bool) { s.Online = online }

func (s *Screen) SetMessage(msg string) {
	s.Message = msg
	s.messageAt = s.now()
}

func (s *Screen) SetZoneName(name string)        { s.Zone = name }
func (s *Screen) SetNetworkStatus(status string) { s.Banner = status }

func (s *Screen) ShowVolumeChange(volume, step float64) {
	s.Volume = volume
}

func (s *Screen) UpdateManifest(m *manifest.Manifest) {
	s.Volume = m.Fast.Volume
	s.volumeMin, s.volumeMax = m.Fast.VolumeMin, m.Fast.VolumeMax
	if len(m.Screens) == 0 && s.Manifest != nil {
		// Fast-only updates keep the screens already shown.
		cp := *s.Manifest
		cp.Fast = m.Fast
		s.Manifest = &cp
		return
	}
	s.Manifest = m
}

func (s *Screen) UpdateNowPlaying(line1, line2 string) {
	s.Lines = [2]string{line1, line2}
}

func (s *Screen) SetArtwork(url string) { s.Artwork = url }

func (s *Screen) ShowZonePicker(p ui.Picker) { s.Picker = &p }
func (s *Screen) HideZonePicker()            { s.Picker = nil }
func (s *Screen) ShowSettings()              { s.Settings = true }

func (s *Screen) ApplyKnobConfig(k config.Knob, charging bool) {
	s.Knob = k
	s.Charging = charging
}

// Expire clears a transient message once it has been shown long enough.
func (s *Screen) Expire() {
	if s.Message != "" && s.now().Sub(s.messageAt) >= MessageTimeout {
		s.Message = ""
	}
}

// VolumeFraction maps the volume onto 0..1 for the volume bar.
func (s *Screen) VolumeFraction() float64 {
	span := s.volumeMax - s.volumeMin
	if span <= 0 {
		return 0
	}
	f := (s.Volume - s.volumeMin) / span
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

var (
	titleStyle    = lipgloss.NewStyle().Foreground(ui.TextColor).Bold(true)
	subtitleStyle = lipgloss.NewStyle().Foreground(ui.TextColor)
	messageStyle  = lipgloss.NewStyle().Foreground(ui.WarningColor).Italic(true)
)

// Render draws the display for the given current screen id.
func (s *Screen) Render(current string, width int, bar progress.Model) string {
	var b strings.Builder

	marker := lipgloss.NewStyle().Foreground(ui.ErrorColor).Render(ui.OfflineMarker)
	if s.Online {
		marker = lipgloss.NewStyle().Foreground(ui.SuccessColor).Render(ui.OnlineMarker)
	}
	name := s.Knob.Name
	if name == "" {
		name = "knob"
	}
	power := "battery"
	if s.Charging {
		power = "charging"
	}
	fmt.Fprintf(&b, "%s %s  %s\n", marker, titleStyle.Render(name), ui.MutedStyle.Render(power))
	b.WriteString(subtitleStyle.Render(s.Zone) + "\n")
	if s.Banner != "" {
		b.WriteString(ui.BannerStyle.Render(s.Banner) + "\n")
	}
	b.WriteString(ui.RenderHorizontalDivider(width, "─") + "\n")

	switch {
	case s.Settings:
		b.WriteString(s.renderSettings())
	case s.Picker != nil:
		b.WriteString(renderPicker(*s.Picker))
	default:
		b.WriteString(s.renderBody(current, bar))
	}

	b.WriteString("\n")
	bar.Width = width - 12
	fmt.Fprintf(&b, "vol %s %g\n", bar.ViewAs(s.VolumeFraction()), s.Volume)
	if s.Message != "" {
		b.WriteString(messageStyle.Render(s.Message) + "\n")
	}
	return b.String()
}

func (s *Screen) renderBody(current string, bar progress.Model) string {
	if s.Manifest == nil || len(s.Manifest.Screens) == 0 {
		if s.Lines == [2]string{} {
			return ui.MutedStyle.Render("waiting for bridge...") + "\n"
		}
		out := titleStyle.Render(s.Lines[1]) + "\n" + subtitleStyle.Render(s.Lines[0]) + "\n"
		if s.Artwork != "" {
			out += ui.MutedStyle.Render("art: "+s.Artwork) + "\n"
		}
		return out
	}

	screen, ok := s.Manifest.Screen(current)
	if !ok {
		screen = &s.Manifest.Screens[0]
	}

	var b strings.Builder
	switch body := screen.Body.(type) {
	case manifest.Media:
		writeLines(&b, body.Lines)
		if s.Artwork != "" {
			b.WriteString(ui.MutedStyle.Render("art: "+s.Artwork) + "\n")
		}
		state := "paused"
		if s.Manifest.Fast.IsPlaying {
			state = "playing"
		}
		b.WriteString(ui.MutedStyle.Render(state) + "\n")
	case manifest.List:
		b.WriteString(titleStyle.Render(body.Title) + "\n")
		for _, item := range body.Items {
			line := "  " + item.Label
			if item.Selected {
				line = ui.SelectedStyle.Render("> " + item.Label)
			}
			b.WriteString(line + "\n")
		}
	case manifest.Card:
		writeLines(&b, body.Lines)
	case manifest.Progress:
		b.WriteString(subtitleStyle.Render(body.Label) + "\n")
		b.WriteString(bar.ViewAs(body.Progress) + "\n")
	case manifest.Status:
		fmt.Fprintf(&b, "[%s] %s\n", body.Icon, body.Message)
	}

	for i, el := range screen.Elements {
		label := el.Display.Label
		if label == "" {
			label = el.Display.Icon
		}
		fmt.Fprintf(&b, "%s ", ui.MutedStyle.Render(fmt.Sprintf("[%d:%s]", i+1, label)))
	}
	if len(screen.Elements) > 0 {
		b.WriteString("\n")
	}
	return b.String()
}

func writeLines(b *strings.Builder, lines []manifest.TextLine) {
	for _, l := range lines {
		switch l.Style {
		case manifest.StyleTitle:
			b.WriteString(titleStyle.Render(l.Text))
		case manifest.StyleSubtitle:
			b.WriteString(subtitleStyle.Render(l.Text))
		default:
			b.WriteString(ui.MutedStyle.Render(l.Text))
		}
		b.WriteString("\n")
	}
}

func renderPicker(p ui.Picker) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Zones") + "\n")
	for i, e := range p.Entries {
		if i == p.Selected {
			b.WriteString(ui.SelectedStyle.Render("> "+e.Name) + "\n")
			continue
		}
		b.WriteString("  " + e.Name + "\n")
	}
	return b.String()
}

func (s *Screen) renderSettings() string {
	t := s.Knob.Timeouts(s.Charging)
	var b strings.Builder
	b.WriteString(titleStyle.Render("Settings") + "\n")
	fmt.Fprintf(&b, "rotation   %d\n", s.Knob.Rotation(s.Charging))
	fmt.Fprintf(&b, "art mode   %s\n", timeout(t.ArtMode))
	fmt.Fprintf(&b, "dim        %s\n", timeout(t.Dim))
	fmt.Fprintf(&b, "sleep      %s\n", timeout(t.Sleep))
	fmt.Fprintf(&b, "deep sleep %s\n", timeout(t.DeepSleep))
	b.WriteString(ui.MutedStyle.Render("esc to close") + "\n")
	return b.String()
}

func timeout(t config.Timeout) string {
	if !t.Enabled {
		return "off"
	}
	return (time.Duration(t.TimeoutSec) * time.Second).String()
}

var _ ui.Sink = (*Screen)(nil)

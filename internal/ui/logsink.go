package ui

import (
	"go.uber.org/zap"

	"github.com/muurk/knob/internal/config"
	"github.com/muurk/knob/internal/manifest"
)

// LogSink is a headless Sink that writes every update to a zap logger.
type LogSink struct {
	log *zap.Logger
}

// NewLogSink creates a sink logging through l. A nil logger discards.
func NewLogSink(l *zap.Logger) *LogSink {
	if l == nil {
		l = zap.NewNop()
	}
	return &LogSink{log: l}
}

func (s *LogSink) SetStatus(online bool) {
	s.log.Debug("Bridge status", zap.Bool("online", online))
}

func (s *LogSink) SetMessage(msg string) {
	s.log.Info("Message", zap.String("text", msg))
}

func (s *LogSink) SetZoneName(name string) {
	s.log.Info("Zone", zap.String("name", name))
}

func (s *LogSink) SetNetworkStatus(status string) {
	if status == "" {
		s.log.Info("Network status cleared")
		return
	}
	s.log.Info("Network status", zap.String("text", status))
}

func (s *LogSink) ShowVolumeChange(volume, step float64) {
	s.log.Info("Volume", zap.Float64("volume", volume), zap.Float64("step", step))
}

func (s *LogSink) UpdateManifest(m *manifest.Manifest) {
	fields := []zap.Field{
		zap.String("sha", m.SHA),
		zap.Bool("playing", m.Fast.IsPlaying),
		zap.Float64("volume", m.Fast.Volume),
		zap.Int("screens", len(m.Screens)),
	}
	if len(m.Screens) == 0 {
		s.log.Debug("Fast state", fields...)
		return
	}
	s.log.Info("Manifest", fields...)
}

func (s *LogSink) UpdateNowPlaying(line1, line2 string) {
	s.log.Info("Now playing", zap.String("line1", line1), zap.String("line2", line2))
}

func (s *LogSink) SetArtwork(url string) {
	s.log.Debug("Artwork", zap.String("url", url))
}

func (s *LogSink) ShowZonePicker(p Picker) {
	s.log.Info("Zone picker", zap.Int("entries", len(p.Entries)), zap.Int("selected", p.Selected))
}

func (s *LogSink) HideZonePicker() {
	s.log.Debug("Zone picker hidden")
}

func (s *LogSink) ShowSettings() {
	s.log.Info("Settings requested")
}

func (s *LogSink) ApplyKnobConfig(k config.Knob, charging bool) {
	s.log.Info("Knob config",
		zap.String("name", k.Name),
		zap.Int("rotation", k.Rotation(charging)),
		zap.Bool("charging", charging),
	)
}

var _ Sink = (*LogSink)(nil)

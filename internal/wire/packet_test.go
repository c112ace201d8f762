package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/muurk/knob/internal/manifest"
)

func TestRequestLayout(t *testing.T) {
	buf, err := Request{SHA: "a1b2c3d4", ZoneID: "zone-1"}.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary() error = %v", err)
	}
	if len(buf) != RequestSize {
		t.Fatalf("len = %d, want %d", len(buf), RequestSize)
	}
	if got := binary.LittleEndian.Uint16(buf[0:2]); got != Magic {
		t.Errorf("magic = 0x%04x, want 0x%04x", got, Magic)
	}
	if buf[0] != 'K' || buf[1] != 'R' {
		t.Errorf("magic bytes = %q, want KR", buf[0:2])
	}
	if !bytes.HasPrefix(buf[2:], []byte("a1b2c3d4\x00")) {
		t.Errorf("sha field = %q", buf[2:22])
	}
	if !bytes.HasPrefix(buf[22:], []byte("zone-1\x00")) {
		t.Errorf("zone field = %q", buf[22:])
	}

	var back Request
	if err := back.UnmarshalBinary(buf); err != nil {
		t.Fatalf("UnmarshalBinary() error = %v", err)
	}
	if back.SHA != "a1b2c3d4" || back.ZoneID != "zone-1" {
		t.Errorf("decoded = %+v", back)
	}
}

func TestRequestTruncatesZone(t *testing.T) {
	buf, _ := Request{ZoneID: strings.Repeat("z", 100)}.MarshalBinary()
	if buf[RequestSize-1] != 0 {
		t.Error("zone field must stay NUL-terminated")
	}
	var back Request
	if err := back.UnmarshalBinary(buf); err != nil {
		t.Fatalf("UnmarshalBinary() error = %v", err)
	}
	if len(back.ZoneID) != zoneField-1 {
		t.Errorf("len(ZoneID) = %d, want %d", len(back.ZoneID), zoneField-1)
	}
}

func TestDiscoveryProbeIsEmpty(t *testing.T) {
	buf, _ := Request{}.MarshalBinary()
	for i, b := range buf[2:] {
		if b != 0 {
			t.Fatalf("byte %d = 0x%02x, want 0", i+2, b)
		}
	}
}

func TestResponseRoundTrip(t *testing.T) {
	in := Response{
		Flags:        FlagPlaying | FlagPauseOK | FlagNextOK,
		SHA:          "deadbeef",
		Volume:       -20,
		VolumeMin:    -80,
		VolumeMax:    0,
		VolumeStep:   0.5,
		SeekPosition: -1,
		Length:       0,
	}
	buf, _ := in.MarshalBinary()
	if len(buf) != ResponseSize {
		t.Fatalf("len = %d, want %d", len(buf), ResponseSize)
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(buf[24:28])); got != -20 {
		t.Errorf("volume at offset 24 = %v, want -20", got)
	}
	if got := int32(binary.LittleEndian.Uint32(buf[40:44])); got != -1 {
		t.Errorf("seek at offset 40 = %d, want -1", got)
	}

	var out Response
	if err := out.UnmarshalBinary(buf); err != nil {
		t.Fatalf("UnmarshalBinary() error = %v", err)
	}
	if out != in {
		t.Errorf("decoded = %+v, want %+v", out, in)
	}
}

func TestResponseValidation(t *testing.T) {
	good, _ := Response{SHA: "x"}.MarshalBinary()

	badMagic := append([]byte(nil), good...)
	badMagic[0] = 0xFF

	badVersion := append([]byte(nil), good...)
	badVersion[2] = 2

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"short", good[:47], ErrShortPacket},
		{"long", append(append([]byte(nil), good...), 0), ErrShortPacket},
		{"bad magic", badMagic, ErrBadMagic},
		{"bad version", badVersion, ErrBadVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r Response
			if err := r.UnmarshalBinary(tt.data); !errors.Is(err, tt.want) {
				t.Errorf("UnmarshalBinary() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestResponseFastState(t *testing.T) {
	r := Response{
		Flags:        FlagPlaying | FlagPlayOK | FlagPrevOK,
		SHA:          "0123456789ab",
		Volume:       42,
		VolumeMin:    0,
		VolumeMax:    100,
		VolumeStep:   2,
		SeekPosition: 17,
		Length:       240,
	}
	want := manifest.FastState{
		IsPlaying:    true,
		Volume:       42,
		VolumeMin:    0,
		VolumeMax:    100,
		VolumeStep:   2,
		SeekPosition: 17,
		Length:       240,
		Transport:    manifest.Transport{Play: true, Prev: true},
	}
	if got := r.FastState(); got != want {
		t.Errorf("FastState() = %+v, want %+v", got, want)
	}
	if got := r.ManifestSHA(); got != "01234567" {
		t.Errorf("ManifestSHA() = %q, want 01234567", got)
	}
}

func TestCommandLayout(t *testing.T) {
	buf, _ := Command{Cmd: CmdVolumeSet, ZoneID: "zone-1", Value: -23}.MarshalBinary()
	if len(buf) != CommandSize {
		t.Fatalf("len = %d, want %d", len(buf), CommandSize)
	}
	if buf[2] != 5 || buf[3] != 0 {
		t.Errorf("cmd/pad = %d/%d, want 5/0", buf[2], buf[3])
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(buf[68:72])); got != -23 {
		t.Errorf("value = %v, want -23", got)
	}

	var back Command
	if err := back.UnmarshalBinary(buf); err != nil {
		t.Fatalf("UnmarshalBinary() error = %v", err)
	}
	if back.Cmd != CmdVolumeSet || back.ZoneID != "zone-1" || back.Value != -23 {
		t.Errorf("decoded = %+v", back)
	}
	if CmdVolumeSet.String() != "volume_set" {
		t.Errorf("String() = %q", CmdVolumeSet.String())
	}
}

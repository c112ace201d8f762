package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/muurk/knob/internal/manifest"
)

// Fast path constants
const (
	Magic   = 0x524B // "KR" on the wire
	Version = 1

	// PortOffset is added to the bridge HTTP port to get the UDP port.
	PortOffset = 1

	RequestSize  = 86
	ResponseSize = 48
	CommandSize  = 72

	shaField  = 20
	zoneField = 64
)

// Response flag bits
const (
	FlagPlaying = 1 << iota
	FlagPlayOK
	FlagPauseOK
	FlagNextOK
	FlagPrevOK
)

// Cmd is a fast path command code.
type Cmd uint8

const (
	CmdPlayPause Cmd = 1
	CmdNext      Cmd = 2
	CmdPrev      Cmd = 3
	CmdStop      Cmd = 4
	CmdVolumeSet Cmd = 5
)

func (c Cmd) String() string {
	switch c {
	case CmdPlayPause:
		return "play_pause"
	case CmdNext:
		return "next"
	case CmdPrev:
		return "prev"
	case CmdStop:
		return "stop"
	case CmdVolumeSet:
		return "volume_set"
	default:
		return fmt.Sprintf("cmd(%d)", uint8(c))
	}
}

var (
	ErrShortPacket = errors.New("wire: wrong packet size")
	ErrBadMagic    = errors.New("wire: bad magic")
	ErrBadVersion  = errors.New("wire: unsupported version")
)

// Request asks the bridge for the fast state of a zone.
//
// Layout (86 bytes, little-endian):
//
//	[0-1]    magic    0x524B
//	[2-21]   sha      cached manifest SHA, NUL-terminated
//	[22-85]  zone_id  NUL-terminated
//
// A request with both fields empty is a discovery probe.
type Request struct {
	SHA    string
	ZoneID string
}

// MarshalBinary encodes the request.
func (r Request) MarshalBinary() ([]byte, error) {
	buf := make([]byte, RequestSize)
	binary.LittleEndian.PutUint16(buf[0:2], Magic)
	putString(buf[2:2+shaField], r.SHA)
	putString(buf[22:22+zoneField], r.ZoneID)
	return buf, nil
}

// UnmarshalBinary decodes a request. The bridge side of the protocol uses it,
// and so do tests.
func (r *Request) UnmarshalBinary(data []byte) error {
	if len(data) != RequestSize {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrShortPacket, len(data), RequestSize)
	}
	if binary.LittleEndian.Uint16(data[0:2]) != Magic {
		return ErrBadMagic
	}
	r.SHA = getString(data[2 : 2+shaField])
	r.ZoneID = getString(data[22 : 22+zoneField])
	return nil
}

// Response carries the fast state of a zone.
//
// Layout (48 bytes, little-endian):
//
//	[0-1]    magic          0x524B
//	[2]      version        1
//	[3]      flags          bit0 playing, bit1 play_ok, bit2 pause_ok,
//	                        bit3 next_ok, bit4 prev_ok
//	[4-23]   sha            NUL-terminated
//	[24-27]  volume         f32
//	[28-31]  volume_min     f32
//	[32-35]  volume_max     f32
//	[36-39]  volume_step    f32
//	[40-43]  seek_position  i32, -1 when unknown
//	[44-47]  length         u32, 0 when unknown
type Response struct {
	Flags        uint8
	SHA          string
	Volume       float32
	VolumeMin    float32
	VolumeMax    float32
	VolumeStep   float32
	SeekPosition int32
	Length       uint32
}

// MarshalBinary encodes the response.
func (r Response) MarshalBinary() ([]byte, error) {
	buf := make([]byte, ResponseSize)
	binary.LittleEndian.PutUint16(buf[0:2], Magic)
	buf[2] = Version
	buf[3] = r.Flags
	putString(buf[4:4+shaField], r.SHA)
	binary.LittleEndian.PutUint32(buf[24:28], math.Float32bits(r.Volume))
	binary.LittleEndian.PutUint32(buf[28:32], math.Float32bits(r.VolumeMin))
	binary.LittleEndian.PutUint32(buf[32:36], math.Float32bits(r.VolumeMax))
	binary.LittleEndian.PutUint32(buf[36:40], math.Float32bits(r.VolumeStep))
	binary.LittleEndian.PutUint32(buf[40:44], uint32(r.SeekPosition))
	binary.LittleEndian.PutUint32(buf[44:48], r.Length)
	return buf, nil
}

// UnmarshalBinary decodes and validates a response.
func (r *Response) UnmarshalBinary(data []byte) error {
	if len(data) != ResponseSize {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrShortPacket, len(data), ResponseSize)
	}
	if magic := binary.LittleEndian.Uint16(data[0:2]); magic != Magic {
		return fmt.Errorf("%w: 0x%04x", ErrBadMagic, magic)
	}
	if data[2] != Version {
		return fmt.Errorf("%w: %d", ErrBadVersion, data[2])
	}
	r.Flags = data[3]
	r.SHA = getString(data[4 : 4+shaField])
	r.Volume = math.Float32frombits(binary.LittleEndian.Uint32(data[24:28]))
	r.VolumeMin = math.Float32frombits(binary.LittleEndian.Uint32(data[28:32]))
	r.VolumeMax = math.Float32frombits(binary.LittleEndian.Uint32(data[32:36]))
	r.VolumeStep = math.Float32frombits(binary.LittleEndian.Uint32(data[36:40]))
	r.SeekPosition = int32(binary.LittleEndian.Uint32(data[40:44]))
	r.Length = binary.LittleEndian.Uint32(data[44:48])
	return nil
}

// ManifestSHA returns the SHA cut to the length manifests use.
func (r *Response) ManifestSHA() string {
	return manifest.Truncate(r.SHA, manifest.MaxSHA)
}

// FastState converts the response into manifest fast state.
func (r *Response) FastState() manifest.FastState {
	return manifest.FastState{
		IsPlaying:    r.Flags&FlagPlaying != 0,
		Volume:       float64(r.Volume),
		VolumeMin:    float64(r.VolumeMin),
		VolumeMax:    float64(r.VolumeMax),
		VolumeStep:   float64(r.VolumeStep),
		SeekPosition: int(r.SeekPosition),
		Length:       int(r.Length),
		Transport: manifest.Transport{
			Play:  r.Flags&FlagPlayOK != 0,
			Pause: r.Flags&FlagPauseOK != 0,
			Next:  r.Flags&FlagNextOK != 0,
			Prev:  r.Flags&FlagPrevOK != 0,
		},
	}
}

// Command is a fire-and-forget control message.
//
// Layout (72 bytes, little-endian):
//
//	[0-1]    magic    0x524B
//	[2]      cmd      see Cmd
//	[3]      pad
//	[4-67]   zone_id  NUL-terminated
//	[68-71]  value    f32, used by CmdVolumeSet
type Command struct {
	Cmd    Cmd
	ZoneID string
	Value  float32
}

// MarshalBinary encodes the command.
func (c Command) MarshalBinary() ([]byte, error) {
	buf := make([]byte, CommandSize)
	binary.LittleEndian.PutUint16(buf[0:2], Magic)
	buf[2] = byte(c.Cmd)
	putString(buf[4:4+zoneField], c.ZoneID)
	binary.LittleEndian.PutUint32(buf[68:72], math.Float32bits(c.Value))
	return buf, nil
}

// UnmarshalBinary decodes a command.
func (c *Command) UnmarshalBinary(data []byte) error {
	if len(data) != CommandSize {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrShortPacket, len(data), CommandSize)
	}
	if binary.LittleEndian.Uint16(data[0:2]) != Magic {
		return ErrBadMagic
	}
	c.Cmd = Cmd(data[2])
	c.ZoneID = getString(data[4 : 4+zoneField])
	c.Value = math.Float32frombits(binary.LittleEndian.Uint32(data[68:72]))
	return nil
}

// putString copies s into a fixed field, always leaving room for the NUL.
func putString(field []byte, s string) {
	copy(field, manifest.Truncate(s, len(field)-1))
}

func getString(field []byte) string {
	for i, b := range field {
		if b == 0 {
			return string(field[:i])
		}
	}
	return string(field)
}

// Package wire implements the fixed-layout binary packets of the UDP fast
// path between a knob and its bridge.
//
// All packets are little-endian and start with the magic 0x524B. The fast
// path listens on the bridge HTTP port plus one. Strings are stored in fixed
// fields and are always NUL-terminated; longer values are truncated.
package wire

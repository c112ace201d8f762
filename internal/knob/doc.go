// Package knob is the protocol engine of the knob.
//
// A Controller owns the device state machine, the poll loop that keeps the
// knob in sync with its bridge, and the dispatcher that turns physical inputs
// into bridge actions.
//
// # Polling
//
// Each poll first tries the UDP fast path. When the bridge reports the same
// manifest SHA the knob already holds, a fast-only manifest is built from the
// UDP reply without touching HTTP. A changed SHA, a timeout or a malformed
// reply falls back to GET /knob/manifest in the same poll.
//
// # Inputs
//
// Inputs are resolved in a fixed order and the first match wins: the zone
// picker, the current screen's encoder, a tapped element, the menu, the
// legacy interactions map and finally the built-in default for the input.
//
// Volume changes are predicted locally. The predicted value is shown at once
// and sent as an absolute volume; a failed send is reported but not rolled
// back, since the next poll carries the bridge's value.
package knob

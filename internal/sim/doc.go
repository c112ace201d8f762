// Package sim is a terminal simulator for the knob display.
//
// The controller posts display updates to a ui.Queue. Every SampleWindow the
// simulator drains the queue onto its Screen from the bubbletea update
// goroutine, so the Screen never needs locking. Arrow keys stand in for the
// rotary encoder and are sent to the controller as one burst per window,
// which is how the device firmware samples the encoder.
//
// Key bindings:
//
//	→ ↑ k      turn clockwise
//	← ↓ j      turn counter-clockwise
//	enter      press
//	L          long press
//	m          zone picker
//	1-6        tap element
//	alt+1-6    long-tap element
//	tab        next screen
//	c s        toggle charging, toggle display sleep
package sim

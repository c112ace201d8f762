// Package manifest models and parses the bridge's /knob/manifest document.
//
// A manifest has two halves. The fast state (volume, transport flags, seek
// position) changes on every poll. The screens, navigation and interaction
// map change rarely and are identified by a short SHA. Clients send the SHA
// they hold so the bridge, or the UDP fast path, can skip the slow half.
//
// Parsing is tolerant: values of the wrong JSON type are ignored and every
// string and list is bounded by the limits in this package. Only a missing
// "fast" object rejects a document.
package manifest

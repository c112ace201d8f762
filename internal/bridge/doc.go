// Package bridge provides an HTTP client for the knob bridge.
//
// The bridge serves everything the knob displays: the screen manifest, the
// list of zones, legacy now-playing state, per-knob display settings and
// artwork. Control requests (play/pause, volume, custom actions) are posted
// back to it. Every request carries the X-Knob-Id and X-Knob-Version headers.
//
// # Usage Example
//
//	client := bridge.NewClient("http://192.168.1.10:8088", "a1b2c3", version.Version)
//
//	zones, err := client.Zones(ctx)
//	if err != nil {
//	    return err
//	}
//
//	m, err := client.FetchManifest(ctx, zones[0].ID, "")
//	if err != nil {
//	    fmt.Println(bridge.ShortMessage(err))
//	}
//
// # Errors
//
// All failures are returned as *Error, classified into network, HTTP,
// parse and bridge-reported categories. The client performs no retries.
package bridge

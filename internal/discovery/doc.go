// Package discovery locates the knob bridge on the local network.
//
// A knob with no configured bridge tries, in order:
//  1. A UDP broadcast on the fast path port; the first valid reply's source
//     address becomes the bridge
//  2. An mDNS browse for the bridge service ("_roonknob._tcp" by default),
//     preferring a non-loopback IPv4 address and falling back to the
//     service's "base" TXT record
//  3. A static fallback URL, used for the current session only
//
// Bridges found by broadcast or mDNS are marked as automatically discovered
// so that roaming to another network clears them again.
//
// # Usage Example
//
//	resolver := discovery.NewResolver(fastpath.New(), discovery.NewScanner())
//	result, ok := resolver.Resolve(ctx, "")
//	if ok {
//	    fmt.Println("bridge at", result.BaseURL, "via", result.Method)
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - The bridge must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353) and the fast path port
package discovery

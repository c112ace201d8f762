package discovery

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Bridge represents a bridge found by mDNS
type Bridge struct {
	// Instance is the advertised service instance name
	Instance string

	// Hostname is the mDNS hostname (e.g., "nas.local.")
	Hostname string

	// IP is the selected address (IPv4 preferred)
	IP string

	// Port is the HTTP port (typically 8088)
	Port int

	// Metadata contains the mDNS TXT record data
	// Common fields: "base=http://nas:8088"
	Metadata map[string]string

	// DiscoveredAt is when the bridge was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the bridge
func (b *Bridge) String() string {
	return fmt.Sprintf("Bridge %q (%s) at %s", b.Instance, b.Hostname, b.BaseURL())
}

// BaseURL returns the HTTP base URL for the bridge. An address from the
// browse wins over the advertised "base" TXT record.
func (b *Bridge) BaseURL() string {
	if b.IP != "" && b.Port > 0 {
		return "http://" + net.JoinHostPort(b.IP, strconv.Itoa(b.Port))
	}
	return NormalizeBaseURL(b.GetMetadata("base"))
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (b *Bridge) GetMetadata(key string) string {
	if b.Metadata == nil {
		return ""
	}
	return b.Metadata[key]
}

// NormalizeBaseURL trims whitespace and trailing slashes.
func NormalizeBaseURL(u string) string {
	return strings.TrimRight(strings.TrimSpace(u), "/")
}

// HostIsValid reports whether a base URL names a host. IPs and names such
// as "bridge.localdomain" both qualify.
func HostIsValid(u string) bool {
	if u == "" {
		return false
	}
	host := u
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	end := strings.IndexAny(host, ":/")
	if end < 0 {
		end = len(host)
	}
	return end > 0
}

// BaseURLForIP builds a base URL from an address and HTTP port.
func BaseURLForIP(ip net.IP, port int) string {
	return "http://" + net.JoinHostPort(ip.String(), strconv.Itoa(port))
}

package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/knob/internal/logging"
)

const (
	// DefaultService is the mDNS service type bridges advertise
	DefaultService = "_roonknob._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for a browse
	DefaultScanTimeout = 3 * time.Second

	// DefaultPort is the bridge HTTP port when an entry carries none
	DefaultPort = 8088
)

// ErrNoBridge is returned when a browse ends without a usable bridge.
var ErrNoBridge = errors.New("discovery: no bridge found")

// Scanner handles mDNS bridge discovery
type Scanner struct {
	// Timeout is the maximum time to wait for bridge discovery
	Timeout time.Duration

	// Service is the mDNS service type to browse
	Service string
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
		Service: DefaultService,
	}
}

// Scan collects every bridge advertised until the timeout.
func (s *Scanner) Scan(ctx context.Context) ([]*Bridge, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	var (
		mu      sync.Mutex
		bridges []*Bridge
	)

	go func() {
		for entry := range entries {
			if b := s.parseServiceEntry(entry); b != nil {
				mu.Lock()
				bridges = append(bridges, b)
				mu.Unlock()
			}
		}
	}()

	if err := resolver.Browse(ctx, s.service(), ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	return append([]*Bridge(nil), bridges...), nil
}

// FindBridge returns the first advertised bridge with a usable base URL.
func (s *Scanner) FindBridge(ctx context.Context) (*Bridge, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	found := make(chan *Bridge, 1)

	go func() {
		for entry := range entries {
			b := s.parseServiceEntry(entry)
			if b == nil || !HostIsValid(b.BaseURL()) {
				continue
			}
			select {
			case found <- b:
				cancel()
			default:
			}
		}
	}()

	if err := resolver.Browse(ctx, s.service(), ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	select {
	case b := <-found:
		logging.Debug("mDNS found bridge", zap.String("bridge", b.String()))
		return b, nil
	case <-ctx.Done():
		// The browse may have delivered just as the deadline hit.
		select {
		case b := <-found:
			return b, nil
		default:
		}
		return nil, ErrNoBridge
	}
}

// parseServiceEntry converts a zeroconf service entry to a Bridge.
// Returns nil if the entry offers neither an address nor a "base" record.
func (s *Scanner) parseServiceEntry(entry *zeroconf.ServiceEntry) *Bridge {
	if entry == nil {
		return nil
	}

	// Prefer a non-loopback IPv4 address; bridges may advertise 127.0.0.1
	// alongside their real addresses.
	var ip string
	for _, addr := range entry.AddrIPv4 {
		if addr.IsLoopback() {
			continue
		}
		ip = addr.String()
		break
	}
	if ip == "" {
		for _, addr := range entry.AddrIPv6 {
			if addr.IsLoopback() {
				continue
			}
			ip = addr.String()
			break
		}
	}

	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			metadata[parts[0]] = ""
		}
	}

	if ip == "" && metadata["base"] == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	return &Bridge{
		Instance:     entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

func (s *Scanner) timeout() time.Duration {
	if s.Timeout <= 0 {
		return DefaultScanTimeout
	}
	return s.Timeout
}

func (s *Scanner) service() string {
	if s.Service == "" {
		return DefaultService
	}
	return s.Service
}

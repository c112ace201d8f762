package discovery

import (
	"context"
	"net"

	"go.uber.org/zap"

	"github.com/muurk/knob/internal/logging"
)

// Method names how a bridge base URL was obtained.
type Method int

const (
	MethodNone Method = iota
	MethodConfigured
	MethodBroadcast
	MethodMDNS
	MethodFallback
)

func (m Method) String() string {
	switch m {
	case MethodConfigured:
		return "configured"
	case MethodBroadcast:
		return "broadcast"
	case MethodMDNS:
		return "mdns"
	case MethodFallback:
		return "fallback"
	default:
		return "none"
	}
}

// Broadcaster finds a bridge by UDP broadcast.
type Broadcaster interface {
	Broadcast(ctx context.Context, httpPort int) (net.IP, error)
}

// Browser finds a bridge by mDNS.
type Browser interface {
	FindBridge(ctx context.Context) (*Bridge, error)
}

// Result is the outcome of one resolve pass.
type Result struct {
	BaseURL string
	Method  Method

	// FromMDNS marks an automatically discovered bridge.
	FromMDNS bool

	// Persist is false for the static fallback, which must not be saved.
	Persist bool
}

// Resolver runs the discovery chain. Nil legs are skipped.
type Resolver struct {
	Broadcaster Broadcaster
	Browser     Browser

	// HTTPPort is the bridge port assumed for broadcast replies.
	HTTPPort int

	// Fallback is used for the session when both legs fail. Empty disables it.
	Fallback string
}

// NewResolver creates a resolver with the default bridge port.
func NewResolver(b Broadcaster, m Browser) *Resolver {
	return &Resolver{
		Broadcaster: b,
		Browser:     m,
		HTTPPort:    DefaultPort,
	}
}

// Resolve returns the bridge to use. A non-empty current URL is returned
// unchanged. ok is false when every leg failed and no fallback is set.
func (r *Resolver) Resolve(ctx context.Context, current string) (Result, bool) {
	if current = NormalizeBaseURL(current); current != "" {
		return Result{BaseURL: current, Method: MethodConfigured, Persist: true}, true
	}

	if r.Broadcaster != nil {
		ip, err := r.Broadcaster.Broadcast(ctx, r.port())
		if err == nil && ip != nil {
			base := BaseURLForIP(ip, r.port())
			logging.Info("Bridge found by broadcast", zap.String("base_url", base))
			return Result{BaseURL: base, Method: MethodBroadcast, FromMDNS: true, Persist: true}, true
		}
		logging.Debug("Broadcast discovery failed", zap.Error(err))
	}

	if r.Browser != nil && ctx.Err() == nil {
		b, err := r.Browser.FindBridge(ctx)
		if err == nil && b != nil {
			if base := b.BaseURL(); HostIsValid(base) {
				logging.Info("Bridge found by mDNS", zap.String("base_url", base))
				return Result{BaseURL: base, Method: MethodMDNS, FromMDNS: true, Persist: true}, true
			}
		}
		logging.Debug("mDNS discovery failed", zap.Error(err))
	}

	if fb := NormalizeBaseURL(r.Fallback); fb != "" {
		logging.Info("Discovery failed, using fallback", zap.String("base_url", fb))
		return Result{BaseURL: fb, Method: MethodFallback}, true
	}

	return Result{Method: MethodNone}, false
}

func (r *Resolver) port() int {
	if r.HTTPPort <= 0 {
		return DefaultPort
	}
	return r.HTTPPort
}

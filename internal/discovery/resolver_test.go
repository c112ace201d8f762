package discovery

import (
	"context"
	"errors"
	"net"
	"testing"
)

type fakeBroadcaster struct {
	ip    net.IP
	calls int
	port  int
}

func (f *fakeBroadcaster) Broadcast(ctx context.Context, httpPort int) (net.IP, error) {
	f.calls++
	f.port = httpPort
	if f.ip == nil {
		return nil, errors.New("no reply")
	}
	return f.ip, nil
}

type fakeBrowser struct {
	bridge *Bridge
	calls  int
}

func (f *fakeBrowser) FindBridge(ctx context.Context) (*Bridge, error) {
	f.calls++
	if f.bridge == nil {
		return nil, ErrNoBridge
	}
	return f.bridge, nil
}

func TestResolver_Resolve(t *testing.T) {
	mdnsBridge := &Bridge{IP: "192.168.1.20", Port: 8088}

	tests := []struct {
		name          string
		current       string
		broadcastIP   net.IP
		mdns          *Bridge
		fallback      string
		want          Result
		wantOK        bool
		wantBroadcast int
		wantBrowse    int
	}{
		{
			name:    "configured bridge is kept",
			current: "http://10.0.0.2:8088/",
			want:    Result{BaseURL: "http://10.0.0.2:8088", Method: MethodConfigured, Persist: true},
			wantOK:  true,
		},
		{
			name:          "broadcast wins",
			broadcastIP:   net.ParseIP("192.168.1.10"),
			mdns:          mdnsBridge,
			want:          Result{BaseURL: "http://192.168.1.10:8088", Method: MethodBroadcast, FromMDNS: true, Persist: true},
			wantOK:        true,
			wantBroadcast: 1,
		},
		{
			name:          "mdns after failed broadcast",
			mdns:          mdnsBridge,
			want:          Result{BaseURL: "http://192.168.1.20:8088", Method: MethodMDNS, FromMDNS: true, Persist: true},
			wantOK:        true,
			wantBroadcast: 1,
			wantBrowse:    1,
		},
		{
			name:          "fallback is not persisted",
			fallback:      "http://127.0.0.1:8088/",
			want:          Result{BaseURL: "http://127.0.0.1:8088", Method: MethodFallback},
			wantOK:        true,
			wantBroadcast: 1,
			wantBrowse:    1,
		},
		{
			name:          "everything fails",
			want:          Result{Method: MethodNone},
			wantBroadcast: 1,
			wantBrowse:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bc := &fakeBroadcaster{ip: tt.broadcastIP}
			br := &fakeBrowser{bridge: tt.mdns}
			r := NewResolver(bc, br)
			r.Fallback = tt.fallback

			got, ok := r.Resolve(context.Background(), tt.current)
			if ok != tt.wantOK {
				t.Errorf("Resolve() ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("Resolve() = %+v, want %+v", got, tt.want)
			}
			if bc.calls != tt.wantBroadcast {
				t.Errorf("broadcast calls = %d, want %d", bc.calls, tt.wantBroadcast)
			}
			if br.calls != tt.wantBrowse {
				t.Errorf("browse calls = %d, want %d", br.calls, tt.wantBrowse)
			}
			if bc.calls > 0 && bc.port != DefaultPort {
				t.Errorf("broadcast port = %d, want %d", bc.port, DefaultPort)
			}
		})
	}
}

func TestResolver_NilLegs(t *testing.T) {
	r := &Resolver{Fallback: "http://bridge:8088"}

	got, ok := r.Resolve(context.Background(), "")
	if !ok || got.Method != MethodFallback {
		t.Errorf("Resolve() = %+v, %v, want fallback", got, ok)
	}
}

func TestMethod_String(t *testing.T) {
	tests := []struct {
		m    Method
		want string
	}{
		{MethodNone, "none"},
		{MethodConfigured, "configured"},
		{MethodBroadcast, "broadcast"},
		{MethodMDNS, "mdns"},
		{MethodFallback, "fallback"},
	}
	for _, tt := range tests {
		if got := tt.m.String(); got != tt.want {
			t.Errorf("Method(%d).String() = %q, want %q", tt.m, got, tt.want)
		}
	}
}

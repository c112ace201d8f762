// Package fastpath implements the knob's UDP fast path to the bridge.
//
// A poll is one request datagram answered by one fixed-size response. Any
// failure (timeout, wrong size, bad magic or version) reports ErrUnavailable
// and the caller falls back to HTTP.
package fastpath

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/knob/internal/logging"
	"github.com/muurk/knob/internal/wire"
)

const (
	// DefaultPollTimeout bounds the wait for a poll response.
	DefaultPollTimeout = 500 * time.Millisecond

	// DefaultBroadcastTimeout bounds the wait for a discovery reply.
	DefaultBroadcastTimeout = time.Second

	// DefaultHTTPPort is assumed when a base URL carries no port.
	DefaultHTTPPort = 8088
)

// ErrUnavailable means the fast path gave no usable answer.
var ErrUnavailable = errors.New("fastpath: unavailable")

// Endpoint is the HTTP host and port of a bridge. The UDP port is derived
// from it.
type Endpoint struct {
	Host string
	Port int
}

// UDPPort returns the fast path port.
func (e Endpoint) UDPPort() int {
	return e.Port + wire.PortOffset
}

// String returns host:udp-port.
func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.UDPPort()))
}

// ParseEndpoint extracts host and port from a bridge base URL such as
// "http://192.168.1.10:8088". A missing port means DefaultHTTPPort.
func ParseEndpoint(baseURL string) (Endpoint, error) {
	if baseURL == "" {
		return Endpoint{}, errors.New("fastpath: empty base URL")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return Endpoint{}, fmt.Errorf("fastpath: invalid base URL: %w", err)
	}
	host := u.Hostname()
	if host == "" {
		return Endpoint{}, fmt.Errorf("fastpath: no host in %q", baseURL)
	}
	port := DefaultHTTPPort
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil || port <= 0 || port >= 65535 {
			return Endpoint{}, fmt.Errorf("fastpath: invalid port in %q", baseURL)
		}
	}
	return Endpoint{Host: host, Port: port}, nil
}

// Transport owns one UDP socket reused across polls and commands.
type Transport struct {
	PollTimeout      time.Duration
	BroadcastTimeout time.Duration

	// BroadcastIP is where discovery probes go; defaults to 255.255.255.255.
	BroadcastIP net.IP

	mu   sync.Mutex
	conn *net.UDPConn
}

// New returns a transport with default timeouts.
func New() *Transport {
	return &Transport{
		PollTimeout:      DefaultPollTimeout,
		BroadcastTimeout: DefaultBroadcastTimeout,
		BroadcastIP:      net.IPv4bcast,
	}
}

// Close releases the socket. The transport reopens it on next use.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

func (t *Transport) socket(create bool) (*net.UDPConn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil || !create {
		return t.conn, nil
	}
	conn, err := net.ListenUDP("udp4", nil)
	if err != nil {
		return nil, fmt.Errorf("fastpath: open socket: %w", err)
	}
	t.conn = conn
	return conn, nil
}

func resolve(ctx context.Context, ep Endpoint) (*net.UDPAddr, error) {
	if ip := net.ParseIP(ep.Host); ip != nil {
		return &net.UDPAddr{IP: ip, Port: ep.UDPPort()}, nil
	}
	ips, err := net.DefaultResolver.LookupIP(ctx, "ip4", ep.Host)
	if err != nil || len(ips) == 0 {
		return nil, fmt.Errorf("%w: resolve %s: %v", ErrUnavailable, ep.Host, err)
	}
	return &net.UDPAddr{IP: ips[0], Port: ep.UDPPort()}, nil
}

// Poll asks the bridge for the fast state of a zone, sending the cached
// manifest SHA.
func (t *Transport) Poll(ctx context.Context, ep Endpoint, sha, zoneID string) (*wire.Response, error) {
	if zoneID == "" {
		return nil, fmt.Errorf("%w: no zone", ErrUnavailable)
	}

	addr, err := resolve(ctx, ep)
	if err != nil {
		return nil, err
	}

	conn, err := t.socket(true)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	drain(conn)

	req, _ := wire.Request{SHA: sha, ZoneID: zoneID}.MarshalBinary()
	if _, err := conn.WriteToUDP(req, addr); err != nil {
		return nil, fmt.Errorf("%w: send: %v", ErrUnavailable, err)
	}
	logging.LogPacket("send", addr.String(), req)

	deadline := time.Now().Add(t.pollTimeout())
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	buf := make([]byte, 512)
	for {
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			return nil, fmt.Errorf("%w: receive: %v", ErrUnavailable, err)
		}
		logging.LogPacket("recv", from.String(), buf[:n])
		if !from.IP.Equal(addr.IP) || from.Port != addr.Port {
			logging.Debug("Ignoring datagram from another peer",
				zap.String("from", from.String()),
				zap.String("want", addr.String()),
			)
			continue
		}

		var resp wire.Response
		if err := resp.UnmarshalBinary(buf[:n]); err != nil {
			logging.Debug("Fast path response rejected", zap.String("from", from.String()), zap.Error(err))
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return &resp, nil
	}
}

// drainWindow bounds how long drain waits once the queue is empty.
const drainWindow = time.Millisecond

// drain discards datagrams already queued on the socket, such as late
// replies to an earlier poll that timed out.
func drain(conn *net.UDPConn) {
	if err := conn.SetReadDeadline(time.Now().Add(drainWindow)); err != nil {
		return
	}
	buf := make([]byte, 512)
	for {
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		logging.Debug("Dropped stale datagram", zap.Stringer("from", from), zap.Int("bytes", n))
	}
}

// SendVolume sends an absolute volume to the zone without waiting for a
// reply. It fails with ErrUnavailable until a poll has opened the socket.
func (t *Transport) SendVolume(ctx context.Context, ep Endpoint, zoneID string, value float64) error {
	return t.SendCommand(ctx, ep, wire.Command{Cmd: wire.CmdVolumeSet, ZoneID: zoneID, Value: float32(value)})
}

// SendCommand sends a fire-and-forget command.
func (t *Transport) SendCommand(ctx context.Context, ep Endpoint, cmd wire.Command) error {
	if cmd.ZoneID == "" {
		return fmt.Errorf("%w: no zone", ErrUnavailable)
	}

	conn, _ := t.socket(false)
	if conn == nil {
		return fmt.Errorf("%w: socket not open", ErrUnavailable)
	}

	addr, err := resolve(ctx, ep)
	if err != nil {
		return err
	}

	data, _ := cmd.MarshalBinary()
	n, err := conn.WriteToUDP(data, addr)
	if err != nil || n != len(data) {
		return fmt.Errorf("%w: send %s: %v", ErrUnavailable, cmd.Cmd, err)
	}
	logging.LogPacket("send", addr.String(), data)
	return nil
}

// Broadcast sends an empty poll to the broadcast address on the fast path
// port for httpPort and returns the source IP of the first well-formed reply.
func (t *Transport) Broadcast(ctx context.Context, httpPort int) (net.IP, error) {
	conn, err := net.ListenUDP("udp4", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: open socket: %v", ErrUnavailable, err)
	}
	defer func() { _ = conn.Close() }()

	bcast := t.BroadcastIP
	if bcast == nil {
		bcast = net.IPv4bcast
	}
	dest := &net.UDPAddr{IP: bcast, Port: httpPort + wire.PortOffset}

	req, _ := wire.Request{}.MarshalBinary()
	if _, err := conn.WriteToUDP(req, dest); err != nil {
		return nil, fmt.Errorf("%w: broadcast: %v", ErrUnavailable, err)
	}
	logging.LogPacket("send", dest.String(), req)

	timeout := t.BroadcastTimeout
	if timeout <= 0 {
		timeout = DefaultBroadcastTimeout
	}
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	buf := make([]byte, 512)
	n, from, err := conn.ReadFromUDP(buf)
	if err != nil {
		return nil, fmt.Errorf("%w: no reply: %v", ErrUnavailable, err)
	}
	logging.LogPacket("recv", from.String(), buf[:n])

	var resp wire.Response
	if err := resp.UnmarshalBinary(buf[:n]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return from.IP, nil
}

func (t *Transport) pollTimeout() time.Duration {
	if t.PollTimeout <= 0 {
		return DefaultPollTimeout
	}
	return t.PollTimeout
}

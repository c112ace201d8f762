package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/muurk/knob/internal/logging"
	"github.com/muurk/knob/internal/manifest"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 5 * time.Second

	// DefaultPort is the bridge's HTTP port; the UDP fast path listens one above.
	DefaultPort = 8088

	// HeaderKnobID and HeaderKnobVersion identify the knob on every request.
	HeaderKnobID      = "X-Knob-Id"
	HeaderKnobVersion = "X-Knob-Version"

	maxResponseBytes = 256 << 10
)

// Client is an HTTP client for a bridge. It never retries; a failed request
// is retried by the next poll.
type Client struct {
	// BaseURL is the bridge base URL (e.g., "http://192.168.1.10:8088")
	BaseURL string

	// KnobID and Version are sent in identifying headers
	KnobID  string
	Version string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client
}

// NewClient creates a client for the bridge at baseURL.
func NewClient(baseURL, knobID, version string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		KnobID:     knobID,
		Version:    version,
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// WithBaseURL returns a copy of the client pointed at another bridge.
func (c *Client) WithBaseURL(baseURL string) *Client {
	cp := *c
	cp.BaseURL = strings.TrimRight(baseURL, "/")
	return &cp
}

// SetTimeout sets the HTTP request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	if c.BaseURL == "" {
		return nil, NewNotConfiguredError("no bridge configured")
	}

	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, NewNetworkError("failed to create request", err)
	}
	if c.KnobID != "" {
		req.Header.Set(HeaderKnobID, c.KnobID)
	}
	if c.Version != "" {
		req.Header.Set(HeaderKnobVersion, c.Version)
	}
	return req, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	logging.LogBridgeRequest(req.Method, req.URL.String())

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, NewNetworkError("bridge unreachable", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, NewHTTPError(resp.StatusCode, fmt.Sprintf("%s %s returned %s", req.Method, req.URL.Path, resp.Status))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, NewNetworkError("failed to read response body", err)
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

// reportsError reports whether a JSON object carries a non-null "error"
// field. Bodies that are not objects never do.
func reportsError(body []byte) bool {
	var reply struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &reply); err != nil {
		return false
	}
	return len(reply.Error) > 0 && !bytes.Equal(reply.Error, []byte("null"))
}

// Manifest fetches the raw manifest for a zone. The cached sha is sent only
// when non-empty.
func (c *Client) Manifest(ctx context.Context, zoneID, sha string) ([]byte, error) {
	if zoneID == "" {
		return nil, NewNotConfiguredError("no zone selected")
	}

	q := url.Values{}
	q.Set("zone_id", zoneID)
	if sha != "" {
		q.Set("sha", sha)
	}

	body, err := c.get(ctx, "/knob/manifest", q)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, NewParseError("empty manifest response", nil)
	}
	return body, nil
}

// FetchManifest fetches and parses the manifest for a zone.
func (c *Client) FetchManifest(ctx context.Context, zoneID, sha string) (*manifest.Manifest, error) {
	body, err := c.Manifest(ctx, zoneID, sha)
	if err != nil {
		return nil, err
	}
	m, err := manifest.Parse(body)
	if err != nil {
		return nil, NewParseError("invalid manifest", err)
	}
	return m, nil
}

// Zones lists the zones the bridge offers to this knob. Entries without a
// name are skipped and at most MaxZones are returned.
func (c *Client) Zones(ctx context.Context) ([]Zone, error) {
	q := url.Values{}
	if c.KnobID != "" {
		q.Set("knob_id", c.KnobID)
	}

	body, err := c.get(ctx, "/zones", q)
	if err != nil {
		return nil, err
	}
	return ParseZones(body)
}

// ParseZones decodes either {"zones":[...]} or a bare array of zones.
func ParseZones(body []byte) ([]Zone, error) {
	var raw []Zone

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, NewParseError("invalid zones response", err)
		}
	} else {
		var wrapped struct {
			Zones []Zone `json:"zones"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, NewParseError("invalid zones response", err)
		}
		raw = wrapped.Zones
	}

	zones := make([]Zone, 0, len(raw))
	for _, z := range raw {
		if len(zones) == MaxZones {
			break
		}
		if z.ID == "" || z.Name == "" {
			continue
		}
		zones = append(zones, Zone{
			ID:   manifest.Truncate(z.ID, manifest.MaxZoneID),
			Name: manifest.Truncate(z.Name, manifest.MaxLabel),
		})
	}
	return zones, nil
}

// NowPlaying polls the legacy now-playing endpoint, reporting battery state.
func (c *Client) NowPlaying(ctx context.Context, zoneID string, battery Battery) (*NowPlaying, error) {
	if zoneID == "" {
		return nil, NewNotConfiguredError("no zone selected")
	}

	charging := "0"
	if battery.Charging {
		charging = "1"
	}
	q := url.Values{}
	q.Set("zone_id", zoneID)
	q.Set("battery_level", strconv.Itoa(battery.Level))
	q.Set("battery_charging", charging)
	q.Set("knob_id", c.KnobID)

	body, err := c.get(ctx, "/now_playing", q)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, NewParseError("empty now_playing response", nil)
	}
	if reportsError(body) {
		return nil, NewBridgeError("now_playing reported an error")
	}

	var np NowPlaying
	if err := json.Unmarshal(body, &np); err != nil {
		return nil, NewParseError("invalid now_playing response", err)
	}
	if np.VolumeStep <= 0 {
		np.VolumeStep = DefaultVolumeStep
	}
	np.Line1 = manifest.Truncate(np.Line1, manifest.MaxText)
	np.Line2 = manifest.Truncate(np.Line2, manifest.MaxText)
	return &np, nil
}

// Control posts a control request.
func (c *Client) Control(ctx context.Context, cr ControlRequest) error {
	if cr.ZoneID == "" {
		return NewNotConfiguredError("no zone selected")
	}

	payload, err := json.Marshal(cr)
	if err != nil {
		return NewParseError("failed to encode control request", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/control", nil, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req)
	if err != nil {
		return err
	}
	if reportsError(body) {
		return NewBridgeError(fmt.Sprintf("control %q rejected", cr.Action))
	}
	return nil
}

// KnobConfig fetches the display and power settings for this knob.
func (c *Client) KnobConfig(ctx context.Context) (*KnobConfig, error) {
	if c.KnobID == "" {
		return nil, NewNotConfiguredError("no knob id")
	}

	body, err := c.get(ctx, "/config/"+url.PathEscape(c.KnobID), nil)
	if err != nil {
		return nil, err
	}

	var kc KnobConfig
	if err := json.Unmarshal(body, &kc); err != nil {
		return nil, NewParseError("invalid knob config response", err)
	}
	if kc.Config == nil {
		return nil, NewParseError("missing 'config' object in response", nil)
	}
	return &kc, nil
}

// ArtworkURL builds the URL for the zone's current artwork as RGB565.
// A clipRadius of zero omits the clip parameter.
func (c *Client) ArtworkURL(zoneID string, width, height, clipRadius int) string {
	u := fmt.Sprintf("%s/now_playing/image?zone_id=%s&scale=fit&width=%d&height=%d&format=rgb565",
		c.BaseURL, url.QueryEscape(zoneID), width, height)
	if clipRadius > 0 {
		u += fmt.Sprintf("&clip_radius=%d", clipRadius)
	}
	return u
}

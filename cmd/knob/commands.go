package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/muurk/knob/internal/discovery"
	"github.com/muurk/knob/internal/fastpath"
	"github.com/muurk/knob/internal/manifest"
	"github.com/muurk/knob/internal/ui"
)

var troubleshootBridge = []string{
	"Check the bridge is running and on the same network",
	"Pass the bridge explicitly with --bridge http://IP:8088",
	"UDP port 8089 must be reachable for the fast path",
}

// bridgeBase picks the bridge for a one-shot command: an argument, then
// --bridge, then the stored device config.
func bridgeBase(args []string) (string, error) {
	if len(args) > 0 {
		return discovery.NormalizeBaseURL(args[0]), nil
	}
	if cfg.Bridge != "" {
		return cfg.Bridge, nil
	}
	store, err := openStore(cfg)
	if err != nil {
		return "", err
	}
	if dc, err := loadDeviceConfig(store); err == nil && dc.BridgeBase != "" {
		return dc.BridgeBase, nil
	}
	return "", errors.New("no bridge configured; pass a base URL or run 'knob discover'")
}

func storedZone() string {
	store, err := openStore(cfg)
	if err != nil {
		return ""
	}
	dc, err := loadDeviceConfig(store)
	if err != nil {
		return ""
	}
	return dc.ZoneID
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find bridges on the local network",
	Long: `Find bridges by UDP broadcast and mDNS.

The broadcast probe asks every host on the subnet; mDNS browses for the
bridge service. Both are tried and every answer is listed.`,
	RunE: runDiscover,
}

func runDiscover(cmd *cobra.Command, args []string) error {
	p := ui.NewPrinter(cmd.OutOrStdout())
	p.PrintHeader("BRIDGE DISCOVERY", "knob discover", map[string]string{
		"mdns timeout": cfg.MDNSTimeout.String(),
	})

	ctx := cmd.Context()
	var rows [][]string

	fast := newTransport(cfg)
	defer func() { _ = fast.Close() }()
	if ip, err := fast.Broadcast(ctx, discovery.DefaultPort); err == nil {
		rows = append(rows, []string{"broadcast", discovery.BaseURLForIP(ip, discovery.DefaultPort), ""})
	}

	sc := discovery.NewScanner()
	sc.Timeout = cfg.MDNSTimeout
	bridges, err := sc.Scan(ctx)
	if err != nil && !errors.Is(err, discovery.ErrNoBridge) {
		p.PrintError("mDNS browse failed", err, nil)
	}
	for _, b := range bridges {
		rows = append(rows, []string{"mdns", b.BaseURL(), b.Instance})
	}

	if len(rows) == 0 {
		p.PrintError("No bridge found", discovery.ErrNoBridge, troubleshootBridge)
		return nil
	}
	p.PrintTable([]string{"METHOD", "BASE URL", "NAME"}, rows)
	return nil
}

var probeZone string

var probeCmd = &cobra.Command{
	Use:   "probe [base-url]",
	Short: "Send one UDP fast path poll",
	Long: `Send one poll over the UDP fast path and print the reply.

The UDP port is the bridge HTTP port plus one.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runProbe,
}

func init() {
	probeCmd.Flags().StringVar(&probeZone, "zone", "", "Zone id (default: stored zone)")
	manifestCmd.Flags().StringVar(&probeZone, "zone", "", "Zone id (default: stored zone)")
	manifestCmd.Flags().BoolVar(&manifestRaw, "raw", false, "Print the raw JSON document")
}

func zoneOrStored() string {
	if probeZone != "" {
		return probeZone
	}
	return storedZone()
}

func runProbe(cmd *cobra.Command, args []string) error {
	base, err := bridgeBase(args)
	if err != nil {
		return err
	}
	ep, err := fastpath.ParseEndpoint(base)
	if err != nil {
		return err
	}

	p := ui.NewPrinter(cmd.OutOrStdout())
	fast := newTransport(cfg)
	defer func() { _ = fast.Close() }()

	start := time.Now()
	resp, err := fast.Poll(cmd.Context(), ep, "", zoneOrStored())
	if err != nil {
		p.PrintError("No fast path reply from "+ep.String(), err, troubleshootBridge)
		return nil
	}

	fs := resp.FastState()
	p.PrintSuccess("Fast path reply", map[string]string{
		"Endpoint": ep.String(),
		"Latency":  time.Since(start).Round(time.Millisecond).String(),
		"SHA":      resp.ManifestSHA(),
		"Zone":     fs.ZoneID,
		"Playing":  strconv.FormatBool(fs.IsPlaying),
		"Volume":   fmt.Sprintf("%g (%g..%g step %g)", fs.Volume, fs.VolumeMin, fs.VolumeMax, fs.VolumeStep),
	})
	return nil
}

var manifestRaw bool

var manifestCmd = &cobra.Command{
	Use:   "manifest [base-url]",
	Short: "Fetch and summarise the manifest for a zone",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runManifest,
}

func runManifest(cmd *cobra.Command, args []string) error {
	base, err := bridgeBase(args)
	if err != nil {
		return err
	}
	client := newClient(cfg, base)
	body, err := client.Manifest(cmd.Context(), zoneOrStored(), "")
	if err != nil {
		return err
	}
	if manifestRaw {
		_, _ = cmd.OutOrStdout().Write(append(body, '\n'))
		return nil
	}

	m, err := manifest.Parse(body)
	if err != nil {
		return err
	}

	p := ui.NewPrinter(cmd.OutOrStdout())
	p.PrintHeader("MANIFEST", "knob manifest", map[string]string{
		"bridge": base,
		"sha":    m.SHA,
	})

	rows := make([][]string, 0, len(m.Screens))
	for _, s := range m.Screens {
		marker := ""
		if s.ID == m.Nav.Default {
			marker = ui.OnlineMarker
		}
		rows = append(rows, []string{marker, s.ID, s.Kind().String(), strconv.Itoa(len(s.Elements)), strconv.FormatBool(s.Encoder != nil)})
	}
	p.PrintTable([]string{"", "SCREEN", "TYPE", "ELEMENTS", "ENCODER"}, rows)

	if len(m.Interactions) > 0 {
		var pairs []string
		for _, in := range m.Interactions {
			pairs = append(pairs, in.Input+"="+in.Action)
		}
		p.Println("  interactions: " + strings.Join(pairs, ", "))
	}
	return nil
}

var zonesCmd = &cobra.Command{
	Use:   "zones [base-url]",
	Short: "List the bridge's zones",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		base, err := bridgeBase(args)
		if err != nil {
			return err
		}
		zones, err := newClient(cfg, base).Zones(cmd.Context())
		if err != nil {
			return err
		}

		current := storedZone()
		rows := make([][]string, 0, len(zones))
		for _, z := range zones {
			marker := ""
			if z.ID == current {
				marker = ui.OnlineMarker
			}
			rows = append(rows, []string{marker, z.ID, z.Name})
		}
		ui.NewPrinter(cmd.OutOrStdout()).PrintTable([]string{"", "ZONE ID", "NAME"}, rows)
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the stored device config",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		dc, err := loadDeviceConfig(store)
		if err != nil {
			return err
		}
		out, err := yaml.Marshal(dc)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", store.Path(), out)
		return nil
	},
}

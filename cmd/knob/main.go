// Knob is the client side of a knob/bridge pair.
//
// It finds a bridge on the LAN, polls it for the current zone's playback
// state over a UDP fast path with HTTP fallback, and turns encoder and
// touch input into bridge commands. The daemon runs headless and logs what
// the display would show; the sim command draws the display in a terminal.
//
// Usage:
//
//	knob [command] [flags]
//
// See 'knob --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/muurk/knob/internal/logging"
	"github.com/muurk/knob/internal/settings"
	"github.com/muurk/knob/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var (
	v   = settings.New()
	cfg *settings.Settings
)

var rootCmd = &cobra.Command{
	Use:   "knob",
	Short: "Knob client for a music bridge",
	Long: `Client for a music bridge.

Discovers the bridge, polls it for now-playing state and sends transport
and volume commands. Run 'knob run' as a service or 'knob sim' to drive
a simulated display from the terminal.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadSettings(v)
	},
}

func loadSettings(v *viper.Viper) error {
	s, err := settings.Load(v)
	if err != nil {
		return err
	}
	if err := logging.Initialize(s.LogLevel); err != nil {
		return err
	}
	cfg = s
	return nil
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	if err := settings.BindFlags(v, rootCmd.PersistentFlags()); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(simCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(manifestCmd)
	rootCmd.AddCommand(zonesCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("knob %s\n", version.Full())
	},
}

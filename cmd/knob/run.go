package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/knob/internal/logging"
	"github.com/muurk/knob/internal/sim"
	"github.com/muurk/knob/internal/ui"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the knob client headless",
	Long: `Run the knob client as a service.

Display updates are written to the log. Set --log_level info (or
KNOB_LOG_LEVEL=info) to see them. Under systemd the client reports
readiness and feeds the watchdog when WatchdogSec is set.`,
	Example: `  # Discover the bridge automatically
  knob run --log_level info

  # Use a fixed bridge
  knob run --bridge http://192.168.1.10:8088

  # Poll the legacy now-playing endpoint
  knob run --mode now_playing`,
	RunE: runDaemon,
}

func runDaemon(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queue := ui.NewQueue(ui.DefaultQueueSize)
	e, err := newEngine(cfg, queue)
	if err != nil {
		return err
	}
	go queue.Run(ctx, ui.NewLogSink(logging.Named("display")))

	if cfg.SystemdNotify {
		notify(daemon.SdNotifyReady)
		go watchdog(ctx)
		defer notify(daemon.SdNotifyStopping)
	}

	logging.Info("Knob client running", zap.String("config", e.store.Path()))
	defer logging.Sync()
	return e.run(ctx)
}

func notify(state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		logging.Warn("sd_notify failed", zap.String("state", state), zap.Error(err))
		return
	}
	if sent {
		logging.Debug("sd_notify sent", zap.String("state", state))
	}
}

// watchdog pings systemd at half the configured watchdog interval.
func watchdog(ctx context.Context) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			notify(daemon.SdNotifyWatchdog)
		}
	}
}

var simCmd = &cobra.Command{
	Use:   "sim",
	Short: "Drive a simulated knob display in the terminal",
	Long: `Run the knob client against a real bridge with a terminal display.

Arrow keys turn the encoder, enter presses it and m opens the zone picker.
Press ? for all key bindings. Logging goes to stderr, so redirect it when
a log level is set.`,
	Example: `  knob sim
  knob sim --bridge http://192.168.1.10:8088 --log_level debug 2>knob.log`,
	RunE: runSim,
}

func runSim(cmd *cobra.Command, args []string) error {
	if !ui.IsTerminal() {
		return fmt.Errorf("sim needs an interactive terminal")
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	queue := ui.NewQueue(ui.DefaultQueueSize)
	e, err := newEngine(cfg, queue)
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- e.run(ctx) }()

	model := sim.NewModel(ctx, e.ctrl, queue, e.power)
	_, runErr := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if ctx.Err() != nil {
		runErr = nil
	}

	cancel()
	if err := <-done; err != nil {
		return err
	}
	return runErr
}

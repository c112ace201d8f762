// Package ui connects the knob engine to whatever displays its state.
//
// The engine talks to a Sink. A Queue is the Sink handed to the engine: it
// copies each call into an event on a bounded channel, and a single consumer
// goroutine applies the events to the real Sink (the terminal simulator or
// the headless LogSink). The engine never blocks on the display and never
// holds its own lock while posting.
//
//	queue := ui.NewQueue(ui.DefaultQueueSize)
//	go queue.Run(ctx, ui.NewLogSink(logging.Named("ui")))
//	controller := knob.New(knob.Options{UI: queue, ...})
//
// Printer and the shared lipgloss styles render the one-shot output of the
// CLI commands.
package ui

// Package logging provides structured logging for the knob client.
//
// It wraps a global zap logger with helpers for the events the engine cares
// about: device state transitions, bridge requests and raw UDP datagrams.
//
// # Log Levels
//
//   - Debug: packet dumps, manifest parse details, poll scheduling
//   - Info: state changes, discovery results, zone selection
//   - Warn: bridge failures, dropped UI events, malformed replies
//   - Error: persistence failures and other unexpected errors
//
// # Configuration
//
// Logging is silent unless a level is passed to Initialize or the
// KNOB_LOG_LEVEL environment variable is set:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// Output goes to stderr so it never interleaves with command output or the
// terminal simulator.
package logging

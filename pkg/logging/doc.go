// Package logging provides meshgate's structured logging layer on top of
// the standard slog package.
//
// All log entries carry a subsystem tag so output from the gateway,
// registry, correlator and mesh transport can be filtered independently:
//
//	logging.Init(logging.LevelInfo, os.Stderr)
//	logging.Info("Gateway", "listening on %s", addr)
//	logging.Error("Correlator", err, "terminal signal for unknown task %s", taskID)
//
// Session IDs double as capability tokens for resource addresses, so they
// must never be logged whole; use TruncateSessionID.
package logging

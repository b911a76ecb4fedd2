// Package logging provides structured logging with per-module log level
// configuration.
//
// The logging system uses Go's slog package with automatic output routing:
//   - stdout when a terminal, pipe, or file is connected
//   - systemd journal when available (journalctl -t circam)
//   - an in-memory ring buffer of recent entries, dumped on abnormal exit
//
// Initialize once at startup:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"capture":  "debug",
//			"geometry": "warn",
//		},
//	})
//
// Then obtain module loggers anywhere:
//
//	logger := logging.GetLogger("capture")
//	logger.Warn("dequeue failed", "error", err)
//
// Module-specific levels override the global level for that module only.
package logging

// Package log provides structured protocol capture for provisioning sessions.
//
// This package defines the Logger interface and Event types for recording
// what happens on the provisioning channel: session state transitions,
// every protocol message in either direction, and errors. It is separate
// from operational logging (slog). Capture gives a machine-readable trace
// that can be inspected after a failed provisioning attempt.
//
// # Basic Usage
//
//	// Console, via slog at debug level
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// Binary capture file
//	cfg.ProtocolLogger, _ = log.NewFileLogger("/var/log/wifiprov/session.plog")
//
//	// Both
//	cfg.ProtocolLogger = log.NewMultiLogger(console, file)
//
// # Secrets
//
// Passphrases are never captured. MessageEvent for a PSK carries only its
// size with Redacted set.
//
// # File Format
//
// Capture files are a stream of CBOR-encoded events (.plog). The
// wifiprov-log tool views and summarises them.
package log

// Package log provides structured protocol logging for FSUIPC links.
//
// It is separate from operational logging (slog): protocol capture is a
// machine-readable trace of every processed request area, bridge message and
// link state change, for debugging and replay analysis.
//
// # Basic Usage
//
//	// Console, during development
//	client := fsuipc.NewClient(connect, fsuipc.WithProtocolLogger(log.NewSlogAdapter(slog.Default())))
//
//	// Binary file for fsuipc-log
//	fl, _ := log.NewFileLogger("session.flog")
//	defer fl.Close()
//
//	// Both
//	logger := log.NewMultiLogger(log.NewSlogAdapter(slog.Default()), fl)
//
// # Event Types
//
//   - Transport: raw bridge frames (FrameEvent)
//   - Wire: decoded bridge messages (MessageEvent)
//   - Client: processed request areas (AreaEvent) and link state changes
//
// Errors at any layer have a dedicated ErrorEventData carrying the FSUIPC
// result code.
//
// # File Format
//
// Log files are a concatenation of CBOR-encoded events with the .flog
// extension. The fsuipc-log tool views and summarizes them.
package log

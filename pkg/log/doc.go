// Package log provides structured protocol event logging for the Pulse
// client.
//
// Events capture connection state transitions, frames sent and received
// over the transport, keep-alive activity, and errors. Applications pass a
// Logger implementation into the client; the client never writes to a
// default destination on its own.
//
// Available implementations:
//   - NoopLogger: discards everything (the default)
//   - FileLogger: appends CBOR-encoded events to a file (.plog)
//   - SlogAdapter: forwards events to a log/slog logger
//   - MultiLogger: fans out to several loggers at once
//
// Log files written by FileLogger can be inspected with the pulse-log
// command.
package log

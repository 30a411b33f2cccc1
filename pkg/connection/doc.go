// Package connection provides connection lifecycle management for the
// Pulse client.
//
// This package handles:
//   - Connection state tracking
//   - Exponential backoff for reconnection attempts
//   - Jitter to prevent thundering herd
//   - Automatic reconnection inside a bounded reconnect window
//
// # Reconnection Strategy
//
// When a connection is lost, the client uses exponential backoff:
//
//  1. Initial delay: 1 second
//  2. Exponential increase: 2s, 4s, 8s, 16s, 32s
//  3. Maximum delay: 60 seconds
//  4. Continue at 60s until successful or the reconnect window closes
//  5. Reset to 1s on successful reconnection
//
// # Jitter
//
// To prevent thundering herd when multiple clients reconnect:
//
//	actual_delay = base_delay + random(0, base_delay * 0.25)
//
// # Reconnect Window
//
// The hub only keeps an interrupted connection's state for a limited
// time. Attempts past that window cannot resume the message cursor, so
// the manager gives up and transitions to DISCONNECTED; the application
// has to establish a fresh connection.
package connection

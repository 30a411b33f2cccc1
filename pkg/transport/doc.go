// Package transport implements the Pulse client's WebSocket transport.
//
// The transport owns at most one live socket at a time and drives its
// full lifecycle:
//   - connect sequence: build the connect URL, open the socket, wire the
//     inbound-message and closed callbacks
//   - handshake: the Start call completes only once the first inbound
//     frame arrives, tracked by a StartTracker
//   - frame I/O: Send writes one complete text frame; inbound frames are
//     routed through a protocol.Processor
//   - teardown: Stop atomically detaches and closes the socket
//
// # Socket ownership
//
// The socket reference is the only state shared between the connect
// sequence, Send, Stop and the failure path of a Start handshake. Every
// path that releases the socket performs an exchange-then-close: the
// stored reference is swapped to nil under the mutex and the old value,
// if any, is closed outside any other consideration. Close therefore
// happens at most once no matter how calls race. Paths that know which
// socket closed (a socket's close callback, a failed handshake's
// cleanup) detach only the socket they speak for, so a replaced
// socket's late callback never detaches its successor.
//
// # Keep-alive
//
// The hub sends keep-alive frames while a connection is idle. The
// KeepAliveMonitor watches the time since the last inbound frame and
// reports a slow connection and, later, a timeout. On timeout the owning
// connection calls LostConnection, which force-closes the socket and
// surfaces a recoverable error so reconnection can begin.
package transport

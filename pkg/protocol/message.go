// Package protocol decodes the frames a Pulse hub sends over a persistent
// transport and routes their contents to the owning connection.
//
// Every inbound frame is a single JSON object. The hub uses short field
// names on the wire to keep frames compact; an empty object is a
// keep-alive. The Router interprets decoded frames: it persists the message
// cursor and groups token on the connection, dispatches application
// payloads, signals handshake completion, and reports whether the hub asked
// the client to reconnect or disconnect.
package protocol

import (
	"encoding/json"
)

// Message is one decoded hub frame.
type Message struct {
	// Cursor is the message cursor ("C"). The client echoes it on
	// reconnect so the hub can resume delivery.
	Cursor string `json:"C,omitempty"`

	// Payloads carries application messages ("M"), each dispatched to the
	// connection without further interpretation.
	Payloads []json.RawMessage `json:"M,omitempty"`

	// Initialized is 1 on the frame that completes the handshake ("S").
	Initialized int `json:"S,omitempty"`

	// Disconnected is 1 when the hub orders the client to drop the
	// connection without reconnecting ("D").
	Disconnected int `json:"D,omitempty"`

	// ShouldReconnect is 1 when the hub asks the client to reconnect ("T").
	ShouldReconnect int `json:"T,omitempty"`

	// GroupsToken updates the client's group membership token ("G").
	GroupsToken string `json:"G,omitempty"`
}

// IsKeepAlive reports whether the frame is a keep-alive (an empty object).
func (m *Message) IsKeepAlive() bool {
	return m.Cursor == "" &&
		len(m.Payloads) == 0 &&
		m.Initialized == 0 &&
		m.Disconnected == 0 &&
		m.ShouldReconnect == 0 &&
		m.GroupsToken == ""
}

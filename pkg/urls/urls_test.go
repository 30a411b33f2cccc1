package urls_test

import (
	"errors"
	"net/url"
	"testing"

	"github.com/pulse-protocol/pulse-go/pkg/urls"
)

// stubConn provides fixed connection values for URL building.
type stubConn struct {
	baseURL     string
	protocol    string
	token       string
	query       string
	messageID   string
	groupsToken string
}

func (c *stubConn) BaseURL() string         { return c.baseURL }
func (c *stubConn) Protocol() string        { return c.protocol }
func (c *stubConn) ConnectionToken() string { return c.token }
func (c *stubConn) QueryString() string     { return c.query }
func (c *stubConn) MessageID() string       { return c.messageID }
func (c *stubConn) GroupsToken() string     { return c.groupsToken }

func defaultConn() *stubConn {
	return &stubConn{
		baseURL:  "https://hub.example.com/pulse",
		protocol: "1.5",
		token:    "tok/with=special&chars",
	}
}

// parse splits a built URL into path and query for assertions.
func parse(t *testing.T, rawURL string) (string, url.Values) {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("built URL does not parse: %v", err)
	}
	q, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		t.Fatalf("built query does not parse: %v", err)
	}
	return u.Path, q
}

// TestNegotiate verifies the negotiate URL carries the protocol version
// and connection data but no transport.
func TestNegotiate(t *testing.T) {
	conn := defaultConn()
	conn.token = ""

	built, err := urls.Negotiate(conn, `[{"name":"chat"}]`)
	if err != nil {
		t.Fatalf("Negotiate failed: %v", err)
	}

	path, q := parse(t, built)
	if path != "/pulse/negotiate" {
		t.Errorf("path = %q, want /pulse/negotiate", path)
	}
	if got := q.Get("clientProtocol"); got != "1.5" {
		t.Errorf("clientProtocol = %q, want 1.5", got)
	}
	if got := q.Get("connectionData"); got != `[{"name":"chat"}]` {
		t.Errorf("connectionData = %q", got)
	}
	if q.Has("transport") {
		t.Error("negotiate URL must not carry a transport")
	}
	if q.Has("connectionToken") {
		t.Error("negotiate URL must not carry a token before negotiation")
	}
}

// TestConnect verifies the connect URL carries transport and token.
func TestConnect(t *testing.T) {
	built, err := urls.Connect(defaultConn(), "webSockets", "")
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	path, q := parse(t, built)
	if path != "/pulse/connect" {
		t.Errorf("path = %q, want /pulse/connect", path)
	}
	if got := q.Get("transport"); got != "webSockets" {
		t.Errorf("transport = %q, want webSockets", got)
	}
	if got := q.Get("connectionToken"); got != "tok/with=special&chars" {
		t.Errorf("connectionToken = %q, token not round-tripped", got)
	}
	if q.Has("messageId") {
		t.Error("connect URL must not carry a message cursor")
	}
}

// TestReconnect verifies the reconnect URL resumes with cursor and
// groups token.
func TestReconnect(t *testing.T) {
	conn := defaultConn()
	conn.messageID = "d-1234,0|5,2"
	conn.groupsToken = "grp"

	built, err := urls.Reconnect(conn, "webSockets", "")
	if err != nil {
		t.Fatalf("Reconnect failed: %v", err)
	}

	path, q := parse(t, built)
	if path != "/pulse/reconnect" {
		t.Errorf("path = %q, want /pulse/reconnect", path)
	}
	if got := q.Get("messageId"); got != "d-1234,0|5,2" {
		t.Errorf("messageId = %q, cursor not round-tripped", got)
	}
	if got := q.Get("groupsToken"); got != "grp" {
		t.Errorf("groupsToken = %q, want grp", got)
	}
}

// TestReconnectWithoutCursor verifies empty cursor and groups token are
// omitted rather than sent empty.
func TestReconnectWithoutCursor(t *testing.T) {
	built, err := urls.Reconnect(defaultConn(), "webSockets", "")
	if err != nil {
		t.Fatalf("Reconnect failed: %v", err)
	}

	_, q := parse(t, built)
	if q.Has("messageId") || q.Has("groupsToken") {
		t.Errorf("empty resume values must be omitted, got query %v", q)
	}
}

// TestStartAndAbort verifies the handshake completion and shutdown URLs.
func TestStartAndAbort(t *testing.T) {
	for _, tc := range []struct {
		name  string
		build func(urls.Connection, string, string) (string, error)
		path  string
	}{
		{"start", urls.Start, "/pulse/start"},
		{"abort", urls.Abort, "/pulse/abort"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			built, err := tc.build(defaultConn(), "webSockets", "")
			if err != nil {
				t.Fatalf("build failed: %v", err)
			}
			path, q := parse(t, built)
			if path != tc.path {
				t.Errorf("path = %q, want %q", path, tc.path)
			}
			if got := q.Get("transport"); got != "webSockets" {
				t.Errorf("transport = %q, want webSockets", got)
			}
		})
	}
}

// TestCustomQueryString verifies application query parameters are
// appended, with a leading ampersand tolerated.
func TestCustomQueryString(t *testing.T) {
	conn := defaultConn()
	conn.query = "&tenant=alpha&debug=1"

	built, err := urls.Connect(conn, "webSockets", "")
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	_, q := parse(t, built)
	if got := q.Get("tenant"); got != "alpha" {
		t.Errorf("tenant = %q, want alpha", got)
	}
	if got := q.Get("debug"); got != "1" {
		t.Errorf("debug = %q, want 1", got)
	}
}

// TestUnsupportedScheme verifies non-http base URLs are rejected.
func TestUnsupportedScheme(t *testing.T) {
	conn := defaultConn()
	conn.baseURL = "ftp://hub.example.com/pulse"

	if _, err := urls.Connect(conn, "webSockets", ""); !errors.Is(err, urls.ErrUnsupportedScheme) {
		t.Errorf("Connect = %v, want ErrUnsupportedScheme", err)
	}
}

// TestWebSocketScheme verifies http(s) to ws(s) conversion.
func TestWebSocketScheme(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want string
	}{
		{"http://hub.example.com/pulse/connect?a=1", "ws://hub.example.com/pulse/connect?a=1"},
		{"https://hub.example.com/pulse/connect?a=1", "wss://hub.example.com/pulse/connect?a=1"},
	} {
		got, err := urls.WebSocketScheme(tc.in)
		if err != nil {
			t.Fatalf("WebSocketScheme(%q) failed: %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("WebSocketScheme(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	if _, err := urls.WebSocketScheme("ws://already"); !errors.Is(err, urls.ErrUnsupportedScheme) {
		t.Errorf("ws input = %v, want ErrUnsupportedScheme", err)
	}
}

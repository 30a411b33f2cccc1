// Package client implements the Pulse hub client.
//
// A Client negotiates a connection over HTTP, starts the WebSocket
// transport, and keeps the connection alive: keep-alive monitoring
// detects silent connection loss, and the reconnect manager re-opens the
// transport with the message cursor so delivery resumes where it
// stopped.
//
// Typical use:
//
//	cfg := client.DefaultConfig()
//	cfg.HubURL = "https://hub.example.com/pulse"
//
//	c, err := client.New(cfg, nil)
//	if err != nil {
//		// handle
//	}
//	c.OnReceived(func(data []byte) { fmt.Printf("%s\n", data) })
//
//	if err := c.Start(ctx); err != nil {
//		// handle
//	}
//	defer c.Stop()
//
//	err = c.Send(`{"target":"echo","args":["hello"]}`)
package client

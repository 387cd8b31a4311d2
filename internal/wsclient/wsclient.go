// Package wsclient is a minimal outbound Dullahan client, grounded on the
// teacher's internal/tui/pty_client.go dial/read-loop pattern. It exists
// so integration tests can drive internal/wsserver end to end without a
// browser.
package wsclient

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/raymond-w-ko/dullahan-sub005/internal/wire"
)

// Client dials a Dullahan server's /v1/ws endpoint and hands every
// decompressed, decoded frame map to the OnFrame callback.
type Client struct {
	conn *websocket.Conn

	mu      sync.Mutex
	onFrame func(wire.Map)
	onError func(error)
	done    chan struct{}
}

// New returns an unconnected Client.
func New() *Client {
	return &Client{done: make(chan struct{})}
}

// OnFrame registers the callback invoked for every decoded server frame.
func (c *Client) OnFrame(fn func(wire.Map)) { c.onFrame = fn }

// OnError registers the callback invoked when the read loop terminates.
func (c *Client) OnError(fn func(error)) { c.onError = fn }

// Connect dials baseURL (http/https, rewritten to ws/wss) at /v1/ws and
// sends the initial hello message.
func (c *Client) Connect(baseURL, themeName, themeFg, themeBg string) error {
	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("wsclient: parsing url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/v1/ws"

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("wsclient: dialing %s: %w", u.String(), err)
	}
	c.conn = conn

	hello, err := json.Marshal(map[string]string{
		"type":      "hello",
		"themeName": themeName,
		"themeFg":   themeFg,
		"themeBg":   themeBg,
	})
	if err != nil {
		return fmt.Errorf("wsclient: marshaling hello: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, hello); err != nil {
		return fmt.Errorf("wsclient: sending hello: %w", err)
	}

	go c.readLoop()
	return nil
}

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.onError != nil {
				c.onError(err)
			}
			return
		}
		if msgType != websocket.BinaryMessage {
			continue
		}
		frame, err := wire.DecompressFrame(data)
		if err != nil {
			if c.onError != nil {
				c.onError(err)
			}
			continue
		}
		if c.onFrame != nil {
			c.onFrame(frame)
		}
	}
}

// SendJSON marshals v and sends it as a text frame — every client-to-server
// message is JSON (spec.md §6).
func (c *Client) SendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("wsclient: marshaling message: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Done is closed when the read loop exits.
func (c *Client) Done() <-chan struct{} { return c.done }

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Package wsserver exposes the WebSocket transport of spec.md §6: a single
// endpoint on a configurable loopback TCP port, binary frames out,
// JSON text frames in. Grounded on the teacher's
// internal/handlers/pty.go HandleWebSocket/handlePTYConnection
// connection-lifecycle pattern.
package wsserver

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/raymond-w-ko/dullahan-sub005/internal/eventloop"
	"github.com/raymond-w-ko/dullahan-sub005/internal/registry"
)

// Server owns the fiber app and wires new connections into the event loop
// and client registry.
type Server struct {
	app      *fiber.App
	log      zerolog.Logger
	loop     *eventloop.Loop
	clients  *registry.Registry
}

// New builds a Server. It does not start listening — call Listen.
func New(log zerolog.Logger, loop *eventloop.Loop, clients *registry.Registry) *Server {
	s := &Server{
		log:     log.With().Str("component", "wsserver").Logger(),
		loop:    loop,
		clients: clients,
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
		}
		return c.Next()
	})
	app.Get("/v1/ws", websocket.New(s.handleConn))
	s.app = app
	return s
}

// Listen starts serving on addr, blocking until the listener closes.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops accepting and drains connections (spec.md §5's
// quit sequence).
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// connSender adapts a gofiber/websocket connection to eventloop.Sender,
// serializing writes with a mutex the same way the teacher's Session does
// (writeMutex in internal/handlers/pty.go). Send is reachable concurrently
// from the per-connection read loop (sync/resync replies) and the
// server-wide poll goroutine, plus broadcast() for structural events;
// gofiber/websocket, like the gorilla websocket it wraps, is not safe for
// concurrent writers on one connection.
type connSender struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *connSender) Send(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.BinaryMessage, frame)
}

type helloMessage struct {
	Type      string `json:"type"`
	ThemeName string `json:"themeName"`
	ThemeFg   string `json:"themeFg"`
	ThemeBg   string `json:"themeBg"`
}

func (s *Server) handleConn(conn *websocket.Conn) {
	defer conn.Close()

	_, firstMsg, err := conn.ReadMessage()
	if err != nil {
		s.log.Debug().Err(err).Msg("connection closed before hello")
		return
	}
	var hello helloMessage
	if err := json.Unmarshal(firstMsg, &hello); err != nil || hello.Type != "hello" {
		s.log.Warn().Msg("first message was not a valid hello, closing connection")
		return
	}

	client := s.clients.Connect(hello.ThemeName, hello.ThemeFg, hello.ThemeBg)
	sender := &connSender{conn: conn}
	s.loop.RegisterClient(client.ID, sender)

	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Msg("recovered from panic in client connection handler")
		}
		s.loop.UnregisterClient(client.ID)
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			s.log.Debug().Err(err).Str("client", string(client.ID)).Msg("client connection closed")
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		if err := s.loop.Dispatch(client.ID, data); err != nil {
			s.log.Warn().Err(err).Str("client", string(client.ID)).Msg("client protocol error, closing")
			return
		}
	}
}

// ErrUpgradeRequired names the upgrade-required failure. No handler in this
// package returns it; a non-websocket request to /v1/ws is refused by
// gofiber/websocket's own handler.
var ErrUpgradeRequired = fmt.Errorf("wsserver: expected websocket upgrade")

// Package adminrpc implements the administrative RPC surface of spec.md
// §6: a Unix-domain socket under the per-user runtime directory carrying
// newline-delimited JSON requests and responses (ping, status, quit, pane
// list, send-text, layout query).
package adminrpc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTimeout is the IPC control channel's default command timeout
// (spec.md §5).
const DefaultTimeout = 5 * time.Second

// Request is one newline-delimited JSON admin command.
type Request struct {
	Verb   string `json:"verb"`
	PaneID uint16 `json:"paneId,omitempty"`
	Text   string `json:"text,omitempty"`
}

// Response is the newline-delimited JSON reply.
type Response struct {
	OK    bool            `json:"ok"`
	Error string          `json:"error,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Verbs recognized by the admin socket.
const (
	VerbPing        = "ping"
	VerbStatus      = "status"
	VerbQuit        = "quit"
	VerbPaneList    = "pane-list"
	VerbSendText    = "send-text"
	VerbLayoutQuery = "layout-query"
)

// Handler answers one decoded admin Request.
type Handler func(ctx context.Context, req Request) (any, error)

// Server listens on a Unix domain socket and dispatches each connection's
// newline-delimited requests to a Handler.
type Server struct {
	log      zerolog.Logger
	listener net.Listener
	handler  Handler
}

// Listen creates (removing any stale socket file first) and binds the
// admin Unix socket at path.
func Listen(log zerolog.Logger, path string, handler Handler) (*Server, error) {
	_ = os.Remove(path)
	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("adminrpc: listening on %s: %w", path, err)
	}
	return &Server{
		log:      log.With().Str("component", "adminrpc").Logger(),
		listener: l,
		handler:  handler,
	}, nil
}

// Serve accepts connections until the listener is closed.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return fmt.Errorf("adminrpc: accept: %w", err)
		}
		go s.handleConn(conn)
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	return s.listener.Close()
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var req Request
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			writeResponse(conn, Response{OK: false, Error: fmt.Sprintf("malformed request: %v", err)})
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
		data, err := s.handler(ctx, req)
		cancel()

		if err != nil {
			writeResponse(conn, Response{OK: false, Error: err.Error()})
			continue
		}
		raw, err := json.Marshal(data)
		if err != nil {
			writeResponse(conn, Response{OK: false, Error: fmt.Sprintf("marshaling response: %v", err)})
			continue
		}
		writeResponse(conn, Response{OK: true, Data: raw})
	}
}

func writeResponse(conn net.Conn, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	data = append(data, '\n')
	_, _ = conn.Write(data)
}

// Dial connects to an admin socket and sends a single request, returning
// its decoded response.
func Dial(path string, req Request) (Response, error) {
	conn, err := net.DialTimeout("unix", path, DefaultTimeout)
	if err != nil {
		return Response{}, fmt.Errorf("adminrpc: dialing %s: %w", path, err)
	}
	defer conn.Close()

	data, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("adminrpc: marshaling request: %w", err)
	}
	data = append(data, '\n')

	_ = conn.SetDeadline(time.Now().Add(DefaultTimeout))
	if _, err := conn.Write(data); err != nil {
		return Response{}, fmt.Errorf("adminrpc: sending request: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return Response{}, fmt.Errorf("adminrpc: reading response: %w", err)
		}
		return Response{}, fmt.Errorf("adminrpc: connection closed without a response")
	}

	var resp Response
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		return Response{}, fmt.Errorf("adminrpc: malformed response: %w", err)
	}
	return resp, nil
}

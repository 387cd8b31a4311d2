// Package server owns the live pane table and ties the PTY, grid,
// registry, event loop, WebSocket, and admin-RPC collaborators together
// into the running Dullahan daemon — spec.md §2's top-level wiring.
// Grounded on the teacher's internal/services/pty.go session-map pattern
// and internal/cmd/run.go's spawn/poll/shutdown lifecycle.
package server

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/raymond-w-ko/dullahan-sub005/internal/adminrpc"
	"github.com/raymond-w-ko/dullahan-sub005/internal/config"
	"github.com/raymond-w-ko/dullahan-sub005/internal/eventloop"
	"github.com/raymond-w-ko/dullahan-sub005/internal/layout"
	"github.com/raymond-w-ko/dullahan-sub005/internal/pane"
	"github.com/raymond-w-ko/dullahan-sub005/internal/ptyproc"
	"github.com/raymond-w-ko/dullahan-sub005/internal/registry"
	"github.com/raymond-w-ko/dullahan-sub005/internal/wsserver"
)

// PollInterval is how often the server scans pane generations against
// client subscriptions (spec.md §4.5).
const PollInterval = 33 * time.Millisecond

// DefaultCols, DefaultRows size a freshly spawned pane absent an explicit
// client resize.
const (
	DefaultCols = 80
	DefaultRows = 24
)

// Server is the daemon process: it owns every pane, the shared client
// registry, the layout template store, and the transports that expose
// them.
type Server struct {
	log zerolog.Logger
	rc  *config.RuntimeConfig

	mu      sync.RWMutex
	panes   map[uint16]*pane.Pane
	procs   map[uint16]*ptyproc.Process
	nextID  uint32

	clients *registry.Registry
	layouts *layout.Store
	loop    *eventloop.Loop
	ws      *wsserver.Server
	admin   *adminrpc.Server
}

// New builds a Server bound to rc. Call Start to spawn the first pane and
// begin listening.
func New(log zerolog.Logger, rc *config.RuntimeConfig) (*Server, error) {
	layouts, err := layout.NewStore(rc.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("server: opening layout store: %w", err)
	}

	s := &Server{
		log:     log.With().Str("component", "server").Logger(),
		rc:      rc,
		panes:   make(map[uint16]*pane.Pane),
		procs:   make(map[uint16]*ptyproc.Process),
		clients: registry.New(),
		layouts: layouts,
	}
	s.loop = eventloop.New(log, s, s.clients, layouts)
	s.ws = wsserver.New(log, s.loop, s.clients)

	if err := layouts.Watch(log); err != nil {
		s.log.Warn().Err(err).Msg("layout file watcher disabled")
	}

	return s, nil
}

// Pane implements eventloop.Panes.
func (s *Server) Pane(id uint16) (*pane.Pane, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.panes[id]
	return p, ok
}

// SpawnPane starts shell under a fresh PTY and registers a pane bound to
// it, broadcasting pane-added to every connected client.
func (s *Server) SpawnPane(shell string, cols, rows int) (uint16, error) {
	if shell == "" {
		shell = os.Getenv("SHELL")
	}
	if shell == "" {
		shell = "/bin/sh"
	}

	id := uint16(atomic.AddUint32(&s.nextID, 1))

	proc, err := ptyproc.Spawn(exec.Command(shell), uint16(cols), uint16(rows))
	if err != nil {
		return 0, fmt.Errorf("server: spawning pane %d: %w", id, err)
	}

	p := pane.New(id, proc, cols, rows)

	s.mu.Lock()
	s.panes[id] = p
	s.procs[id] = proc
	s.mu.Unlock()

	go s.pumpPane(id, p, proc)

	s.loop.BroadcastPaneAdded(id)
	return id, nil
}

// pumpPane copies a PTY's output into its Pane until the process exits,
// then tears the pane down and broadcasts pane-closed.
func (s *Server) pumpPane(id uint16, p *pane.Pane, proc *ptyproc.Process) {
	buf := make([]byte, 64*1024)
	for {
		n, err := proc.Read(buf)
		if n > 0 {
			p.Feed(buf[:n])
		}
		if err != nil {
			break
		}
	}

	s.mu.Lock()
	delete(s.panes, id)
	delete(s.procs, id)
	s.mu.Unlock()

	s.loop.BroadcastPaneClosed(id)
	s.log.Info().Uint16("pane", id).Msg("pane closed")
}

// ClosePane kills the child process backing a pane; pumpPane observes the
// resulting read error and finishes teardown.
func (s *Server) ClosePane(id uint16) error {
	s.mu.RLock()
	proc, ok := s.procs[id]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("server: no such pane %d", id)
	}
	return proc.Close()
}

// PaneIDs returns every live pane id, for Poll.
func (s *Server) PaneIDs() []uint16 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]uint16, 0, len(s.panes))
	for id := range s.panes {
		out = append(out, id)
	}
	return out
}

// Start spawns the first pane (id 1; SpawnPane never hands out id 0) and
// begins serving the WebSocket transport and the generation-poll loop. It
// blocks until the WebSocket listener stops.
func (s *Server) Start(ctx context.Context) error {
	if _, err := s.SpawnPane("", DefaultCols, DefaultRows); err != nil {
		return fmt.Errorf("server: spawning first pane: %w", err)
	}

	go s.pollLoop(ctx)

	s.log.Info().Str("addr", s.rc.ListenAddr).Msg("listening for websocket clients")
	if err := s.ws.Listen(s.rc.ListenAddr); err != nil {
		return fmt.Errorf("server: websocket listener: %w", err)
	}
	return nil
}

func (s *Server) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.loop.Poll(s.PaneIDs())
		}
	}
}

// Shutdown stops the WebSocket listener and the admin socket, and kills
// every pane's child process.
func (s *Server) Shutdown() error {
	if s.admin != nil {
		_ = s.admin.Close()
	}
	_ = s.layouts.Close()
	err := s.ws.Shutdown()

	s.mu.RLock()
	procs := make([]*ptyproc.Process, 0, len(s.procs))
	for _, p := range s.procs {
		procs = append(procs, p)
	}
	s.mu.RUnlock()
	for _, p := range procs {
		_ = p.Close()
	}
	return err
}

// ServeAdmin starts the admin RPC listener, blocking until it is closed.
func (s *Server) ServeAdmin() error {
	admin, err := adminrpc.Listen(s.log, s.rc.AdminSocketPath, s.handleAdmin)
	if err != nil {
		return fmt.Errorf("server: admin socket: %w", err)
	}
	s.admin = admin
	return admin.Serve()
}

func (s *Server) handleAdmin(ctx context.Context, req adminrpc.Request) (any, error) {
	switch req.Verb {
	case adminrpc.VerbPing:
		return map[string]string{"status": "pong"}, nil

	case adminrpc.VerbStatus:
		return map[string]any{
			"panes":   s.PaneIDs(),
			"clients": len(s.clients.Snapshot()),
		}, nil

	case adminrpc.VerbQuit:
		go func() {
			time.Sleep(50 * time.Millisecond)
			_ = s.Shutdown()
			os.Exit(0)
		}()
		return map[string]string{"status": "shutting down"}, nil

	case adminrpc.VerbPaneList:
		return s.PaneIDs(), nil

	case adminrpc.VerbSendText:
		p, ok := s.Pane(req.PaneID)
		if !ok {
			return nil, fmt.Errorf("no such pane %d", req.PaneID)
		}
		if _, err := p.Write([]byte(req.Text)); err != nil {
			return nil, fmt.Errorf("writing to pane %d: %w", req.PaneID, err)
		}
		return map[string]string{"status": "sent"}, nil

	case adminrpc.VerbLayoutQuery:
		return s.layouts.Names(), nil

	default:
		return nil, fmt.Errorf("unknown verb %q", req.Verb)
	}
}

// Package eventloop routes client-to-server messages to panes after the
// master filter, and drives the generation-vs-subscription scan that
// fans snapshots and deltas out to clients — spec.md §4.5.
package eventloop

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/raymond-w-ko/dullahan-sub005/internal/layout"
	"github.com/raymond-w-ko/dullahan-sub005/internal/pane"
	"github.com/raymond-w-ko/dullahan-sub005/internal/registry"
	"github.com/raymond-w-ko/dullahan-sub005/internal/wire"
)

// SubState is a pane subscription's position in the state machine of
// spec.md §4.5: Unsubscribed -> Priming -> Tracking -> Resync -> Tracking.
type SubState int

const (
	Unsubscribed SubState = iota
	Priming
	Tracking
	Resync
)

// Subscription is one client's view of one pane.
type Subscription struct {
	State         SubState
	LastSeenGen   uint64
	MinCachedRow  uint64
}

// Sender delivers an already-compressed binary frame to one client's
// transport. internal/wsserver's per-connection writer satisfies this.
type Sender interface {
	Send(frame []byte) error
}

// Panes resolves a pane id to its live Pane. internal/server.Server, which
// owns the live pane table, satisfies this directly.
type Panes interface {
	Pane(id uint16) (*pane.Pane, bool)
}

// Loop is the Event Loop of spec.md §2/§4.5.
type Loop struct {
	log zerolog.Logger

	panes    Panes
	clients  *registry.Registry
	layouts  *layout.Store

	mu       sync.Mutex
	senders  map[registry.ClientID]Sender
	subs     map[registry.ClientID]map[uint16]*Subscription
}

// New creates an event loop bound to a pane source and client registry.
func New(log zerolog.Logger, panes Panes, clients *registry.Registry, layouts *layout.Store) *Loop {
	return &Loop{
		log:     log.With().Str("component", "eventloop").Logger(),
		panes:   panes,
		clients: clients,
		layouts: layouts,
		senders: make(map[registry.ClientID]Sender),
		subs:    make(map[registry.ClientID]map[uint16]*Subscription),
	}
}

// RegisterClient associates a transport sender with a connected client.
func (l *Loop) RegisterClient(id registry.ClientID, sender Sender) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.senders[id] = sender
	l.subs[id] = make(map[uint16]*Subscription)
}

// UnregisterClient drops a client's subscriptions and releases any
// masterships it held, broadcasting master-changed for each released pane.
func (l *Loop) UnregisterClient(id registry.ClientID) {
	l.mu.Lock()
	delete(l.senders, id)
	delete(l.subs, id)
	l.mu.Unlock()

	for _, paneID := range l.clients.Disconnect(id) {
		l.broadcastMasterChanged(paneID)
	}
}

// Dispatch decodes and routes one client-to-server JSON message (spec.md
// §6), applying the master filter to mutating message types.
func (l *Loop) Dispatch(sender registry.ClientID, raw []byte) error {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("eventloop: malformed client message: %w", err)
	}

	if msg.Type == TypeHello {
		return nil // handled at connection setup; hello carries no pane
	}
	if msg.Type == TypePing {
		return l.sendPong(sender)
	}

	if IsMutating(msg.Type) {
		admitted, changed := l.clients.AdmitMutation(msg.PaneID, sender)
		if changed {
			l.broadcastMasterChanged(msg.PaneID)
		}
		if !admitted {
			l.log.Debug().Str("client", string(sender)).Uint16("pane", msg.PaneID).Str("msgType", msg.Type).Msg("dropped non-master mutation")
			return nil
		}
	}

	p, ok := l.panes.Pane(msg.PaneID)
	if !ok {
		return fmt.Errorf("eventloop: unknown pane %d", msg.PaneID)
	}

	switch msg.Type {
	case TypeKey:
		_, err := p.Write(keyToBytes(msg))
		return err
	case TypeText:
		_, err := p.Write([]byte(msg.Data))
		return err
	case TypeResize:
		p.Resize(msg.Cols, msg.Rows)
		return nil
	case TypeScroll:
		p.Scroll(msg.Delta)
		return nil
	case TypeSync:
		l.setSubscription(sender, msg.PaneID, msg.Gen, msg.MinRowID, false)
		return l.pushUpdate(sender, msg.PaneID)
	case TypeResync:
		l.setSubscription(sender, msg.PaneID, 0, 0, true)
		return l.pushUpdate(sender, msg.PaneID)
	case TypeFocus:
		l.clients.SetFocus(sender, msg.PaneID, true)
		return nil
	case TypeRequestMaster:
		if l.clients.RequestMaster(msg.PaneID, sender) {
			l.broadcastMasterChanged(msg.PaneID)
		}
		return nil
	case TypeReleaseMaster:
		if l.clients.ReleaseMaster(msg.PaneID, sender) {
			l.broadcastMasterChanged(msg.PaneID)
		}
		return nil
	default:
		return fmt.Errorf("eventloop: unknown message type %q", msg.Type)
	}
}

func (l *Loop) setSubscription(client registry.ClientID, paneID uint16, gen, minRowID uint64, forceResync bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.subs[client]
	if !ok {
		m = make(map[uint16]*Subscription)
		l.subs[client] = m
	}
	sub, ok := m[paneID]
	if !ok {
		sub = &Subscription{}
		m[paneID] = sub
	}
	if forceResync {
		sub.State = Resync
		return
	}
	sub.LastSeenGen = gen
	sub.MinCachedRow = minRowID
	if sub.State == Unsubscribed {
		sub.State = Priming
	}
}

// Poll is called periodically (or on wake-up) by the server to inspect
// every pane's generation against every subscribed client's last-seen
// generation, sending a delta or snapshot to each that has fallen behind
// (spec.md §4.5).
func (l *Loop) Poll(paneIDs []uint16) {
	l.mu.Lock()
	clientIDs := make([]registry.ClientID, 0, len(l.subs))
	for id := range l.subs {
		clientIDs = append(clientIDs, id)
	}
	l.mu.Unlock()

	for _, paneID := range paneIDs {
		p, ok := l.panes.Pane(paneID)
		if !ok {
			continue
		}
		gen := p.Generation()
		for _, clientID := range clientIDs {
			l.mu.Lock()
			sub, ok := l.subs[clientID][paneID]
			l.mu.Unlock()
			if !ok || sub.State == Unsubscribed {
				continue
			}
			if sub.LastSeenGen >= gen {
				continue
			}
			if err := l.pushUpdate(clientID, paneID); err != nil {
				l.log.Warn().Err(err).Str("client", string(clientID)).Uint16("pane", paneID).Msg("push update failed")
			}
		}
	}
}

// pushUpdate sends whichever of snapshot/delta is appropriate for a
// client's current subscription state.
func (l *Loop) pushUpdate(client registry.ClientID, paneID uint16) error {
	p, ok := l.panes.Pane(paneID)
	if !ok {
		return fmt.Errorf("eventloop: unknown pane %d", paneID)
	}

	l.mu.Lock()
	sub, ok := l.subs[client][paneID]
	if !ok {
		sub = &Subscription{State: Priming}
		l.subs[client][paneID] = sub
	}
	lastSeen := sub.LastSeenGen
	needsSnapshot := sub.State == Priming || sub.State == Resync
	l.mu.Unlock()

	var frame wire.Map
	var newGen uint64
	if !needsSnapshot {
		if delta, ok := p.DeltaSince(lastSeen); ok {
			frame = wire.EncodeDelta(paneID, delta)
			newGen = delta.Generation
		} else {
			needsSnapshot = true
		}
	}
	if needsSnapshot {
		snap := p.Snapshot()
		frame = wire.EncodeSnapshot(paneID, snap)
		newGen = snap.Generation
	}

	compressed, err := wire.CompressFrame(frame)
	if err != nil {
		return fmt.Errorf("eventloop: compressing frame for pane %d: %w", paneID, err)
	}

	l.mu.Lock()
	sender, ok := l.senders[client]
	l.mu.Unlock()
	if !ok {
		return nil // client disconnected between the decision and the send
	}
	if err := sender.Send(compressed); err != nil {
		return fmt.Errorf("eventloop: sending frame to client %s: %w", client, err)
	}

	l.mu.Lock()
	sub.LastSeenGen = newGen
	sub.State = Tracking
	l.mu.Unlock()
	return nil
}

func (l *Loop) sendPong(client registry.ClientID) error {
	m := wire.NewMap()
	m.Set("type", wire.VString(string(wire.FramePong)))
	frame, err := wire.CompressFrame(m)
	if err != nil {
		return err
	}
	l.mu.Lock()
	sender, ok := l.senders[client]
	l.mu.Unlock()
	if !ok {
		return nil
	}
	return sender.Send(frame)
}

// broadcastMasterChanged fans a master-changed structural event out to
// every connected client (spec.md §4.4's "arbiter also broadcasts
// master-identity changes").
func (l *Loop) broadcastMasterChanged(paneID uint16) {
	master, _ := l.clients.Master(paneID)

	m := wire.NewMap()
	m.Set("type", wire.VString(string(wire.FrameMasterChanged)))
	m.Set("paneId", wire.VUint(uint64(paneID)))
	m.Set("masterClientId", wire.VString(string(master)))

	l.broadcast(m)
}

// BroadcastPaneAdded announces a newly created pane to every client.
func (l *Loop) BroadcastPaneAdded(paneID uint16) {
	m := wire.NewMap()
	m.Set("type", wire.VString(string(wire.FramePaneAdded)))
	m.Set("paneId", wire.VUint(uint64(paneID)))
	l.broadcast(m)
}

// BroadcastPaneClosed announces a pane's teardown and drops every client's
// subscription to it.
func (l *Loop) BroadcastPaneClosed(paneID uint16) {
	l.mu.Lock()
	for _, subs := range l.subs {
		delete(subs, paneID)
	}
	l.mu.Unlock()

	m := wire.NewMap()
	m.Set("type", wire.VString(string(wire.FramePaneClosed)))
	m.Set("paneId", wire.VUint(uint64(paneID)))
	l.broadcast(m)
}

func (l *Loop) broadcast(m wire.Map) {
	frame, err := wire.CompressFrame(m)
	if err != nil {
		l.log.Error().Err(err).Msg("failed to encode structural event")
		return
	}

	l.mu.Lock()
	senders := make([]Sender, 0, len(l.senders))
	for _, s := range l.senders {
		senders = append(senders, s)
	}
	l.mu.Unlock()

	for _, s := range senders {
		if err := s.Send(frame); err != nil {
			l.log.Debug().Err(err).Msg("broadcast send failed, client likely gone")
		}
	}
}

// keyToBytes translates a keyboard event into the byte sequence written to
// the PTY (spec.md §6's "key" message: "translated to bytes").
func keyToBytes(msg ClientMessage) []byte {
	if msg.State == "up" {
		return nil
	}
	switch msg.Key {
	case "Enter":
		return []byte("\r")
	case "Backspace":
		return []byte{0x7f}
	case "Tab":
		return []byte("\t")
	case "Escape":
		return []byte{0x1b}
	case "ArrowUp":
		return []byte("\x1b[A")
	case "ArrowDown":
		return []byte("\x1b[B")
	case "ArrowRight":
		return []byte("\x1b[C")
	case "ArrowLeft":
		return []byte("\x1b[D")
	default:
		if len(msg.Key) == 1 {
			return []byte(msg.Key)
		}
		return nil
	}
}

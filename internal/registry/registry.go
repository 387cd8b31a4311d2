// Package registry tracks connected clients and arbitrates, per pane,
// which single client is allowed to mutate it — spec.md §4.4.
package registry

import (
	"sync"

	"github.com/google/uuid"
)

// ClientID identifies one connected renderer for the lifetime of its
// transport connection.
type ClientID string

// NewClientID mints a fresh client identifier, the same uuid.New().String()
// idiom the teacher uses for SSE client correlation in handlers/events.go.
func NewClientID() ClientID {
	return ClientID(uuid.New().String())
}

// MutatingMessageType enumerates the client-to-server message types that
// require master status (spec.md §4.4, §6).
type MutatingMessageType string

const (
	MsgKey    MutatingMessageType = "key"
	MsgText   MutatingMessageType = "text"
	MsgResize MutatingMessageType = "resize"
	MsgScroll MutatingMessageType = "scroll"
)

// Client is the registry's record of one connected renderer.
type Client struct {
	ID           ClientID
	ThemeName    string
	ThemeFG      string
	ThemeBG      string
	MasterOf     map[uint16]bool
	FocusedPane  uint16
	HasFocus     bool
}

// Registry holds every connected client and the per-pane master
// assignment. A single Registry instance is shared by the event loop and
// every per-client task.
type Registry struct {
	mu      sync.Mutex
	clients map[ClientID]*Client
	masters map[uint16]ClientID // paneID -> current master, absent if unassigned
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		clients: make(map[ClientID]*Client),
		masters: make(map[uint16]ClientID),
	}
}

// Connect registers a new client after it sends its hello message.
func (r *Registry) Connect(themeName, themeFG, themeBG string) *Client {
	c := &Client{
		ID:        NewClientID(),
		ThemeName: themeName,
		ThemeFG:   themeFG,
		ThemeBG:   themeBG,
		MasterOf:  make(map[uint16]bool),
	}
	r.mu.Lock()
	r.clients[c.ID] = c
	r.mu.Unlock()
	return c
}

// Disconnect removes a client and releases every mastership it held,
// returning the panes whose master just changed so the caller can
// broadcast master-changed structural events.
func (r *Registry) Disconnect(id ClientID) []uint16 {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[id]
	if !ok {
		return nil
	}
	delete(r.clients, id)

	var released []uint16
	for paneID := range c.MasterOf {
		if r.masters[paneID] == id {
			delete(r.masters, paneID)
			released = append(released, paneID)
		}
	}
	return released
}

// Master returns the current master client for a pane, if any.
func (r *Registry) Master(paneID uint16) (ClientID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.masters[paneID]
	return id, ok
}

// Snapshot returns a copy of every connected client handle, safe to
// iterate without holding the registry lock during broadcast I/O (spec.md
// §5's shared-resource policy for the client list).
func (r *Registry) Snapshot() []*Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out
}

// AdmitMutation is the master-arbitration filter of spec.md §4.4: the
// first client to send a mutating message to an unassigned pane becomes
// its master. Returns true if sender is (now) the master and the message
// should be applied; false if it must be silently dropped. The second
// return reports whether this call changed who the master is (for
// broadcasting master-changed).
func (r *Registry) AdmitMutation(paneID uint16, sender ClientID) (admitted, changed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, hasMaster := r.masters[paneID]
	if hasMaster {
		return current == sender, false
	}

	c, ok := r.clients[sender]
	if !ok {
		return false, false
	}
	r.masters[paneID] = sender
	c.MasterOf[paneID] = true
	return true, true
}

// RequestMaster grants explicit master status immediately if the pane has
// no master — spec.md §4.4 ("the arbiter grants it immediately if no other
// master exists, or after the current master releases or disconnects"). It
// does NOT preempt a live master: a request arriving while someone else
// already holds the pane is a no-op, exactly like AdmitMutation's handling
// of a non-master sender. The requester gets master status only once the
// current holder calls ReleaseMaster or disconnects.
func (r *Registry) RequestMaster(paneID uint16, sender ClientID) (changed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[sender]
	if !ok {
		return false
	}
	if _, ok := r.masters[paneID]; ok {
		return false // a master (possibly sender itself) already holds the pane
	}
	r.masters[paneID] = sender
	c.MasterOf[paneID] = true
	return true
}

// ReleaseMaster gives up sender's mastership of paneID, if held.
func (r *Registry) ReleaseMaster(paneID uint16, sender ClientID) (changed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.masters[paneID] != sender {
		return false
	}
	delete(r.masters, paneID)
	if c, ok := r.clients[sender]; ok {
		delete(c.MasterOf, paneID)
	}
	return true
}

// SetFocus records a client's local focus hint — read-only, always
// accepted regardless of mastership (spec.md §4.4).
func (r *Registry) SetFocus(clientID ClientID, paneID uint16, focused bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[clientID]
	if !ok {
		return
	}
	c.FocusedPane = paneID
	c.HasFocus = focused
}

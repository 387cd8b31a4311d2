// Package layout models the Session/Window/Layout tree of spec.md §3 and
// persists named layout templates to a JSON file under the user's
// configuration directory, auto-populated with built-in templates if
// missing — the same save/load-state-to-disk idiom as the teacher's
// SessionService (internal/services/session.go).
package layout

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// NodeKind distinguishes a container from a leaf in a LayoutNode tree.
type NodeKind string

const (
	NodeContainer NodeKind = "container"
	NodePane      NodeKind = "pane"
)

// Orientation describes how a container's children are arranged.
type Orientation string

const (
	OrientHorizontal Orientation = "horizontal"
	OrientVertical   Orientation = "vertical"
)

// Node is either a container with children and percentage splits, or a
// leaf naming one pane (spec.md §3's LayoutNode).
type Node struct {
	Kind        NodeKind    `json:"kind"`
	Orientation Orientation `json:"orientation,omitempty"`
	Children    []*Node     `json:"children,omitempty"`
	Percent     []float64   `json:"percent,omitempty"` // parallel to Children
	PaneID      uint16      `json:"paneId,omitempty"`
}

// Leaf builds a pane leaf node.
func Leaf(paneID uint16) *Node {
	return &Node{Kind: NodePane, PaneID: paneID}
}

// Container builds a container node splitting children by percent.
func Container(orientation Orientation, children []*Node, percent []float64) *Node {
	return &Node{Kind: NodeContainer, Orientation: orientation, Children: children, Percent: percent}
}

// PaneIDs returns every pane id referenced by the tree, in tree order.
func (n *Node) PaneIDs() []uint16 {
	if n == nil {
		return nil
	}
	if n.Kind == NodePane {
		return []uint16{n.PaneID}
	}
	var out []uint16
	for _, c := range n.Children {
		out = append(out, c.PaneIDs()...)
	}
	return out
}

// Window holds an ordered set of panes arranged by an immutable layout
// tree. Changing the layout replaces the tree wholesale (spec.md §3).
type Window struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Layout *Node  `json:"layout"`
}

// Session is the top-level grouping of windows a client attaches to.
type Session struct {
	ID      string    `json:"id"`
	Windows []*Window `json:"windows"`
}

// Template is a named, reusable layout tree shape, keyed independently of
// any live pane ids — instantiating a template means walking its shape
// and handing out fresh pane ids as leaves are filled in.
type Template struct {
	Name   string `json:"name"`
	Layout *Node  `json:"layout"`
}

// builtinTemplates mirrors spec.md §3's "single, 2-col, 2x2, main-side, …"
// list. Pane ids are placeholders (0) — Instantiate replaces them.
func builtinTemplates() []Template {
	return []Template{
		{Name: "single", Layout: Leaf(0)},
		{Name: "2-col", Layout: Container(OrientHorizontal, []*Node{Leaf(0), Leaf(0)}, []float64{50, 50})},
		{Name: "2x2", Layout: Container(OrientVertical, []*Node{
			Container(OrientHorizontal, []*Node{Leaf(0), Leaf(0)}, []float64{50, 50}),
			Container(OrientHorizontal, []*Node{Leaf(0), Leaf(0)}, []float64{50, 50}),
		}, []float64{50, 50})},
		{Name: "main-side", Layout: Container(OrientHorizontal, []*Node{Leaf(0), Leaf(0)}, []float64{70, 30})},
	}
}

// Instantiate walks a template's shape depth-first, replacing each leaf's
// placeholder pane id with the next id from nextID in turn.
func Instantiate(tmpl Template, nextID func() uint16) *Node {
	return instantiate(tmpl.Layout, nextID)
}

func instantiate(n *Node, nextID func() uint16) *Node {
	if n == nil {
		return nil
	}
	if n.Kind == NodePane {
		return Leaf(nextID())
	}
	children := make([]*Node, len(n.Children))
	for i, c := range n.Children {
		children[i] = instantiate(c, nextID)
	}
	percent := make([]float64, len(n.Percent))
	copy(percent, n.Percent)
	return Container(n.Orientation, children, percent)
}

// Store loads and persists the named layout templates JSON file, and is
// safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	path    string
	tmpl    map[string]Template
	watcher *fsnotify.Watcher
	stop    chan struct{}
}

// NewStore opens (creating if absent) the templates file at configDir and
// seeds it with the built-in templates if it doesn't already exist.
func NewStore(configDir string) (*Store, error) {
	s := &Store{
		path: filepath.Join(configDir, "layouts.json"),
		tmpl: make(map[string]Template),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Watch starts a filesystem watcher on the templates file so that an
// operator hand-editing layouts.json outside the running daemon gets
// picked up without a restart, the same fsnotify.Watcher idiom the
// teacher's CommitSyncService uses to react to external writes under
// refs/heads (internal/services/commit_sync.go's monitorFilesystem). Watch
// is optional: Store works perfectly well without it, exercised only by
// internal/server's long-running daemon, not the admin CLI's short-lived
// Store opens.
func (s *Store) Watch(log zerolog.Logger) error {
	s.mu.Lock()
	if s.watcher != nil {
		s.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("layout: creating filesystem watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		s.mu.Unlock()
		watcher.Close()
		return fmt.Errorf("layout: watching %s: %w", filepath.Dir(s.path), err)
	}
	s.watcher = watcher
	s.stop = make(chan struct{})
	s.mu.Unlock()

	go s.monitorFilesystem(log)
	return nil
}

// Close stops the filesystem watcher, if Watch was called.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher == nil {
		return nil
	}
	close(s.stop)
	err := s.watcher.Close()
	s.watcher = nil
	return err
}

func (s *Store) monitorFilesystem(log zerolog.Logger) {
	for {
		select {
		case <-s.stop:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Name != s.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := s.load(); err != nil {
				log.Warn().Err(err).Str("path", s.path).Msg("reloading externally edited layouts file failed")
			} else {
				log.Info().Str("path", s.path).Msg("reloaded layouts file after external edit")
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("layout file watcher error")
		}
	}
}

func (s *Store) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		for _, t := range builtinTemplates() {
			s.tmpl[t.Name] = t
		}
		return s.saveLocked()
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("layout: reading %s: %w", s.path, err)
	}
	var list []Template
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("layout: parsing %s: %w", s.path, err)
	}
	s.tmpl = make(map[string]Template, len(list))
	for _, t := range list {
		s.tmpl[t.Name] = t
	}
	return nil
}

func (s *Store) saveLocked() error {
	list := make([]Template, 0, len(s.tmpl))
	for _, t := range s.tmpl {
		list = append(list, t)
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("layout: marshaling templates: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("layout: creating config dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("layout: writing %s: %w", s.path, err)
	}
	return nil
}

// Get returns a named template.
func (s *Store) Get(name string) (Template, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tmpl[name]
	return t, ok
}

// Put saves (or replaces) a named template and persists the change.
func (s *Store) Put(t Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tmpl[t.Name] = t
	return s.saveLocked()
}

// Names returns every known template name.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.tmpl))
	for name := range s.tmpl {
		out = append(out, name)
	}
	return out
}

// Package pane binds a PTY writer, a persistent VT terminal, and the
// row-identity/dirty-tracking machinery of internal/grid into the
// replication unit spec.md §3 calls a Pane.
package pane

import (
	"sync"

	"github.com/raymond-w-ko/dullahan-sub005/internal/grid"
)

// Writer is the PTY-master side of a pane: bytes written here are sent to
// the child process's input. internal/ptyproc satisfies this.
type Writer interface {
	Write(p []byte) (int, error)
}

// Cursor describes where the cursor sits and how it should be rendered.
type Cursor struct {
	X, Y    int
	Visible bool
	StyleID uint16
}

// Viewport describes how much scrollback exists and where the visible
// window currently sits within it.
type Viewport struct {
	TotalRows   int
	ViewportTop int
}

// Snapshot is the full pane-state record of spec.md §4.3.
type Snapshot struct {
	Generation uint64
	Cols, Rows int
	Cursor     Cursor
	AltScreen  bool
	Viewport   Viewport
	Cells      []grid.Cell // row-major, len == Cols*Rows
	Styles     []grid.Style
	RowIDs     []uint64
	Graphemes  []grid.GraphemeEntry // keyed by flat y*cols+x
}

// DeltaRow is one changed, currently-visible row.
type DeltaRow struct {
	RowID     uint64
	Cells     []grid.Cell           // len == Cols
	Graphemes []grid.GraphemeEntry // keyed by x within this row
}

// Delta is the dirty-row diff of spec.md §4.3.
type Delta struct {
	Generation uint64
	Rows       []DeltaRow
}

// Pane is the unit of replication: one PTY, one persistent VT terminal, one
// generation counter, one dirty-row set.
type Pane struct {
	mu sync.Mutex

	ID   uint16
	ptyw Writer

	term    *grid.Terminal
	rowIDs  *grid.RowIdentity
	dirty   *grid.DirtyTracker

	altScreen   bool
	viewportTop int
}

// New creates a pane bound to the given PTY writer, with an initial grid of
// cols x rows.
func New(id uint16, ptyw Writer, cols, rows int) *Pane {
	return &Pane{
		ID:     id,
		ptyw:   ptyw,
		term:   grid.NewTerminal(cols, rows),
		rowIDs: grid.NewRowIdentity(rows),
		dirty:  grid.NewDirtyTracker(cols, rows),
	}
}

// Feed advances the persistent parser with PTY output, bumps the
// generation if anything visibly changed, and updates the dirty row set
// (spec.md §4.1, §4.2). The parser is never recreated — it lives for the
// lifetime of the Pane (see internal/grid.Terminal and spec.md §9).
func (p *Pane) Feed(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.term.Feed(data)
	p.dirty.Scan(p.term, p.rowIDs)
}

// Write enqueues bytes to the PTY master — this never touches pane state
// directly; the resulting echo, if any, arrives back through Feed.
func (p *Pane) Write(data []byte) (int, error) {
	return p.ptyw.Write(data)
}

// Resize reflows the grid, bumps the generation, and — because every row's
// identity may change across a reflow — rebases the dirty set rather than
// trying to preserve individual row identities (spec.md §4.2).
func (p *Pane) Resize(cols, rows int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.term.Resize(cols, rows)
	p.rowIDs.Reassign(rows)
	p.dirty.Rebase(rows)
}

// Scroll shifts the viewport by delta_lines (positive scrolls toward older
// history). It rebases the dirty set the same way Resize does: the
// generation is bumped and the dirty set cleared, so every subscribed
// client's next update is a snapshot. It does not mark individual revealed
// rows dirty. Dullahan's Terminal Grid collaborator (vt10x) does not itself
// expose a scrollback store, so the viewport offset here is bookkeeping
// only — the visible grid is whatever vt10x currently holds.
func (p *Pane) Scroll(deltaLines int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.viewportTop += deltaLines
	if p.viewportTop < 0 {
		p.viewportTop = 0
	}
	p.dirty.Rebase(p.term.Rows())
}

// Generation returns the pane's current generation counter.
func (p *Pane) Generation() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dirty.Generation()
}

// DirtyBaseGeneration returns the generation the live dirty set is relative
// to.
func (p *Pane) DirtyBaseGeneration() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dirty.DirtyBaseGeneration()
}

// Snapshot materializes the full current pane state.
func (p *Pane) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Pane) snapshotLocked() Snapshot {
	cols, rows := p.term.Cols(), p.term.Rows()
	cells := make([]grid.Cell, 0, cols*rows)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			cells = append(cells, p.term.CellAt(x, y))
		}
	}

	cx, cy, visible := p.term.Cursor()
	cursorStyle := uint16(0)
	if cy >= 0 && cy < rows && cx >= 0 && cx < cols {
		cursorStyle = p.term.CellAt(cx, cy).StyleID()
	}

	return Snapshot{
		Generation: p.dirty.Generation(),
		Cols:       cols,
		Rows:       rows,
		Cursor: Cursor{
			X:       cx,
			Y:       cy,
			Visible: visible,
			StyleID: cursorStyle,
		},
		AltScreen: p.altScreen,
		Viewport: Viewport{
			TotalRows:   rows,
			ViewportTop: p.viewportTop,
		},
		Cells:     cells,
		Styles:    p.term.Styles().Snapshot(),
		RowIDs:    p.rowIDs.IDs(),
		Graphemes: p.term.Graphemes().Entries(),
	}
}

// DeltaThreshold records the delta-vs-snapshot size policy of spec.md
// §4.2/§9 as a fraction of Rows(). Nothing reads it: DeltaSince never
// switches to a snapshot because of how many rows are dirty; only a client
// behind dirty_base_gen gets a snapshot.
const DeltaThreshold = 1.0

// DeltaSince returns the rows that changed strictly after clientGen, or
// (Delta{}, false) if the client is too stale (behind dirty_base_gen) and
// must be sent a snapshot instead (spec.md §4.3). Because this is keyed by
// the caller's own clientGen rather than a set that gets cleared on read,
// any number of clients at different generations can each call DeltaSince
// against the same pane state without disturbing one another.
func (p *Pane) DeltaSince(clientGen uint64) (Delta, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if clientGen < p.dirty.DirtyBaseGeneration() {
		return Delta{}, false
	}

	rows := p.term.Rows()
	cols := p.term.Cols()
	ids := p.rowIDs.IDs()
	visible := make(map[uint64]int, len(ids))
	for i, id := range ids {
		visible[id] = i
	}

	var out Delta
	out.Generation = p.dirty.Generation()
	for _, id := range p.dirty.DirtyRowIDsSince(clientGen) {
		y, ok := visible[id]
		if !ok {
			continue // scrolled out of the visible region; not re-sent (spec.md §4.3)
		}
		row := DeltaRow{RowID: id, Cells: make([]grid.Cell, cols)}
		for x := 0; x < cols; x++ {
			row.Cells[x] = p.term.CellAt(x, y)
			if cp, ok := p.term.Graphemes().Get(y*cols + x); ok {
				row.Graphemes = append(row.Graphemes, grid.GraphemeEntry{Index: x, Codepoints: cp})
			}
		}
		out.Rows = append(out.Rows, row)
	}
	return out, true
}

package grid

import "hash/fnv"

// DirtyTracker computes, generation over generation, which visible rows of
// a pane's grid changed since the last scan. It is the layer that turns
// vt10x's "here is the current viewport" view into the generation/dirty-set
// model spec.md §4.1 needs for delta encoding.
//
// vt10x gives no per-row change notifications, so each Scan recomputes a
// content signature for every visible row and diffs it against the
// signature recorded at the previous scan. A row whose signature changed
// is dirty. A scroll of n lines is detected by recognizing that the new row
// i's signature equals the old row i+n's signature for every row that
// stayed on screen — in that case RowIdentity.ShiftUp is used instead of
// treating every row as dirty, and only the freshly-revealed rows at the
// bottom are marked dirty (SPEC_FULL.md Open Question #2).
//
// Each dirty row_id is stamped with the generation at which it last
// changed, rather than a bare present/absent flag. This is what lets
// multiple clients, each with their own last-seen generation, each get
// exactly the rows that changed since *their* generation from the same
// shared tracker — no client's read rebases anything for another client.
// Only Rebase clears the set; Pane calls it on resize and on scroll.
type DirtyTracker struct {
	cols, rows int
	prevSig    []uint64
	dirtyGen   map[uint64]uint64 // row_id -> generation it last changed at
	generation uint64
	dirtyBase  uint64
}

// NewDirtyTracker creates a tracker for a grid of the given size. The
// initial scan is considered generation 0 with nothing dirty.
func NewDirtyTracker(cols, rows int) *DirtyTracker {
	return &DirtyTracker{
		cols:     cols,
		rows:     rows,
		prevSig:  make([]uint64, rows),
		dirtyGen: make(map[uint64]uint64),
	}
}

// Generation returns the current generation counter.
func (d *DirtyTracker) Generation() uint64 { return d.generation }

// DirtyBaseGeneration returns the generation the current dirty set is
// relative to; a client whose last-seen generation is older than this must
// request a fresh snapshot rather than a delta (spec.md §4.3).
func (d *DirtyTracker) DirtyBaseGeneration() uint64 { return d.dirtyBase }

// DirtyRowIDs returns every row_id dirty relative to DirtyBaseGeneration.
func (d *DirtyTracker) DirtyRowIDs() []uint64 {
	out := make([]uint64, 0, len(d.dirtyGen))
	for id := range d.dirtyGen {
		out = append(out, id)
	}
	return out
}

// DirtyRowIDsSince returns the row_ids that changed strictly after
// clientGen — the per-client view spec.md §4.3's delta_since(g) describes,
// as opposed to DirtyRowIDs' "everyone since the last rebase" view.
func (d *DirtyTracker) DirtyRowIDsSince(clientGen uint64) []uint64 {
	out := make([]uint64, 0, len(d.dirtyGen))
	for id, gen := range d.dirtyGen {
		if gen > clientGen {
			out = append(out, id)
		}
	}
	return out
}

func rowSignature(t *Terminal, y int) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for x := 0; x < t.Cols(); x++ {
		cell := t.CellAt(x, y)
		b := cell.Bytes()
		copy(buf[:], b[:])
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}

// Scan recomputes row signatures from the live terminal grid, updates the
// dirty set for the new generation, and drives RowIdentity so that scrolled
// rows keep their identity (spec.md §4.2) instead of being reassigned.
//
// Cursor-only movement does not change any row's signature, so calling
// Scan after a cursor-only escape sequence correctly leaves the dirty set
// unchanged (spec.md invariant: cursor moves alone never dirty a row).
func (d *DirtyTracker) Scan(t *Terminal, ri *RowIdentity) {
	rows := t.Rows()
	if rows != d.rows || t.Cols() != d.cols {
		// Resize already triggers a full Reassign + rebase via Rebase; a
		// mismatched call here would be a caller bug, so just resync sizes.
		d.cols, d.rows = t.Cols(), rows
		d.prevSig = make([]uint64, rows)
	}

	newSig := make([]uint64, rows)
	for y := 0; y < rows; y++ {
		newSig[y] = rowSignature(t, y)
	}

	if d.generation == 0 {
		// Generation 0 is the blank grid: until the first change, diff
		// against a blank terminal of the same size rather than the
		// zero-filled prevSig, so rows that are still blank stay clean.
		blank := NewTerminal(t.Cols(), rows)
		for y := 0; y < rows; y++ {
			d.prevSig[y] = rowSignature(blank, y)
		}
	}

	shift := detectShift(d.prevSig, newSig)
	if shift > 0 {
		retired := ri.ShiftUp(shift)
		for _, id := range retired {
			delete(d.dirtyGen, id)
		}
		d.generation++
		for y := rows - shift; y < rows; y++ {
			d.dirtyGen[ri.RowID(y)] = d.generation
		}
		d.prevSig = newSig
		return
	}

	var changedRows []int
	for y := 0; y < rows; y++ {
		if newSig[y] != d.prevSig[y] {
			changedRows = append(changedRows, y)
		}
	}
	if len(changedRows) > 0 {
		d.generation++
		for _, y := range changedRows {
			d.dirtyGen[ri.RowID(y)] = d.generation
		}
	}
	d.prevSig = newSig
}

// detectShift returns n > 0 if the new signature array looks like the old
// one scrolled up by n lines: new[0:rows-n] == old[n:rows]. Returns 0 if no
// such shift is detected, in which case the caller falls back to a
// row-by-row diff.
func detectShift(prev, next []uint64) int {
	rows := len(prev)
	if rows == 0 || len(next) != rows {
		return 0
	}
	if sigSliceEqual(prev, next) {
		return 0 // nothing moved; repeated (e.g. blank) rows must not read as a scroll
	}
	for n := 1; n < rows; n++ {
		if sigSliceEqual(prev[n:], next[:rows-n]) {
			return n
		}
	}
	return 0
}

func sigSliceEqual(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Rebase clears the dirty set and rebases dirty_base_gen to the current
// generation. Pane calls it on resize, which invalidates every row's prior
// identity (spec.md §4.2, §4.3), and on scroll. This is the
// only thing that clears the dirty set: an individual client reading a
// delta must not rebase it out from under every other subscribed client.
func (d *DirtyTracker) Rebase(rows int) {
	d.dirtyGen = make(map[uint64]uint64)
	d.generation++
	d.dirtyBase = d.generation
	d.rows = rows
	d.prevSig = make([]uint64, rows)
}

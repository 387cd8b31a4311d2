package grid

import "fmt"

// RowsPerPage is the fixed capacity the wire row-id composite reserves per
// page: row_id = page_serial*RowsPerPage + row_index_in_page, so the
// in-page index is row_id % RowsPerPage and the page serial is
// row_id / RowsPerPage (spec.md §3, §9).
const RowsPerPage = 1000

// ErrPageOverflow describes a page asked to hold more than RowsPerPage
// rows — see spec.md §9's "Open question" on page capacity. RowIdentity
// never returns it: assign enforces the cap by rolling over to a fresh page
// once the current one is full, rather than widening the identifier.
var ErrPageOverflow = fmt.Errorf("grid: page already holds %d rows", RowsPerPage)

// RowIdentity is the Row Identity Service of spec.md §4.2: it assigns
// stable row_id values to the rows of one pane's grid and tracks which
// pages have been retired by scrollback pruning.
//
// vt10x (the adopted Terminal Grid collaborator) exposes only the current
// viewport, not a page/scrollback concept of its own, so RowIdentity
// builds page allocation as a layer above it: every row that is ever
// assigned an id — whether currently on screen or long since scrolled into
// history — consumes one slot of the page it was assigned from. Pages are
// never reused once full; page_serial is strictly increasing for the
// lifetime of the pane (invariant (b) of spec.md §3).
type RowIdentity struct {
	nextPageSerial uint64
	curPage        uint64
	curPageFill    int

	// visible holds the row_id currently occupying each visible row index,
	// in viewport order (index 0 = top visible row).
	visible []uint64

	// retiredPages counts how many page_serials have been fully pruned
	// from scrollback, for observability only; it does not gate anything.
	retiredPages uint64
}

// NewRowIdentity creates a RowIdentity for a pane with the given initial
// visible row count, assigning each visible row a fresh id from page 0.
func NewRowIdentity(rows int) *RowIdentity {
	ri := &RowIdentity{}
	ri.allocatePage()
	ri.visible = make([]uint64, rows)
	for i := range ri.visible {
		ri.visible[i] = ri.assign()
	}
	return ri
}

func (ri *RowIdentity) allocatePage() {
	ri.curPage = ri.nextPageSerial
	ri.nextPageSerial++
	ri.curPageFill = 0
}

// assign hands out the next row_id, rolling to a new page when the current
// one is full.
func (ri *RowIdentity) assign() uint64 {
	if ri.curPageFill >= RowsPerPage {
		ri.allocatePage()
	}
	id := ri.curPage*RowsPerPage + uint64(ri.curPageFill)
	ri.curPageFill++
	return id
}

// RowID returns the current row_id for a visible row index.
func (ri *RowIdentity) RowID(index int) uint64 {
	if index < 0 || index >= len(ri.visible) {
		return 0
	}
	return ri.visible[index]
}

// IDs returns a copy of the current visible row_id array, top to bottom —
// this is exactly the row-id blob of spec.md §6 once little-endian packed.
func (ri *RowIdentity) IDs() []uint64 {
	out := make([]uint64, len(ri.visible))
	copy(out, ri.visible)
	return out
}

// ShiftUp is called when content scrolls up by n lines: the top n row_ids
// retire into scrollback (they keep their identity but are no longer
// "visible"), the remaining visible rows shift up, and n freshly assigned
// row_ids are appended at the bottom for the newly revealed blank rows.
// Returns the row_ids that scrolled out of view, oldest first.
func (ri *RowIdentity) ShiftUp(n int) []uint64 {
	if n <= 0 {
		return nil
	}
	if n > len(ri.visible) {
		n = len(ri.visible)
	}
	retired := make([]uint64, n)
	copy(retired, ri.visible[:n])
	ri.visible = append(ri.visible[n:], make([]uint64, n)...)
	for i := len(ri.visible) - n; i < len(ri.visible); i++ {
		ri.visible[i] = ri.assign()
	}
	return retired
}

// Reassign discards all current visible row identities and assigns fresh
// ones for a grid of the given row count. Pane calls it on resize, which
// spec.md §4.2 says may change every row's identity.
func (ri *RowIdentity) Reassign(rows int) {
	ri.visible = make([]uint64, rows)
	for i := range ri.visible {
		ri.visible[i] = ri.assign()
	}
}

// PageSerial returns the page_serial a row_id belongs to.
func PageSerial(rowID uint64) uint64 {
	return rowID / RowsPerPage
}

// RowIndexInPage returns the 0-999 in-page index of a row_id.
func RowIndexInPage(rowID uint64) uint64 {
	return rowID % RowsPerPage
}

// RetirePages records that scrollback pruning has permanently dropped the
// pages older than (and not including) keepFromSerial. It does not
// invalidate in-flight row_ids; callers are expected to have already
// stopped referencing rows in pruned pages.
func (ri *RowIdentity) RetirePages(keepFromSerial uint64) {
	if keepFromSerial > ri.retiredPages {
		ri.retiredPages = keepFromSerial
	}
}

package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirtyTrackerCursorOnlyMoveIsNotDirty(t *testing.T) {
	term := NewTerminal(10, 3)
	ri := NewRowIdentity(3)
	dt := NewDirtyTracker(10, 3)
	dt.Scan(term, ri) // establish baseline signatures

	row0 := ri.RowID(0)
	term.Feed([]byte("\x1b[2;1H")) // move cursor to row 1 (0-indexed), no glyph change
	dt.Scan(term, ri)

	assert.NotContains(t, dt.DirtyRowIDs(), row0)
}

func TestDirtyTrackerMarksChangedRow(t *testing.T) {
	term := NewTerminal(10, 3)
	ri := NewRowIdentity(3)
	dt := NewDirtyTracker(10, 3)
	dt.Scan(term, ri)

	row0 := ri.RowID(0)
	term.Feed([]byte("x"))
	dt.Scan(term, ri)

	assert.Contains(t, dt.DirtyRowIDs(), row0)
}

func TestDirtyTrackerRebaseClearsDirtySet(t *testing.T) {
	term := NewTerminal(10, 3)
	ri := NewRowIdentity(3)
	dt := NewDirtyTracker(10, 3)
	dt.Scan(term, ri)
	term.Feed([]byte("x"))
	dt.Scan(term, ri)
	require.NotEmpty(t, dt.DirtyRowIDs())

	dt.Rebase(3)
	assert.Empty(t, dt.DirtyRowIDs())
	assert.Equal(t, dt.Generation(), dt.DirtyBaseGeneration())
}

func TestDetectShiftRecognizesScroll(t *testing.T) {
	prev := []uint64{1, 2, 3, 4}
	next := []uint64{2, 3, 4, 9}
	assert.Equal(t, 1, detectShift(prev, next))
}

func TestDetectShiftNoMatch(t *testing.T) {
	prev := []uint64{1, 2, 3, 4}
	next := []uint64{5, 6, 7, 8}
	assert.Equal(t, 0, detectShift(prev, next))
}

package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowIdentityInitialAssignmentIsUnique(t *testing.T) {
	ri := NewRowIdentity(24)
	ids := ri.IDs()
	require.Len(t, ids, 24)

	seen := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		assert.False(t, seen[id], "row_id %d reused within the same grid", id)
		seen[id] = true
	}
}

func TestRowIdentityCompositePacking(t *testing.T) {
	ri := NewRowIdentity(5)
	ids := ri.IDs()
	for i, id := range ids {
		assert.EqualValues(t, 0, PageSerial(id))
		assert.EqualValues(t, i, RowIndexInPage(id))
	}
}

func TestRowIdentityPageRolloverNeverReuses(t *testing.T) {
	ri := NewRowIdentity(1)
	seen := make(map[uint64]bool)
	seen[ri.RowID(0)] = true

	// Shift enough times to roll past one full page (RowsPerPage) and
	// confirm no retired id is ever handed out again.
	for i := 0; i < RowsPerPage*2+10; i++ {
		retired := ri.ShiftUp(1)
		require.Len(t, retired, 1)
		newID := ri.RowID(0)
		assert.False(t, seen[newID], "row_id %d reused after retirement", newID)
		seen[newID] = true
	}
	assert.Greater(t, PageSerial(ri.RowID(0)), uint64(0))
}

func TestRowIdentityShiftUpPreservesOrder(t *testing.T) {
	ri := NewRowIdentity(4)
	before := ri.IDs()

	retired := ri.ShiftUp(2)
	assert.Equal(t, before[:2], retired)

	after := ri.IDs()
	assert.Equal(t, before[2:], after[:2])
	assert.NotContains(t, after, before[0])
	assert.NotContains(t, after, before[1])
}

func TestRowIdentityReassignOnResize(t *testing.T) {
	ri := NewRowIdentity(3)
	old := ri.IDs()

	ri.Reassign(6)
	fresh := ri.IDs()
	require.Len(t, fresh, 6)
	for _, id := range old {
		assert.NotContains(t, fresh, id, "resize must not reuse a pre-resize row_id")
	}
}

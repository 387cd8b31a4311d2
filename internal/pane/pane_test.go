package pane

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raymond-w-ko/dullahan-sub005/internal/grid"
)

// discardWriter satisfies Writer without a real PTY.
type discardWriter struct {
	written [][]byte
}

func (d *discardWriter) Write(p []byte) (int, error) {
	cp := make([]byte, len(p))
	copy(cp, p)
	d.written = append(d.written, cp)
	return len(p), nil
}

// TestFeedSplitSGRSequence is the E1 scenario of spec.md §8: an SGR true
// color escape split across two Feed calls must not leak a stray 'm' glyph
// and must still apply the intended style, proving the parser survives
// across chunk boundaries rather than being recreated per call.
func TestFeedSplitSGRSequence(t *testing.T) {
	p := New(1, &discardWriter{}, 80, 24)

	p.Feed([]byte("\x1b[38;2;215;119;87"))
	p.Feed([]byte("m│"))

	snap := p.Snapshot()
	require.NotEmpty(t, snap.Cells)

	cell := snap.Cells[0]
	assert.Equal(t, rune(0x2502), cell.Rune())

	style := snap.Styles[cell.StyleID()]
	assert.Equal(t, grid.ColorRGB, style.Foreground.Tag)
	assert.Equal(t, [3]byte{215, 119, 87}, style.Foreground.Bytes)

	for i := 1; i < len(snap.Cells); i++ {
		assert.NotEqual(t, rune('m'), snap.Cells[i].Rune(), "stray 'm' glyph at cell %d", i)
	}
}

// TestSnapshotDeltaDelta is the E2 scenario: snapshot then two successive
// deltas, with a cursor-only move (newline) in between that must not dirty
// the row it moved away from.
func TestSnapshotDeltaDelta(t *testing.T) {
	p := New(1, &discardWriter{}, 80, 24)

	p.Feed([]byte("A"))
	snap := p.Snapshot()
	require.EqualValues(t, 1, snap.Generation)
	rowID0 := snap.RowIDs[0]

	p.Feed([]byte("B"))
	delta, ok := p.DeltaSince(0)
	require.True(t, ok)
	require.EqualValues(t, 2, delta.Generation)
	require.Len(t, delta.Rows, 1)
	assert.Equal(t, rowID0, delta.Rows[0].RowID)
	assert.Equal(t, rune('A'), delta.Rows[0].Cells[0].Rune())
	assert.Equal(t, rune('B'), delta.Rows[0].Cells[1].Rune())

	p.Feed([]byte("\n"))
	p.Feed([]byte("C"))
	delta2, ok := p.DeltaSince(delta.Generation)
	require.True(t, ok)
	require.Len(t, delta2.Rows, 1, "cursor-only move must not dirty the row it left")
	assert.NotEqual(t, rowID0, delta2.Rows[0].RowID)
}

// TestDeltaSinceIsIndependentPerClient proves two clients tracking the same
// pane at different last-seen generations each get exactly their own
// missing rows — one client's DeltaSince call must not consume or rebase
// the dirty set out from under the other.
func TestDeltaSinceIsIndependentPerClient(t *testing.T) {
	p := New(1, &discardWriter{}, 80, 24)

	p.Feed([]byte("A"))
	gen1 := p.Generation()

	p.Feed([]byte("\rB"))
	gen2 := p.Generation()

	// Client X has seen nothing yet; client Y has already seen gen1.
	deltaX, ok := p.DeltaSince(0)
	require.True(t, ok)
	require.Len(t, deltaX.Rows, 1)
	assert.Equal(t, gen2, deltaX.Generation)

	deltaY, ok := p.DeltaSince(gen1)
	require.True(t, ok)
	require.Len(t, deltaY.Rows, 1, "client Y must still see the row changed since its own last-seen generation")
	assert.Equal(t, gen2, deltaY.Generation)

	// A third read at the already-current generation sees nothing new.
	deltaZ, ok := p.DeltaSince(gen2)
	require.True(t, ok)
	assert.Empty(t, deltaZ.Rows)
}

// TestStaleClientRequiresSnapshot is the E3 scenario: once dirty_base_gen
// has advanced past a client's last-seen generation, DeltaSince must
// signal that a snapshot is required instead.
func TestStaleClientRequiresSnapshot(t *testing.T) {
	p := New(1, &discardWriter{}, 80, 24)

	p.Feed([]byte("A"))
	gen1 := p.Generation()

	p.Resize(100, 30) // resize rebases dirty_base_gen past gen1

	_, ok := p.DeltaSince(gen1)
	assert.False(t, ok, "stale client must be told to take a snapshot")
}

// TestResizeSnapshotBlobLength is invariant 4 of spec.md §8: after a resize
// to (C', R'), a snapshot's cell blob has exactly C'*R' cells.
func TestResizeSnapshotBlobLength(t *testing.T) {
	p := New(1, &discardWriter{}, 80, 24)
	p.Feed([]byte("hello"))
	p.Resize(42, 17)
	p.Feed([]byte("world"))

	snap := p.Snapshot()
	assert.Equal(t, 42, snap.Cols)
	assert.Equal(t, 17, snap.Rows)
	assert.Len(t, snap.Cells, 42*17)
}

// TestWriteDoesNotMutatePaneState exercises property 5 indirectly at the
// pane layer: Write only reaches the PTY sink, never the grid, so it can
// never itself bump a generation (the master-filter, tested at the
// registry layer, governs whether Write is even called).
func TestWriteDoesNotMutatePaneState(t *testing.T) {
	w := &discardWriter{}
	p := New(1, w, 80, 24)

	before := p.Generation()
	n, err := p.Write([]byte("echo hi\n"))
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, before, p.Generation())
	require.Len(t, w.written, 1)
	assert.Equal(t, "echo hi\n", string(w.written[0]))
}

// TestByteChunkingEquivalence is invariant 1 of spec.md §8: feeding the
// same bytes in different chunk boundaries must yield the same final grid.
func TestByteChunkingEquivalence(t *testing.T) {
	full := "\x1b[1;32mhello\x1b[0m world\r\n\x1b[38;2;10;20;30mcolor\x1b[0m"

	whole := New(1, &discardWriter{}, 80, 24)
	whole.Feed([]byte(full))

	chunked := New(1, &discardWriter{}, 80, 24)
	for i := 0; i < len(full); i++ {
		chunked.Feed([]byte{full[i]})
	}

	a := whole.Snapshot()
	b := chunked.Snapshot()
	require.Equal(t, len(a.Cells), len(b.Cells))
	for i := range a.Cells {
		if a.Cells[i].Rune() != b.Cells[i].Rune() {
			t.Fatalf("cell %d rune mismatch: %q vs %q", i, a.Cells[i].Rune(), b.Cells[i].Rune())
		}
	}
}

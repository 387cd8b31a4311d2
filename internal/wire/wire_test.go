package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raymond-w-ko/dullahan-sub005/internal/grid"
	"github.com/raymond-w-ko/dullahan-sub005/internal/pane"
)

func TestValueMapRoundTrip(t *testing.T) {
	m := NewMap()
	m.Set("type", VString("snapshot"))
	m.Set("gen", VUint(42))
	m.Set("signed", VInt(-7))
	m.Set("ok", VBool(true))
	m.Set("blob", VBytes([]byte{1, 2, 3, 4}))
	inner := NewMap()
	inner.Set("x", VUint(1))
	m.Set("nested", VMap(inner))
	m.Set("arr", VArray([]Value{VUint(1), VUint(2), VUint(3)}))

	decoded, err := Decode(Encode(m))
	require.NoError(t, err)

	v, ok := decoded.Get("type")
	require.True(t, ok)
	assert.Equal(t, "snapshot", v.Str)

	v, ok = decoded.Get("gen")
	require.True(t, ok)
	assert.EqualValues(t, 42, v.Uint)

	v, ok = decoded.Get("signed")
	require.True(t, ok)
	assert.EqualValues(t, -7, v.Int)

	v, ok = decoded.Get("blob")
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3, 4}, v.Bytes)

	v, ok = decoded.Get("arr")
	require.True(t, ok)
	require.Len(t, v.Arr, 3)
	assert.EqualValues(t, 2, v.Arr[1].Uint)
}

func TestCellBlobRoundTrip(t *testing.T) {
	cells := []grid.Cell{
		grid.NewCell(grid.ContentCodepoint, 'A', 1, grid.WideNarrow, false, false),
		grid.NewCell(grid.ContentCodepointGrapheme, 0x1F44D, 2, grid.WideWide, false, false),
	}
	blob := EncodeCells(cells)
	assert.Len(t, blob, 16)

	decoded, err := DecodeCells(blob)
	require.NoError(t, err)
	assert.Equal(t, cells, decoded)
}

func TestStyleTableRoundTrip(t *testing.T) {
	styles := []grid.Style{
		{},
		{Foreground: grid.RGBColor(215, 119, 87), Flags: grid.FlagBold | grid.FlagUnderline},
	}
	blob := EncodeStyleTable(styles)
	decoded, err := DecodeStyleTable(blob)
	require.NoError(t, err)
	assert.Equal(t, styles, decoded)
}

func TestGraphemeTableRoundTrip(t *testing.T) {
	entries := []grid.GraphemeEntry{
		{Index: 245, Codepoints: []rune{0x1F3FB}},
	}
	blob := EncodeGraphemeTable(entries)
	decoded, err := DecodeGraphemeTable(blob)
	require.NoError(t, err)
	assert.Equal(t, entries, decoded)
}

func TestRowIDsRoundTrip(t *testing.T) {
	ids := []uint64{1000, 1001, 2000}
	blob := EncodeRowIDs(ids)
	assert.Len(t, blob, 24)
	decoded, err := DecodeRowIDs(blob)
	require.NoError(t, err)
	assert.Equal(t, ids, decoded)
}

// TestSnapshotFrameRoundTripThroughCompression is the round-trip law of
// spec.md §8: encoding a snapshot and decoding it reproduces the grid
// exactly, including through the brotli compression step used on the
// wire.
func TestSnapshotFrameRoundTripThroughCompression(t *testing.T) {
	snap := pane.Snapshot{
		Generation: 3,
		Cols:       2,
		Rows:       1,
		Cursor:     pane.Cursor{X: 1, Y: 0, Visible: true, StyleID: 1},
		Viewport:   pane.Viewport{TotalRows: 1, ViewportTop: 0},
		Cells: []grid.Cell{
			grid.NewCell(grid.ContentCodepoint, 'A', 1, grid.WideNarrow, false, false),
			grid.NewCell(grid.ContentCodepoint, 'B', 0, grid.WideNarrow, false, false),
		},
		Styles: []grid.Style{{}, {Foreground: grid.RGBColor(215, 119, 87)}},
		RowIDs: []uint64{7},
	}

	compressed, err := CompressFrame(EncodeSnapshot(1, snap))
	require.NoError(t, err)

	decodedMap, err := DecompressFrame(compressed)
	require.NoError(t, err)

	paneID, decoded, err := DecodeSnapshot(decodedMap)
	require.NoError(t, err)
	assert.EqualValues(t, 1, paneID)
	assert.Equal(t, snap.Generation, decoded.Generation)
	assert.Equal(t, snap.Cells, decoded.Cells)
	assert.Equal(t, snap.Styles, decoded.Styles)
	assert.Equal(t, snap.RowIDs, decoded.RowIDs)
	assert.Equal(t, snap.Cursor, decoded.Cursor)
}

func TestDeltaFrameRoundTrip(t *testing.T) {
	d := pane.Delta{
		Generation: 5,
		Rows: []pane.DeltaRow{
			{RowID: 3, Cells: []grid.Cell{
				grid.NewCell(grid.ContentCodepoint, 'A', 0, grid.WideNarrow, false, false),
			}},
		},
	}

	raw := Encode(EncodeDelta(2, d))
	decodedMap, err := Decode(raw)
	require.NoError(t, err)

	paneID, decoded, err := DecodeDelta(decodedMap)
	require.NoError(t, err)
	assert.EqualValues(t, 2, paneID)
	assert.Equal(t, d, decoded)
}

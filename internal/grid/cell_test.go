package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellPackingRoundTrip(t *testing.T) {
	c := NewCell(ContentCodepointGrapheme, 0x1F44D, 1234, WideWide, true, true)

	assert.Equal(t, ContentCodepointGrapheme, c.ContentTag())
	assert.Equal(t, rune(0x1F44D), c.Rune())
	assert.EqualValues(t, 1234, c.StyleID())
	assert.Equal(t, WideWide, c.Wide())
	assert.True(t, c.Protected())
	assert.True(t, c.Hyperlink())
}

func TestCellBytesRoundTrip(t *testing.T) {
	c := NewCell(ContentCodepoint, 'x', 7, WideNarrow, false, false)
	b := c.Bytes()
	require.Len(t, b, 8)

	decoded := CellFromBytes(b[:])
	assert.Equal(t, c, decoded)
}

func TestWithStyleIDLeavesOtherFieldsAlone(t *testing.T) {
	c := NewCell(ContentCodepoint, 'A', 5, WideSpacer, true, false)
	updated := c.WithStyleID(99)

	assert.EqualValues(t, 99, updated.StyleID())
	assert.Equal(t, c.Rune(), updated.Rune())
	assert.Equal(t, c.Wide(), updated.Wide())
	assert.Equal(t, c.Protected(), updated.Protected())
}

func TestCellReservedBitsZero(t *testing.T) {
	c := NewCell(ContentRGBBackgroundOnly, contentMask, 0xFFFF, WideNarrowPadded, true, true)
	// bits 46-63 must stay zero regardless of how the other fields saturate.
	assert.Equal(t, uint64(0), uint64(c)>>46)
}

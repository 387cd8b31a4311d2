package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGraphemeCluster is the E5 scenario of spec.md §8: writing a
// thumbs-up-plus-skin-tone emoji at (5,3) of an 80-column pane must land as
// a single cell tagged ContentCodepointGrapheme with the modifier recorded
// in the grapheme table at the matching flat index.
func TestGraphemeCluster(t *testing.T) {
	term := NewTerminal(80, 24)

	term.Feed([]byte("\x1b[4;6H")) // CSI cursor position: row 4, col 6 (1-indexed) == (5,3)
	term.Feed([]byte("\U0001F44D\U0001F3FB"))

	cell := term.CellAt(5, 3)
	assert.Equal(t, ContentCodepointGrapheme, cell.ContentTag())
	assert.Equal(t, rune(0x1F44D), cell.Rune())

	idx := 3*80 + 5
	require.Equal(t, 245, idx)

	entries := term.Graphemes().Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, idx, entries[0].Index)
	require.Len(t, entries[0].Codepoints, 1)
	assert.Equal(t, rune(0x1F3FB), entries[0].Codepoints[0])
}

// TestFeedPlainTextNoGrapheme ensures ordinary ASCII text is never tagged
// as a grapheme continuation.
func TestFeedPlainTextNoGrapheme(t *testing.T) {
	term := NewTerminal(80, 24)
	term.Feed([]byte("hello"))

	for i, want := range "hello" {
		cell := term.CellAt(i, 0)
		assert.Equal(t, ContentCodepoint, cell.ContentTag())
		assert.Equal(t, want, cell.Rune())
	}
	assert.Equal(t, 0, term.Graphemes().Len())
}

// TestSkipEscapeAdvancesPastCSI checks that splitRuns/skipEscape consume a
// complete CSI SGR sequence, final byte included, as one non-text run.
func TestSkipEscapeAdvancesPastCSI(t *testing.T) {
	term := NewTerminal(80, 24)
	data := []byte("\x1b[38;2;215;119;87m")
	runs := term.splitRuns(data)
	require.NotEmpty(t, runs)
	assert.False(t, runs[0].isText)
	assert.Equal(t, data, runs[0].bytes)
}

// TestFeedSplitCSIDoesNotStompGraphemeAtCursor is the regression the E1
// fixture's lucky chunking hides: a CSI sequence split so its terminator
// byte and a following plain character land in *different* Feed calls,
// arriving right after a multi-codepoint grapheme was written at the very
// cell the cursor now sits on. Before tracking escape state across Feed
// calls, the terminator byte and the following text were misclassified as
// a fresh text run, corrupting the grapheme table entry already recorded
// for that cell.
func TestFeedSplitCSIDoesNotStompGraphemeAtCursor(t *testing.T) {
	term := NewTerminal(80, 24)

	term.Feed([]byte("\U0001F44D\U0001F3FB")) // thumbs-up + skin tone at (0,0)
	idx := 0

	require.Equal(t, 1, term.Graphemes().Len())
	_, ok := term.Graphemes().Get(idx)
	require.True(t, ok, "grapheme must be recorded before the split sequence arrives")

	term.Feed([]byte("\r")) // carriage return: cursor back to (0,0), same cell as the grapheme
	term.Feed([]byte("\x1b[38;2;215;119;87")) // SGR split mid-sequence, no final byte yet
	term.Feed([]byte("m"))                    // terminator arrives alone in the next chunk

	_, ok = term.Graphemes().Get(idx)
	assert.True(t, ok, "a cross-chunk escape terminator must not be reclassified as text and delete the grapheme entry at the cursor's cell")
}

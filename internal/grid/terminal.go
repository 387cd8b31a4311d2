package grid

import (
	"github.com/hinshun/vt10x"
	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

// vt10x attribute mode bits, mirrored from the teacher's terminal_emulator.go
// wrapper since vt10x does not export named constants for them.
const (
	attrBold      = 1 << 0
	attrUnderline = 1 << 1
	attrBlink     = 1 << 2
	attrReverse   = 1 << 3
	attrItalic    = 1 << 4
)

// escState tracks where Feed left off inside an unterminated escape
// sequence at the end of a chunk, so the next Feed call resumes classifying
// bytes as escape continuation rather than plain text — spec.md §4.1's "the
// parser must not be recreated per byte chunk" applies just as much to this
// grapheme-attachment classifier as it does to vt10x's own state.
type escState int

const (
	escNone escState = iota
	escStart
	escCSI
	escOSC
	escOSCEsc
)

// Terminal wraps a single, persistent vt10x.Terminal instance for the
// lifetime of one pane — spec.md §4.1 is explicit that the parser must not
// be recreated per byte chunk, since PTY reads split escape sequences at
// arbitrary boundaries.
type Terminal struct {
	vt   vt10x.Terminal
	cols int
	rows int

	styles *StyleTable
	graph  *GraphemeTable

	esc escState // carries an unterminated escape sequence across Feed calls
}

// NewTerminal creates the persistent VT state machine for a pane.
func NewTerminal(cols, rows int) *Terminal {
	return &Terminal{
		vt:     vt10x.New(vt10x.WithSize(cols, rows)),
		cols:   cols,
		rows:   rows,
		styles: NewStyleTable(),
		graph:  NewGraphemeTable(),
	}
}

func (t *Terminal) Cols() int { return t.cols }
func (t *Terminal) Rows() int { return t.rows }

func (t *Terminal) Styles() *StyleTable     { return t.styles }
func (t *Terminal) Graphemes() *GraphemeTable { return t.graph }

// Feed advances the persistent parser with a chunk of PTY output. It also
// performs grapheme-cluster segmentation over the plain-text portions of
// the chunk (skipping escape/control sequences, which vt10x interprets
// directly) so that multi-codepoint clusters — e.g. an emoji plus a skin
// tone modifier — end up as a single cell with ContentTag
// ContentCodepointGrapheme plus an entry in the pane's GraphemeTable,
// instead of corrupting the grid with stray combining codepoints in
// adjacent cells (spec.md E5).
func (t *Terminal) Feed(data []byte) {
	for _, run := range t.splitRuns(data) {
		if run.isText {
			t.feedTextRun(run.bytes)
		} else {
			_, _ = t.vt.Write(run.bytes)
		}
	}
}

// feedTextRun grapheme-segments a run of plain printable bytes and writes
// one cluster at a time, recording multi-rune clusters in the grapheme
// table keyed by the cell vt10x's own cursor says the cluster landed on.
func (t *Terminal) feedTextRun(b []byte) {
	g := uniseg.NewGraphemes(string(b))
	for g.Next() {
		runes := g.Runes()
		if len(runes) == 0 {
			continue
		}
		cur := t.vt.Cursor()
		idx := cur.Y*t.cols + cur.X

		_, _ = t.vt.Write([]byte(string(runes[0])))

		if len(runes) > 1 {
			t.graph.Set(idx, runes[1:])
		} else {
			t.graph.Delete(idx)
		}
	}
}

// Resize reflows the grid to new dimensions.
func (t *Terminal) Resize(cols, rows int) {
	t.cols = cols
	t.rows = rows
	t.vt.Resize(cols, rows)
}

// Cursor returns the current cursor row/col and visibility.
func (t *Terminal) Cursor() (x, y int, visible bool) {
	c := t.vt.Cursor()
	return c.X, c.Y, t.vt.CursorVisible()
}

// CellAt packs the glyph at (x, y) into the wire Cell representation,
// interning its style into the pane's StyleTable.
func (t *Terminal) CellAt(x, y int) Cell {
	glyph := t.vt.Cell(x, y)

	style := Style{
		Foreground: vtColor(glyph.FG),
		Background: vtColor(glyph.BG),
		Flags:      vtFlags(glyph.Mode),
	}
	styleID := t.styles.Intern(style)

	wide := WideNarrow
	if runewidth.RuneWidth(glyph.Char) == 2 {
		wide = WideWide
	}

	tag := ContentCodepoint
	if _, ok := t.graph.Get(y*t.cols + x); ok {
		tag = ContentCodepointGrapheme
	}

	return NewCell(tag, uint32(glyph.Char), styleID, wide, false, false)
}

func vtColor(c vt10x.Color) Color {
	if c == vt10x.DefaultFG || c == vt10x.DefaultBG {
		return Color{Tag: ColorNone}
	}
	if c < 256 {
		return PaletteColor(byte(c))
	}
	r := byte((c >> 16) & 0xFF)
	g := byte((c >> 8) & 0xFF)
	bch := byte(c & 0xFF)
	return RGBColor(r, g, bch)
}

func vtFlags(mode int16) uint16 {
	var f uint16
	if mode&attrBold != 0 {
		f |= FlagBold
	}
	if mode&attrItalic != 0 {
		f |= FlagItalic
	}
	if mode&attrUnderline != 0 {
		f |= FlagUnderline
	}
	if mode&attrBlink != 0 {
		f |= FlagBlink
	}
	if mode&attrReverse != 0 {
		f |= FlagInverse
	}
	return f
}

type byteRun struct {
	bytes  []byte
	isText bool
}

// splitRuns partitions a PTY output chunk into alternating text and
// escape/control runs. It does not interpret the escapes themselves —
// vt10x does that — it only needs to know where NOT to run grapheme
// segmentation, the same "scan for a literal byte pattern without fully
// parsing" idiom the teacher uses for title and alternate-screen
// detection in handlers/pty.go. If a prior call left t.esc mid-sequence,
// this chunk's leading bytes resume that sequence as escape continuation
// rather than being reclassified as text.
func (t *Terminal) splitRuns(data []byte) []byteRun {
	var runs []byteRun
	i := 0

	if t.esc != escNone {
		start := i
		i = t.resumeEscape(data, i)
		runs = append(runs, byteRun{bytes: data[start:i], isText: false})
	}

	for i < len(data) {
		if data[i] == 0x1b {
			start := i
			i = t.skipEscape(data, i)
			runs = append(runs, byteRun{bytes: data[start:i], isText: false})
			continue
		}
		if data[i] < 0x20 {
			runs = append(runs, byteRun{bytes: data[i : i+1], isText: false})
			i++
			continue
		}
		start := i
		for i < len(data) && data[i] >= 0x20 && data[i] != 0x1b {
			i++
		}
		runs = append(runs, byteRun{bytes: data[start:i], isText: true})
	}
	return runs
}

// skipEscape returns the index just past a single escape sequence starting
// at data[start] (which must be ESC). Recognizes CSI (ESC '[' ... final
// byte 0x40-0x7e) and OSC (ESC ']' ... BEL or ST); any other byte after
// ESC is taken as a bare two-byte sequence, so forward progress is always
// made. If the chunk ends before the sequence
// terminates, it records enough of t.esc to resume correctly on the next
// Feed call instead of losing track of being mid-escape.
func (t *Terminal) skipEscape(data []byte, start int) int {
	i := start + 1
	if i >= len(data) {
		t.esc = escStart
		return i
	}
	switch data[i] {
	case '[':
		return t.scanCSI(data, i+1)
	case ']':
		return t.scanOSC(data, i+1)
	default:
		t.esc = escNone
		return i + 1
	}
}

// resumeEscape continues classifying bytes as escape continuation, picking
// up from whichever state t.esc recorded at the end of the previous chunk.
func (t *Terminal) resumeEscape(data []byte, i int) int {
	switch t.esc {
	case escStart:
		if i >= len(data) {
			return i // still just the lone ESC byte; remain in escStart
		}
		switch data[i] {
		case '[':
			return t.scanCSI(data, i+1)
		case ']':
			return t.scanOSC(data, i+1)
		default:
			t.esc = escNone
			return i + 1
		}
	case escCSI:
		return t.scanCSI(data, i)
	case escOSC:
		return t.scanOSC(data, i)
	case escOSCEsc:
		if i >= len(data) {
			return i
		}
		if data[i] == '\\' {
			t.esc = escNone
			return i + 1
		}
		return t.scanOSC(data, i) // buffered ESC wasn't an ST after all
	default:
		t.esc = escNone
		return i
	}
}

// scanCSI scans for a CSI final byte (0x40-0x7e) starting at i, leaving
// t.esc set to escCSI if the chunk runs out first.
func (t *Terminal) scanCSI(data []byte, i int) int {
	for i < len(data) && (data[i] < 0x40 || data[i] > 0x7e) {
		i++
	}
	if i < len(data) {
		t.esc = escNone
		return i + 1
	}
	t.esc = escCSI
	return i
}

// scanOSC scans for an OSC terminator (BEL, or ESC '\\' as ST) starting at
// i, leaving t.esc set to escOSC or escOSCEsc if the chunk runs out first.
func (t *Terminal) scanOSC(data []byte, i int) int {
	for i < len(data) {
		if data[i] == 0x07 {
			t.esc = escNone
			return i + 1
		}
		if data[i] == 0x1b {
			if i+1 < len(data) {
				if data[i+1] == '\\' {
					t.esc = escNone
					return i + 2
				}
				i++
				continue
			}
			t.esc = escOSCEsc
			return i
		}
		i++
	}
	t.esc = escOSC
	return i
}

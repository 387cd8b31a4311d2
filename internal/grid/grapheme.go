package grid

import "sort"

// GraphemeTable holds, for cells whose ContentTag is ContentCodepointGrapheme,
// the additional combining codepoints that follow the base rune stored in
// the Cell itself. Keys are cell indices: a flat y*cols+x within a
// snapshot, or just x within a single delta row (spec.md §3/§6).
type GraphemeTable struct {
	extra map[int][]rune
}

// NewGraphemeTable returns an empty table.
func NewGraphemeTable() *GraphemeTable {
	return &GraphemeTable{extra: make(map[int][]rune)}
}

// Set records the extra combining codepoints for a cell index, replacing
// any previous entry.
func (g *GraphemeTable) Set(index int, codepoints []rune) {
	if len(codepoints) == 0 {
		delete(g.extra, index)
		return
	}
	cp := make([]rune, len(codepoints))
	copy(cp, codepoints)
	g.extra[index] = cp
}

// Get returns the extra codepoints for a cell index, if any.
func (g *GraphemeTable) Get(index int) ([]rune, bool) {
	cp, ok := g.extra[index]
	return cp, ok
}

// Delete removes any entry for a cell index (used when a cell is
// overwritten with plain, non-grapheme content).
func (g *GraphemeTable) Delete(index int) {
	delete(g.extra, index)
}

// Len reports how many cells currently carry grapheme extensions.
func (g *GraphemeTable) Len() int {
	return len(g.extra)
}

// GraphemeEntry pairs a cell index with its combining codepoints. Entries
// returns them in ascending Index order, the order they go on the wire.
type GraphemeEntry struct {
	Index      int
	Codepoints []rune
}

// Entries returns every (index, codepoints) pair, ordered by index so the
// wire encoding is deterministic.
func (g *GraphemeTable) Entries() []GraphemeEntry {
	out := make([]GraphemeEntry, 0, len(g.extra))
	for idx, cp := range g.extra {
		out = append(out, GraphemeEntry{Index: idx, Codepoints: cp})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

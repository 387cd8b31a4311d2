package wire

import (
	"bytes"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"

	"github.com/raymond-w-ko/dullahan-sub005/internal/pane"
)

// FrameType is the required "type" key of spec.md §6.
type FrameType string

const (
	FrameSnapshot      FrameType = "snapshot"
	FrameDelta         FrameType = "delta"
	FramePong          FrameType = "pong"
	FrameLayout        FrameType = "layout"
	FramePaneAdded     FrameType = "pane-added"
	FramePaneClosed    FrameType = "pane-closed"
	FrameMasterChanged FrameType = "master-changed"
)

// EncodeSnapshot builds a "snapshot" frame map for the given pane state,
// per spec.md §4.3.
func EncodeSnapshot(paneID uint16, s pane.Snapshot) Map {
	m := NewMap()
	m.Set("type", VString(string(FrameSnapshot)))
	m.Set("paneId", VUint(uint64(paneID)))
	m.Set("gen", VUint(s.Generation))
	m.Set("cols", VUint(uint64(s.Cols)))
	m.Set("rows", VUint(uint64(s.Rows)))

	cursor := NewMap()
	cursor.Set("x", VUint(uint64(s.Cursor.X)))
	cursor.Set("y", VUint(uint64(s.Cursor.Y)))
	cursor.Set("visible", VBool(s.Cursor.Visible))
	cursor.Set("style", VUint(uint64(s.Cursor.StyleID)))
	m.Set("cursor", VMap(cursor))

	m.Set("altScreen", VBool(s.AltScreen))

	viewport := NewMap()
	viewport.Set("totalRows", VUint(uint64(s.Viewport.TotalRows)))
	viewport.Set("viewportTop", VUint(uint64(s.Viewport.ViewportTop)))
	m.Set("viewport", VMap(viewport))

	m.Set("cells", VBytes(EncodeCells(s.Cells)))
	m.Set("styles", VBytes(EncodeStyleTable(s.Styles)))
	m.Set("rowIds", VBytes(EncodeRowIDs(s.RowIDs)))
	m.Set("graphemes", VBytes(EncodeGraphemeTable(s.Graphemes)))
	return m
}

// DecodeSnapshot reverses EncodeSnapshot.
func DecodeSnapshot(m Map) (uint16, pane.Snapshot, error) {
	var s pane.Snapshot

	paneID, err := requireUint(m, "paneId")
	if err != nil {
		return 0, s, err
	}
	gen, err := requireUint(m, "gen")
	if err != nil {
		return 0, s, err
	}
	cols, err := requireUint(m, "cols")
	if err != nil {
		return 0, s, err
	}
	rows, err := requireUint(m, "rows")
	if err != nil {
		return 0, s, err
	}

	cursorV, ok := m.Get("cursor")
	if !ok || cursorV.Kind != KindMap {
		return 0, s, fmt.Errorf("wire: snapshot missing cursor map")
	}
	cx, _ := requireUint(cursorV.Map, "x")
	cy, _ := requireUint(cursorV.Map, "y")
	visV, _ := cursorV.Map.Get("visible")
	styleV, _ := requireUint(cursorV.Map, "style")

	altV, _ := m.Get("altScreen")

	viewportV, ok := m.Get("viewport")
	if !ok || viewportV.Kind != KindMap {
		return 0, s, fmt.Errorf("wire: snapshot missing viewport map")
	}
	totalRows, _ := requireUint(viewportV.Map, "totalRows")
	viewportTop, _ := requireUint(viewportV.Map, "viewportTop")

	cellsV, err := requireBytes(m, "cells")
	if err != nil {
		return 0, s, err
	}
	cells, err := DecodeCells(cellsV)
	if err != nil {
		return 0, s, err
	}

	stylesV, err := requireBytes(m, "styles")
	if err != nil {
		return 0, s, err
	}
	styles, err := DecodeStyleTable(stylesV)
	if err != nil {
		return 0, s, err
	}

	rowIDsV, err := requireBytes(m, "rowIds")
	if err != nil {
		return 0, s, err
	}
	rowIDs, err := DecodeRowIDs(rowIDsV)
	if err != nil {
		return 0, s, err
	}

	graphemesV, err := requireBytes(m, "graphemes")
	if err != nil {
		return 0, s, err
	}
	graphemes, err := DecodeGraphemeTable(graphemesV)
	if err != nil {
		return 0, s, err
	}

	s = pane.Snapshot{
		Generation: gen,
		Cols:       int(cols),
		Rows:       int(rows),
		Cursor: pane.Cursor{
			X:       int(cx),
			Y:       int(cy),
			Visible: visV.Bool,
			StyleID: uint16(styleV),
		},
		AltScreen: altV.Bool,
		Viewport: pane.Viewport{
			TotalRows:   int(totalRows),
			ViewportTop: int(viewportTop),
		},
		Cells:     cells,
		Styles:    styles,
		RowIDs:    rowIDs,
		Graphemes: graphemes,
	}
	return uint16(paneID), s, nil
}

// EncodeDelta builds a "delta" frame map, per spec.md §4.3.
func EncodeDelta(paneID uint16, d pane.Delta) Map {
	m := NewMap()
	m.Set("type", VString(string(FrameDelta)))
	m.Set("paneId", VUint(uint64(paneID)))
	m.Set("gen", VUint(d.Generation))

	rows := make([]Value, 0, len(d.Rows))
	for _, r := range d.Rows {
		rm := NewMap()
		rm.Set("rowId", VUint(r.RowID))
		rm.Set("cells", VBytes(EncodeCells(r.Cells)))
		rm.Set("graphemes", VBytes(EncodeGraphemeTable(r.Graphemes)))
		rows = append(rows, VMap(rm))
	}
	m.Set("rows", VArray(rows))
	return m
}

// DecodeDelta reverses EncodeDelta.
func DecodeDelta(m Map) (uint16, pane.Delta, error) {
	var d pane.Delta

	paneID, err := requireUint(m, "paneId")
	if err != nil {
		return 0, d, err
	}
	gen, err := requireUint(m, "gen")
	if err != nil {
		return 0, d, err
	}
	d.Generation = gen

	rowsV, ok := m.Get("rows")
	if !ok || rowsV.Kind != KindArray {
		return 0, d, fmt.Errorf("wire: delta missing rows array")
	}
	for i, rv := range rowsV.Arr {
		if rv.Kind != KindMap {
			return 0, d, fmt.Errorf("wire: delta row %d not a map", i)
		}
		rowID, err := requireUint(rv.Map, "rowId")
		if err != nil {
			return 0, d, fmt.Errorf("wire: delta row %d: %w", i, err)
		}
		cellsB, err := requireBytes(rv.Map, "cells")
		if err != nil {
			return 0, d, fmt.Errorf("wire: delta row %d: %w", i, err)
		}
		cells, err := DecodeCells(cellsB)
		if err != nil {
			return 0, d, fmt.Errorf("wire: delta row %d: %w", i, err)
		}
		graphB, err := requireBytes(rv.Map, "graphemes")
		if err != nil {
			return 0, d, fmt.Errorf("wire: delta row %d: %w", i, err)
		}
		graphemes, err := DecodeGraphemeTable(graphB)
		if err != nil {
			return 0, d, fmt.Errorf("wire: delta row %d: %w", i, err)
		}
		d.Rows = append(d.Rows, pane.DeltaRow{RowID: rowID, Cells: cells, Graphemes: graphemes})
	}
	return uint16(paneID), d, nil
}

func requireUint(m Map, key string) (uint64, error) {
	v, ok := m.Get(key)
	if !ok || v.Kind != KindUint {
		return 0, fmt.Errorf("wire: missing or malformed uint key %q", key)
	}
	return v.Uint, nil
}

func requireBytes(m Map, key string) ([]byte, error) {
	v, ok := m.Get(key)
	if !ok || v.Kind != KindBytes {
		return nil, fmt.Errorf("wire: missing or malformed bytes key %q", key)
	}
	return v.Bytes, nil
}

// CompressFrame encodes a frame map and compresses it with brotli, ready
// to ship as a binary WebSocket frame payload (spec.md §6).
func CompressFrame(m Map) ([]byte, error) {
	raw := Encode(m)
	var buf bytes.Buffer
	w := brotli.NewWriter(&buf)
	if _, err := w.Write(raw); err != nil {
		return nil, fmt.Errorf("wire: brotli write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("wire: brotli close: %w", err)
	}
	return buf.Bytes(), nil
}

// DecompressFrame reverses CompressFrame.
func DecompressFrame(data []byte) (Map, error) {
	r := brotli.NewReader(bytes.NewReader(data))
	raw, err := io.ReadAll(r)
	if err != nil {
		return Map{}, fmt.Errorf("wire: brotli read: %w", err)
	}
	return Decode(raw)
}

package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/raymond-w-ko/dullahan-sub005/internal/grid"
)

// EncodeCells packs a row-major cell slice into the exact little-endian
// 8-byte-per-cell layout of spec.md §3/§6.
func EncodeCells(cells []grid.Cell) []byte {
	out := make([]byte, 0, len(cells)*8)
	for _, c := range cells {
		b := c.Bytes()
		out = append(out, b[:]...)
	}
	return out
}

// DecodeCells unpacks a cell blob produced by EncodeCells.
func DecodeCells(data []byte) ([]grid.Cell, error) {
	if len(data)%8 != 0 {
		return nil, fmt.Errorf("wire: cell blob length %d not a multiple of 8", len(data))
	}
	out := make([]grid.Cell, 0, len(data)/8)
	for i := 0; i < len(data); i += 8 {
		out = append(out, grid.CellFromBytes(data[i:i+8]))
	}
	return out, nil
}

func encodeColor(c grid.Color) [4]byte {
	return [4]byte{byte(c.Tag), c.Bytes[0], c.Bytes[1], c.Bytes[2]}
}

func decodeColor(b [4]byte) grid.Color {
	return grid.Color{Tag: grid.ColorTag(b[0]), Bytes: [3]byte{b[1], b[2], b[3]}}
}

// EncodeStyleTable packs the style table binary layout of spec.md §6: a
// u16 count followed by {u16 id, u8[4] fg, u8[4] bg, u8[4] underline, u16
// flags} records.
func EncodeStyleTable(styles []grid.Style) []byte {
	out := make([]byte, 2, 2+len(styles)*styleRecordSize)
	binary.LittleEndian.PutUint16(out[0:2], uint16(len(styles)))
	for id, s := range styles {
		var rec [styleRecordSize]byte
		binary.LittleEndian.PutUint16(rec[0:2], uint16(id))
		fg := encodeColor(s.Foreground)
		bg := encodeColor(s.Background)
		ul := encodeColor(s.Underline)
		copy(rec[2:6], fg[:])
		copy(rec[6:10], bg[:])
		copy(rec[10:14], ul[:])
		binary.LittleEndian.PutUint16(rec[14:16], s.Flags)
		out = append(out, rec[:]...)
	}
	return out
}

// styleRecordSize is {u16 id, u8[4] fg, u8[4] bg, u8[4] underline, u16
// flags} = 2+4+4+4+2 = 16 bytes.
const styleRecordSize = 16

// DecodeStyleTable unpacks a style table blob produced by EncodeStyleTable.
func DecodeStyleTable(data []byte) ([]grid.Style, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("wire: truncated style table header")
	}
	count := binary.LittleEndian.Uint16(data[0:2])
	data = data[2:]
	if len(data) < int(count)*styleRecordSize {
		return nil, fmt.Errorf("wire: truncated style table body")
	}
	out := make([]grid.Style, count)
	for i := 0; i < int(count); i++ {
		rec := data[i*styleRecordSize : (i+1)*styleRecordSize]
		var fg, bg, ul [4]byte
		copy(fg[:], rec[2:6])
		copy(bg[:], rec[6:10])
		copy(ul[:], rec[10:14])
		out[i] = grid.Style{
			Foreground: decodeColor(fg),
			Background: decodeColor(bg),
			Underline:  decodeColor(ul),
			Flags:      binary.LittleEndian.Uint16(rec[14:16]),
		}
	}
	return out, nil
}

// EncodeGraphemeTable packs the grapheme binary layout of spec.md §6: a
// u32 count followed by {u32 cell_index, u8 num_codepoints, u8[3]*num}
// records, each codepoint a 21-bit value in three little-endian bytes.
func EncodeGraphemeTable(entries []grid.GraphemeEntry) []byte {
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out[0:4], uint32(len(entries)))
	for _, e := range entries {
		var hdr [5]byte
		binary.LittleEndian.PutUint32(hdr[0:4], uint32(e.Index))
		hdr[4] = byte(len(e.Codepoints))
		out = append(out, hdr[:]...)
		for _, cp := range e.Codepoints {
			out = append(out, encodeCodepoint21(cp)...)
		}
	}
	return out
}

func encodeCodepoint21(r rune) []byte {
	v := uint32(r)
	return []byte{byte(v), byte(v >> 8), byte(v >> 16)}
}

func decodeCodepoint21(b []byte) rune {
	return rune(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16)
}

// DecodeGraphemeTable unpacks a grapheme table blob produced by
// EncodeGraphemeTable.
func DecodeGraphemeTable(data []byte) ([]grid.GraphemeEntry, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("wire: truncated grapheme table header")
	}
	count := binary.LittleEndian.Uint32(data[0:4])
	data = data[4:]
	if count == 0 {
		return nil, nil // an empty table decodes to nil, as it was before encoding
	}
	out := make([]grid.GraphemeEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(data) < 5 {
			return nil, fmt.Errorf("wire: truncated grapheme record %d header", i)
		}
		idx := binary.LittleEndian.Uint32(data[0:4])
		num := int(data[4])
		data = data[5:]
		if len(data) < num*3 {
			return nil, fmt.Errorf("wire: truncated grapheme record %d codepoints", i)
		}
		cps := make([]rune, num)
		for j := 0; j < num; j++ {
			cps[j] = decodeCodepoint21(data[j*3 : j*3+3])
		}
		data = data[num*3:]
		out = append(out, grid.GraphemeEntry{Index: int(idx), Codepoints: cps})
	}
	return out, nil
}

// EncodeRowIDs packs the row-id blob of spec.md §6: rows*8 little-endian
// bytes, in viewport order.
func EncodeRowIDs(ids []uint64) []byte {
	out := make([]byte, len(ids)*8)
	for i, id := range ids {
		binary.LittleEndian.PutUint64(out[i*8:i*8+8], id)
	}
	return out
}

// DecodeRowIDs unpacks a row-id blob produced by EncodeRowIDs.
func DecodeRowIDs(data []byte) ([]uint64, error) {
	if len(data)%8 != 0 {
		return nil, fmt.Errorf("wire: row-id blob length %d not a multiple of 8", len(data))
	}
	out := make([]uint64, len(data)/8)
	for i := range out {
		out[i] = binary.LittleEndian.Uint64(data[i*8 : i*8+8])
	}
	return out, nil
}

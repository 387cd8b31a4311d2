// Package wire implements Dullahan's compact binary key-value map — the
// server-to-client frame format of spec.md §6 — plus the exact binary
// layouts for cells, the style table, the grapheme extension table, and
// the row-id blob (spec.md §3, §6). Frames are run through a streaming
// brotli compressor before going on the wire.
//
// There is no ecosystem library for this exact self-describing binary map
// shape (string keys; int/bool/string/bytes/array/map values) paired with
// Dullahan's specific cell/style/grapheme layouts, so the codec itself is
// built directly on encoding/binary — see DESIGN.md for the justification.
// The actual compression step uses andybalholm/brotli, the real
// third-party dependency this package exists to exercise.
package wire

import (
	"encoding/binary"
	"fmt"
)

// Kind tags a Value's encoding.
type Kind uint8

const (
	KindInt Kind = iota
	KindUint
	KindBool
	KindString
	KindBytes
	KindArray
	KindMap
)

// Value is a tagged union matching the value kinds spec.md §6 requires a
// frame to carry.
type Value struct {
	Kind  Kind
	Int   int64
	Uint  uint64
	Bool  bool
	Str   string
	Bytes []byte
	Arr   []Value
	Map   Map
}

func VInt(v int64) Value      { return Value{Kind: KindInt, Int: v} }
func VUint(v uint64) Value     { return Value{Kind: KindUint, Uint: v} }
func VBool(v bool) Value       { return Value{Kind: KindBool, Bool: v} }
func VString(v string) Value   { return Value{Kind: KindString, Str: v} }
func VBytes(v []byte) Value    { return Value{Kind: KindBytes, Bytes: v} }
func VArray(v []Value) Value   { return Value{Kind: KindArray, Arr: v} }
func VMap(v Map) Value         { return Value{Kind: KindMap, Map: v} }

// Map is an insertion-ordered string-keyed map; order is preserved on
// encode so frames are byte-stable for a given logical payload.
type Map struct {
	keys   []string
	values map[string]Value
}

// NewMap returns an empty Map.
func NewMap() Map {
	return Map{values: make(map[string]Value)}
}

// Set inserts or replaces a key, preserving first-insertion order.
func (m *Map) Set(key string, v Value) {
	if m.values == nil {
		m.values = make(map[string]Value)
	}
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Get returns a key's value and whether it was present.
func (m Map) Get(key string) (Value, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the map's keys in insertion order.
func (m Map) Keys() []string {
	return m.keys
}

func encodeValue(buf *[]byte, v Value) {
	*buf = append(*buf, byte(v.Kind))
	switch v.Kind {
	case KindInt:
		var tmp [binary.MaxVarintLen64]byte
		n := binary.PutVarint(tmp[:], v.Int)
		*buf = append(*buf, tmp[:n]...)
	case KindUint:
		var tmp [binary.MaxVarintLen64]byte
		n := binary.PutUvarint(tmp[:], v.Uint)
		*buf = append(*buf, tmp[:n]...)
	case KindBool:
		if v.Bool {
			*buf = append(*buf, 1)
		} else {
			*buf = append(*buf, 0)
		}
	case KindString:
		writeLenPrefixed(buf, []byte(v.Str))
	case KindBytes:
		writeLenPrefixed(buf, v.Bytes)
	case KindArray:
		var tmp [4]byte
		binary.LittleEndian.PutUint32(tmp[:], uint32(len(v.Arr)))
		*buf = append(*buf, tmp[:]...)
		for _, elem := range v.Arr {
			encodeValue(buf, elem)
		}
	case KindMap:
		encodeMap(buf, v.Map)
	}
}

func writeLenPrefixed(buf *[]byte, b []byte) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(len(b)))
	*buf = append(*buf, tmp[:]...)
	*buf = append(*buf, b...)
}

func encodeMap(buf *[]byte, m Map) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(len(m.keys)))
	*buf = append(*buf, tmp[:]...)
	for _, k := range m.keys {
		writeLenPrefixed(buf, []byte(k))
		encodeValue(buf, m.values[k])
	}
}

// Encode serializes a Map into the uncompressed binary form.
func Encode(m Map) []byte {
	var buf []byte
	encodeMap(&buf, m)
	return buf
}

// Decode parses the uncompressed binary form produced by Encode.
func Decode(data []byte) (Map, error) {
	m, rest, err := decodeMap(data)
	if err != nil {
		return Map{}, err
	}
	if len(rest) != 0 {
		return Map{}, fmt.Errorf("wire: %d trailing bytes after map", len(rest))
	}
	return m, nil
}

func decodeMap(data []byte) (Map, []byte, error) {
	if len(data) < 4 {
		return Map{}, nil, fmt.Errorf("wire: truncated map header")
	}
	count := binary.LittleEndian.Uint32(data[:4])
	data = data[4:]

	m := NewMap()
	for i := uint32(0); i < count; i++ {
		key, rest, err := readLenPrefixed(data)
		if err != nil {
			return Map{}, nil, fmt.Errorf("wire: map key %d: %w", i, err)
		}
		data = rest
		val, rest2, err := decodeValue(data)
		if err != nil {
			return Map{}, nil, fmt.Errorf("wire: map value %q: %w", key, err)
		}
		data = rest2
		m.Set(string(key), val)
	}
	return m, data, nil
}

func readLenPrefixed(data []byte) ([]byte, []byte, error) {
	if len(data) < 4 {
		return nil, nil, fmt.Errorf("truncated length prefix")
	}
	n := binary.LittleEndian.Uint32(data[:4])
	data = data[4:]
	if uint32(len(data)) < n {
		return nil, nil, fmt.Errorf("truncated payload: want %d have %d", n, len(data))
	}
	return data[:n], data[n:], nil
}

func decodeValue(data []byte) (Value, []byte, error) {
	if len(data) < 1 {
		return Value{}, nil, fmt.Errorf("truncated value tag")
	}
	kind := Kind(data[0])
	data = data[1:]

	switch kind {
	case KindInt:
		v, n := binary.Varint(data)
		if n <= 0 {
			return Value{}, nil, fmt.Errorf("malformed varint")
		}
		return VInt(v), data[n:], nil
	case KindUint:
		v, n := binary.Uvarint(data)
		if n <= 0 {
			return Value{}, nil, fmt.Errorf("malformed uvarint")
		}
		return VUint(v), data[n:], nil
	case KindBool:
		if len(data) < 1 {
			return Value{}, nil, fmt.Errorf("truncated bool")
		}
		return VBool(data[0] != 0), data[1:], nil
	case KindString:
		b, rest, err := readLenPrefixed(data)
		if err != nil {
			return Value{}, nil, err
		}
		return VString(string(b)), rest, nil
	case KindBytes:
		b, rest, err := readLenPrefixed(data)
		if err != nil {
			return Value{}, nil, err
		}
		cp := make([]byte, len(b))
		copy(cp, b)
		return VBytes(cp), rest, nil
	case KindArray:
		if len(data) < 4 {
			return Value{}, nil, fmt.Errorf("truncated array header")
		}
		count := binary.LittleEndian.Uint32(data[:4])
		data = data[4:]
		arr := make([]Value, 0, count)
		for i := uint32(0); i < count; i++ {
			v, rest, err := decodeValue(data)
			if err != nil {
				return Value{}, nil, fmt.Errorf("array element %d: %w", i, err)
			}
			arr = append(arr, v)
			data = rest
		}
		return VArray(arr), data, nil
	case KindMap:
		m, rest, err := decodeMap(data)
		if err != nil {
			return Value{}, nil, err
		}
		return VMap(m), rest, nil
	default:
		return Value{}, nil, fmt.Errorf("unknown value kind %d", kind)
	}
}

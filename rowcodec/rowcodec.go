// Copyright 2025 The kvdoc Authors
// This file is part of kvdoc.
//
// kvdoc is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// kvdoc is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with kvdoc. If not, see <http://www.gnu.org/licenses/>.

package rowcodec

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Value holds one decoded column value. Concrete Go types per Kind:
//
//	KindUint8/16/32/64 -> uint8/uint16/uint32/uint64
//	KindFloat64        -> float64
//	KindBool           -> bool
//	KindEnum           -> uint8
//	KindWideChar       -> rune
//	KindString         -> string
//	KindWideString     -> string (decoded back from rune units)
//	KindLocaleString   -> string (the *collation key*, not the original input -- lossy)
//	KindRow            -> []Value
//	KindVariant        -> VariantValue
//	KindBlob           -> []byte
type Value interface{}

// VariantValue is the decoded form of a KindVariant column.
type VariantValue struct {
	Tag     byte
	Payload []Value
}

const signMask = uint64(1) << 63

// Encode serializes values according to schema, producing a byte string whose
// lexicographic order matches the values' declared componentwise order.
func Encode(schema Schema, values []Value) ([]byte, error) {
	if len(values) != len(schema) {
		return nil, fmt.Errorf("rowcodec: schema has %d columns, got %d values", len(schema), len(values))
	}
	var buf []byte
	for i, col := range schema {
		if col.Kind == KindBlob && i != len(schema)-1 {
			return nil, fmt.Errorf("rowcodec: Blob column must be last")
		}
		enc, err := encodeColumn(col, values[i])
		if err != nil {
			return nil, err
		}
		buf = append(buf, enc...)
	}
	return buf, nil
}

func encodeColumn(col Column, v Value) ([]byte, error) {
	switch col.Kind {
	case KindUint8:
		n, ok := v.(uint8)
		if !ok {
			return nil, ErrValueKindMismatch
		}
		return []byte{n}, nil
	case KindUint16:
		n, ok := v.(uint16)
		if !ok {
			return nil, ErrValueKindMismatch
		}
		b := make([]byte, 2)
		binary.BigEndian.PutUint16(b, n)
		return b, nil
	case KindUint32:
		n, ok := v.(uint32)
		if !ok {
			return nil, ErrValueKindMismatch
		}
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, n)
		return b, nil
	case KindUint64:
		n, ok := v.(uint64)
		if !ok {
			return nil, ErrValueKindMismatch
		}
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, n)
		return b, nil
	case KindFloat64:
		f, ok := v.(float64)
		if !ok {
			return nil, ErrValueKindMismatch
		}
		bits := math.Float64bits(f)
		if bits&signMask != 0 {
			bits = ^bits
		} else {
			bits |= signMask
		}
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, bits)
		return b, nil
	case KindBool:
		bv, ok := v.(bool)
		if !ok {
			return nil, ErrValueKindMismatch
		}
		if bv {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	case KindEnum:
		n, ok := v.(uint8)
		if !ok {
			return nil, ErrValueKindMismatch
		}
		return []byte{n}, nil
	case KindWideChar:
		r, ok := v.(rune)
		if !ok {
			return nil, ErrValueKindMismatch
		}
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, uint32(r))
		return b, nil
	case KindString:
		s, ok := v.(string)
		if !ok {
			return nil, ErrValueKindMismatch
		}
		return encodeEscapedString(s), nil
	case KindWideString:
		s, ok := v.(string)
		if !ok {
			return nil, ErrValueKindMismatch
		}
		var b []byte
		for _, r := range s {
			if r == 0 {
				return nil, ErrNulInString
			}
			u := make([]byte, 4)
			binary.BigEndian.PutUint32(u, uint32(r))
			b = append(b, u...)
		}
		return append(b, 0, 0, 0, 0), nil
	case KindLocaleString:
		s, ok := v.(string)
		if !ok {
			return nil, ErrValueKindMismatch
		}
		if col.Collator == nil {
			return nil, fmt.Errorf("rowcodec: LocaleString column missing Collator")
		}
		key := col.Collator.Key(col.Collator.NewBuffer(), []byte(s))
		return append(append([]byte(nil), key...), 0), nil
	case KindRow:
		nested, ok := v.([]Value)
		if !ok {
			return nil, ErrValueKindMismatch
		}
		return Encode(col.Nested, nested)
	case KindVariant:
		vv, ok := v.(VariantValue)
		if !ok {
			return nil, ErrValueKindMismatch
		}
		if int(vv.Tag) >= len(col.Variants) {
			return nil, fmt.Errorf("rowcodec: variant discriminator %d out of range", vv.Tag)
		}
		payload, err := Encode(col.Variants[vv.Tag], vv.Payload)
		if err != nil {
			return nil, err
		}
		return append([]byte{vv.Tag}, payload...), nil
	case KindBlob:
		b, ok := v.([]byte)
		if !ok {
			return nil, ErrValueKindMismatch
		}
		return append([]byte(nil), b...), nil
	default:
		return nil, fmt.Errorf("rowcodec: unknown column kind %d", col.Kind)
	}
}

// Decode parses buf according to schema, returning one Value per column.
// Decoding is positional: it does not validate that buf is fully consumed
// unless the last column is not a Blob, in which case trailing bytes are an error.
func Decode(schema Schema, buf []byte) ([]Value, error) {
	values, n, err := decodeInto(schema, buf)
	if err != nil {
		return nil, err
	}
	hasBlob := len(schema) > 0 && schema[len(schema)-1].Kind == KindBlob
	if !hasBlob && n != len(buf) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorruptRow, len(buf)-n)
	}
	return values, nil
}

// decodeInto decodes schema from the front of buf, returning the values and
// the number of bytes consumed.
func decodeInto(schema Schema, buf []byte) ([]Value, int, error) {
	values := make([]Value, len(schema))
	pos := 0
	for i, col := range schema {
		v, n, err := decodeColumn(col, buf[pos:])
		if err != nil {
			return nil, 0, err
		}
		values[i] = v
		pos += n
	}
	return values, pos, nil
}

func decodeColumn(col Column, buf []byte) (Value, int, error) {
	switch col.Kind {
	case KindUint8:
		if len(buf) < 1 {
			return nil, 0, ErrCorruptRow
		}
		return buf[0], 1, nil
	case KindUint16:
		if len(buf) < 2 {
			return nil, 0, ErrCorruptRow
		}
		return binary.BigEndian.Uint16(buf), 2, nil
	case KindUint32:
		if len(buf) < 4 {
			return nil, 0, ErrCorruptRow
		}
		return binary.BigEndian.Uint32(buf), 4, nil
	case KindUint64:
		if len(buf) < 8 {
			return nil, 0, ErrCorruptRow
		}
		return binary.BigEndian.Uint64(buf), 8, nil
	case KindFloat64:
		if len(buf) < 8 {
			return nil, 0, ErrCorruptRow
		}
		bits := binary.BigEndian.Uint64(buf)
		if bits&signMask != 0 {
			bits &^= signMask
		} else {
			bits = ^bits
		}
		return math.Float64frombits(bits), 8, nil
	case KindBool:
		if len(buf) < 1 {
			return nil, 0, ErrCorruptRow
		}
		return buf[0] != 0, 1, nil
	case KindEnum:
		if len(buf) < 1 {
			return nil, 0, ErrCorruptRow
		}
		return buf[0], 1, nil
	case KindWideChar:
		if len(buf) < 4 {
			return nil, 0, ErrCorruptRow
		}
		return rune(binary.BigEndian.Uint32(buf)), 4, nil
	case KindString:
		s, n, err := decodeEscapedString(buf)
		if err != nil {
			return nil, 0, err
		}
		return s, n, nil
	case KindWideString:
		var sb []rune
		pos := 0
		for {
			if pos+4 > len(buf) {
				return nil, 0, ErrCorruptRow
			}
			r := rune(binary.BigEndian.Uint32(buf[pos:]))
			pos += 4
			if r == 0 {
				break
			}
			sb = append(sb, r)
		}
		return string(sb), pos, nil
	case KindLocaleString:
		idx := indexByte(buf, 0)
		if idx < 0 {
			return nil, 0, ErrCorruptRow
		}
		return string(buf[:idx]), idx + 1, nil
	case KindRow:
		nested, n, err := decodeInto(col.Nested, buf)
		if err != nil {
			return nil, 0, err
		}
		return nested, n, nil
	case KindVariant:
		if len(buf) < 1 {
			return nil, 0, ErrCorruptRow
		}
		tag := buf[0]
		if int(tag) >= len(col.Variants) {
			return nil, 0, ErrCorruptRow
		}
		payload, n, err := decodeInto(col.Variants[tag], buf[1:])
		if err != nil {
			return nil, 0, err
		}
		return VariantValue{Tag: tag, Payload: payload}, 1 + n, nil
	case KindBlob:
		return append([]byte(nil), buf...), len(buf), nil
	default:
		return nil, 0, fmt.Errorf("rowcodec: unknown column kind %d", col.Kind)
	}
}

func indexByte(b []byte, target byte) int {
	for i, c := range b {
		if c == target {
			return i
		}
	}
	return -1
}

// PrefixEnd returns the smallest byte string strictly greater than every
// string that begins with key and not beginning with key itself: strip
// trailing 0xFF bytes, then increment the last remaining byte. A key of all
// 0xFF bytes (or empty) has no finite prefix end; nil is returned to mean
// "unbounded above".
func PrefixEnd(key []byte) []byte {
	end := append([]byte(nil), key...)
	for len(end) > 0 && end[len(end)-1] == 0xFF {
		end = end[:len(end)-1]
	}
	if len(end) == 0 {
		return nil
	}
	end[len(end)-1]++
	return end
}

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

// Package rowcodec is the order-preserving binary row codec: it turns a
// sequence of typed columns into bytes whose lexicographic order matches the
// values' declared order, and decodes a buffer back given the same schema.
// Ported from original_source/src/docdb/key.h's per-type Value::add/deserialize
// overloads; Go has no equivalent overload resolution so a ColumnKind-tagged
// schema replaces the C++ template dispatch (see SPEC_FULL.md §9).
package rowcodec

import "golang.org/x/text/collate"

// ColumnKind identifies the wire encoding of one schema column.
type ColumnKind int

const (
	KindUint8 ColumnKind = iota
	KindUint16
	KindUint32
	KindUint64
	KindFloat64
	KindBool
	KindEnum
	KindWideChar
	KindString
	KindWideString
	KindLocaleString
	KindRow
	KindVariant
	KindBlob
)

// Column describes one schema element. Nested is used by KindRow (the nested
// schema) and by KindVariant (one schema per discriminator alternative).
// Collator is used by KindLocaleString.
type Column struct {
	Kind     ColumnKind
	Nested   Schema   // KindRow: the inner schema.
	Variants []Schema // KindVariant: schema per alternative, indexed by discriminator.
	Collator *collate.Collator
}

// Schema is an ordered sequence of columns. Encoding concatenates each
// column's bytes in order; decoding is positional, not self-describing.
type Schema []Column

func Uint8() Column     { return Column{Kind: KindUint8} }
func Uint16() Column    { return Column{Kind: KindUint16} }
func Uint32() Column    { return Column{Kind: KindUint32} }
func Uint64() Column    { return Column{Kind: KindUint64} }
func Float64() Column   { return Column{Kind: KindFloat64} }
func Bool() Column      { return Column{Kind: KindBool} }
func Enum() Column      { return Column{Kind: KindEnum} }
func WideChar() Column  { return Column{Kind: KindWideChar} }
func String() Column    { return Column{Kind: KindString} }
func WideString() Column { return Column{Kind: KindWideString} }
func LocaleString(c *collate.Collator) Column {
	return Column{Kind: KindLocaleString, Collator: c}
}
func Row(inner Schema) Column { return Column{Kind: KindRow, Nested: inner} }
func Variant(alts ...Schema) Column {
	return Column{Kind: KindVariant, Variants: alts}
}
func Blob() Column { return Column{Kind: KindBlob} }

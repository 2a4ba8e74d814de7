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
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestUintOrderPreserving(t *testing.T) {
	schema := Schema{Uint32()}
	a, err := Encode(schema, []Value{uint32(5)})
	require.NoError(t, err)
	b, err := Encode(schema, []Value{uint32(9)})
	require.NoError(t, err)
	require.True(t, bytes.Compare(a, b) < 0)
}

func TestUintRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.Uint64().Draw(rt, "n")
		schema := Schema{Uint64()}
		enc, err := Encode(schema, []Value{n})
		require.NoError(t, err)
		dec, err := Decode(schema, enc)
		require.NoError(t, err)
		require.Equal(t, n, dec[0])
	})
}

func TestFloat64Order(t *testing.T) {
	pairs := [][2]float64{
		{-1.5, 1.5},
		{-100.0, -1.0},
		{0.0, 1.0},
		{math.Inf(-1), -1e300},
		{1e300, math.Inf(1)},
		{-0.5, -0.25},
	}
	schema := Schema{Float64()}
	for _, p := range pairs {
		a, err := Encode(schema, []Value{p[0]})
		require.NoError(t, err)
		b, err := Encode(schema, []Value{p[1]})
		require.NoError(t, err)
		require.Truef(t, bytes.Compare(a, b) < 0, "expected encode(%v) < encode(%v)", p[0], p[1])
	}
}

func TestFloat64RoundTrip(t *testing.T) {
	schema := Schema{Float64()}
	for _, f := range []float64{0, -0.0, 1.25, -1.25, math.Inf(1), math.Inf(-1), 1e300, -1e300} {
		enc, err := Encode(schema, []Value{f})
		require.NoError(t, err)
		dec, err := Decode(schema, enc)
		require.NoError(t, err)
		require.Equal(t, f, dec[0])
	}
}

func TestStringOrderAndRoundTrip(t *testing.T) {
	schema := Schema{String()}
	a, err := Encode(schema, []Value{"alpha"})
	require.NoError(t, err)
	b, err := Encode(schema, []Value{"beta"})
	require.NoError(t, err)
	require.True(t, bytes.Compare(a, b) < 0)

	dec, err := Decode(schema, a)
	require.NoError(t, err)
	require.Equal(t, "alpha", dec[0])
}

func TestStringEscapedEmbeddedBytes(t *testing.T) {
	schema := Schema{String()}
	s := "a\x00b\x01c"
	enc, err := Encode(schema, []Value{s})
	require.NoError(t, err)
	dec, err := Decode(schema, enc)
	require.NoError(t, err)
	require.Equal(t, s, dec[0])
}

func TestMultiColumnOrder(t *testing.T) {
	schema := Schema{String(), Uint32()}
	a, err := Encode(schema, []Value{"alpha", uint32(1)})
	require.NoError(t, err)
	b, err := Encode(schema, []Value{"alpha", uint32(2)})
	require.NoError(t, err)
	c, err := Encode(schema, []Value{"beta", uint32(0)})
	require.NoError(t, err)
	require.True(t, bytes.Compare(a, b) < 0)
	require.True(t, bytes.Compare(b, c) < 0)
}

func TestNestedRow(t *testing.T) {
	inner := Schema{Uint8(), String()}
	schema := Schema{Row(inner), Uint32()}
	enc, err := Encode(schema, []Value{[]Value{uint8(7), "x"}, uint32(42)})
	require.NoError(t, err)
	dec, err := Decode(schema, enc)
	require.NoError(t, err)
	nested := dec[0].([]Value)
	require.Equal(t, uint8(7), nested[0])
	require.Equal(t, "x", nested[1])
	require.Equal(t, uint32(42), dec[1])
}

func TestVariant(t *testing.T) {
	schema := Schema{Variant(Schema{Uint32()}, Schema{String()})}
	enc, err := Encode(schema, []Value{VariantValue{Tag: 1, Payload: []Value{"hi"}}})
	require.NoError(t, err)
	dec, err := Decode(schema, enc)
	require.NoError(t, err)
	vv := dec[0].(VariantValue)
	require.Equal(t, byte(1), vv.Tag)
	require.Equal(t, "hi", vv.Payload[0])
}

func TestBlobTail(t *testing.T) {
	schema := Schema{Uint8(), Blob()}
	enc, err := Encode(schema, []Value{uint8(1), []byte{9, 9, 9}})
	require.NoError(t, err)
	dec, err := Decode(schema, enc)
	require.NoError(t, err)
	require.Equal(t, []byte{9, 9, 9}, dec[1])
}

func TestPrefixEnd(t *testing.T) {
	k := []byte{0x01, 0x02}
	pe := PrefixEnd(k)
	require.True(t, bytes.Compare(pe, k) > 0)
	require.True(t, bytes.Compare(append(append([]byte(nil), k...), 0xFF), pe) < 0)

	allFF := []byte{0xFF, 0xFF}
	require.Nil(t, PrefixEnd(allFF))
}

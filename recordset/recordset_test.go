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

package recordset

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kvdoc/kvdoc/kv/memkv"
)

func seedEngine(t *testing.T, n int) *memkv.Engine {
	t.Helper()
	eng := memkv.New()
	wb := eng.NewWriteBatch()
	for i := 0; i < n; i++ {
		k := []byte(fmt.Sprintf("k%03d", i))
		v := []byte(fmt.Sprintf("v%03d", i))
		require.NoError(t, wb.Put(k, v))
	}
	require.NoError(t, wb.Commit(true))
	return eng
}

func newRecordset(t *testing.T, eng *memkv.Engine, start, end []byte, firstInc, lastInc bool) *Recordset {
	t.Helper()
	lower, upper := start, end
	if string(start) > string(end) {
		lower, upper = end, start
	}
	it, err := eng.NewIterator(lower, append(append([]byte(nil), upper...), 0xFF))
	require.NoError(t, err)
	return New(it, start, end, firstInc, lastInc)
}

func collect(rs *Recordset) [][]byte {
	var out [][]byte
	if !rs.Valid() {
		return out
	}
	out = append(out, append([]byte(nil), rs.Key()...))
	for rs.Next() {
		out = append(out, append([]byte(nil), rs.Key()...))
	}
	return out
}

func TestRecordsetForwardInclusiveBoth(t *testing.T) {
	eng := seedEngine(t, 5)
	rs := newRecordset(t, eng, []byte("k000"), []byte("k004"), true, true)
	keys := collect(rs)
	require.Equal(t, []string{"k000", "k001", "k002", "k003", "k004"}, toStrings(keys))
}

func TestRecordsetForwardExcludeFirst(t *testing.T) {
	eng := seedEngine(t, 5)
	rs := newRecordset(t, eng, []byte("k000"), []byte("k004"), false, true)
	keys := collect(rs)
	require.Equal(t, []string{"k001", "k002", "k003", "k004"}, toStrings(keys))
}

func TestRecordsetForwardExcludeLast(t *testing.T) {
	eng := seedEngine(t, 5)
	rs := newRecordset(t, eng, []byte("k000"), []byte("k004"), true, false)
	keys := collect(rs)
	require.Equal(t, []string{"k000", "k001", "k002", "k003"}, toStrings(keys))
}

func TestRecordsetBackward(t *testing.T) {
	eng := seedEngine(t, 5)
	rs := newRecordset(t, eng, []byte("k004"), []byte("k000"), true, true)
	keys := collect(rs)
	require.Equal(t, []string{"k004", "k003", "k002", "k001", "k000"}, toStrings(keys))
}

func TestRecordsetFilter(t *testing.T) {
	eng := seedEngine(t, 6)
	rs := newRecordset(t, eng, []byte("k000"), []byte("k005"), true, true)
	rs.AddFilter(func(k, v []byte) bool {
		return (k[len(k)-1]-'0')%2 == 0
	})
	keys := collect(rs)
	require.Equal(t, []string{"k000", "k002", "k004"}, toStrings(keys))
}

func TestRecordsetPrevious(t *testing.T) {
	eng := seedEngine(t, 5)
	lower, upper := []byte("k000"), []byte("k004\xff")
	it, err := eng.NewIterator(lower, upper)
	require.NoError(t, err)
	rs := New(it, []byte("k000"), []byte("k004"), true, true)
	require.True(t, rs.Next())
	require.Equal(t, "k001", string(rs.Key()))
	require.True(t, rs.Previous())
	require.Equal(t, "k000", string(rs.Key()))
	require.False(t, rs.Previous())
}

func TestRecordsetReset(t *testing.T) {
	eng := seedEngine(t, 5)
	rs := newRecordset(t, eng, []byte("k000"), []byte("k004"), true, true)
	rs.Next()
	rs.Next()
	require.Equal(t, "k002", string(rs.Key()))
	rs.Reset()
	require.Equal(t, "k000", string(rs.Key()))
}

func TestRecordsetCountAproxExact(t *testing.T) {
	eng := seedEngine(t, 5)
	rs := newRecordset(t, eng, []byte("k000"), []byte("k004"), true, true)
	n, exact, err := rs.CountAprox(eng, 100)
	require.NoError(t, err)
	require.True(t, exact)
	require.Equal(t, 5, n)
}

func toStrings(bs [][]byte) []string {
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = string(b)
	}
	return out
}

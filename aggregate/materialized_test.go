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

package aggregate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kvdoc/kvdoc/batch"
	"github.com/kvdoc/kvdoc/document"
	"github.com/kvdoc/kvdoc/index"
	"github.com/kvdoc/kvdoc/recordset"
)

// groupByParity indexes a document's 8-byte big-endian number under "even"
// or "odd", carrying the number itself as the row value.
func groupByParity(emit index.Emit, doc document.Document) {
	n := decodeInt64(doc.Data)
	group := []byte("odd")
	if n%2 == 0 {
		group = []byte("even")
	}
	emit(group, doc.Data)
}

func sumGroup(rows *recordset.Recordset) ([]byte, bool, error) {
	var sum int64
	any := false
	for rows.Valid() {
		sum += decodeInt64(rows.Value())
		any = true
		if !rows.Next() {
			break
		}
	}
	if !any {
		return nil, false, nil
	}
	return encodeInt64(sum), true, nil
}

func TestMaterializedSumsGroupOnUpdate(t *testing.T) {
	db, s := newTestAggEnv(t)
	idx, err := index.Open(db, s, "by_parity", index.Multi, 1, groupByParity)
	require.NoError(t, err)
	m, err := Open(db, idx, "parity_sum", 1, sumGroup)
	require.NoError(t, err)

	b := batch.New(db.Engine())
	for _, n := range []int64{2, 4, 6, 3} {
		_, err := s.Put(db.Engine(), b, encodeInt64(n), 0)
		require.NoError(t, err)
	}
	require.NoError(t, b.Commit(true))

	require.NoError(t, m.Update())

	raw, ok, err := m.Get(db.Engine(), []byte("even"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(12), decodeInt64(raw))

	raw, ok, err = m.Get(db.Engine(), []byte("odd"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(3), decodeInt64(raw))
}

func TestMaterializedRebuildsOnRevisionBump(t *testing.T) {
	db, s := newTestAggEnv(t)
	b := batch.New(db.Engine())
	_, err := s.Put(db.Engine(), b, encodeInt64(10), 0)
	require.NoError(t, err)
	require.NoError(t, b.Commit(true))

	idx, err := index.Open(db, s, "by_parity", index.Multi, 1, groupByParity)
	require.NoError(t, err)
	m1, err := Open(db, idx, "parity_sum", 1, sumGroup)
	require.NoError(t, err)
	raw, ok, err := m1.Get(db.Engine(), []byte("even"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(10), decodeInt64(raw))

	m2, err := Open(db, idx, "parity_sum", 2, sumGroup)
	require.NoError(t, err)
	raw, ok, err = m2.Get(db.Engine(), []byte("even"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(10), decodeInt64(raw))
}

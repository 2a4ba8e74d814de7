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
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kvdoc/kvdoc/batch"
	"github.com/kvdoc/kvdoc/document"
	"github.com/kvdoc/kvdoc/kv"
	"github.com/kvdoc/kvdoc/kv/memkv"
)

// countByTag treats doc.Data as a tag name and contributes +1/-1 to that
// tag's running count.
func countByTag(emit Emit, doc document.Document) {
	emit(doc.Data, encodeInt64(1))
}

func reduceCount(current, delta []byte, erase bool) ([]byte, bool) {
	var cur, d int64
	if len(current) == 8 {
		cur = decodeInt64(current)
	}
	d = decodeInt64(delta)
	if erase {
		cur -= d
	} else {
		cur += d
	}
	if cur == 0 {
		return nil, true
	}
	return encodeInt64(cur), false
}

func encodeInt64(v int64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	return buf[:]
}

func decodeInt64(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b))
}

func newTestAggEnv(t *testing.T) (*kv.Database, *document.Storage) {
	t.Helper()
	eng := memkv.New()
	db, err := kv.NewDatabase(eng)
	require.NoError(t, err)
	s, err := document.Open(db, "docs")
	require.NoError(t, err)
	return db, s
}

func TestIncrementalCountsNewDocs(t *testing.T) {
	db, s := newTestAggEnv(t)
	agg, err := Open(db, s, "tag_counts", 1, countByTag, reduceCount)
	require.NoError(t, err)

	b := batch.New(db.Engine())
	_, err = s.Put(db.Engine(), b, []byte("go"), 0)
	require.NoError(t, err)
	_, err = s.Put(db.Engine(), b, []byte("go"), 0)
	require.NoError(t, err)
	_, err = s.Put(db.Engine(), b, []byte("rust"), 0)
	require.NoError(t, err)
	require.NoError(t, b.Commit(true))

	raw, ok, err := agg.Get(db.Engine(), []byte("go"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(2), decodeInt64(raw))

	raw, ok, err = agg.Get(db.Engine(), []byte("rust"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(1), decodeInt64(raw))
}

func TestIncrementalRemovesCountOnReplace(t *testing.T) {
	db, s := newTestAggEnv(t)
	agg, err := Open(db, s, "tag_counts", 1, countByTag, reduceCount)
	require.NoError(t, err)

	b := batch.New(db.Engine())
	id, err := s.Put(db.Engine(), b, []byte("go"), 0)
	require.NoError(t, err)
	require.NoError(t, b.Commit(true))

	b2 := batch.New(db.Engine())
	_, err = s.Put(db.Engine(), b2, []byte("rust"), id)
	require.NoError(t, err)
	require.NoError(t, b2.Commit(true))

	_, ok, err := agg.Get(db.Engine(), []byte("go"))
	require.NoError(t, err)
	require.False(t, ok)

	raw, ok, err := agg.Get(db.Engine(), []byte("rust"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(1), decodeInt64(raw))
}

func TestIncrementalRebuildsOnRevisionBump(t *testing.T) {
	db, s := newTestAggEnv(t)
	b := batch.New(db.Engine())
	_, err := s.Put(db.Engine(), b, []byte("go"), 0)
	require.NoError(t, err)
	require.NoError(t, b.Commit(true))

	agg1, err := Open(db, s, "tag_counts", 1, countByTag, reduceCount)
	require.NoError(t, err)
	raw, ok, err := agg1.Get(db.Engine(), []byte("go"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(1), decodeInt64(raw))

	agg2, err := Open(db, s, "tag_counts", 2, countByTag, reduceCount)
	require.NoError(t, err)
	raw, ok, err = agg2.Get(db.Engine(), []byte("go"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(1), decodeInt64(raw))
}

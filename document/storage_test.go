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

package document

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kvdoc/kvdoc/batch"
	"github.com/kvdoc/kvdoc/kv"
	"github.com/kvdoc/kvdoc/kv/memkv"
)

func newTestStorage(t *testing.T) (*kv.Database, *Storage) {
	t.Helper()
	eng := memkv.New()
	db, err := kv.NewDatabase(eng)
	require.NoError(t, err)
	s, err := Open(db, "docs")
	require.NoError(t, err)
	return db, s
}

func TestStoragePutAndGet(t *testing.T) {
	db, s := newTestStorage(t)
	b := batch.New(db.Engine())
	id, err := s.Put(db.Engine(), b, []byte("hello"), 0)
	require.NoError(t, err)
	require.NoError(t, b.Commit(true))

	doc, ok, err := s.Get(db.Engine(), id)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "hello", string(doc.Data))
	require.Equal(t, DocID(0), doc.OldRev)
}

func TestStorageReplaceChainsOldRev(t *testing.T) {
	db, s := newTestStorage(t)
	b := batch.New(db.Engine())
	id1, err := s.Put(db.Engine(), b, []byte("v1"), 0)
	require.NoError(t, err)
	require.NoError(t, b.Commit(true))

	b2 := batch.New(db.Engine())
	id2, err := s.Put(db.Engine(), b2, []byte("v2"), id1)
	require.NoError(t, err)
	require.NoError(t, b2.Commit(true))

	require.NotEqual(t, id1, id2)
	doc2, ok, err := s.Get(db.Engine(), id2)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, id1, doc2.OldRev)

	doc1, ok, err := s.Get(db.Engine(), id1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v1", string(doc1.Data))
}

func TestStorageErase(t *testing.T) {
	db, s := newTestStorage(t)
	b := batch.New(db.Engine())
	id, err := s.Put(db.Engine(), b, []byte("gone"), 0)
	require.NoError(t, err)
	require.NoError(t, b.Commit(true))

	b2 := batch.New(db.Engine())
	require.NoError(t, s.Erase(b2, id))
	require.NoError(t, b2.Commit(true))

	_, ok, err := s.Get(db.Engine(), id)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStorageScanAscending(t *testing.T) {
	db, s := newTestStorage(t)
	b := batch.New(db.Engine())
	var ids []DocID
	for i := 0; i < 3; i++ {
		id, err := s.Put(db.Engine(), b, []byte{byte('a' + i)}, 0)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	require.NoError(t, b.Commit(true))

	rs, err := s.Scan(db.Engine(), ids[0], true)
	require.NoError(t, err)
	defer rs.Close()

	var got []DocID
	for rs.Valid() {
		got = append(got, decodeDocID(rs.Key()[1:]))
		if !rs.Next() {
			break
		}
	}
	require.Equal(t, ids, got)
}

func TestStorageCompactRemovesReplaced(t *testing.T) {
	db, s := newTestStorage(t)
	b := batch.New(db.Engine())
	id1, err := s.Put(db.Engine(), b, []byte("v1"), 0)
	require.NoError(t, err)
	require.NoError(t, b.Commit(true))

	b2 := batch.New(db.Engine())
	_, err = s.Put(db.Engine(), b2, []byte("v2"), id1)
	require.NoError(t, err)
	require.NoError(t, b2.Commit(true))

	require.NoError(t, s.Compact(db.Engine()))

	_, ok, err := s.Get(db.Engine(), id1)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStorageOnUpdateFiresAfterCommit(t *testing.T) {
	db, s := newTestStorage(t)
	fired := make(chan DocID, 1)
	registered := s.OnUpdate(s.Rev()+1, func(latest DocID) bool {
		fired <- latest
		return false
	})
	require.True(t, registered)

	b := batch.New(db.Engine())
	id, err := s.Put(db.Engine(), b, []byte("x"), 0)
	require.NoError(t, err)
	require.NoError(t, b.Commit(true))

	require.Equal(t, id, <-fired)
}

func TestStorageRegisterObserverFiresSynchronouslyInBatch(t *testing.T) {
	db, s := newTestStorage(t)
	var seen []Update
	s.RegisterObserver(func(b *batch.Batch, u Update) error {
		seen = append(seen, u)
		return nil
	})

	b := batch.New(db.Engine())
	id1, err := s.Put(db.Engine(), b, []byte("v1"), 0)
	require.NoError(t, err)
	require.NoError(t, b.Commit(true))
	require.Len(t, seen, 1)
	require.Equal(t, id1, seen[0].NewDoc.ID)
	require.Nil(t, seen[0].OldDoc)

	b2 := batch.New(db.Engine())
	_, err = s.Put(db.Engine(), b2, []byte("v2"), id1)
	require.NoError(t, err)
	require.NoError(t, b2.Commit(true))
	require.Len(t, seen, 2)
	require.NotNil(t, seen[1].OldDoc)
	require.Equal(t, "v1", string(seen[1].OldDoc.Data))
}

func TestStorageRescanForReplaysAllDocs(t *testing.T) {
	db, s := newTestStorage(t)
	b := batch.New(db.Engine())
	for i := 0; i < 3; i++ {
		_, err := s.Put(db.Engine(), b, []byte{byte('a' + i)}, 0)
		require.NoError(t, err)
	}
	require.NoError(t, b.Commit(true))

	var replayed []DocID
	err := s.RescanFor(db.Engine(), 1, func(b *batch.Batch, u Update) error {
		replayed = append(replayed, u.NewDoc.ID)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, replayed, 3)
}

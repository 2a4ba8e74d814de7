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

package schema

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kvdoc/kvdoc/batch"
	"github.com/kvdoc/kvdoc/document"
	"github.com/kvdoc/kvdoc/kv"
	"github.com/kvdoc/kvdoc/kv/memkv"
)

func newTestDB(t *testing.T) *kv.Database {
	t.Helper()
	db, err := kv.NewDatabase(memkv.New())
	require.NoError(t, err)
	return db
}

func TestTrackerLoadOnEmptyCollection(t *testing.T) {
	db := newTestDB(t)
	kid, err := db.Open("t", kv.PurposeIndex)
	require.NoError(t, err)
	tr := New(kid)

	rev, docID, err := tr.Load(db.Engine())
	require.NoError(t, err)
	require.Equal(t, uint64(0), rev)
	require.Equal(t, document.DocID(0), docID)
}

func TestTrackerStoreThenLoadRoundTrips(t *testing.T) {
	db := newTestDB(t)
	kid, err := db.Open("t", kv.PurposeIndex)
	require.NoError(t, err)
	tr := New(kid)

	b := batch.New(db.Engine())
	require.NoError(t, tr.Store(b, 3, document.DocID(42)))
	require.NoError(t, b.Commit(true))

	rev, docID, err := tr.Load(db.Engine())
	require.NoError(t, err)
	require.Equal(t, uint64(3), rev)
	require.Equal(t, document.DocID(42), docID)
}

func TestTrackerDistinctCollectionsDontCollide(t *testing.T) {
	db := newTestDB(t)
	kidA, err := db.Open("a", kv.PurposeIndex)
	require.NoError(t, err)
	kidB, err := db.Open("b", kv.PurposeIndex)
	require.NoError(t, err)
	trA, trB := New(kidA), New(kidB)

	b := batch.New(db.Engine())
	require.NoError(t, trA.Store(b, 1, document.DocID(7)))
	require.NoError(t, b.Commit(true))

	rev, docID, err := trB.Load(db.Engine())
	require.NoError(t, err)
	require.Equal(t, uint64(0), rev)
	require.Equal(t, document.DocID(0), docID)
}

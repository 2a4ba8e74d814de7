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

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kvdoc/kvdoc/batch"
	"github.com/kvdoc/kvdoc/document"
	"github.com/kvdoc/kvdoc/kv"
	"github.com/kvdoc/kvdoc/kv/memkv"
)

func newTestSession(t *testing.T) (*Session, *kv.Database) {
	t.Helper()
	eng := memkv.New()
	db, err := kv.NewDatabase(eng)
	require.NoError(t, err)
	sess, err := NewSession(db, &bytes.Buffer{}, &bytes.Buffer{})
	require.NoError(t, err)
	return sess, db
}

func TestUseRequiresExistingCollection(t *testing.T) {
	sess, _ := newTestSession(t)
	require.Error(t, sess.use("nope"))

	_, err := sess.db.Open("people", kv.PurposeStorage)
	require.NoError(t, err)
	require.NoError(t, sess.use("people"))
	require.Equal(t, "people", sess.curName)
}

func TestSetVarListVarUnsetVar(t *testing.T) {
	sess, _ := newTestSession(t)
	require.NoError(t, sess.setVar("k1", "v1"))
	require.NoError(t, sess.setVar("k2", "v2"))

	vars, err := sess.listVars()
	require.NoError(t, err)
	require.Len(t, vars, 2)
	require.Equal(t, "k1", vars[0].Name)
	require.Equal(t, "v1", vars[0].Value)

	require.NoError(t, sess.unsetVar("k1"))
	vars, err = sess.listVars()
	require.NoError(t, err)
	require.Len(t, vars, 1)
	require.Equal(t, "k2", vars[0].Name)
}

func TestOpenFirstWalksStorageRows(t *testing.T) {
	sess, db := newTestSession(t)
	storage, err := document.Open(db, "people")
	require.NoError(t, err)

	b := batch.New(db.Engine())
	_, err = storage.Put(db.Engine(), b, []byte(`{"name":"alice"}`), 0)
	require.NoError(t, err)
	require.NoError(t, b.Commit(true))

	kid, purpose, err := db.OpenExisting("people")
	require.NoError(t, err)
	require.NoError(t, sess.openFirst(kid, purpose))
	require.True(t, sess.cur.rs.Valid())

	id := document.DecodeDocIDKey(sess.cur.rs.Key())
	require.Equal(t, document.DocID(1), id)
}

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
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kvdoc/kvdoc/batch"
	"github.com/kvdoc/kvdoc/document"
)

func runCmd(t *testing.T, s *Session, confirm func(string) bool, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	s.out = &out
	if confirm == nil {
		confirm = func(string) bool { return true }
	}
	root := newRootCommand(s, confirm)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	require.NoError(t, root.Execute())
	return out.String()
}

func TestCreateAndListRoundtrip(t *testing.T) {
	sess, _ := newTestSession(t)
	out := runCmd(t, sess, nil, "create", "Storage", "people")
	require.Contains(t, out, "Collection keyspace is:")

	out = runCmd(t, sess, nil, "list")
	require.Contains(t, out, "people")
	require.Contains(t, out, "Storage")
}

func TestEraseTableRequiresConfirmation(t *testing.T) {
	sess, _ := newTestSession(t)
	runCmd(t, sess, nil, "create", "Map", "notes")

	runCmd(t, sess, func(string) bool { return false }, "erase_table", "notes")
	_, _, err := sess.db.OpenExisting("notes")
	require.NoError(t, err, "collection must survive a declined confirmation")

	runCmd(t, sess, func(string) bool { return true }, "erase_table", "notes")
	_, _, err = sess.db.OpenExisting("notes")
	require.Error(t, err)
}

func TestDocumentCommandFindsAcrossCollections(t *testing.T) {
	sess, db := newTestSession(t)
	storage, err := document.Open(db, "people")
	require.NoError(t, err)
	b := batch.New(db.Engine())
	_, err = storage.Put(db.Engine(), b, []byte(`{"name":"bob"}`), 0)
	require.NoError(t, err)
	require.NoError(t, b.Commit(true))

	out := runCmd(t, sess, nil, "document", "1")
	require.True(t, strings.Contains(out, "bob") || strings.Contains(out, "people"))
}

func TestPurgeRequiresStorageCollection(t *testing.T) {
	sess, _ := newTestSession(t)
	runCmd(t, sess, nil, "create", "Map", "notes")
	require.NoError(t, sess.use("notes"))

	var out bytes.Buffer
	sess.out = &out
	root := newRootCommand(sess, func(string) bool { return true })
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"purge", "1"})
	require.Error(t, root.Execute())
}

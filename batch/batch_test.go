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

package batch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kvdoc/kvdoc/kv/memkv"
)

type recordingListener struct {
	before   []Revision
	after    []Revision
	rollback []Revision
	fail     bool
}

func (l *recordingListener) BeforeCommit(b *Batch) error {
	l.before = append(l.before, b.Revision())
	if l.fail {
		return errors.New("boom")
	}
	return nil
}
func (l *recordingListener) AfterCommit(rev Revision)   { l.after = append(l.after, rev) }
func (l *recordingListener) AfterRollback(rev Revision) { l.rollback = append(l.rollback, rev) }

func TestBatchCommitNotifiesInOrder(t *testing.T) {
	eng := memkv.New()
	b := New(eng)
	l1 := &recordingListener{}
	l2 := &recordingListener{}
	b.AddListener(l1)
	b.AddListener(l2)
	require.NoError(t, b.Put([]byte("k"), []byte("v")))
	require.NoError(t, b.Commit(false))

	require.Equal(t, []Revision{b.Revision()}, l1.after)
	require.Equal(t, []Revision{b.Revision()}, l2.after)
	require.Empty(t, l1.rollback)
}

func TestBatchAbortOnListenerError(t *testing.T) {
	eng := memkv.New()
	b := New(eng)
	ok := &recordingListener{}
	bad := &recordingListener{fail: true}
	b.AddListener(ok)
	b.AddListener(bad)
	require.NoError(t, b.Put([]byte("k"), []byte("v")))
	err := b.Commit(false)
	require.Error(t, err)
	require.Empty(t, ok.after)
	require.NotEmpty(t, ok.rollback)

	_, found, err := eng.Get([]byte("k"))
	require.NoError(t, err)
	require.False(t, found)
}

func TestRevisionsAreDistinctAndMonotonic(t *testing.T) {
	eng := memkv.New()
	r1 := New(eng).Revision()
	r2 := New(eng).Revision()
	require.True(t, r2 > r1)
}

func TestBatchBigThreshold(t *testing.T) {
	eng := memkv.New()
	b := New(eng)
	for i := 0; i < 3; i++ {
		require.NoError(t, b.Put([]byte{byte(i)}, []byte{0}))
	}
	require.False(t, b.Big(5))
	require.True(t, b.Big(2))
}

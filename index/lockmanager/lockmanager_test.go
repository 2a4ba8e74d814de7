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

package lockmanager

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLockKeyFreshGrantsLock(t *testing.T) {
	m := New()
	res := m.LockKey(1, []byte("a"), 10, 0)
	require.True(t, res.Locked)
	require.False(t, res.Replaced)
}

func TestLockKeyConflict(t *testing.T) {
	m := New()
	m.LockKey(1, []byte("a"), 10, 0)
	res := m.LockKey(2, []byte("a"), 20, 0)
	require.False(t, res.Locked)
	require.Equal(t, uint64(10), res.LockedFor)
}

func TestLockKeyReplaceSameOwner(t *testing.T) {
	m := New()
	m.LockKey(1, []byte("a"), 10, 0)
	res := m.LockKey(2, []byte("a"), 11, 10)
	require.True(t, res.Locked)
	require.True(t, res.Replaced)
}

func TestUnlockRevisionReleasesAllKeys(t *testing.T) {
	m := New()
	m.LockKey(1, []byte("a"), 10, 0)
	m.LockKey(1, []byte("b"), 10, 0)
	m.UnlockRevision(1)
	res := m.LockKey(2, []byte("a"), 20, 0)
	require.True(t, res.Locked)
}

func TestHolder(t *testing.T) {
	m := New()
	m.LockKey(1, []byte("a"), 10, 0)
	owner, held := m.Holder([]byte("a"))
	require.True(t, held)
	require.Equal(t, uint64(10), owner)
	_, held = m.Holder([]byte("b"))
	require.False(t, held)
}

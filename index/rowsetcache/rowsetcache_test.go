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

package rowsetcache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCacheGetMissThenHit(t *testing.T) {
	c, err := New(8)
	require.NoError(t, err)

	_, ok := c.Get("tag:go", 1)
	require.False(t, ok)

	bm := FromDocIDs([]uint64{1, 2, 3})
	c.Put("tag:go", 1, bm)

	got, ok := c.Get("tag:go", 1)
	require.True(t, ok)
	require.True(t, got.Contains(2))
}

func TestCacheRevisionMismatchIsMiss(t *testing.T) {
	c, err := New(8)
	require.NoError(t, err)
	c.Put("tag:go", 1, FromDocIDs([]uint64{1}))
	_, ok := c.Get("tag:go", 2)
	require.False(t, ok)
}

func TestCachePurge(t *testing.T) {
	c, err := New(8)
	require.NoError(t, err)
	c.Put("a", 1, FromDocIDs([]uint64{1}))
	c.Purge()
	require.Equal(t, 0, c.Len())
}

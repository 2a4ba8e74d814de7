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

package memindex

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDocIDSetAnd(t *testing.T) {
	a := New([]DocID{1, 2, 3, 4})
	b := New([]DocID{3, 4, 5})
	require.Equal(t, []DocID{3, 4}, a.And(b).IDs())
}

func TestDocIDSetOr(t *testing.T) {
	a := New([]DocID{1, 2, 3})
	b := New([]DocID{3, 4})
	require.Equal(t, []DocID{1, 2, 3, 4}, a.Or(b).IDs())
}

func TestDocIDSetXor(t *testing.T) {
	a := New([]DocID{1, 2, 3})
	b := New([]DocID{3, 4})
	require.Equal(t, []DocID{1, 2, 4}, a.Xor(b).IDs())
}

func TestDocIDSetDedupe(t *testing.T) {
	s := New([]DocID{2, 1, 2, 1, 3})
	require.Equal(t, []DocID{1, 2, 3}, s.IDs())
}

func TestDocIDSetContains(t *testing.T) {
	s := New([]DocID{1, 5, 9})
	require.True(t, s.Contains(5))
	require.False(t, s.Contains(6))
}

func TestDocIDSetEmptyAnd(t *testing.T) {
	a := DocIDSet{}
	b := New([]DocID{1, 2})
	require.True(t, a.And(b).Empty())
}

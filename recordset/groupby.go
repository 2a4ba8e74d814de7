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

package recordset

import "bytes"

// GroupKeyFunc extracts the grouping key from a row's raw key -- typically a
// prefix of the row key, e.g. dropping trailing columns used only for
// uniqueness or ordering within a group.
type GroupKeyFunc func(key []byte) []byte

// Aggregator accumulates rows belonging to a single group. Add is called once
// per row in key order; Reset prepares the accumulator for the next group.
type Aggregator interface {
	Reset()
	Add(key, value []byte)
}

// GroupBy performs a streaming (single-pass, O(1)-memory) group-by over a
// Recordset whose rows already arrive in group-key order, ported from
// original_source/src/docdb/groupby.h's GroupBy<>::Recordset. Unlike
// original_source (which relies on ++/== iterator comparisons), GroupBy here
// is driven by repeated calls to Next, mirroring Recordset's own Next/Valid
// idiom.
type GroupBy struct {
	rs      *Recordset
	keyFn   GroupKeyFunc
	accum   Aggregator
	groupKey []byte
	started bool
	done    bool
}

// NewGroupBy constructs a streaming group-by over rs, grouping consecutive
// rows that share the same keyFn(key), and folding each group's rows into
// accum via Add. rs must already be positioned on its first row (as returned
// by New or Reset); NewGroupBy takes ownership of advancing it.
func NewGroupBy(rs *Recordset, keyFn GroupKeyFunc, accum Aggregator) *GroupBy {
	return &GroupBy{rs: rs, keyFn: keyFn, accum: accum}
}

// Next advances to the next group, folding all of its rows into the
// accumulator, and reports whether a group was produced. GroupKey and the
// accumulator state are valid until the following call to Next.
func (g *GroupBy) Next() bool {
	if g.done {
		return false
	}
	if !g.started {
		g.started = true
		if !g.rs.Valid() {
			g.done = true
			return false
		}
	} else if !g.rs.Valid() {
		g.done = true
		return false
	}

	g.accum.Reset()
	g.groupKey = append([]byte(nil), g.keyFn(g.rs.Key())...)
	g.accum.Add(g.rs.Key(), g.rs.Value())

	for g.rs.Next() {
		if !bytes.Equal(g.keyFn(g.rs.Key()), g.groupKey) {
			return true
		}
		g.accum.Add(g.rs.Key(), g.rs.Value())
	}
	g.done = true
	return true
}

// GroupKey returns the grouping key of the group produced by the most recent
// call to Next.
func (g *GroupBy) GroupKey() []byte { return g.groupKey }

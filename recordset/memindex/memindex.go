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

// Package memindex implements an in-memory sorted DocID set with set algebra
// (AND/OR/XOR), ported from original_source/src/docdb/join.h's DocumentSet --
// used to combine the results of multiple index lookups into one compound
// query without touching the underlying storage engine again.
package memindex

import "sort"

// DocID mirrors document.DocID without importing the document package, to
// keep memindex usable from any package that deals in document identities.
type DocID uint64

// DocIDSet is an immutable, sorted set of document identities.
type DocIDSet struct {
	ids []DocID
}

// New builds a DocIDSet from ids, sorting and deduplicating them.
func New(ids []DocID) DocIDSet {
	cp := append([]DocID(nil), ids...)
	sort.Slice(cp, func(i, j int) bool { return cp[i] < cp[j] })
	cp = dedupe(cp)
	return DocIDSet{ids: cp}
}

func dedupe(sorted []DocID) []DocID {
	if len(sorted) < 2 {
		return sorted
	}
	out := sorted[:1]
	for _, id := range sorted[1:] {
		if id != out[len(out)-1] {
			out = append(out, id)
		}
	}
	return out
}

// Len reports the number of document ids in the set.
func (s DocIDSet) Len() int { return len(s.ids) }

// Empty reports whether the set has no members.
func (s DocIDSet) Empty() bool { return len(s.ids) == 0 }

// IDs returns the sorted document ids. The caller must not mutate the result.
func (s DocIDSet) IDs() []DocID { return s.ids }

// Contains reports whether id is a member of the set.
func (s DocIDSet) Contains(id DocID) bool {
	i := sort.Search(len(s.ids), func(i int) bool { return s.ids[i] >= id })
	return i < len(s.ids) && s.ids[i] == id
}

// And returns the intersection of s and other.
func (s DocIDSet) And(other DocIDSet) DocIDSet {
	if s.Empty() || other.Empty() {
		return DocIDSet{}
	}
	var out []DocID
	i, j := 0, 0
	for i < len(s.ids) && j < len(other.ids) {
		switch {
		case s.ids[i] < other.ids[j]:
			i++
		case s.ids[i] > other.ids[j]:
			j++
		default:
			out = append(out, s.ids[i])
			i++
			j++
		}
	}
	return DocIDSet{ids: out}
}

// Or returns the union of s and other.
func (s DocIDSet) Or(other DocIDSet) DocIDSet {
	out := make([]DocID, 0, len(s.ids)+len(other.ids))
	i, j := 0, 0
	for i < len(s.ids) && j < len(other.ids) {
		switch {
		case s.ids[i] < other.ids[j]:
			out = append(out, s.ids[i])
			i++
		case s.ids[i] > other.ids[j]:
			out = append(out, other.ids[j])
			j++
		default:
			out = append(out, s.ids[i])
			i++
			j++
		}
	}
	out = append(out, s.ids[i:]...)
	out = append(out, other.ids[j:]...)
	return DocIDSet{ids: out}
}

// Xor returns the symmetric difference of s and other.
func (s DocIDSet) Xor(other DocIDSet) DocIDSet {
	var out []DocID
	i, j := 0, 0
	for i < len(s.ids) && j < len(other.ids) {
		switch {
		case s.ids[i] < other.ids[j]:
			out = append(out, s.ids[i])
			i++
		case s.ids[i] > other.ids[j]:
			out = append(out, other.ids[j])
			j++
		default:
			i++
			j++
		}
	}
	out = append(out, s.ids[i:]...)
	out = append(out, other.ids[j:]...)
	return DocIDSet{ids: out}
}

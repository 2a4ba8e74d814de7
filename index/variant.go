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

package index

// Kind selects an Indexer's row layout and uniqueness enforcement, mirroring
// original_source/src/docdb/indexer.h's IndexType.
type Kind int

const (
	// Multi appends the DocID to every emitted key, so multiple documents
	// may map to the same index key; the index row layout is key+id -> value.
	Multi Kind = iota
	// Unique enforces that at most one live document maps to a given key,
	// via lockmanager.Manager; a conflicting emit fails the batch.
	Unique
	// UniqueHideDup behaves like Multi on disk (key+id -> value) but still
	// enforces uniqueness through the lock manager -- useful when callers
	// want to see the rejected duplicate before it's hidden.
	UniqueHideDup
	// UniqueNoCheck stores one row per key (key -> id+value) like Unique,
	// but skips lock-manager conflict detection entirely.
	UniqueNoCheck
)

func (k Kind) String() string {
	switch k {
	case Multi:
		return "multi"
	case Unique:
		return "unique"
	case UniqueHideDup:
		return "unique_hide_dup"
	case UniqueNoCheck:
		return "unique_no_check"
	default:
		return "unknown"
	}
}

// appendsID reports whether rows of this Kind store DocID as a key suffix
// (true) or as a value prefix (false).
func (k Kind) appendsID() bool {
	return k == Multi || k == UniqueHideDup
}

// checked reports whether Put conflicts should be verified via the lock
// manager.
func (k Kind) checked() bool {
	return k == Unique || k == UniqueHideDup
}

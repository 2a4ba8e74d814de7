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

import "fmt"

// DuplicateKeyError reports a unique-index conflict: two live documents
// mapping to the same index key.
type DuplicateKeyError struct {
	Name     string
	Key      []byte
	Incoming uint64
	Stored   uint64
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("kvdoc/index: duplicate key found in index %q: indexed document %d, conflicting document %d",
		e.Name, e.Stored, e.Incoming)
}

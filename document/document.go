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

// Package document implements the unordered document storage of spec.md §4.6
// -- documents keyed by a monotonically increasing DocID, with revision
// chaining so a replacing write keeps the id of the document it replaces
// reachable until Compact runs. Ported from
// original_source/src/docdb/storage.h's Storage/StorageView.
package document

import "errors"

// DocID identifies a stored document. 0 is never a valid id.
type DocID uint64

// Document is a decoded storage row.
type Document struct {
	ID     DocID
	OldRev DocID
	Data   []byte
}

// ErrNotFound is returned by Get when no document with the given id exists.
var ErrNotFound = errors.New("kvdoc/document: not found")

// DocumentCodec turns an application-level value into the opaque bytes
// Storage.Put stores as Document.Data, and back. Storage itself never
// depends on one -- it stores []byte -- this is the seam external
// collaborators (internal/jsoncodec, internal/csvload) use so the CLI and
// loaders don't have to hand-roll their own marshalling convention.
type DocumentCodec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
}

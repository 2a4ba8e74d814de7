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

package kv

import "errors"

// ErrTooManyCollections is returned by Database.Open when the KID space
// (256 minus the reserved system KID) is exhausted. Fatal to the caller: there
// is no way to proceed without deleting an existing collection first.
var ErrTooManyCollections = errors.New("kvdoc: no free collection ids")

// ErrTableAlreadyOpen names the case of a collection opened for writing while
// another writer handle on the same name is still held. No function in this
// module returns it: opening a collection twice is not detected.
var ErrTableAlreadyOpen = errors.New("kvdoc: table already open")

// ErrNotFound is returned when a named collection does not exist and the
// caller asked for OpenExisting rather than Open.
var ErrNotFound = errors.New("kvdoc: collection not found")

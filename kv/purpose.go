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

// Purpose tags what a keyspace is used for. It is advisory metadata persisted
// alongside a KID in the system table; tooling uses it, the core treats
// mismatches as non-fatal (a collection opened with a different purpose than
// it was created with keeps its original purpose and the mismatch is logged).
type Purpose byte

const (
	// PurposeStorage marks a keyspace as an append-only document log.
	PurposeStorage Purpose = 'S'
	// PurposeIndex marks a multi-valued (or unique-hide-dup) secondary index.
	PurposeIndex Purpose = 'I'
	// PurposeUniqueIndex marks a unique secondary index.
	PurposeUniqueIndex Purpose = 'U'
	// PurposeMap marks a plain keyed store without a revision log.
	PurposeMap Purpose = 'M'
	// PurposeAggregation marks a materialized or incremental aggregation.
	PurposeAggregation Purpose = 'A'
	// PurposeUndefined marks a keyspace created by a caller with no declared purpose.
	PurposeUndefined Purpose = '?'
	// PurposePrivateArea is never persisted as a collection's own purpose; it
	// tags the reserved sub-keyspace under SYS that holds every collection's
	// private metadata. Kept out-of-band (high bit set) so it can never collide
	// with an ASCII purpose tag a caller supplies.
	PurposePrivateArea Purpose = 0x80
)

// KID is the one-byte collection identifier that prefixes every physical key.
type KID byte

// SysKID is the reserved system-table keyspace. 0xFF is never allocated to an
// application collection; TooManyCollections fires before a caller could reach it.
const SysKID KID = 0xFF

// MaxCollections is the number of KIDs available to application collections
// (the full byte range minus the reserved system KID).
const MaxCollections = 255

func (p Purpose) String() string {
	switch p {
	case PurposeStorage:
		return "storage"
	case PurposeIndex:
		return "index"
	case PurposeUniqueIndex:
		return "unique_index"
	case PurposeMap:
		return "map"
	case PurposeAggregation:
		return "aggregation"
	case PurposeUndefined:
		return "undefined"
	case PurposePrivateArea:
		return "private_area"
	default:
		return "unknown"
	}
}

// TableInfo describes one entry of the keyspace registry, as surfaced by
// Registry.List and the CLI's "list" command.
type TableInfo struct {
	KID        KID
	Purpose    Purpose
	ApproxSize uint64
	Name       string
	Metadata   []byte
	Temporary  bool
}

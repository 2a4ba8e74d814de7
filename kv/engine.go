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

// Package kv defines the ordered key-value contract the rest of kvdoc is
// built on, and the keyspace registry that multiplexes many logical
// collections into the bytes of one such store.
package kv

// Engine is the only thing kvdoc asks of an underlying storage engine:
// point reads, atomic write batches, directional bounded iteration,
// snapshots, and an approximate byte-size estimator for a key range. It is
// intentionally narrow so any LevelDB-class engine (MDBX, Pebble, an
// in-memory ordered map for tests) can implement it.
type Engine interface {
	// Get returns the value stored at key, or (nil, false, nil) if absent.
	Get(key []byte) (value []byte, found bool, err error)

	// NewWriteBatch starts a new atomic write batch.
	NewWriteBatch() WriteBatch

	// NewIterator returns a bounded iterator over [lower, upper). A nil upper
	// bound means "unbounded above"; a nil lower bound means "unbounded below".
	NewIterator(lower, upper []byte) (Iterator, error)

	// NewSnapshot pins a consistent view of the store for iteration that must
	// survive concurrent writes.
	NewSnapshot() (Snapshot, error)

	// ApproximateSize estimates the number of bytes occupied by [lower, upper).
	// The estimate is engine-dependent (sampled vs. exact) and must not be
	// asserted precisely by callers; see recordset.CountAprox.
	ApproximateSize(lower, upper []byte) (uint64, error)

	// CompactRange asks the engine to reclaim space in [lower, upper). Some
	// engines (MDBX) have no explicit compaction and implement this as a
	// documented no-op.
	CompactRange(lower, upper []byte) error

	// Close releases the engine's resources.
	Close() error
}

// WriteBatch accumulates Put/Delete operations for atomic commit. It is the
// raw engine-level primitive; batch.Batch (package batch) wraps one of these
// with revision stamping and listener hooks.
type WriteBatch interface {
	Put(key, value []byte) error
	Delete(key []byte) error
	DeleteRange(lower, upper []byte) error
	// Commit applies the batch atomically. sync requests the engine fsync the
	// commit before returning (used for system-table writes, per spec).
	Commit(sync bool) error
	// Discard abandons the batch without applying it.
	Discard()
	// Len reports how many operations are currently buffered.
	Len() int
}

// Iterator walks a bounded key range. It supports both directions so
// recordset.Recordset can implement spec.md §4.4's "direction implied by
// range_start <= range_end" without needing two distinct engine-level
// iterator types.
type Iterator interface {
	// SeekGE positions the iterator at the first key >= target within bounds.
	SeekGE(target []byte) bool
	// SeekLE positions the iterator at the last key <= target within bounds.
	SeekLE(target []byte) bool
	Next() bool
	Previous() bool
	Key() []byte
	Value() []byte
	Valid() bool
	Close() error
	Err() error
}

// Snapshot is a point-in-time read-only view.
type Snapshot interface {
	Get(key []byte) (value []byte, found bool, err error)
	NewIterator(lower, upper []byte) (Iterator, error)
	Close() error
}

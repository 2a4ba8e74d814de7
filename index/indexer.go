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

// Package index implements the materialized-view indexer of spec.md §4.7:
// a user-supplied mapping function derives zero or more (key, value) rows
// from each document, and the Indexer keeps those rows consistent with the
// document storage by listening for writes on the same batch they arrive in.
// Ported from original_source/src/docdb/indexer.h's Indexer<Storage,IndexFn>.
package index

import (
	"encoding/binary"
	"sync"

	"github.com/kvdoc/kvdoc/batch"
	"github.com/kvdoc/kvdoc/document"
	"github.com/kvdoc/kvdoc/index/lockmanager"
	"github.com/kvdoc/kvdoc/kv"
	"github.com/kvdoc/kvdoc/kvlog"
	"github.com/kvdoc/kvdoc/recordset"
	"github.com/kvdoc/kvdoc/schema"
)

// Emit is passed to an IndexFn once per document; calling it stages one
// index row. value may be nil for a key-only index.
type Emit func(key, value []byte)

// Fn derives index rows from a document. Schema changes that alter what Fn
// emits must bump the revision passed to Open, which triggers a full
// Reindex the next time the process starts.
type Fn func(emit Emit, doc document.Document)

// Indexer maintains one derived keyspace from a document.Storage.
type Indexer struct {
	db       *kv.Database
	kid      kv.KID
	name     string
	storage  *document.Storage
	kind     Kind
	fn       Fn
	revision uint64
	log      kvlog.Logger
	tracker  schema.Tracker

	locker     *lockmanager.Manager
	observerID int64

	rowMu        sync.RWMutex
	rowObservers []rowObserverEntry
	nextRowID    int64
}

type rowObserverEntry struct {
	id int64
	fn RowObserver
}

// RowObserver reacts to a single emitted index row, synchronously and inside
// the same batch the row was staged in -- this is how an aggregate.Materialized
// marks the groups of emitted index rows dirty, mirroring the way
// original_source/src/docdb/groupby.h's Materialized registers itself on the
// index rather than on storage directly.
type RowObserver func(b *batch.Batch, docID document.DocID, key, value []byte, erase bool) error

// Open opens or creates the named index, reindexing from scratch if the
// stored schema revision doesn't match revision, or catching up from the
// last indexed storage revision otherwise.
func Open(db *kv.Database, storage *document.Storage, name string, kind Kind, revision uint64, fn Fn) (*Indexer, error) {
	purpose := kv.PurposeIndex
	if kind == Unique || kind == UniqueNoCheck {
		purpose = kv.PurposeUniqueIndex
	}
	kid, err := db.Open(name, purpose)
	if err != nil {
		return nil, err
	}

	idx := &Indexer{
		db:       db,
		kid:      kid,
		name:     name,
		storage:  storage,
		kind:     kind,
		fn:       fn,
		revision: revision,
		log:      kvlog.New("index." + name),
		tracker:  schema.New(kid),
	}
	if kind.checked() {
		idx.locker = lockmanager.New()
	}

	gotRevision, storageRevision, err := idx.tracker.Load(idx.db.Engine())
	if err != nil {
		return nil, err
	}
	if gotRevision != revision {
		if err := idx.Reindex(); err != nil {
			return nil, err
		}
	} else if storageRevision < storage.Rev() {
		if err := idx.reindexFrom(storageRevision + 1); err != nil {
			return nil, err
		}
	}

	idx.observerID = storage.RegisterObserver(idx.handleUpdate)
	return idx, nil
}

// Reindex clears every row this Indexer owns and rebuilds it from every
// document in storage.
func (idx *Indexer) Reindex() error {
	lower, upper := kv.CollectionBounds(idx.kid)
	wb := idx.db.Engine().NewWriteBatch()
	if err := wb.DeleteRange(lower, upper); err != nil {
		return err
	}
	if err := wb.Commit(true); err != nil {
		return err
	}
	return idx.reindexFrom(1)
}

func (idx *Indexer) reindexFrom(fromID document.DocID) error {
	return idx.storage.RescanFor(idx.db.Engine(), fromID, func(b *batch.Batch, u document.Update) error {
		idx.registerUnlockListener(b)
		if err := idx.emitFor(b, u.NewDoc, false, 0); err != nil {
			return err
		}
		return idx.tracker.Store(b, idx.revision, u.NewDoc.ID)
	})
}

// registerUnlockListener ensures every key this Indexer locks while staging
// rows into b is released once b commits or rolls back, whether b is the
// live write batch (handleUpdate) or one of RescanFor's internal batches
// (reindexFrom). A listener is added at most once per batch.
func (idx *Indexer) registerUnlockListener(b *batch.Batch) {
	if idx.locker != nil {
		b.AddListener(&unlockListener{locker: idx.locker, rev: lockmanager.Revision(b.Revision())})
	}
}

func (idx *Indexer) handleUpdate(b *batch.Batch, u document.Update) error {
	idx.registerUnlockListener(b)
	if u.OldDoc != nil {
		if err := idx.emitFor(b, *u.OldDoc, true, 0); err != nil {
			return err
		}
	}
	var prevOwner uint64
	if u.OldDoc != nil {
		prevOwner = uint64(u.OldDoc.ID)
	}
	if err := idx.emitFor(b, u.NewDoc, false, prevOwner); err != nil {
		return err
	}
	return idx.tracker.Store(b, idx.revision, u.NewDoc.ID)
}

// emitFor runs fn over doc, staging one Put/Delete per emitted row; the
// first conflict (a unique-index collision) aborts immediately and is
// returned to the caller, which must roll back the whole batch.
func (idx *Indexer) emitFor(b *batch.Batch, doc document.Document, erase bool, prevOwner uint64) error {
	var pending error
	idx.fn(func(key, value []byte) {
		if pending != nil {
			return
		}
		pending = idx.putOrDelete(b, doc.ID, prevOwner, key, value, erase)
	}, doc)
	return pending
}

func (idx *Indexer) rowKeyFor(userKey []byte, docID document.DocID) []byte {
	if idx.kind.appendsID() {
		var idBuf [8]byte
		binary.BigEndian.PutUint64(idBuf[:], uint64(docID))
		return kv.RowKey(idx.kid, append(append([]byte(nil), userKey...), idBuf[:]...))
	}
	return kv.RowKey(idx.kid, userKey)
}

func (idx *Indexer) canonicalKey(userKey []byte) []byte {
	return kv.RowKey(idx.kid, userKey)
}

func (idx *Indexer) putOrDelete(b *batch.Batch, docID document.DocID, prevOwner uint64, userKey, value []byte, erase bool) error {
	if !erase && idx.kind.checked() {
		res := idx.locker.LockKey(lockmanager.Revision(b.Revision()), userKey, uint64(docID), prevOwner)
		if !res.Locked {
			return &DuplicateKeyError{Name: idx.name, Key: userKey, Incoming: uint64(docID), Stored: res.LockedFor}
		}
		if !res.Replaced && idx.kind == Unique {
			if raw, ok, err := idx.db.Engine().Get(idx.canonicalKey(userKey)); err == nil && ok && len(raw) >= 8 {
				storedID := binary.BigEndian.Uint64(raw[:8])
				if storedID != uint64(docID) && storedID != prevOwner {
					return &DuplicateKeyError{Name: idx.name, Key: userKey, Incoming: uint64(docID), Stored: storedID}
				}
			}
		}
	}

	rk := idx.rowKeyFor(userKey, docID)
	if erase {
		if err := b.Delete(rk); err != nil {
			return err
		}
	} else {
		var row []byte
		if idx.kind.appendsID() {
			row = value
		} else {
			var idBuf [8]byte
			binary.BigEndian.PutUint64(idBuf[:], uint64(docID))
			row = append(idBuf[:], value...)
		}
		if err := b.Put(rk, row); err != nil {
			return err
		}
	}
	return idx.callRowObservers(b, docID, userKey, value, erase)
}

func (idx *Indexer) callRowObservers(b *batch.Batch, docID document.DocID, key, value []byte, erase bool) error {
	idx.rowMu.RLock()
	defer idx.rowMu.RUnlock()
	for _, e := range idx.rowObservers {
		if err := e.fn(b, docID, key, value, erase); err != nil {
			return err
		}
	}
	return nil
}

// RegisterObserver chains a downstream consumer (e.g. an aggregate) onto
// every row this Indexer writes, in the same batch.
func (idx *Indexer) RegisterObserver(fn RowObserver) int64 {
	idx.rowMu.Lock()
	defer idx.rowMu.Unlock()
	idx.nextRowID++
	id := idx.nextRowID
	idx.rowObservers = append(idx.rowObservers, rowObserverEntry{id: id, fn: fn})
	return id
}

// UnregisterObserver removes a previously registered row observer.
func (idx *Indexer) UnregisterObserver(id int64) {
	idx.rowMu.Lock()
	defer idx.rowMu.Unlock()
	out := idx.rowObservers[:0]
	for _, e := range idx.rowObservers {
		if e.id != id {
			out = append(out, e)
		}
	}
	idx.rowObservers = out
}

// KID returns the collection id backing this index, for building recordsets
// directly over its rows.
func (idx *Indexer) KID() kv.KID { return idx.kid }

// RowsForKey returns a Recordset over every row this Indexer stored under
// key -- zero or more for Multi/UniqueHideDup (key+id suffix), at most one
// for Unique/UniqueNoCheck. Used by aggregate.Materialized to recompute a
// dirty group straight from current index state rather than from a
// maintained running total.
func (idx *Indexer) RowsForKey(eng kv.Engine, key []byte) (*recordset.Recordset, error) {
	prefix := kv.RowKey(idx.kid, key)
	upper := prefixUpperBound(prefix)
	it, err := eng.NewIterator(prefix, upper)
	if err != nil {
		return nil, err
	}
	return recordset.New(it, prefix, upper, true, false), nil
}

// ReplayKeys calls fn once per row currently stored in this Indexer's
// collection, with the user key that row was written under (the DocID
// suffix, if any, stripped back off). Used by aggregate.Materialized to
// enumerate every group key that currently exists without re-deriving them
// from document storage.
func (idx *Indexer) ReplayKeys(eng kv.Engine, fn func(key []byte) error) error {
	lower, upper := kv.CollectionBounds(idx.kid)
	it, err := eng.NewIterator(lower, upper)
	if err != nil {
		return err
	}
	defer it.Close()
	for ok := it.SeekGE(lower); ok; ok = it.Next() {
		raw := it.Key()[1:]
		key := raw
		if idx.kind.appendsID() && len(raw) >= 8 {
			key = raw[:len(raw)-8]
		}
		if err := fn(key); err != nil {
			return err
		}
	}
	return it.Err()
}

// prefixUpperBound returns the smallest key greater than every key having
// prefix, or nil if prefix is all 0xFF bytes (meaning "unbounded above").
func prefixUpperBound(prefix []byte) []byte {
	up := append([]byte(nil), prefix...)
	for i := len(up) - 1; i >= 0; i-- {
		if up[i] != 0xFF {
			up[i]++
			return up[:i+1]
		}
	}
	return nil
}

type unlockListener struct {
	locker *lockmanager.Manager
	rev    lockmanager.Revision
}

func (l *unlockListener) BeforeCommit(*batch.Batch) error { return nil }
func (l *unlockListener) AfterCommit(batch.Revision)      { l.locker.UnlockRevision(l.rev) }
func (l *unlockListener) AfterRollback(batch.Revision)    { l.locker.UnlockRevision(l.rev) }

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

// Package aggregate implements spec.md §4.8/§4.9's two aggregation styles
// over document storage: Incremental folds each write directly into a
// running per-key value inside the same batch, while Materialized (in
// materialized.go) defers recomputation to a dirty-key worklist consumed
// later. Ported from original_source/src/docdb/inc_aggr.h's
// IncrementalAggregator and groupby.h's Materialized, respectively.
package aggregate

import (
	"sync"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/kvdoc/kvdoc/batch"
	"github.com/kvdoc/kvdoc/document"
	"github.com/kvdoc/kvdoc/kv"
	"github.com/kvdoc/kvdoc/kvlog"
	"github.com/kvdoc/kvdoc/schema"
)

// Emit derives the rows a document contributes to an Incremental aggregator:
// delta is folded into (erase=false) or out of (erase=true) the value
// currently stored under key, via ReduceFn.
type Emit func(key, delta []byte)

// Fn is called once per document, with an Emit bound to whichever pass
// (the document being added or the document it replaced being removed) is
// currently running.
type Fn func(emit Emit, doc document.Document)

// ReduceFn folds delta into current (nil if the key has no value yet) when
// erase is false, or out of it when erase is true. remove tells the caller
// to delete the row instead of storing result (e.g. a count that reached
// zero).
type ReduceFn func(current, delta []byte, erase bool) (result []byte, remove bool)

// Incremental maintains one derived keyspace of running per-key aggregates,
// updated synchronously inside the batch that wrote the triggering document.
type Incremental struct {
	db       *kv.Database
	kid      kv.KID
	name     string
	storage  *document.Storage
	fn       Fn
	reduce   ReduceFn
	revision uint64
	log      kvlog.Logger
	tracker  schema.Tracker

	mu       sync.Mutex
	inFlight map[Revision]mapset.Set[string]
}

// Revision identifies the batch a key lock belongs to, mirroring
// index/lockmanager's role for unique indexes: a concurrent write touching
// the same aggregate key before this batch commits is rejected rather than
// silently lost, per original_source/src/docdb/keylock.h's lock_key/
// unlock_keys contract (as actually called from inc_aggr.h).
type Revision = batch.Revision

// ErrKeyBusy is returned when two in-flight batches try to fold into the
// same aggregate key concurrently; the caller should retry the whole batch.
type ErrKeyBusy struct {
	Key []byte
}

func (e *ErrKeyBusy) Error() string {
	return "kvdoc/aggregate: key locked by a concurrent in-flight batch: " + string(e.Key)
}

// Open opens or creates the named incremental aggregator, rebuilding from
// scratch if the stored schema revision doesn't match revision.
func Open(db *kv.Database, storage *document.Storage, name string, revision uint64, fn Fn, reduce ReduceFn) (*Incremental, error) {
	kid, err := db.Open(name, kv.PurposeAggregation)
	if err != nil {
		return nil, err
	}
	agg := &Incremental{
		db:       db,
		kid:      kid,
		name:     name,
		storage:  storage,
		fn:       fn,
		reduce:   reduce,
		revision: revision,
		log:      kvlog.New("aggregate." + name),
		tracker:  schema.New(kid),
		inFlight: make(map[Revision]mapset.Set[string]),
	}

	gotRevision, storageRevision, err := agg.tracker.Load(agg.db.Engine())
	if err != nil {
		return nil, err
	}
	if gotRevision != revision {
		if err := agg.rebuild(); err != nil {
			return nil, err
		}
	} else if storageRevision < storage.Rev() {
		if err := agg.catchUpFrom(storageRevision + 1); err != nil {
			return nil, err
		}
	}
	storage.RegisterObserver(agg.handleUpdate)
	return agg, nil
}

func (agg *Incremental) rowKey(key []byte) []byte {
	return kv.RowKey(agg.kid, key)
}

// Get returns the current aggregated value for key, if any.
func (agg *Incremental) Get(eng kv.Engine, key []byte) ([]byte, bool, error) {
	return eng.Get(agg.rowKey(key))
}

func (agg *Incremental) rebuild() error {
	lower, upper := kv.CollectionBounds(agg.kid)
	wb := agg.db.Engine().NewWriteBatch()
	if err := wb.DeleteRange(lower, upper); err != nil {
		return err
	}
	if err := wb.Commit(true); err != nil {
		return err
	}
	return agg.catchUpFrom(1)
}

// catchUpFrom replays every document from fromID onward, the same way
// index.Indexer.reindexFrom catches a freshly reopened aggregator up on
// documents written while it wasn't registered as a storage observer.
func (agg *Incremental) catchUpFrom(fromID document.DocID) error {
	return agg.storage.RescanFor(agg.db.Engine(), fromID, func(b *batch.Batch, u document.Update) error {
		if err := agg.applyPass(b, u.NewDoc, false); err != nil {
			return err
		}
		return agg.tracker.Store(b, agg.revision, u.NewDoc.ID)
	})
}

func (agg *Incremental) handleUpdate(b *batch.Batch, u document.Update) error {
	b.AddListener(&incUnlockListener{agg: agg, rev: b.Revision()})
	if u.OldDoc != nil {
		if err := agg.applyPass(b, *u.OldDoc, true); err != nil {
			return err
		}
	}
	if err := agg.applyPass(b, u.NewDoc, false); err != nil {
		return err
	}
	return agg.tracker.Store(b, agg.revision, u.NewDoc.ID)
}

func (agg *Incremental) applyPass(b *batch.Batch, doc document.Document, erase bool) error {
	var pending error
	agg.fn(func(key, delta []byte) {
		if pending != nil {
			return
		}
		pending = agg.fold(b, key, delta, erase)
	}, doc)
	return pending
}

func (agg *Incremental) fold(b *batch.Batch, key, delta []byte, erase bool) error {
	if err := agg.lock(b.Revision(), key); err != nil {
		return err
	}
	current, found, err := agg.db.Engine().Get(agg.rowKey(key))
	if err != nil {
		return err
	}
	if !found {
		current = nil
	}
	result, remove := agg.reduce(current, delta, erase)
	if remove {
		return b.Delete(agg.rowKey(key))
	}
	return b.Put(agg.rowKey(key), result)
}

func (agg *Incremental) lock(rev Revision, key []byte) error {
	agg.mu.Lock()
	defer agg.mu.Unlock()
	k := string(key)
	for r, set := range agg.inFlight {
		if r != rev && set.Contains(k) {
			return &ErrKeyBusy{Key: key}
		}
	}
	set, ok := agg.inFlight[rev]
	if !ok {
		set = mapset.NewThreadUnsafeSet[string]()
		agg.inFlight[rev] = set
	}
	set.Add(k)
	return nil
}

func (agg *Incremental) unlockRevision(rev Revision) {
	agg.mu.Lock()
	defer agg.mu.Unlock()
	delete(agg.inFlight, rev)
}

type incUnlockListener struct {
	agg *Incremental
	rev Revision
}

func (l *incUnlockListener) BeforeCommit(*batch.Batch) error { return nil }
func (l *incUnlockListener) AfterCommit(batch.Revision)      { l.agg.unlockRevision(l.rev) }
func (l *incUnlockListener) AfterRollback(batch.Revision)    { l.agg.unlockRevision(l.rev) }

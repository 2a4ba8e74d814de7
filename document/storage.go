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

package document

import (
	"sync"

	"github.com/kvdoc/kvdoc/batch"
	"github.com/kvdoc/kvdoc/kv"
	"github.com/kvdoc/kvdoc/kvlog"
	"github.com/kvdoc/kvdoc/observer"
	"github.com/kvdoc/kvdoc/recordset"
)

// NotifyFunc is called with the newest DocID once a batch that wrote new
// documents commits. Returning false unregisters the callback, matching
// storage.h's one-shot register_callback contract.
type NotifyFunc func(latest DocID) bool

// Storage is the unordered document store of spec.md §4.6: each Put assigns
// the document a fresh, monotonically increasing DocID, and a replacing Put
// chains back to the id it replaces via Document.OldRev.
type Storage struct {
	db  *kv.Database
	kid kv.KID
	log kvlog.Logger

	mu     sync.Mutex
	nextID DocID

	notify observer.List[NotifyFunc]

	txMu        sync.RWMutex
	txObservers []txObserverEntry
	nextTxID    int64
}

type txObserverEntry struct {
	id int64
	fn UpdateObserver
}

// Update describes a single committed-or-committing write, passed to an
// UpdateObserver so an index or aggregator can derive its own rows from it
// inside the same batch. OldDoc is nil for a brand new document.
type Update struct {
	NewDoc Document
	OldDoc *Document
}

// UpdateObserver reacts to a document write synchronously, inside the same
// batch that wrote it -- this is how index.Indexer and aggregate.Incremental
// derive their rows, mirroring original_source/src/docdb/indexer.h's
// TransactionObserver chain (storage -> index -> aggregate). An error aborts
// the whole Put (e.g. a unique-index conflict) and is returned to the
// caller of Put; the batch must then be rolled back.
type UpdateObserver func(b *batch.Batch, u Update) error

// RegisterObserver registers fn to be called, synchronously and inline, for
// every subsequent Put.
func (s *Storage) RegisterObserver(fn UpdateObserver) int64 {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.nextTxID++
	id := s.nextTxID
	s.txObservers = append(s.txObservers, txObserverEntry{id: id, fn: fn})
	return id
}

// UnregisterObserver removes a previously registered observer.
func (s *Storage) UnregisterObserver(id int64) {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	out := s.txObservers[:0]
	for _, e := range s.txObservers {
		if e.id != id {
			out = append(out, e)
		}
	}
	s.txObservers = out
}

func (s *Storage) callTxObservers(b *batch.Batch, u Update) error {
	s.txMu.RLock()
	defer s.txMu.RUnlock()
	for _, e := range s.txObservers {
		if err := e.fn(b, u); err != nil {
			return err
		}
	}
	return nil
}

// RescanFor replays every document at or after fromID through fn, as if each
// were being written for the first time -- used by Indexer/Aggregator to
// (re)build derived state from scratch or to catch up after a revision bump.
func (s *Storage) RescanFor(eng kv.Engine, fromID DocID, fn UpdateObserver) error {
	rs, err := s.Scan(eng, fromID, true)
	if err != nil {
		return err
	}
	defer rs.Close()

	b := batch.New(eng)
	for rs.Valid() {
		oldRev, data, derr := decodeValue(rs.Value())
		if derr != nil {
			return derr
		}
		id := decodeDocID(rs.Key()[1:])
		if b.Big(batch.BigThreshold) {
			if err := b.Commit(true); err != nil {
				return err
			}
			b = batch.New(eng)
		}
		if err := fn(b, Update{NewDoc: Document{ID: id, OldRev: oldRev, Data: data}}); err != nil {
			return err
		}
		if !rs.Next() {
			break
		}
	}
	return b.Commit(true)
}

// Open opens or creates the named storage collection.
func Open(db *kv.Database, name string) (*Storage, error) {
	kid, err := db.Open(name, kv.PurposeStorage)
	if err != nil {
		return nil, err
	}
	s := &Storage{db: db, kid: kid, log: kvlog.New("document")}
	if err := s.findRevisionID(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Storage) findRevisionID() error {
	lower, upper := kv.CollectionBounds(s.kid)
	it, err := s.db.Engine().NewIterator(lower, upper)
	if err != nil {
		return err
	}
	defer it.Close()

	if it.SeekLE(upper) {
		s.nextID = decodeDocID(it.Key()[1:]) + 1
	} else {
		s.nextID = 1
	}
	return nil
}

func (s *Storage) rowKey(id DocID) []byte {
	return kv.RowKey(s.kid, encodeDocID(id))
}

// Get retrieves the document stored under id.
func (s *Storage) Get(eng kv.Engine, id DocID) (Document, bool, error) {
	raw, ok, err := eng.Get(s.rowKey(id))
	if err != nil || !ok {
		return Document{}, ok, err
	}
	oldRev, data, err := decodeValue(raw)
	if err != nil {
		return Document{}, false, err
	}
	return Document{ID: id, OldRev: oldRev, Data: data}, true, nil
}

// Put stages the write of a new document (or, if replaceID is nonzero, a new
// revision replacing it) into b and returns the id the document will have
// once b commits. The id is not valid for reads until the batch commits.
func (s *Storage) Put(eng kv.Engine, b *batch.Batch, data []byte, replaceID DocID) (DocID, error) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.mu.Unlock()

	if err := b.Put(s.rowKey(id), encodeValue(replaceID, data)); err != nil {
		return 0, err
	}
	b.AddListener(&notifyListener{s: s, id: id})

	var oldDoc *Document
	if replaceID != 0 {
		doc, ok, err := s.Get(eng, replaceID)
		if err != nil {
			return 0, err
		}
		if ok {
			oldDoc = &doc
		}
	}
	update := Update{NewDoc: Document{ID: id, OldRev: replaceID, Data: data}, OldDoc: oldDoc}
	if err := s.callTxObservers(b, update); err != nil {
		return 0, err
	}
	return id, nil
}

// Erase removes a document outright. Per storage.h, erasure is not notified:
// it is meant for permanently discarding data, not for replacing it (use Put
// with replaceID for that).
func (s *Storage) Erase(b *batch.Batch, id DocID) error {
	return b.Delete(s.rowKey(id))
}

// Scan returns a Recordset over documents starting at fromID, in ascending
// or descending DocID order.
func (s *Storage) Scan(eng kv.Engine, fromID DocID, ascending bool) (*recordset.Recordset, error) {
	lower, upper := kv.CollectionBounds(s.kid)
	it, err := eng.NewIterator(lower, upper)
	if err != nil {
		return nil, err
	}
	start := s.rowKey(fromID)
	var end []byte
	if ascending {
		end = upper
	} else {
		end = lower
	}
	return recordset.New(it, start, end, true, true), nil
}

// OnUpdate registers fn to be called after each committed Put, once per Put,
// until fn returns false. If fromID is below the next id Put will allocate,
// fn is not registered and false is returned, so the caller can handle the
// already-allocated ids itself.
func (s *Storage) OnUpdate(fromID DocID, fn NotifyFunc) (registered bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fromID < s.nextID {
		return false
	}
	s.notify.Register(fn)
	return true
}

// Rev returns the most recently allocated document id, or 0 if none; a Put
// whose batch has not committed yet already counts.
func (s *Storage) Rev() DocID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextID - 1
}

// Compact deletes every document referenced as an old revision by some other
// document -- i.e. every id that is no longer reachable as a current head.
func (s *Storage) Compact(eng kv.Engine) error {
	lower, upper := kv.CollectionBounds(s.kid)
	it, err := eng.NewIterator(lower, upper)
	if err != nil {
		return err
	}
	defer it.Close()

	var replaced []DocID
	for ok := it.SeekGE(lower); ok; ok = it.Next() {
		oldRev, _, derr := decodeValue(it.Value())
		if derr != nil {
			return derr
		}
		if oldRev != 0 {
			replaced = append(replaced, oldRev)
		}
	}
	if err := it.Err(); err != nil {
		return err
	}
	if len(replaced) == 0 {
		return nil
	}

	wb := eng.NewWriteBatch()
	for _, id := range replaced {
		if err := wb.Delete(s.rowKey(id)); err != nil {
			return err
		}
	}
	s.log.Info("compacted storage", "removed", len(replaced))
	return wb.Commit(true)
}

// Purge unconditionally deletes the row at id, bypassing observers and the
// revision chain entirely. Per spec.md §4.6, this is operator tooling (the
// CLI's "purge" command) -- it does not notify indexers/aggregators and does
// not check whether some surviving document still points at id as OldRev.
func (s *Storage) Purge(eng kv.Engine, id DocID) error {
	wb := eng.NewWriteBatch()
	if err := wb.Delete(s.rowKey(id)); err != nil {
		wb.Discard()
		return err
	}
	return wb.Commit(true)
}

// ExportedRow is one row as Export/Import move it: the raw stored value
// (including the OldRev prefix), not the decoded Document, so Import can
// replay it verbatim without re-deriving revision chains.
type ExportedRow struct {
	ID  DocID
	Raw []byte
}

// Export streams every live row at or after fromID to sink, in ascending
// DocID order, for the CLI's "backup" command.
func (s *Storage) Export(eng kv.Engine, fromID DocID, sink func(ExportedRow) error) error {
	rs, err := s.Scan(eng, fromID, true)
	if err != nil {
		return err
	}
	defer rs.Close()

	for rs.Valid() {
		id := decodeDocID(rs.Key()[1:])
		raw := append([]byte(nil), rs.Value()...)
		if err := sink(ExportedRow{ID: id, Raw: raw}); err != nil {
			return err
		}
		if !rs.Next() {
			break
		}
	}
	return nil
}

// Import writes row verbatim (no observers, no revision check) and advances
// nextID past row.ID if necessary, for the CLI's "restore" command. Rows
// must be imported in ascending ID order for nextID bookkeeping to stay
// correct across multiple Import calls.
func (s *Storage) Import(eng kv.Engine, b *batch.Batch, row ExportedRow) error {
	if err := b.Put(s.rowKey(row.ID), row.Raw); err != nil {
		return err
	}
	s.mu.Lock()
	if row.ID >= s.nextID {
		s.nextID = row.ID + 1
	}
	s.mu.Unlock()
	return nil
}

// notifyListener fires a Storage's registered callbacks once the batch that
// allocated a DocID actually commits.
type notifyListener struct {
	s  *Storage
	id DocID
}

func (l *notifyListener) BeforeCommit(*batch.Batch) error { return nil }

func (l *notifyListener) AfterCommit(batch.Revision) {
	l.s.notify.Call(func(fn NotifyFunc) bool { return fn(l.id) })
}

func (l *notifyListener) AfterRollback(batch.Revision) {}

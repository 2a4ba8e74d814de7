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

package aggregate

import (
	"sync"

	"github.com/kvdoc/kvdoc/batch"
	"github.com/kvdoc/kvdoc/document"
	"github.com/kvdoc/kvdoc/index"
	"github.com/kvdoc/kvdoc/kv"
	"github.com/kvdoc/kvdoc/kvlog"
	"github.com/kvdoc/kvdoc/recordset"
	"github.com/kvdoc/kvdoc/schema"
)

// Source is whatever a Materialized aggregator folds rows from; *index.Indexer
// satisfies it directly.
type Source interface {
	RegisterObserver(fn index.RowObserver) int64
	RowsForKey(eng kv.Engine, key []byte) (*recordset.Recordset, error)
	ReplayKeys(eng kv.Engine, fn func(key []byte) error) error
}

// GroupFn reduces every row currently stored under one group key into a
// single aggregated value. ok is false to mean the materialized row should
// be deleted (e.g. the group is now empty).
type GroupFn func(rows *recordset.Recordset) (value []byte, ok bool, err error)

// Materialized recomputes one group key at a time from a dirty worklist,
// rather than folding every write incrementally like Incremental -- a better
// fit when GroupFn can't be expressed as a running delta (percentiles, "top
// N", anything that needs the full current row set). Ported from
// original_source/src/docdb/groupby.h's Materialized: a double-buffered
// ("bank") dirty-key worklist in the collection's private area, swapped
// under an exclusive lock so Update can drain one bank while new writes
// mark the other dirty.
type Materialized struct {
	db       *kv.Database
	kid      kv.KID
	name     string
	source   Source
	groupFn  GroupFn
	revision uint64
	log      kvlog.Logger
	tracker  schema.Tracker

	bankLock sync.RWMutex // held shared by in-flight writers, exclusive during bank swap
	mu       sync.Mutex   // guards bank/dirty
	bank     byte
	dirty    bool
}

// Open opens or creates the named materialized aggregator, rebuilding from
// scratch if the stored schema revision doesn't match revision.
func Open(db *kv.Database, source Source, name string, revision uint64, groupFn GroupFn) (*Materialized, error) {
	kid, err := db.Open(name, kv.PurposeAggregation)
	if err != nil {
		return nil, err
	}
	m := &Materialized{
		db:       db,
		kid:      kid,
		name:     name,
		source:   source,
		groupFn:  groupFn,
		revision: revision,
		log:      kvlog.New("aggregate." + name),
		tracker:  schema.New(kid),
	}

	gotRevision, _, err := m.tracker.Load(m.db.Engine())
	if err != nil {
		return nil, err
	}
	if gotRevision != revision {
		if err := m.rebuild(); err != nil {
			return nil, err
		}
	}
	source.RegisterObserver(m.handleRow)
	return m, nil
}

// saveRevision persists the schema revision this Materialized was rebuilt
// against. Materialized has no storage-DocID catch-up of its own -- it
// never observes document.Storage directly, only the rows its Source
// (an index.Indexer) emits, and that Indexer already handles its own
// catch-up -- so the highestDocID half of schema.Tracker is unused here.
func (m *Materialized) saveRevision() error {
	b := batch.New(m.db.Engine())
	if err := m.tracker.Store(b, m.revision, 0); err != nil {
		return err
	}
	return b.Commit(true)
}

func (m *Materialized) dirtyKey(bank byte, groupKey []byte) []byte {
	return kv.PrivateAreaKey(m.kid, append([]byte{bank}, groupKey...))
}

// Get returns the current materialized value for groupKey, if any.
func (m *Materialized) Get(eng kv.Engine, groupKey []byte) ([]byte, bool, error) {
	return eng.Get(kv.RowKey(m.kid, groupKey))
}

// handleRow marks groupKey dirty in the currently-active bank. The write
// itself is deferred to Update; handleRow only ever stages one small private-
// area row, so it stays cheap inside the triggering batch.
func (m *Materialized) handleRow(b *batch.Batch, _ document.DocID, key, _ []byte, _ bool) error {
	m.bankLock.RLock()
	bank := m.bank
	dk := m.dirtyKey(bank, key)
	if err := b.Put(dk, key); err != nil {
		m.bankLock.RUnlock()
		return err
	}
	b.AddListener(&bankListener{m: m})
	return nil
}

type bankListener struct{ m *Materialized }

func (l *bankListener) BeforeCommit(*batch.Batch) error { return nil }
func (l *bankListener) AfterCommit(batch.Revision) {
	l.m.mu.Lock()
	l.m.dirty = true
	l.m.mu.Unlock()
	l.m.bankLock.RUnlock()
}
func (l *bankListener) AfterRollback(batch.Revision) {
	l.m.bankLock.RUnlock()
}

// Update drains every dirty group queued since the last Update, recomputing
// each one from the source's current rows. Update runs only when a caller
// invokes it: Materialized starts no background worker, has no automatic
// update on commit, and offers no non-blocking or wait-for-drain variant.
func (m *Materialized) Update() error {
	for {
		did, err := m.updateOnce()
		if err != nil || !did {
			return err
		}
	}
}

func (m *Materialized) updateOnce() (bool, error) {
	m.bankLock.Lock()
	m.mu.Lock()
	if !m.dirty {
		m.mu.Unlock()
		m.bankLock.Unlock()
		return false, nil
	}
	m.dirty = false
	oldBank := m.bank
	m.bank = 1 - oldBank
	m.mu.Unlock()
	m.bankLock.Unlock()

	lower := kv.PrivateAreaKey(m.kid, []byte{oldBank})
	upper := kv.PrivateAreaKey(m.kid, []byte{oldBank + 1})
	eng := m.db.Engine()
	it, err := eng.NewIterator(lower, upper)
	if err != nil {
		return false, err
	}
	rs := recordset.New(it, lower, upper, true, false)
	defer rs.Close()

	for rs.Valid() {
		groupKey := append([]byte(nil), rs.Value()...)
		dk := append([]byte(nil), rs.Key()...)
		if err := m.refreshGroup(groupKey, dk); err != nil {
			return false, err
		}
		if !rs.Next() {
			break
		}
	}
	return true, nil
}

func (m *Materialized) refreshGroup(groupKey, dirtyKey []byte) error {
	eng := m.db.Engine()
	rows, err := m.source.RowsForKey(eng, groupKey)
	if err != nil {
		return err
	}
	value, ok, err := m.groupFn(rows)
	rows.Close()
	if err != nil {
		return err
	}

	b := batch.New(eng)
	outKey := kv.RowKey(m.kid, groupKey)
	if ok {
		if err := b.Put(outKey, value); err != nil {
			return err
		}
	} else {
		if err := b.Delete(outKey); err != nil {
			return err
		}
	}
	if dirtyKey != nil {
		if err := b.Delete(dirtyKey); err != nil {
			return err
		}
	}
	return b.Commit(true)
}

func (m *Materialized) rebuild() error {
	lower, upper := kv.CollectionBounds(m.kid)
	wb := m.db.Engine().NewWriteBatch()
	if err := wb.DeleteRange(lower, upper); err != nil {
		return err
	}
	if err := wb.Commit(true); err != nil {
		return err
	}
	privLower := kv.PrivateAreaKey(m.kid, nil)
	privUpper := kv.PrivateAreaKey(m.kid+1, nil)
	wb2 := m.db.Engine().NewWriteBatch()
	if err := wb2.DeleteRange(privLower, privUpper); err != nil {
		return err
	}
	if err := wb2.Commit(true); err != nil {
		return err
	}

	seen := make(map[string]bool)
	err := m.source.ReplayKeys(m.db.Engine(), func(key []byte) error {
		k := string(key)
		if seen[k] {
			return nil
		}
		seen[k] = true
		return m.refreshGroup(append([]byte(nil), key...), nil)
	})
	if err != nil {
		return err
	}
	return m.saveRevision()
}

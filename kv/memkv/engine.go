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

// Package memkv is a pure-Go, in-memory kv.Engine backed by
// github.com/tidwall/btree. It stands in for mdbxkv in unit tests (no cgo
// required).
package memkv

import (
	"bytes"
	"sync"

	"github.com/tidwall/btree"

	"github.com/kvdoc/kvdoc/kv"
)

type item struct {
	key, value []byte
}

func less(a, b item) bool { return bytes.Compare(a.key, b.key) < 0 }

// Engine is a pure-Go ordered key-value store.
type Engine struct {
	mu   sync.RWMutex
	tree *btree.BTreeG[item]
}

// New returns an empty Engine.
func New() *Engine {
	return &Engine{tree: btree.NewBTreeG(less)}
}

var _ kv.Engine = (*Engine)(nil)

func (e *Engine) Get(key []byte) ([]byte, bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	it, ok := e.tree.Get(item{key: key})
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), it.value...), true, nil
}

func (e *Engine) NewWriteBatch() kv.WriteBatch {
	return &writeBatch{eng: e}
}

func (e *Engine) NewIterator(lower, upper []byte) (kv.Iterator, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return newSnapshotIterator(e.snapshotLocked(), lower, upper), nil
}

func (e *Engine) NewSnapshot() (kv.Snapshot, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return &snapshot{items: e.snapshotLocked()}, nil
}

// snapshotLocked copies the tree's contents into a sorted slice. Callers must
// hold at least e.mu.RLock.
func (e *Engine) snapshotLocked() []item {
	out := make([]item, 0, e.tree.Len())
	e.tree.Scan(func(it item) bool {
		out = append(out, item{key: append([]byte(nil), it.key...), value: append([]byte(nil), it.value...)})
		return true
	})
	return out
}

func (e *Engine) ApproximateSize(lower, upper []byte) (uint64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var sz uint64
	e.tree.Ascend(item{key: lower}, func(it item) bool {
		if upper != nil && bytes.Compare(it.key, upper) >= 0 {
			return false
		}
		sz += uint64(len(it.key) + len(it.value))
		return true
	})
	return sz, nil
}

// CompactRange is a documented no-op: an in-memory btree has no page
// reclamation to perform.
func (e *Engine) CompactRange(lower, upper []byte) error { return nil }

func (e *Engine) Close() error { return nil }

type writeBatch struct {
	eng *Engine
	ops []op
}

type op struct {
	del        bool
	delRange   bool
	key, value []byte
	upper      []byte
}

func (w *writeBatch) Put(key, value []byte) error {
	w.ops = append(w.ops, op{key: append([]byte(nil), key...), value: append([]byte(nil), value...)})
	return nil
}

func (w *writeBatch) Delete(key []byte) error {
	w.ops = append(w.ops, op{del: true, key: append([]byte(nil), key...)})
	return nil
}

func (w *writeBatch) DeleteRange(lower, upper []byte) error {
	w.ops = append(w.ops, op{delRange: true, key: append([]byte(nil), lower...), upper: append([]byte(nil), upper...)})
	return nil
}

func (w *writeBatch) Commit(sync bool) error {
	w.eng.mu.Lock()
	defer w.eng.mu.Unlock()
	for _, o := range w.ops {
		switch {
		case o.delRange:
			var toDelete [][]byte
			w.eng.tree.Ascend(item{key: o.key}, func(it item) bool {
				if o.upper != nil && bytes.Compare(it.key, o.upper) >= 0 {
					return false
				}
				toDelete = append(toDelete, it.key)
				return true
			})
			for _, k := range toDelete {
				w.eng.tree.Delete(item{key: k})
			}
		case o.del:
			w.eng.tree.Delete(item{key: o.key})
		default:
			w.eng.tree.Set(item{key: o.key, value: o.value})
		}
	}
	w.ops = nil
	return nil
}

func (w *writeBatch) Discard() { w.ops = nil }
func (w *writeBatch) Len() int { return len(w.ops) }

type snapshot struct {
	items []item
}

func (s *snapshot) Get(key []byte) ([]byte, bool, error) {
	i, found := search(s.items, key)
	if !found {
		return nil, false, nil
	}
	return append([]byte(nil), s.items[i].value...), true, nil
}

func (s *snapshot) NewIterator(lower, upper []byte) (kv.Iterator, error) {
	return newSnapshotIterator(s.items, lower, upper), nil
}

func (s *snapshot) Close() error { return nil }

func search(items []item, key []byte) (int, bool) {
	lo, hi := 0, len(items)
	for lo < hi {
		mid := (lo + hi) / 2
		c := bytes.Compare(items[mid].key, key)
		if c == 0 {
			return mid, true
		}
		if c < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo, false
}

// snapshotIterator walks a static, sorted slice of items (either a full
// engine snapshot or a standalone snapshot's item set) forward only; callers
// needing reverse iteration construct one with swapped/negated bounds at the
// recordset layer (see recordset.Recordset).
type snapshotIterator struct {
	items []item
	lower []byte
	upper []byte
	pos   int
	valid bool
}

func newSnapshotIterator(items []item, lower, upper []byte) *snapshotIterator {
	start := 0
	if lower != nil {
		start, _ = search(items, lower)
	}
	end := len(items)
	if upper != nil {
		end, _ = search(items, upper)
	}
	if end < start {
		end = start
	}
	return &snapshotIterator{items: items[start:end], pos: -1}
}

func (it *snapshotIterator) SeekGE(target []byte) bool {
	idx, _ := search(it.items, target)
	it.pos = idx
	it.valid = idx < len(it.items)
	return it.valid
}

func (it *snapshotIterator) SeekLE(target []byte) bool {
	idx, found := search(it.items, target)
	if !found {
		idx--
	}
	it.pos = idx
	it.valid = idx >= 0 && idx < len(it.items)
	return it.valid
}

func (it *snapshotIterator) Next() bool {
	if it.pos < 0 {
		it.pos = 0
	} else {
		it.pos++
	}
	it.valid = it.pos < len(it.items)
	return it.valid
}

func (it *snapshotIterator) Previous() bool {
	if it.pos < 0 {
		it.pos = len(it.items) - 1
	} else {
		it.pos--
	}
	it.valid = it.pos >= 0 && it.pos < len(it.items)
	return it.valid
}

func (it *snapshotIterator) Key() []byte {
	if !it.valid {
		return nil
	}
	return it.items[it.pos].key
}

func (it *snapshotIterator) Value() []byte {
	if !it.valid {
		return nil
	}
	return it.items[it.pos].value
}

func (it *snapshotIterator) Valid() bool { return it.valid }
func (it *snapshotIterator) Close() error { return nil }
func (it *snapshotIterator) Err() error    { return nil }

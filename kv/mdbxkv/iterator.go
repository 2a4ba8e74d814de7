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

package mdbxkv

import (
	"bytes"

	"github.com/erigontech/mdbx-go/mdbx"

	"github.com/kvdoc/kvdoc/kv"
)

// cursorIterator wraps an MDBX cursor bound to [lower, upper). It owns a
// dedicated read-only transaction (ownsTxn) when constructed via
// Engine.NewIterator, or borrows one from a snapshot.
type cursorIterator struct {
	txn     *mdbx.Txn
	cur     *mdbx.Cursor
	lower   []byte
	upper   []byte
	ownsTxn bool

	key, val []byte
	valid    bool
	err      error
}

var _ kv.Iterator = (*cursorIterator)(nil)

func (it *cursorIterator) inBounds(k []byte) bool {
	if it.lower != nil && bytes.Compare(k, it.lower) < 0 {
		return false
	}
	if it.upper != nil && bytes.Compare(k, it.upper) >= 0 {
		return false
	}
	return true
}

func (it *cursorIterator) SeekGE(target []byte) bool {
	from := target
	if it.lower != nil && bytes.Compare(from, it.lower) < 0 {
		from = it.lower
	}
	k, v, err := it.cur.Get(from, nil, mdbx.SetRange)
	return it.settle(k, v, err)
}

func (it *cursorIterator) SeekLE(target []byte) bool {
	to := target
	if it.upper != nil && bytes.Compare(to, it.upper) >= 0 {
		// position just before upper
		k, v, err := it.cur.Get(it.upper, nil, mdbx.SetRange)
		if err == nil {
			k, v, err = it.cur.Get(nil, nil, mdbx.Prev)
		} else if mdbx.IsNotFound(err) {
			k, v, err = it.cur.Get(nil, nil, mdbx.Last)
		}
		return it.settle(k, v, err)
	}
	k, v, err := it.cur.Get(to, nil, mdbx.SetRange)
	if err == nil && !bytes.Equal(k, to) {
		k, v, err = it.cur.Get(nil, nil, mdbx.Prev)
	} else if mdbx.IsNotFound(err) {
		k, v, err = it.cur.Get(nil, nil, mdbx.Last)
	}
	return it.settle(k, v, err)
}

func (it *cursorIterator) Next() bool {
	k, v, err := it.cur.Get(nil, nil, mdbx.Next)
	return it.settle(k, v, err)
}

func (it *cursorIterator) Previous() bool {
	k, v, err := it.cur.Get(nil, nil, mdbx.Prev)
	return it.settle(k, v, err)
}

func (it *cursorIterator) settle(k, v []byte, err error) bool {
	if err != nil {
		if !mdbx.IsNotFound(err) {
			it.err = err
		}
		it.valid = false
		return false
	}
	if !it.inBounds(k) {
		it.valid = false
		return false
	}
	it.key = append([]byte(nil), k...)
	it.val = append([]byte(nil), v...)
	it.valid = true
	return true
}

func (it *cursorIterator) Key() []byte   { return it.key }
func (it *cursorIterator) Value() []byte { return it.val }
func (it *cursorIterator) Valid() bool   { return it.valid }
func (it *cursorIterator) Err() error    { return it.err }

func (it *cursorIterator) Close() error {
	it.cur.Close()
	if it.ownsTxn {
		it.txn.Abort()
	}
	return nil
}

type snapshot struct {
	eng *Engine
	txn *mdbx.Txn
}

var _ kv.Snapshot = (*snapshot)(nil)

func (s *snapshot) Get(key []byte) ([]byte, bool, error) {
	v, err := s.txn.Get(s.eng.dbi, key)
	if mdbx.IsNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return append([]byte(nil), v...), true, nil
}

func (s *snapshot) NewIterator(lower, upper []byte) (kv.Iterator, error) {
	cur, err := s.txn.OpenCursor(s.eng.dbi)
	if err != nil {
		return nil, err
	}
	return &cursorIterator{txn: s.txn, cur: cur, lower: lower, upper: upper, ownsTxn: false}, nil
}

func (s *snapshot) Close() error {
	s.txn.Abort()
	return nil
}

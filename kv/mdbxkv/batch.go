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
	"github.com/erigontech/mdbx-go/mdbx"
)

type batchOp struct {
	del      bool
	delRange bool
	key      []byte
	value    []byte
	upper    []byte
}

type writeBatch struct {
	eng *Engine
	ops []batchOp
}

func (w *writeBatch) Put(key, value []byte) error {
	w.ops = append(w.ops, batchOp{key: append([]byte(nil), key...), value: append([]byte(nil), value...)})
	return nil
}

func (w *writeBatch) Delete(key []byte) error {
	w.ops = append(w.ops, batchOp{del: true, key: append([]byte(nil), key...)})
	return nil
}

func (w *writeBatch) DeleteRange(lower, upper []byte) error {
	w.ops = append(w.ops, batchOp{delRange: true, key: append([]byte(nil), lower...), upper: append([]byte(nil), upper...)})
	return nil
}

func (w *writeBatch) Commit(sync bool) error {
	return w.eng.env.Update(func(txn *mdbx.Txn) error {
		if !sync {
			txn.SyncMode = mdbx.SyncOnCommit
		}
		for _, o := range w.ops {
			switch {
			case o.delRange:
				if err := deleteRange(txn, w.eng.dbi, o.key, o.upper); err != nil {
					return err
				}
			case o.del:
				if err := txn.Del(w.eng.dbi, o.key, nil); err != nil && !mdbx.IsNotFound(err) {
					return err
				}
			default:
				if err := txn.Put(w.eng.dbi, o.key, o.value, 0); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func deleteRange(txn *mdbx.Txn, dbi mdbx.DBI, lower, upper []byte) error {
	cur, err := txn.OpenCursor(dbi)
	if err != nil {
		return err
	}
	defer cur.Close()

	var keys [][]byte
	k, _, err := cur.Get(lower, nil, mdbx.SetRange)
	for err == nil {
		if upper != nil && string(k) >= string(upper) {
			break
		}
		keys = append(keys, append([]byte(nil), k...))
		k, _, err = cur.Get(nil, nil, mdbx.Next)
	}
	if err != nil && !mdbx.IsNotFound(err) {
		return err
	}
	for _, dk := range keys {
		if delErr := txn.Del(dbi, dk, nil); delErr != nil && !mdbx.IsNotFound(delErr) {
			return delErr
		}
	}
	return nil
}

func (w *writeBatch) Discard() { w.ops = nil }
func (w *writeBatch) Len() int { return len(w.ops) }

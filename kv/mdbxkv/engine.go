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

// Package mdbxkv is the production kv.Engine backend, built on
// github.com/erigontech/mdbx-go -- the same MDBX binding the teacher
// codebase uses as its own storage engine. kvdoc needs only one flat
// byte-ordered keyspace (every logical collection is multiplexed into it by
// KID prefix, per kv.Database), so the whole engine is a single MDBX
// database (DBI) inside one environment.
package mdbxkv

import (
	"fmt"

	"github.com/c2h5oh/datasize"
	"github.com/erigontech/mdbx-go/mdbx"

	"github.com/kvdoc/kvdoc/kv"
)

// Config configures the MDBX environment backing an Engine.
type Config struct {
	Path    string
	MapSize datasize.ByteSize
	// ReadOnly opens the environment without a writer; Commit calls on any
	// WriteBatch fail.
	ReadOnly bool
}

// DefaultMapSize is applied when Config.MapSize is zero.
const DefaultMapSize = 16 * datasize.GB

// Engine is the MDBX-backed kv.Engine.
type Engine struct {
	env *mdbx.Env
	dbi mdbx.DBI
}

var _ kv.Engine = (*Engine)(nil)

// Open creates or opens the MDBX environment at cfg.Path and the single flat
// keyspace DBI kvdoc uses for every collection.
func Open(cfg Config) (*Engine, error) {
	env, err := mdbx.NewEnv()
	if err != nil {
		return nil, fmt.Errorf("kvdoc/mdbxkv: new env: %w", err)
	}
	mapSize := cfg.MapSize
	if mapSize == 0 {
		mapSize = DefaultMapSize
	}
	if err := env.SetGeometry(-1, -1, int(mapSize.Bytes()), -1, -1, -1); err != nil {
		return nil, fmt.Errorf("kvdoc/mdbxkv: set geometry: %w", err)
	}
	if err := env.SetOption(mdbx.OptMaxDB, 1); err != nil {
		return nil, fmt.Errorf("kvdoc/mdbxkv: set max dbs: %w", err)
	}

	flags := uint(mdbx.NoSubdir)
	if cfg.ReadOnly {
		flags |= uint(mdbx.Readonly)
	}
	if err := env.Open(cfg.Path, flags, 0644); err != nil {
		return nil, fmt.Errorf("kvdoc/mdbxkv: open %q: %w", cfg.Path, err)
	}

	e := &Engine{env: env}
	err = env.Update(func(txn *mdbx.Txn) error {
		dbi, createErr := txn.OpenDBISimple("kvdoc", mdbx.Create)
		if createErr != nil {
			return createErr
		}
		e.dbi = dbi
		return nil
	})
	if err != nil {
		env.Close()
		return nil, fmt.Errorf("kvdoc/mdbxkv: open keyspace: %w", err)
	}
	return e, nil
}

func (e *Engine) Get(key []byte) ([]byte, bool, error) {
	var out []byte
	err := e.env.View(func(txn *mdbx.Txn) error {
		v, getErr := txn.Get(e.dbi, key)
		if mdbx.IsNotFound(getErr) {
			return nil
		}
		if getErr != nil {
			return getErr
		}
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, out != nil, nil
}

func (e *Engine) NewWriteBatch() kv.WriteBatch {
	return &writeBatch{eng: e}
}

func (e *Engine) NewIterator(lower, upper []byte) (kv.Iterator, error) {
	txn, err := e.env.BeginTxn(nil, mdbx.Readonly)
	if err != nil {
		return nil, err
	}
	cur, err := txn.OpenCursor(e.dbi)
	if err != nil {
		txn.Abort()
		return nil, err
	}
	return &cursorIterator{txn: txn, cur: cur, lower: lower, upper: upper, ownsTxn: true}, nil
}

func (e *Engine) NewSnapshot() (kv.Snapshot, error) {
	txn, err := e.env.BeginTxn(nil, mdbx.Readonly)
	if err != nil {
		return nil, err
	}
	return &snapshot{eng: e, txn: txn}, nil
}

// ApproximateSize reports MDBX's own page-count estimate for [lower, upper),
// via EstimateRange. Per spec.md §8 property notes, this is never asserted
// to an exact value in tests -- only used as a heuristic by recordset.CountAprox.
func (e *Engine) ApproximateSize(lower, upper []byte) (uint64, error) {
	var sz uint64
	err := e.env.View(func(txn *mdbx.Txn) error {
		distance, estErr := txn.EstimateRange(e.dbi, lower, upper)
		if estErr != nil {
			return estErr
		}
		if distance > 0 {
			sz = uint64(distance)
		}
		return nil
	})
	return sz, err
}

// CompactRange is a documented no-op: MDBX reclaims free pages internally on
// commit and has no explicit range-compaction operation to trigger (see
// spec.md §4.6's compact() operating at the document-storage level instead).
func (e *Engine) CompactRange(lower, upper []byte) error { return nil }

func (e *Engine) Close() error {
	e.env.Close()
	return nil
}

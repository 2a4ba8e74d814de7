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

package main

import (
	"io"
	"sort"

	"github.com/pkg/errors"

	"github.com/kvdoc/kvdoc/kv"
	"github.com/kvdoc/kvdoc/recordset"
	"github.com/kvdoc/kvdoc/rowcodec"
)

// variablesCollection is the name of the reserved Map collection the CLI
// keeps its own "variables" in -- spec.md's core has no such concept of its
// own; manage_db.cpp's list_variables/set_variable are CLI-level operator
// bookkeeping (notes, bookmarks), so kvdoc stores them the same way any
// other operator data would be stored: as an ordinary Map collection that
// happens to have a name the "use" command can also select.
const variablesCollection = "$variables"

// cursor is the CLI's notion of "the currently open recordset" -- manage_db.cpp's
// global cur_recordset, reconstructed fresh by first/last/seek/select and
// re-seeked in place by rewind.
type cursor struct {
	purpose kv.Purpose
	rs      *recordset.Recordset
}

// Session holds everything one REPL invocation needs: the open database, the
// collection currently selected by "use", and whatever recordset first/last/
// seek/select last opened over it.
type Session struct {
	db  *kv.Database
	eng kv.Engine
	out io.Writer
	err io.Writer

	varsKID kv.KID

	curName string
	cur     *cursor

	Quit     bool
	ExitCode int
}

// NewSession opens the CLI-private variables collection and returns a ready
// Session bound to db.
func NewSession(db *kv.Database, out, errw io.Writer) (*Session, error) {
	kid, err := db.Open(variablesCollection, kv.PurposeMap)
	if err != nil {
		return nil, errors.Wrap(err, "open variables collection")
	}
	return &Session{db: db, eng: db.Engine(), out: out, err: errw, varsKID: kid}, nil
}

// currentInfo resolves the currently-used collection's KID/Purpose, mirroring
// manage_db.cpp's get_kid helper.
func (s *Session) currentInfo() (kv.KID, kv.Purpose, error) {
	if s.curName == "" {
		return 0, 0, errors.New("no active collection. Type the command: 'use <collection>'")
	}
	kid, purpose, err := s.db.OpenExisting(s.curName)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "collection %q", s.curName)
	}
	return kid, purpose, nil
}

// use switches the active collection, clearing any open cursor -- the name
// must already exist (use never creates).
func (s *Session) use(name string) error {
	if _, _, err := s.db.OpenExisting(name); err != nil {
		return errors.Wrapf(err, "collection %q", name)
	}
	s.curName = name
	s.cur = nil
	return nil
}

func (s *Session) setVar(name, value string) error {
	wb := s.eng.NewWriteBatch()
	if err := wb.Put(kv.RowKey(s.varsKID, []byte(name)), []byte(value)); err != nil {
		wb.Discard()
		return err
	}
	return wb.Commit(true)
}

func (s *Session) unsetVar(name string) error {
	wb := s.eng.NewWriteBatch()
	if err := wb.Delete(kv.RowKey(s.varsKID, []byte(name))); err != nil {
		wb.Discard()
		return err
	}
	return wb.Commit(true)
}

type variable struct{ Name, Value string }

func (s *Session) listVars() ([]variable, error) {
	lower, upper := kv.CollectionBounds(s.varsKID)
	it, err := s.eng.NewIterator(lower, upper)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var out []variable
	for ok := it.SeekGE(lower); ok; ok = it.Next() {
		out = append(out, variable{Name: string(it.Key()[1:]), Value: string(it.Value())})
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// openFirst / openLast / openSeek / openSelect rebuild s.cur exactly the way
// manage_db.cpp's command_iterate_from_first/_last/command_seek/
// command_select rebuild cur_recordset, just over kv.Engine bounds instead of
// leveldb ones.

func (s *Session) openFirst(kid kv.KID, purpose kv.Purpose) error {
	lower, upper := kv.CollectionBounds(kid)
	it, err := s.eng.NewIterator(lower, upper)
	if err != nil {
		return err
	}
	s.cur = &cursor{purpose: purpose, rs: recordset.New(it, lower, upper, true, true)}
	return nil
}

func (s *Session) openLast(kid kv.KID, purpose kv.Purpose) error {
	lower, upper := kv.CollectionBounds(kid)
	it, err := s.eng.NewIterator(lower, upper)
	if err != nil {
		return err
	}
	s.cur = &cursor{purpose: purpose, rs: recordset.New(it, upper, lower, true, true)}
	return nil
}

func (s *Session) openSeek(kid kv.KID, purpose kv.Purpose, key []byte, ascending bool) error {
	lower, upper := kv.CollectionBounds(kid)
	it, err := s.eng.NewIterator(lower, upper)
	if err != nil {
		return err
	}
	start := kv.RowKey(kid, key)
	end := upper
	if !ascending {
		end = lower
	}
	s.cur = &cursor{purpose: purpose, rs: recordset.New(it, start, end, true, true)}
	return nil
}

func (s *Session) openSelect(kid kv.KID, purpose kv.Purpose, prefix []byte) error {
	start := kv.RowKey(kid, prefix)
	end := rowcodec.PrefixEnd(start)
	it, err := s.eng.NewIterator(start, end)
	if err != nil {
		return err
	}
	s.cur = &cursor{purpose: purpose, rs: recordset.New(it, start, end, true, true)}
	return nil
}

func (s *Session) openPrivate(kid kv.KID) error {
	lower := kv.PrivateAreaKey(kid, nil)
	upper := kv.PrivateAreaKey(kid+1, nil)
	it, err := s.eng.NewIterator(lower, upper)
	if err != nil {
		return err
	}
	s.cur = &cursor{purpose: kv.PurposePrivateArea, rs: recordset.New(it, lower, upper, true, true)}
	return nil
}

func (s *Session) openSystemTable() error {
	lower, upper := kv.CollectionBounds(kv.SysKID)
	it, err := s.eng.NewIterator(lower, upper)
	if err != nil {
		return err
	}
	s.cur = &cursor{purpose: kv.PurposeMap, rs: recordset.New(it, lower, upper, true, true)}
	return nil
}

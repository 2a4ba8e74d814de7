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

package kv

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kvdoc/kvdoc/kvlog"
)

// sysEntry is the decoded form of one system-table row.
type sysEntry struct {
	kid       KID
	purpose   Purpose
	metadata  []byte
	temporary bool
}

// Database owns the Engine handle and the in-memory keyspace registry seeded
// from the system table on open. Mirrors the teacher's pattern of a single
// long-lived handle guarding a small rw-locked map (erigon-lib/kv's TableCfg
// is the static analogue; here the map is dynamic and persisted).
type Database struct {
	eng Engine
	log kvlog.Logger

	mu       sync.RWMutex
	byName   map[string]*sysEntry
	byKID    map[KID]string
	freeList []KID // ascending; smallest KID reused first

	decodeCache *lru.Cache[string, []byte]
}

// SysPrefix builds the literal system-table key for a collection name.
func SysPrefix() []byte { return []byte{byte(SysKID)} }

func sysNameKey(name string) []byte {
	return append(SysPrefix(), []byte(name)...)
}

// PrivateAreaKey builds a private-area key [SYS][KID][subKey...].
func PrivateAreaKey(id KID, subKey []byte) []byte {
	k := make([]byte, 0, 2+len(subKey))
	k = append(k, byte(SysKID), byte(id))
	return append(k, subKey...)
}

// RowKey builds an application-row key [KID][rowBytes...].
func RowKey(id KID, rowBytes []byte) []byte {
	k := make([]byte, 0, 1+len(rowBytes))
	k = append(k, byte(id))
	return append(k, rowBytes...)
}

// CollectionBounds returns the [lower, upper) range covering every row of
// collection id, suitable for range-delete or a full prefix scan.
func CollectionBounds(id KID) (lower, upper []byte) {
	lower = []byte{byte(id)}
	if id == 0xFF {
		return lower, nil
	}
	return lower, []byte{byte(id) + 1}
}

// NewDatabase opens the registry over eng, seeding the in-memory map from the
// system table.
func NewDatabase(eng Engine) (*Database, error) {
	cache, err := lru.New[string, []byte](1024)
	if err != nil {
		return nil, fmt.Errorf("kvdoc: allocate registry decode cache: %w", err)
	}
	db := &Database{
		eng:         eng,
		log:         kvlog.New("kv.registry"),
		byName:      make(map[string]*sysEntry),
		byKID:       make(map[KID]string),
		decodeCache: cache,
	}
	if err := db.reload(); err != nil {
		return nil, err
	}
	return db, nil
}

func (db *Database) reload() error {
	it, err := db.eng.NewIterator(SysPrefix(), []byte{byte(SysKID) + 1})
	if err != nil {
		return err
	}
	defer it.Close()

	used := make(map[KID]bool, len(db.byKID))
	for ok := it.SeekGE(SysPrefix()); ok; ok = it.Next() {
		key := it.Key()
		if len(key) <= 1 {
			continue
		}
		// private-area rows are [SYS][KID][...]; system entries are [SYS][name].
		// A system entry's remainder is always a valid UTF-8 name; private-area
		// rows are distinguished by length ambiguity only in pathological cases,
		// so the registry indexes private-area rows by scanning separately per
		// collection instead of trying to tell them apart here.
		name := string(key[1:])
		val := it.Value()
		entry, err := decodeSysEntry(val)
		if err != nil {
			continue
		}
		db.byName[name] = entry
		db.byKID[entry.kid] = name
		used[entry.kid] = true
	}
	if err := it.Err(); err != nil {
		return err
	}

	var free []KID
	for i := 0; i < MaxCollections; i++ {
		kid := KID(i)
		if !used[kid] {
			free = append(free, kid)
		}
	}
	sort.Slice(free, func(i, j int) bool { return free[i] < free[j] })
	db.freeList = free
	return nil
}

func encodeSysEntry(e *sysEntry) []byte {
	buf := make([]byte, 0, 2+len(e.metadata))
	buf = append(buf, byte(e.kid), byte(e.purpose))
	if e.temporary {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	buf = append(buf, e.metadata...)
	return buf
}

func decodeSysEntry(v []byte) (*sysEntry, error) {
	if len(v) < 3 {
		return nil, fmt.Errorf("kvdoc: corrupt system table row (len=%d)", len(v))
	}
	return &sysEntry{
		kid:       KID(v[0]),
		purpose:   Purpose(v[1]),
		temporary: v[2] != 0,
		metadata:  append([]byte(nil), v[3:]...),
	}, nil
}

// Open returns the KID for name, allocating it (and persisting the system
// row with sync=true) if it doesn't exist yet. Purpose mismatch against an
// existing entry is logged, not an error: purpose is advisory metadata.
func (db *Database) Open(name string, purpose Purpose) (KID, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if e, ok := db.byName[name]; ok {
		if e.purpose != purpose {
			db.log.Warn("collection purpose mismatch on open",
				"name", name, "existing", e.purpose.String(), "requested", purpose.String())
		}
		return e.kid, nil
	}

	if len(db.freeList) == 0 {
		return 0, ErrTooManyCollections
	}
	kid := db.freeList[0]
	db.freeList = db.freeList[1:]

	entry := &sysEntry{kid: kid, purpose: purpose}
	wb := db.eng.NewWriteBatch()
	if err := wb.Put(sysNameKey(name), encodeSysEntry(entry)); err != nil {
		wb.Discard()
		db.freeList = append([]KID{kid}, db.freeList...)
		return 0, err
	}
	if err := wb.Commit(true); err != nil {
		db.freeList = append([]KID{kid}, db.freeList...)
		return 0, err
	}

	db.byName[name] = entry
	db.byKID[kid] = name
	db.log.Info("collection created", "name", name, "kid", kid, "purpose", purpose.String())
	return kid, nil
}

// OpenExisting returns ErrNotFound instead of allocating a new collection.
func (db *Database) OpenExisting(name string) (KID, Purpose, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	e, ok := db.byName[name]
	if !ok {
		return 0, 0, ErrNotFound
	}
	return e.kid, e.purpose, nil
}

// Delete erases the system row for name and range-deletes every row of its
// collection, returning the KID to the free list.
func (db *Database) Delete(name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	e, ok := db.byName[name]
	if !ok {
		return ErrNotFound
	}

	wb := db.eng.NewWriteBatch()
	if err := wb.Delete(sysNameKey(name)); err != nil {
		wb.Discard()
		return err
	}
	lower, upper := CollectionBounds(e.kid)
	if err := wb.DeleteRange(lower, upper); err != nil {
		wb.Discard()
		return err
	}
	privLower, privUpper := CollectionBounds(SysKID)
	_ = privLower
	_ = privUpper
	// Private-area rows live at [SYS][KID][...]; delete that narrower range too.
	if err := wb.DeleteRange(PrivateAreaKey(e.kid, nil), PrivateAreaKey(e.kid+1, nil)); err != nil {
		wb.Discard()
		return err
	}
	if err := wb.Commit(true); err != nil {
		return err
	}

	delete(db.byName, name)
	delete(db.byKID, e.kid)
	db.freeList = append(db.freeList, e.kid)
	sort.Slice(db.freeList, func(i, j int) bool { return db.freeList[i] < db.freeList[j] })
	db.log.Info("collection deleted", "name", name, "kid", e.kid)
	return nil
}

// List returns every registered collection whose name has the given prefix.
// skipTemporary excludes collections created with CreateTemporary.
func (db *Database) List(prefix string, skipTemporary bool) []TableInfo {
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := make([]TableInfo, 0, len(db.byName))
	for name, e := range db.byName {
		if len(prefix) > 0 && (len(name) < len(prefix) || name[:len(prefix)] != prefix) {
			continue
		}
		if skipTemporary && e.temporary {
			continue
		}
		lower, upper := CollectionBounds(e.kid)
		sz, _ := db.eng.ApproximateSize(lower, upper)
		out = append(out, TableInfo{
			KID:        e.kid,
			Purpose:    e.purpose,
			ApproxSize: sz,
			Name:       name,
			Metadata:   e.metadata,
			Temporary:  e.temporary,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// CreateTemporary allocates a collection with a random "__temp" name and
// Undefined purpose, marked temporary so List can skip it; CloseTemporary
// erases it. Supplements spec.md's lifecycle section from
// original_source/database.h's create_temporary.
func (db *Database) CreateTemporary() (string, KID, error) {
	name, err := randomTempName()
	if err != nil {
		return "", 0, err
	}

	db.mu.Lock()
	if len(db.freeList) == 0 {
		db.mu.Unlock()
		return "", 0, ErrTooManyCollections
	}
	kid := db.freeList[0]
	db.freeList = db.freeList[1:]
	entry := &sysEntry{kid: kid, purpose: PurposeUndefined, temporary: true}
	wb := db.eng.NewWriteBatch()
	if err := wb.Put(sysNameKey(name), encodeSysEntry(entry)); err != nil {
		wb.Discard()
		db.freeList = append([]KID{kid}, db.freeList...)
		db.mu.Unlock()
		return "", 0, err
	}
	if err := wb.Commit(true); err != nil {
		db.freeList = append([]KID{kid}, db.freeList...)
		db.mu.Unlock()
		return "", 0, err
	}
	db.byName[name] = entry
	db.byKID[kid] = name
	db.mu.Unlock()
	return name, kid, nil
}

// CloseTemporary erases a temporary collection created by CreateTemporary.
func (db *Database) CloseTemporary(name string) error {
	return db.Delete(name)
}

// SetMetadata rewrites a collection's opaque metadata blob. Warms the
// decode-avoidance cache so a subsequent Metadata call skips the lookup in
// the authoritative map; Open does not consult this cache.
func (db *Database) SetMetadata(name string, metadata []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	e, ok := db.byName[name]
	if !ok {
		return ErrNotFound
	}
	updated := &sysEntry{kid: e.kid, purpose: e.purpose, temporary: e.temporary, metadata: metadata}
	wb := db.eng.NewWriteBatch()
	if err := wb.Put(sysNameKey(name), encodeSysEntry(updated)); err != nil {
		wb.Discard()
		return err
	}
	if err := wb.Commit(true); err != nil {
		return err
	}
	db.byName[name] = updated
	db.decodeCache.Add(name, metadata)
	return nil
}

// Metadata returns a collection's metadata blob, consulting the
// decode-avoidance cache before the authoritative map.
func (db *Database) Metadata(name string) ([]byte, error) {
	if v, ok := db.decodeCache.Get(name); ok {
		return v, nil
	}
	db.mu.RLock()
	defer db.mu.RUnlock()
	e, ok := db.byName[name]
	if !ok {
		return nil, ErrNotFound
	}
	db.decodeCache.Add(name, e.metadata)
	return e.metadata, nil
}

func randomTempName() (string, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return "__temp" + hex.EncodeToString(b[:]), nil
}

// Engine exposes the underlying Engine for collection implementations
// (document.Storage, index.Indexer, ...) that need direct Get/iterate access.
func (db *Database) Engine() Engine { return db.eng }

// Close releases the underlying engine.
func (db *Database) Close() error { return db.eng.Close() }

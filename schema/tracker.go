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

// Package schema factors out the "read persisted revision, compare against
// the caller's current revision, reindex/rebuild on mismatch, otherwise
// catch up from the last indexed DocID" bookkeeping that index.Indexer and
// aggregate's aggregators each need. Grounded on the revision-tag logic
// repeated in original_source/src/docdb/indexer.h and aggregator.h, which
// both persist the identical {revision, last_id} pair in their private
// area for exactly this purpose.
package schema

import (
	"encoding/binary"

	"github.com/kvdoc/kvdoc/batch"
	"github.com/kvdoc/kvdoc/document"
	"github.com/kvdoc/kvdoc/kv"
)

// Tracker persists the {schema revision, highest indexed storage DocID} pair
// for one collection's private area.
type Tracker struct {
	kid kv.KID
}

// New returns a Tracker bound to kid's private area.
func New(kid kv.KID) Tracker {
	return Tracker{kid: kid}
}

func (t Tracker) key() []byte {
	return kv.PrivateAreaKey(t.kid, nil)
}

// Load returns the persisted revision and highest indexed DocID, or the zero
// value of each if nothing has been stored yet.
func (t Tracker) Load(eng kv.Engine) (revision uint64, highestDocID document.DocID, err error) {
	raw, ok, err := eng.Get(t.key())
	if err != nil || !ok || len(raw) < 16 {
		return 0, 0, err
	}
	return binary.BigEndian.Uint64(raw[0:8]), document.DocID(binary.BigEndian.Uint64(raw[8:16])), nil
}

// Store stages revision/highestDocID into b, alongside whatever rows the
// caller is writing in the same batch.
func (t Tracker) Store(b *batch.Batch, revision uint64, highestDocID document.DocID) error {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[0:8], revision)
	binary.BigEndian.PutUint64(buf[8:16], uint64(highestDocID))
	return b.Put(t.key(), buf[:])
}

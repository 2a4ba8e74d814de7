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
	"encoding/binary"

	"github.com/kvdoc/kvdoc/rowcodec"
)

// encodeDocID renders id as a fixed-width, order-preserving 8-byte key --
// the same big-endian scheme kv/registry.go uses for KID, just widened. The
// full rowcodec.Schema machinery would be overkill for a single fixed-width
// counter column, so document encodes it directly with encoding/binary.
func encodeDocID(id DocID) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(id))
	return buf[:]
}

func decodeDocID(key []byte) DocID {
	return DocID(binary.BigEndian.Uint64(key))
}

// encodeValue lays out a storage row as [oldRev uint64][data...], mirroring
// storage.h's "<previous_id><document>" row format.
func encodeValue(oldRev DocID, data []byte) []byte {
	out := make([]byte, 8+len(data))
	binary.BigEndian.PutUint64(out[:8], uint64(oldRev))
	copy(out[8:], data)
	return out
}

// DecodeStorageValue exposes the storage row wire format -- spec.md §6's
// "[prev_id: u64 big-endian][doc_bytes…]" -- to external collaborators like
// cmd/kvdoc that paginate raw engine rows directly instead of going through
// Get, the same way manage_db.cpp's print_page extracts DocID/Blob straight
// from a raw recordset row rather than re-fetching each document.
func DecodeStorageValue(raw []byte) (oldRev DocID, data []byte, err error) {
	return decodeValue(raw)
}

// DecodeDocIDKey extracts the DocID suffix from a raw storage row key (the
// 8 bytes after the KID prefix).
func DecodeDocIDKey(rowKey []byte) DocID {
	return decodeDocID(rowKey[1:])
}

func decodeValue(raw []byte) (oldRev DocID, data []byte, err error) {
	if len(raw) < 8 {
		return 0, nil, rowcodec.ErrCorruptRow
	}
	oldRev = DocID(binary.BigEndian.Uint64(raw[:8]))
	data = raw[8:]
	return oldRev, data, nil
}

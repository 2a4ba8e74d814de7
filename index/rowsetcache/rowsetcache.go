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

// Package rowsetcache caches the result of an index-key lookup -- the set of
// document ids matching one key -- as a compressed roaring bitmap, so a
// repeated lookup of a hot key (a popular tag, a common foreign key) skips
// re-scanning the index's on-disk rows. Ported in spirit from
// original_source/src/docdb/join.h's DocumentSet, but backed by
// github.com/RoaringBitmap/roaring/v2 instead of a sorted slice so large
// result sets stay cheap to intersect/union and cheap to cache.
package rowsetcache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/RoaringBitmap/roaring/v2"
)

// Cache maps an index key (plus its revision, to invalidate stale entries
// without an explicit eviction pass) to the bitmap of document ids matching
// that key.
type Cache struct {
	lru *lru.Cache[string, entry]
}

type entry struct {
	revision uint64
	bitmap   *roaring.Bitmap
}

// New constructs a Cache holding up to capacity entries.
func New(capacity int) (*Cache, error) {
	c, err := lru.New[string, entry](capacity)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: c}, nil
}

// Get returns the cached bitmap for key, provided it was stored under the
// given revision; a revision mismatch is treated as a miss.
func (c *Cache) Get(key string, revision uint64) (*roaring.Bitmap, bool) {
	e, ok := c.lru.Get(key)
	if !ok || e.revision != revision {
		return nil, false
	}
	return e.bitmap, true
}

// Put stores bm as the result for key at revision, replacing any prior entry.
func (c *Cache) Put(key string, revision uint64, bm *roaring.Bitmap) {
	c.lru.Add(key, entry{revision: revision, bitmap: bm})
}

// Purge drops every cached entry, e.g. after a reindex bumps the revision
// for the whole index rather than per key.
func (c *Cache) Purge() {
	c.lru.Purge()
}

// Len reports the number of cached keys.
func (c *Cache) Len() int { return c.lru.Len() }

// FromDocIDs builds a roaring bitmap from a slice of document ids, the usual
// input shape after a fresh on-disk scan of an index key's rows. Roaring
// bitmaps index 32-bit integers; document ids above 2^32 are not
// representable here and the cache should be bypassed for them.
func FromDocIDs(ids []uint64) *roaring.Bitmap {
	bm := roaring.New()
	for _, id := range ids {
		bm.Add(uint32(id))
	}
	return bm
}

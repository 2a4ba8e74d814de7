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

// Package recordset implements the bounded, directional, filterable scanning
// abstraction of spec.md §4.4, ported from
// original_source/src/docdb/recordset.h's RecordSetBase (Seek/Next/Prev over
// a raw ordered iterator with app-level bound checks, rather than relying on
// the underlying engine to enforce range bounds).
package recordset

import (
	"bytes"

	"github.com/kvdoc/kvdoc/kv"
)

// Filter returns false to reject the row at (key, value); a rejected row is
// skipped by Next/Previous, it is never returned to the caller.
type Filter func(key, value []byte) bool

// Recordset scans [rangeEnd, rangeStart] or [rangeStart, rangeEnd] depending
// on their relative order: if rangeStart <= rangeEnd the scan is ascending,
// otherwise descending (spec.md §4.4 "direction is implied by range_start <=
// range_end"). rangeStart/rangeEnd bound the scan inclusively or exclusively
// per firstInclusive/lastInclusive.
type Recordset struct {
	it       kv.Iterator
	start    []byte
	end      []byte
	firstInc bool
	lastInc  bool
	ascending bool
	filter   Filter

	atEnd bool
}

// New constructs a Recordset over it, which must already be positioned over
// an unexhausted range spanning at least [min(start,end), max(start,end)].
func New(it kv.Iterator, rangeStart, rangeEnd []byte, firstInclusive, lastInclusive bool) *Recordset {
	rs := &Recordset{
		it:       it,
		start:    rangeStart,
		end:      rangeEnd,
		firstInc: firstInclusive,
		lastInc:  lastInclusive,
	}
	rs.ascending = bytes.Compare(rangeStart, rangeEnd) <= 0
	rs.Reset()
	return rs
}

// AddFilter composes fn with any existing filter by logical AND.
func (r *Recordset) AddFilter(fn Filter) {
	if r.filter == nil {
		r.filter = fn
		return
	}
	prev := r.filter
	r.filter = func(k, v []byte) bool { return prev(k, v) && fn(k, v) }
}

// crossed reports whether key has moved past bound in the direction implied
// by ascending: for an ascending check, crossed once key > bound (or == bound
// and inclusive is false); for a descending check, the mirror image.
func crossed(key, bound []byte, inclusive, ascending bool) bool {
	c := bytes.Compare(key, bound)
	if ascending {
		return c > 0 || (c == 0 && !inclusive)
	}
	return c < 0 || (c == 0 && !inclusive)
}

func (r *Recordset) isKey(key []byte) bool {
	return r.it.Valid() && bytes.Equal(r.it.Key(), key)
}

// Reset re-seeks to range_start and reapplies first-bound inclusivity,
// restoring the Recordset to the position it had right after construction.
func (r *Recordset) Reset() bool {
	var ok bool
	if r.ascending {
		ok = r.it.SeekGE(r.start)
	} else {
		ok = r.it.SeekLE(r.start)
	}
	r.atEnd = !ok
	if !r.atEnd && crossed(r.it.Key(), r.end, r.lastInc, r.ascending) {
		r.atEnd = true
	}
	if !r.atEnd && !r.firstInc && r.isKey(r.start) {
		r.advanceScan()
	}
	if !r.atEnd && r.filter != nil && !r.filter(r.it.Key(), r.it.Value()) {
		r.Next()
	}
	return !r.atEnd
}

// advanceScan moves the underlying iterator one step in the scan direction
// and updates atEnd against the far (range_end) bound, without consulting the
// filter.
func (r *Recordset) advanceScan() {
	var ok bool
	if r.ascending {
		ok = r.it.Next()
	} else {
		ok = r.it.Previous()
	}
	if !ok {
		r.atEnd = true
		return
	}
	if crossed(r.it.Key(), r.end, r.lastInc, r.ascending) {
		r.atEnd = true
	}
}

// retreatScan moves the underlying iterator one step against the scan
// direction (toward range_start) and updates atEnd against the start bound.
func (r *Recordset) retreatScan() bool {
	var ok bool
	if r.ascending {
		ok = r.it.Previous()
	} else {
		ok = r.it.Next()
	}
	if !ok {
		return false
	}
	if crossed(r.it.Key(), r.start, r.firstInc, !r.ascending) {
		return false
	}
	return true
}

// Next advances to the next accepted row in scan direction.
func (r *Recordset) Next() bool {
	if r.atEnd {
		return false
	}
	for {
		r.advanceScan()
		if r.atEnd {
			return false
		}
		if r.filter == nil || r.filter(r.it.Key(), r.it.Value()) {
			return true
		}
	}
}

// Previous steps back toward range_start. Moving before the starting point
// (per spec.md §4.4) is treated as reaching the end of the Recordset in
// either direction; the caller should stop calling Previous once it returns
// false.
func (r *Recordset) Previous() bool {
	for {
		if !r.retreatScan() {
			r.atEnd = true
			return false
		}
		if r.filter == nil || r.filter(r.it.Key(), r.it.Value()) {
			return true
		}
	}
}

// Valid reports whether the Recordset is currently positioned on a row.
func (r *Recordset) Valid() bool { return !r.atEnd && r.it.Valid() }

// Key returns the raw key of the current row.
func (r *Recordset) Key() []byte { return r.it.Key() }

// Value returns the raw value of the current row.
func (r *Recordset) Value() []byte { return r.it.Value() }

// Close releases the underlying iterator.
func (r *Recordset) Close() error { return r.it.Close() }

// bounds returns the [lower, upper) range this Recordset covers, regardless
// of scan direction, for use with kv.Engine.ApproximateSize.
func (r *Recordset) bounds() (lower, upper []byte) {
	if r.ascending {
		return r.start, r.end
	}
	return r.end, r.start
}

// CountAprox implements spec.md §4.4's count_aprox: iterate up to cap rows
// and report the true count, or -- if the engine's approximate byte-size of
// the range divided by the sampled average row size projects more than cap
// rows -- report an estimate derived from ApproximateSize. Per spec.md §8,
// the estimate itself is never asserted exactly; only the exact branch is.
// CountAprox consumes and then Resets the Recordset's position.
func (r *Recordset) CountAprox(eng kv.Engine, cap int) (count int, exact bool, err error) {
	defer r.Reset()

	if !r.Reset() {
		return 0, true, nil
	}

	var totalBytes int
	n := 0
	for {
		totalBytes += len(r.Key()) + len(r.Value())
		n++
		if n >= cap {
			break
		}
		if !r.Next() {
			return n, true, nil
		}
	}
	if !r.Next() {
		// exactly `cap` rows existed in the range.
		return n, true, nil
	}

	avg := totalBytes / n
	if avg == 0 {
		avg = 1
	}
	lower, upper := r.bounds()
	sz, err := eng.ApproximateSize(lower, upper)
	if err != nil {
		return n, true, err
	}
	estimate := int(sz) / avg
	if estimate < n {
		estimate = n
	}
	return estimate, false, nil
}

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

// Package observer implements the propagation mechanism of spec.md §4.5:
// storage-level writes are fanned out, within the same batch, to every
// registered observer (an index, an aggregator, ...) so derived views stay
// consistent with the document they were built from. Ported from
// original_source/src/docdb/observer.h's ObserverList<Fn>.
package observer

import "sync"

// List is a thread-safe registry of observers of type T. T is typically a
// function type; Call does not invoke observers directly (Go has no variadic
// generic function types) -- callers supply an invoke closure that applies
// the call-site-specific arguments to each registered T.
type List[T any] struct {
	mu     sync.RWMutex
	nextID uint64
	items  []entry[T]
}

type entry[T any] struct {
	id int64
	fn T
}

// Register adds fn to the list and returns an id usable with Unregister.
func (l *List[T]) Register(fn T) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	id := int64(l.nextID)
	l.items = append(l.items, entry[T]{id: id, fn: fn})
	return id
}

// Unregister removes the observer previously registered with id, if present.
func (l *List[T]) Unregister(id int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.items[:0]
	for _, e := range l.items {
		if e.id != id {
			out = append(out, e)
		}
	}
	l.items = out
}

// Len reports the number of currently registered observers.
func (l *List[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Call invokes invoke(fn) for every registered observer, in registration
// order, under a read lock. invoke returns false to signal that the observer
// is no longer usable (e.g. its batch listener failed irrecoverably); such
// observers are removed once every observer has been called, mirroring
// ObserverList::call's two-phase call-then-kick behavior.
func (l *List[T]) Call(invoke func(T) bool) {
	l.mu.RLock()
	var dead []int64
	for _, e := range l.items {
		if !invoke(e.fn) {
			dead = append(dead, e.id)
		}
	}
	l.mu.RUnlock()

	if len(dead) == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.items[:0]
	for _, e := range l.items {
		keep := true
		for _, id := range dead {
			if e.id == id {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, e)
		}
	}
	l.items = out
}

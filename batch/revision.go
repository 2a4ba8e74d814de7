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

// Package batch wraps a kv.WriteBatch with a process-wide monotonic revision
// stamp and a list of commit listeners, per spec.md §4.3 and §9's "global
// state" note (the revision counter is the only global in the library; every
// batch increments it on construction).
package batch

import "sync/atomic"

// Revision identifies one batch for the lifetime of the process. Used by the
// unique-index lock manager as the owner key for in-flight locks.
type Revision uint64

var nextRevision atomic.Uint64

func init() {
	// Revision 0 is never issued, so a zero-value Revision field reliably means
	// "no batch".
	nextRevision.Store(1)
}

func allocRevision() Revision {
	return Revision(nextRevision.Add(1) - 1)
}

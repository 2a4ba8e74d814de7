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

package batch

import "github.com/kvdoc/kvdoc/kv"

// Listener observes the lifecycle of a Batch. BeforeCommit may return an
// error to abort the commit (the batch is discarded and AfterRollback fires
// instead of AfterCommit). AfterCommit and AfterRollback must never panic:
// per spec.md §7, an escaping panic from either is treated as an invariant
// violation.
type Listener interface {
	BeforeCommit(b *Batch) error
	AfterCommit(rev Revision)
	AfterRollback(rev Revision)
}

// BigThreshold is the default number of buffered writes at or above which
// Batch.Big reports true, signalling bulk operations (rescans, reindexing)
// to flush and start a fresh batch.
const BigThreshold = 1000

// Batch groups mutations destined for one atomic commit, stamped with a
// process-wide revision and carrying the listener list that must observe its
// lifecycle. Listeners are non-owning back references (per spec.md §4.3);
// callers are responsible for keeping a listener alive at least as long as
// any Batch it is registered on.
type Batch struct {
	wb        kv.WriteBatch
	rev       Revision
	listeners []Listener
	count     int
}

// New starts a batch over eng, stamping it with a freshly allocated revision.
func New(eng kv.Engine) *Batch {
	return &Batch{wb: eng.NewWriteBatch(), rev: allocRevision()}
}

// Revision returns the batch's process-wide identity.
func (b *Batch) Revision() Revision { return b.rev }

// AddListener registers l to receive this batch's commit/rollback
// notification. Listeners are notified in registration order, per spec.md
// invariant 5.
func (b *Batch) AddListener(l Listener) {
	b.listeners = append(b.listeners, l)
}

// Put stages a write.
func (b *Batch) Put(key, value []byte) error {
	b.count++
	return b.wb.Put(key, value)
}

// Delete stages a deletion.
func (b *Batch) Delete(key []byte) error {
	b.count++
	return b.wb.Delete(key)
}

// DeleteRange stages a range deletion.
func (b *Batch) DeleteRange(lower, upper []byte) error {
	b.count++
	return b.wb.DeleteRange(lower, upper)
}

// Big reports whether the batch has accumulated enough writes that bulk
// callers (Storage.RescanFor, Indexer.Reindex) should flush it and start a
// new one, per spec.md §4.3's "big" predicate.
func (b *Batch) Big(threshold int) bool {
	if threshold <= 0 {
		threshold = BigThreshold
	}
	return b.count >= threshold
}

// Commit runs every listener's BeforeCommit, aborts on the first error
// (notifying AfterRollback to every listener, including ones whose
// BeforeCommit already ran), then commits the underlying write batch and
// notifies AfterCommit.
func (b *Batch) Commit(sync bool) error {
	for _, l := range b.listeners {
		if err := l.BeforeCommit(b); err != nil {
			b.wb.Discard()
			for _, l2 := range b.listeners {
				l2.AfterRollback(b.rev)
			}
			return err
		}
	}
	if err := b.wb.Commit(sync); err != nil {
		for _, l := range b.listeners {
			l.AfterRollback(b.rev)
		}
		return err
	}
	for _, l := range b.listeners {
		l.AfterCommit(b.rev)
	}
	return nil
}

// Rollback discards the batch without committing, notifying listeners.
func (b *Batch) Rollback() {
	b.wb.Discard()
	for _, l := range b.listeners {
		l.AfterRollback(b.rev)
	}
}

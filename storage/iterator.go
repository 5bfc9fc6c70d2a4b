package storage

import "github.com/tidwall/btree"

// Iterator walks a storage's entries in ascending key order. It operates
// on a copy-on-write snapshot taken at creation, so concurrent mutation
// of the storage is never observed and never blocked. Close must be
// called when done; Reset restarts the same snapshot from the first key.
type Iterator struct {
	snapshot *btree.Map[string, string]
	iter     btree.MapIter[string, string]
	started  bool
	closed   bool
}

func newIterator(entries *btree.Map[string, string]) *Iterator {
	snapshot := entries.Copy()
	return &Iterator{
		snapshot: snapshot,
		iter:     snapshot.Iter(),
	}
}

// Next advances to the next entry, returning false when the snapshot is
// exhausted or the iterator has been closed.
func (it *Iterator) Next() bool {
	if it.closed {
		return false
	}
	if !it.started {
		it.started = true
		return it.iter.First()
	}
	return it.iter.Next()
}

func (it *Iterator) Key() string {
	return it.iter.Key()
}

func (it *Iterator) Value() string {
	return it.iter.Value()
}

// Reset restarts iteration over the same snapshot.
func (it *Iterator) Reset() {
	if it.closed {
		return
	}
	it.iter = it.snapshot.Iter()
	it.started = false
}

// Close ends iteration. A Map iterator holds no pooled resource, so
// closing only invalidates further Next calls. Safe to call twice.
func (it *Iterator) Close() {
	it.closed = true
}

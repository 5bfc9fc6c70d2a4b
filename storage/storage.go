// Package storage implements the file-backed key-value stores that hold
// per-resource metadata (tags, scores, properties). Two layouts share one
// contract: FileStorage keeps every entry in a single JSON file,
// FolderStorage keeps one versioned file per key so multiple devices can
// write without colliding. Both detect staleness between the in-memory
// mapping and the on-disk state instead of silently overwriting either.
package storage

import (
	"fmt"
	"time"

	"github.com/tidwall/btree"

	"github.com/mwantia/resfs/data"
	"github.com/mwantia/resfs/log"
)

// SyncStatus classifies the relationship between a storage's in-memory
// mapping and its on-disk state.
type SyncStatus int

const (
	// In-memory and on-disk views match.
	InSync SyncStatus = iota
	// In-memory has unwritten changes; disk is unchanged since load.
	MappingStale
	// Disk changed under us (another process or device); memory is clean.
	StorageStale
	// Both sides changed independently. Sync refuses to pick a winner.
	Diverge
)

func (s SyncStatus) String() string {
	switch s {
	case InSync:
		return "InSync"
	case MappingStale:
		return "MappingStale"
	case StorageStale:
		return "StorageStale"
	case Diverge:
		return "Diverge"
	default:
		return "Unknown"
	}
}

// Storage is the contract shared by both layouts. Mutations apply to the
// in-memory mapping only; Write persists, Sync reconciles per Status.
// Instances are single-owner: no internal locking is provided for
// concurrent in-process writers.
type Storage interface {
	Label() string

	// Set inserts or overwrites an entry in memory. Never touches disk.
	Set(key, value string)

	// Remove deletes the in-memory entry. ErrNotFound if absent.
	Remove(key string) error

	// Get looks up the in-memory entry. ErrNotFound if absent.
	Get(key string) (string, error)

	// Len reports the number of in-memory entries.
	Len() int

	// Write flushes the mapping to disk atomically and bumps the
	// target's modification timestamp past filesystem granularity.
	Write() error

	// Read loads the mapping directly from disk without touching the
	// in-memory state.
	Read() (map[string]string, error)

	// Status compares in-memory dirtiness against the backing file's
	// modification time. ErrIO if a previously written backing
	// file/folder vanished.
	Status() (SyncStatus, error)

	// Sync reconciles: MappingStale writes, StorageStale reloads,
	// InSync is a no-op, Diverge fails with ErrDiverge.
	Sync() error

	// Erase deletes the backing file/folder. ErrNotFound if absent.
	Erase() error

	// Merge folds other's entries into this storage in memory. Keys
	// present in both are combined by the storage's monoid, this
	// storage's value first. Callers persist with Write afterwards.
	Merge(other Storage)

	// Iter returns an ascending-by-key snapshot iterator. The caller
	// must Close it.
	Iter() *Iterator
}

// Options configure a storage instance.
type Options struct {
	Logger  *log.Logger
	Combine Monoid
}

type Option func(*Options)

func WithLogger(logger *log.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

func WithMonoid(combine Monoid) Option {
	return func(o *Options) {
		o.Combine = combine
	}
}

func newDefaultOptions() *Options {
	return &Options{
		Logger:  log.Discard(),
		Combine: Concat,
	}
}

// table is the in-memory half shared by both layouts: the ordered entry
// map, the merge monoid and the staleness bookkeeping. The pending and
// removed sets track which keys changed since the last write; the folder
// layout persists per key and needs them, the file layout ignores them.
type table struct {
	label   string
	path    string
	log     *log.Logger
	combine Monoid

	entries *btree.Map[string, string]
	pending map[string]struct{}
	removed map[string]struct{}

	// modified advances on every in-memory mutation, writtenToDisk on
	// every successful write or reload. Their relation to the backing
	// file's modification time yields the SyncStatus.
	modified      time.Time
	writtenToDisk time.Time

	// synced is true once the backing file/folder has actually existed
	// on disk. A missing backing for a never-written storage is normal;
	// a missing backing afterwards is an error.
	synced bool
}

func newTable(label, path string, opts *Options) table {
	now := time.Now()
	return table{
		label:         label,
		path:          path,
		log:           opts.Logger,
		combine:       opts.Combine,
		entries:       btree.NewMap[string, string](0),
		pending:       make(map[string]struct{}),
		removed:       make(map[string]struct{}),
		modified:      now,
		writtenToDisk: now,
	}
}

func (t *table) Label() string {
	return t.label
}

func (t *table) Set(key, value string) {
	t.entries.Set(key, value)
	t.pending[key] = struct{}{}
	delete(t.removed, key)
	t.modified = time.Now()
}

func (t *table) Remove(key string) error {
	if _, ok := t.entries.Delete(key); !ok {
		return fmt.Errorf("%w: key %q in %s", data.ErrNotFound, key, t.label)
	}
	delete(t.pending, key)
	t.removed[key] = struct{}{}
	t.modified = time.Now()
	return nil
}

func (t *table) Get(key string) (string, error) {
	value, ok := t.entries.Get(key)
	if !ok {
		return "", fmt.Errorf("%w: key %q in %s", data.ErrNotFound, key, t.label)
	}
	return value, nil
}

func (t *table) Len() int {
	return t.entries.Len()
}

func (t *table) Iter() *Iterator {
	return newIterator(t.entries)
}

func (t *table) Merge(other Storage) {
	it := other.Iter()
	defer it.Close()

	for it.Next() {
		key, value := it.Key(), it.Value()
		if existing, ok := t.entries.Get(key); ok {
			t.Set(key, t.combine(existing, value))
		} else {
			t.Set(key, value)
		}
	}
}

// replaceEntries swaps the in-memory mapping wholesale, used when
// reloading from disk. Clears the change tracking since memory now
// agrees with disk.
func (t *table) replaceEntries(entries map[string]string) {
	t.entries = btree.NewMap[string, string](0)
	for key, value := range entries {
		t.entries.Set(key, value)
	}
	t.pending = make(map[string]struct{})
	t.removed = make(map[string]struct{})
}

// markClean records a successful agreement point with disk.
func (t *table) markClean(diskTime time.Time) {
	t.modified = diskTime
	t.writtenToDisk = diskTime
	t.pending = make(map[string]struct{})
	t.removed = make(map[string]struct{})
	t.synced = true
}

// classify derives the SyncStatus from the backing file's current
// modification time.
func (t *table) classify(diskTime time.Time) SyncStatus {
	memDirty := t.modified.After(t.writtenToDisk)
	diskDirty := diskTime.After(t.writtenToDisk)

	switch {
	case memDirty && diskDirty:
		return Diverge
	case memDirty:
		return MappingStale
	case diskDirty:
		return StorageStale
	default:
		return InSync
	}
}

func (t *table) snapshot() map[string]string {
	entries := make(map[string]string, t.entries.Len())
	t.entries.Scan(func(key, value string) bool {
		entries[key] = value
		return true
	})
	return entries
}

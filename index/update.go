package index

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/mwantia/resfs/data"
)

// ChangeKind tags one observed difference between the index and the
// filesystem.
type ChangeKind int

const (
	Added ChangeKind = iota
	Removed
	Modified
)

func (k ChangeKind) String() string {
	switch k {
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Modified:
		return "modified"
	default:
		return "unknown"
	}
}

// Change describes one path-level difference produced by an update. A
// rename shows up as Removed(old path) plus Added(new path); move
// detection is deliberately not attempted, the id-level mapping already
// survives it.
type Change struct {
	Kind ChangeKind
	Path string          // root-relative
	ID   data.ResourceID // current id; for Removed, the id that vanished
	// Previous id, set for Modified only.
	OldID data.ResourceID
}

func (c Change) String() string {
	if c.Kind == Modified {
		return fmt.Sprintf("%s %s (%s -> %s)", c.Kind, c.Path, c.OldID, c.ID)
	}
	return fmt.Sprintf("%s %s (%s)", c.Kind, c.Path, c.ID)
}

// UpdateAll re-walks the root and diffs the result against the indexed
// state. Unchanged paths produce no change; the returned set touches
// each path at most once and is sorted by path. On success the index
// state is swapped wholesale, so callers observe either the old or the
// new mapping, never a partial mutation. On scan failure the index is
// left untouched.
func (ix *Index) UpdateAll() ([]Change, error) {
	ix.log.Debug("updating index for %s", ix.root)

	entries, err := ix.scan(ix.pathToID)
	if err != nil {
		return nil, err
	}

	var changes []Change

	for path, scanned := range entries {
		old, ok := ix.pathToID[path]
		switch {
		case !ok:
			changes = append(changes, Change{Kind: Added, Path: path, ID: scanned.id})
		case old.id != scanned.id:
			changes = append(changes, Change{Kind: Modified, Path: path, ID: scanned.id, OldID: old.id})
		}
	}
	for path, old := range ix.pathToID {
		if _, ok := entries[path]; !ok {
			changes = append(changes, Change{Kind: Removed, Path: path, ID: old.id})
		}
	}

	// Rebuild the maps from the fresh scan and swap.
	ix.pathToID = make(map[string]entry, len(entries))
	ix.idToPaths = make(map[data.ResourceID]map[string]struct{})
	ix.collisions = make(map[data.ResourceID]int)
	for path, scanned := range entries {
		ix.insert(path, scanned)
	}

	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Path < changes[j].Path
	})

	ix.log.Debug("index updated: %d changes", len(changes))
	return changes, nil
}

// UpdateOne rescans exactly one path without walking the tree. Returns
// nil when nothing changed: the path is unindexed and still absent, or
// its content hash is unchanged. A path that turned into a directory or
// became empty counts as removed.
func (ix *Index) UpdateOne(path string) (*Change, error) {
	rel, err := ix.resolve(path)
	if err != nil {
		return nil, err
	}
	full := filepath.Join(ix.root, rel)

	old, indexed := ix.pathToID[rel]

	// Hidden paths are never resources, same as in the full scan.
	gone := hidden(rel)
	var info os.FileInfo
	if !gone {
		var statErr error
		info, statErr = os.Stat(full)
		if statErr != nil && !errors.Is(statErr, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: %v", data.ErrIO, full, statErr)
		}
		gone = statErr != nil || info.IsDir() || info.Size() == 0
	}

	if gone {
		if !indexed {
			return nil, nil
		}
		ix.forget(rel)
		return &Change{Kind: Removed, Path: rel, ID: old.id}, nil
	}

	id, err := ix.scheme.ComputeFile(full)
	if err != nil {
		return nil, err
	}
	scanned := entry{id: id, modified: info.ModTime()}

	if !indexed {
		ix.insert(rel, scanned)
		return &Change{Kind: Added, Path: rel, ID: id}, nil
	}

	if old.id == id {
		// Content unchanged; refresh the timestamp so the next full
		// scan can keep skipping the hash.
		ix.pathToID[rel] = scanned
		return nil, nil
	}

	ix.forget(rel)
	ix.insert(rel, scanned)
	return &Change{Kind: Modified, Path: rel, ID: id, OldID: old.id}, nil
}

// Package index maintains the bidirectional mapping between filesystem
// paths and content-derived resource ids for one root directory. The
// mapping is built by a full scan, kept current by rescans or targeted
// single-path updates, and persisted in a compact form under the root's
// control directory.
package index

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mwantia/resfs/data"
	"github.com/mwantia/resfs/log"
)

// entry is what the index knows about one path: the content id and the
// file's modification time at scan, used to skip rehashing unchanged
// files on later scans.
type entry struct {
	id       data.ResourceID
	modified time.Time
}

// Index is the aggregate root of path↔id tracking. The two maps are
// mutual inverses at all times; queries hand out copies, never the maps
// themselves. Instances are single-owner: callers sharing an Index
// across goroutines must synchronize externally.
type Index struct {
	root   string
	scheme data.IDScheme
	log    *log.Logger

	pathToID   map[string]entry
	idToPaths  map[data.ResourceID]map[string]struct{}
	collisions map[data.ResourceID]int
}

// Options configure index construction.
type Options struct {
	Logger *log.Logger
}

type Option func(*Options)

func WithLogger(logger *log.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

func newDefaultOptions() *Options {
	return &Options{
		Logger: log.Discard(),
	}
}

// Build creates an index by a full recursive walk of root. Individual
// unreadable files are skipped with a warning; a failure to traverse the
// root itself is fatal.
func Build(root string, scheme data.IDScheme, opts ...Option) (*Index, error) {
	options := newDefaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", data.ErrScan, root, err)
	}

	ix := &Index{
		root:       absRoot,
		scheme:     scheme,
		log:        options.Logger,
		pathToID:   make(map[string]entry),
		idToPaths:  make(map[data.ResourceID]map[string]struct{}),
		collisions: make(map[data.ResourceID]int),
	}

	ix.log.Info("building index for %s", absRoot)
	entries, err := ix.scan(nil)
	if err != nil {
		return nil, err
	}
	for path, scanned := range entries {
		ix.insert(path, scanned)
	}

	ix.log.Info("index built: %d resources, %d collisions", len(ix.pathToID), len(ix.collisions))
	return ix, nil
}

// Root returns the indexed directory.
func (ix *Index) Root() string {
	return ix.root
}

// Len reports the number of indexed paths. In presence of collisions the
// number of distinct resources is lower.
func (ix *Index) Len() int {
	return len(ix.pathToID)
}

// IDByPath returns the id of the resource at the given root-relative
// path, if indexed.
func (ix *Index) IDByPath(path string) (data.ResourceID, bool) {
	scanned, ok := ix.pathToID[filepath.Clean(path)]
	if !ok {
		return "", false
	}
	return scanned.id, true
}

// Paths returns every indexed root-relative path, sorted.
func (ix *Index) Paths() []string {
	paths := make([]string, 0, len(ix.pathToID))
	for path := range ix.pathToID {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// PathsByID returns all root-relative paths currently holding the given
// content, sorted. Empty if the id is unknown.
func (ix *Index) PathsByID(id data.ResourceID) []string {
	set, ok := ix.idToPaths[id]
	if !ok {
		return nil
	}

	paths := make([]string, 0, len(set))
	for path := range set {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Collisions returns a copy of the collision table: every id mapping to
// more than one path, with the path count.
func (ix *Index) Collisions() map[data.ResourceID]int {
	collisions := make(map[data.ResourceID]int, len(ix.collisions))
	for id, count := range ix.collisions {
		collisions[id] = count
	}
	return collisions
}

// scan walks the root and computes an entry per regular file. Hidden
// entries (dot-prefixed, including the control directory) and empty
// files are ignored. prev, when non-nil, short-circuits hashing for
// files whose modification time is unchanged.
func (ix *Index) scan(prev map[string]entry) (map[string]entry, error) {
	entries := make(map[string]entry)

	walkErr := filepath.WalkDir(ix.root, func(path string, dirent fs.DirEntry, err error) error {
		if err != nil {
			if path == ix.root {
				return fmt.Errorf("%w: %s: %v", data.ErrScan, ix.root, err)
			}
			ix.log.Warn("skipping %s: %v", path, err)
			if dirent != nil && dirent.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		name := dirent.Name()
		if path != ix.root && strings.HasPrefix(name, ".") {
			if dirent.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if dirent.IsDir() || !dirent.Type().IsRegular() {
			return nil
		}

		info, err := dirent.Info()
		if err != nil {
			ix.log.Warn("skipping %s: %v", path, err)
			return nil
		}
		if info.Size() == 0 {
			return nil
		}

		rel, err := filepath.Rel(ix.root, path)
		if err != nil {
			ix.log.Warn("skipping %s: %v", path, err)
			return nil
		}

		// Unchanged modification time means the previous id still
		// stands; skip the hash. Compared at millisecond precision,
		// the resolution the persisted form survives with.
		if prev != nil {
			if old, ok := prev[rel]; ok && old.modified.UnixMilli() == info.ModTime().UnixMilli() {
				entries[rel] = old
				return nil
			}
		}

		id, err := ix.scheme.ComputeFile(path)
		if err != nil {
			ix.log.Warn("skipping %s: %v", path, err)
			return nil
		}

		entries[rel] = entry{id: id, modified: info.ModTime()}
		return nil
	})

	if walkErr != nil {
		if errors.Is(walkErr, data.ErrScan) {
			return nil, walkErr
		}
		return nil, fmt.Errorf("%w: %s: %v", data.ErrScan, ix.root, walkErr)
	}

	return entries, nil
}

// hidden reports whether any component of a root-relative path is
// dot-prefixed. Such paths are invisible to the index in every code
// path, the control directory included.
func hidden(rel string) bool {
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

// insert adds one path to both maps, keeping the collision table in
// step.
func (ix *Index) insert(path string, scanned entry) {
	ix.pathToID[path] = scanned

	set, ok := ix.idToPaths[scanned.id]
	if !ok {
		set = make(map[string]struct{})
		ix.idToPaths[scanned.id] = set
	}
	set[path] = struct{}{}

	if len(set) > 1 {
		ix.collisions[scanned.id] = len(set)
	}
}

// forget removes one path from both maps, keeping the collision table in
// step.
func (ix *Index) forget(path string) {
	scanned, ok := ix.pathToID[path]
	if !ok {
		return
	}
	delete(ix.pathToID, path)

	set := ix.idToPaths[scanned.id]
	delete(set, path)

	switch {
	case len(set) == 0:
		delete(ix.idToPaths, scanned.id)
		delete(ix.collisions, scanned.id)
	case len(set) == 1:
		delete(ix.collisions, scanned.id)
	default:
		ix.collisions[scanned.id] = len(set)
	}
}

// resolve normalizes a caller-supplied path (absolute or root-relative)
// to the root-relative form used as map key. Paths escaping the root are
// rejected in either form.
func (ix *Index) resolve(path string) (string, error) {
	rel := path
	if filepath.IsAbs(path) {
		var err error
		rel, err = filepath.Rel(ix.root, path)
		if err != nil {
			return "", fmt.Errorf("%w: %s is outside %s", data.ErrNotFound, path, ix.root)
		}
	} else {
		rel = filepath.Clean(rel)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s is outside %s", data.ErrNotFound, path, ix.root)
	}
	return rel, nil
}

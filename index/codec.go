package index

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mwantia/resfs/data"
)

// The persisted index is a flat sequence of records, one line per path:
//
//	<modified-unix-milli> <id> <relative path>
//
// sorted by path. Only this list is written; both derived maps and the
// collision table are rebuilt on load, so the inverse views can never
// drift apart in the serialized form. The path is the line remainder and
// may contain spaces; ids and timestamps never do.

// Encode writes the index records to w.
func (ix *Index) Encode(w io.Writer) error {
	paths := make([]string, 0, len(ix.pathToID))
	for path := range ix.pathToID {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	buf := bufio.NewWriter(w)
	for _, path := range paths {
		scanned := ix.pathToID[path]
		millis := scanned.modified.UnixMilli()
		if _, err := fmt.Fprintf(buf, "%d %s %s\n", millis, scanned.id, filepath.ToSlash(path)); err != nil {
			return fmt.Errorf("%w: encode index: %v", data.ErrIO, err)
		}
	}
	return buf.Flush()
}

// decode parses records and rebuilds both maps.
func (ix *Index) decode(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if text == "" {
			continue
		}

		millisPart, rest, ok := strings.Cut(text, " ")
		if !ok {
			return fmt.Errorf("%w: index line %d: missing fields", data.ErrStorage, line)
		}
		idPart, pathPart, ok := strings.Cut(rest, " ")
		if !ok {
			return fmt.Errorf("%w: index line %d: missing path", data.ErrStorage, line)
		}

		millis, err := strconv.ParseInt(millisPart, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: index line %d: bad timestamp: %v", data.ErrStorage, line, err)
		}
		id, err := ix.scheme.Parse(idPart)
		if err != nil {
			return fmt.Errorf("%w: index line %d: %v", data.ErrStorage, line, err)
		}

		path := filepath.FromSlash(pathPart)
		ix.insert(path, entry{
			id:       id,
			modified: time.UnixMilli(millis),
		})
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: decode index: %v", data.ErrIO, err)
	}

	return nil
}

func (ix *Index) indexPath() string {
	return filepath.Join(ix.root, data.ArkFolder, data.IndexFile)
}

// Store persists the index under <root>/.ark/index using the usual
// write-then-rename discipline.
func (ix *Index) Store() error {
	target := ix.indexPath()
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: %s: %v", data.ErrIO, dir, err)
	}

	var buf bytes.Buffer
	if err := ix.Encode(&buf); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".index.tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", data.ErrIO, dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", data.ErrIO, target, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", data.ErrIO, target, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", data.ErrIO, target, err)
	}

	ix.log.Debug("stored index: %d resources", len(ix.pathToID))
	return nil
}

// Load reads a previously stored index for root. ErrNotFound if no index
// was ever stored, ErrStorage if the file cannot be parsed.
func Load(root string, scheme data.IDScheme, opts ...Option) (*Index, error) {
	options := newDefaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", data.ErrIO, root, err)
	}

	ix := &Index{
		root:       absRoot,
		scheme:     scheme,
		log:        options.Logger,
		pathToID:   make(map[string]entry),
		idToPaths:  make(map[data.ResourceID]map[string]struct{}),
		collisions: make(map[data.ResourceID]int),
	}

	file, err := os.Open(ix.indexPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", data.ErrNotFound, ix.indexPath())
		}
		return nil, fmt.Errorf("%w: %s: %v", data.ErrIO, ix.indexPath(), err)
	}
	defer file.Close()

	if err := ix.decode(file); err != nil {
		return nil, err
	}

	ix.log.Debug("loaded index: %d resources", len(ix.pathToID))
	return ix, nil
}

// Provide loads the stored index and brings it up to date, or builds a
// fresh one when no usable index exists. Either way the result is stored
// back. The returned changes are what the update observed; a fresh build
// reports none.
func Provide(root string, scheme data.IDScheme, opts ...Option) (*Index, []Change, error) {
	ix, err := Load(root, scheme, opts...)
	if err != nil {
		if !errors.Is(err, data.ErrNotFound) && !errors.Is(err, data.ErrStorage) {
			return nil, nil, err
		}

		ix, err = Build(root, scheme, opts...)
		if err != nil {
			return nil, nil, err
		}
		if err := ix.Store(); err != nil {
			return nil, nil, err
		}
		return ix, nil, nil
	}

	changes, err := ix.UpdateAll()
	if err != nil {
		return nil, nil, err
	}
	if err := ix.Store(); err != nil {
		return nil, nil, err
	}
	return ix, changes, nil
}

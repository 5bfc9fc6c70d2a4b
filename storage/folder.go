package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/mwantia/resfs/data"
)

// Version is one recorded write of a key in a FolderStorage: which device
// wrote it, that device's monotonic counter at the time, and the value.
// The version information lives inside the file as structured metadata;
// the filename merely has to be unique per (writer, version).
type Version struct {
	Writer    string    `json:"writer"`
	Number    int       `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Value     string    `json:"value"`
}

// FolderStorage persists one subfolder per key and one file per write,
// named "<key>_<writer>.<version>". Every device bumps its own version
// lineage, so two devices writing the same key never collide on a
// filename and the full mutation history of a key stays reconstructable.
type FolderStorage struct {
	table
	writer string
}

// NewFolderStorage opens or initializes a folder-backed storage at path.
// writer identifies this device; it becomes part of every filename this
// instance writes. The parent directory must exist.
func NewFolderStorage(label, path, writer string, opts ...Option) (*FolderStorage, error) {
	options := newDefaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	parent := filepath.Dir(path)
	if _, err := os.Stat(parent); err != nil {
		return nil, fmt.Errorf("%w: parent of %s: %v", data.ErrIO, path, err)
	}

	storage := &FolderStorage{
		table:  newTable(label, path, options),
		writer: writer,
	}

	if fi, err := os.Stat(path); err == nil {
		if !fi.IsDir() {
			return nil, fmt.Errorf("%w: %s is not a directory", data.ErrIO, path)
		}
		if err := storage.reload(); err != nil {
			return nil, err
		}
		storage.log.Debug("%s loaded %d entries from %s", label, storage.Len(), path)
	}

	return storage, nil
}

// Writer returns the device identity used for new version files.
func (s *FolderStorage) Writer() string {
	return s.writer
}

// load scans the folder without touching the in-memory state. Returns the
// current value per key (highest version wins) and the latest
// modification time seen on disk. The storage directory's own mtime and
// the key directories' mtimes count too: an external writer that removes
// a key leaves no version file behind, only a touched directory.
func (s *FolderStorage) load() (map[string]string, time.Time, error) {
	dirInfo, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, time.Time{}, fmt.Errorf("%w: %s", data.ErrNotFound, s.path)
		}
		return nil, time.Time{}, fmt.Errorf("%w: %s: %v", data.ErrIO, s.path, err)
	}
	keyDirs, err := os.ReadDir(s.path)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: %s: %v", data.ErrIO, s.path, err)
	}

	entries := make(map[string]string)
	latest := dirInfo.ModTime()

	for _, keyDir := range keyDirs {
		if !keyDir.IsDir() {
			continue
		}
		key := keyDir.Name()

		if info, err := keyDir.Info(); err == nil && info.ModTime().After(latest) {
			latest = info.ModTime()
		}

		versions, newest, err := s.loadVersions(key)
		if err != nil {
			return nil, time.Time{}, err
		}
		if len(versions) == 0 {
			continue
		}

		entries[key] = versions[len(versions)-1].Value
		if newest.After(latest) {
			latest = newest
		}
	}

	return entries, latest, nil
}

// loadVersions reads every version file of one key, sorted ascending by
// (version, writer). Also reports the newest file modification time.
func (s *FolderStorage) loadVersions(key string) ([]Version, time.Time, error) {
	keyPath := filepath.Join(s.path, key)
	files, err := os.ReadDir(keyPath)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: %s: %v", data.ErrIO, keyPath, err)
	}

	var versions []Version
	var newest time.Time

	for _, file := range files {
		if file.IsDir() {
			continue
		}

		filePath := filepath.Join(keyPath, file.Name())
		raw, err := os.ReadFile(filePath)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("%w: %s: %v", data.ErrIO, filePath, err)
		}

		var version Version
		if err := json.Unmarshal(raw, &version); err != nil {
			return nil, time.Time{}, fmt.Errorf("%w: %s: %s: %v", data.ErrStorage, s.label, filePath, err)
		}
		versions = append(versions, version)

		if info, err := file.Info(); err == nil && info.ModTime().After(newest) {
			newest = info.ModTime()
		}
	}

	sort.Slice(versions, func(i, j int) bool {
		if versions[i].Number != versions[j].Number {
			return versions[i].Number < versions[j].Number
		}
		return versions[i].Writer < versions[j].Writer
	})

	return versions, newest, nil
}

// Versions reconstructs the mutation history of one key across all
// writers, ascending by version. ErrNotFound if the key has never been
// written to disk.
func (s *FolderStorage) Versions(key string) ([]Version, error) {
	if _, err := os.Stat(filepath.Join(s.path, key)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: key %q in %s", data.ErrNotFound, key, s.label)
		}
		return nil, fmt.Errorf("%w: %s: %v", data.ErrIO, s.path, err)
	}

	versions, _, err := s.loadVersions(key)
	return versions, err
}

// reload replaces the in-memory mapping with the on-disk one.
func (s *FolderStorage) reload() error {
	entries, diskTime, err := s.load()
	if err != nil {
		return err
	}

	s.replaceEntries(entries)
	s.markClean(diskTime)
	return nil
}

func (s *FolderStorage) Write() error {
	if err := os.MkdirAll(s.path, 0755); err != nil {
		return fmt.Errorf("%w: %s: %v", data.ErrIO, s.path, err)
	}

	// Removed keys lose their whole folder; per-version tombstones are
	// not kept.
	for key := range s.removed {
		keyPath := filepath.Join(s.path, key)
		if err := os.RemoveAll(keyPath); err != nil {
			return fmt.Errorf("%w: %s: %v", data.ErrIO, keyPath, err)
		}
	}

	// Only keys mutated since the last agreement point get a new
	// version file; untouched keys keep their lineage as-is.
	now := time.Now()
	for key := range s.pending {
		value, ok := s.entries.Get(key)
		if !ok {
			continue
		}
		if err := s.writeVersion(key, value, now); err != nil {
			return err
		}
	}

	if err := os.Chtimes(s.path, now, now); err != nil {
		return fmt.Errorf("%w: %s: %v", data.ErrIO, s.path, err)
	}

	_, diskTime, err := s.load()
	if err != nil {
		return err
	}
	if diskTime.IsZero() {
		diskTime = now
	}
	s.markClean(diskTime)

	s.log.Debug("%s wrote %d entries to %s", s.label, s.Len(), s.path)
	return nil
}

// writeVersion appends one version file for key, continuing this writer's
// lineage past the highest version present on disk.
func (s *FolderStorage) writeVersion(key, value string, now time.Time) error {
	keyPath := filepath.Join(s.path, key)
	if err := os.MkdirAll(keyPath, 0755); err != nil {
		return fmt.Errorf("%w: %s: %v", data.ErrIO, keyPath, err)
	}

	next := 1
	if versions, _, err := s.loadVersions(key); err == nil && len(versions) > 0 {
		next = versions[len(versions)-1].Number + 1
	}

	raw, err := json.Marshal(Version{
		Writer:    s.writer,
		Number:    next,
		Timestamp: now,
		Value:     value,
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", data.ErrStorage, s.label, err)
	}

	target := filepath.Join(keyPath, fmt.Sprintf("%s_%s.%d", key, s.writer, next))

	tmp, err := os.CreateTemp(keyPath, ".version-*")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", data.ErrIO, keyPath, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
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

	return os.Chtimes(target, now, now)
}

func (s *FolderStorage) Read() (map[string]string, error) {
	entries, _, err := s.load()
	return entries, err
}

func (s *FolderStorage) Status() (SyncStatus, error) {
	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !s.synced {
			return s.classify(time.Time{}), nil
		}
		return InSync, fmt.Errorf("%w: %s: %v", data.ErrIO, s.path, err)
	}

	_, diskTime, err := s.load()
	if err != nil {
		return InSync, err
	}
	return s.classify(diskTime), nil
}

func (s *FolderStorage) Sync() error {
	status, err := s.Status()
	if err != nil {
		return err
	}

	switch status {
	case InSync:
		return nil
	case MappingStale:
		return s.Write()
	case StorageStale:
		return s.reload()
	default:
		return fmt.Errorf("%w: %s", data.ErrDiverge, s.label)
	}
}

func (s *FolderStorage) Erase() error {
	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", data.ErrNotFound, s.path)
		}
		return fmt.Errorf("%w: %s: %v", data.ErrIO, s.path, err)
	}
	if err := os.RemoveAll(s.path); err != nil {
		return fmt.Errorf("%w: %s: %v", data.ErrIO, s.path, err)
	}
	s.synced = false
	return nil
}

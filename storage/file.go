package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/mwantia/resfs/data"
)

const storageVersion = 3

// fileData is the serialized form of a FileStorage: a version marker and
// the full key-value mapping in one JSON object.
type fileData struct {
	Version int               `json:"version"`
	Entries map[string]string `json:"entries"`
}

// FileStorage persists the whole mapping in a single JSON file. The
// simplest layout; suited for storages written by one device at a time,
// such as tags and scores.
type FileStorage struct {
	table
}

// NewFileStorage opens or initializes a file-backed storage at path. An
// existing file is loaded; a missing file leaves the storage empty until
// the first Write. The parent directory must exist.
func NewFileStorage(label, path string, opts ...Option) (*FileStorage, error) {
	options := newDefaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	parent := filepath.Dir(path)
	if _, err := os.Stat(parent); err != nil {
		return nil, fmt.Errorf("%w: parent of %s: %v", data.ErrIO, path, err)
	}

	storage := &FileStorage{
		table: newTable(label, path, options),
	}

	if fi, err := os.Stat(path); err == nil {
		if fi.IsDir() {
			return nil, fmt.Errorf("%w: %s is a directory", data.ErrIO, path)
		}
		if err := storage.reload(); err != nil {
			return nil, err
		}
		storage.log.Debug("%s loaded %d entries from %s", label, storage.Len(), path)
	}

	return storage, nil
}

// load parses the backing file without touching the in-memory state.
func (s *FileStorage) load() (map[string]string, time.Time, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, time.Time{}, fmt.Errorf("%w: %s", data.ErrNotFound, s.path)
		}
		return nil, time.Time{}, fmt.Errorf("%w: %s: %v", data.ErrIO, s.path, err)
	}

	var parsed fileData
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: %s: %v", data.ErrStorage, s.label, err)
	}
	if parsed.Version != storageVersion {
		return nil, time.Time{}, fmt.Errorf("%w: %s: version mismatch, expected %d got %d",
			data.ErrStorage, s.label, storageVersion, parsed.Version)
	}
	if parsed.Entries == nil {
		parsed.Entries = make(map[string]string)
	}

	fi, err := os.Stat(s.path)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: %s: %v", data.ErrIO, s.path, err)
	}

	return parsed.Entries, fi.ModTime(), nil
}

// reload replaces the in-memory mapping with the on-disk one.
func (s *FileStorage) reload() error {
	entries, diskTime, err := s.load()
	if err != nil {
		return err
	}

	s.replaceEntries(entries)
	s.markClean(diskTime)
	return nil
}

func (s *FileStorage) Write() error {
	raw, err := json.MarshalIndent(fileData{
		Version: storageVersion,
		Entries: s.snapshot(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", data.ErrStorage, s.label, err)
	}

	// Write-then-rename so a crash mid-write never corrupts the prior
	// committed state.
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", data.ErrIO, s.path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", data.ErrIO, s.path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", data.ErrIO, s.path, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", data.ErrIO, s.path, err)
	}

	// Bump the modification time explicitly; rapid successive writes can
	// otherwise land inside the filesystem's timestamp granularity.
	now := time.Now()
	if err := os.Chtimes(s.path, now, now); err != nil {
		return fmt.Errorf("%w: %s: %v", data.ErrIO, s.path, err)
	}

	fi, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", data.ErrIO, s.path, err)
	}
	s.markClean(fi.ModTime())

	s.log.Debug("%s wrote %d entries to %s", s.label, s.Len(), s.path)
	return nil
}

func (s *FileStorage) Read() (map[string]string, error) {
	entries, _, err := s.load()
	return entries, err
}

func (s *FileStorage) Status() (SyncStatus, error) {
	fi, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !s.synced {
			// Never written; only the in-memory side can be dirty.
			return s.classify(time.Time{}), nil
		}
		return InSync, fmt.Errorf("%w: %s: %v", data.ErrIO, s.path, err)
	}
	return s.classify(fi.ModTime()), nil
}

func (s *FileStorage) Sync() error {
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

func (s *FileStorage) Erase() error {
	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", data.ErrNotFound, s.path)
		}
		return fmt.Errorf("%w: %s: %v", data.ErrIO, s.path, err)
	}
	if err := os.Remove(s.path); err != nil {
		return fmt.Errorf("%w: %s: %v", data.ErrIO, s.path, err)
	}
	s.synced = false
	return nil
}

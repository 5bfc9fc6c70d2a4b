// Package resfs turns a plain directory into a vault: a tree of
// resources identified by content rather than by path, with an index
// kept under the hidden control directory, user metadata (tags, scores,
// properties) in file-backed storages, and a budgeted cache for derived
// artifacts. Everything a vault knows lives inside the tree itself, so
// copying the directory copies the vault.
package resfs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/mwantia/resfs/cache"
	"github.com/mwantia/resfs/data"
	"github.com/mwantia/resfs/index"
	"github.com/mwantia/resfs/log"
	"github.com/mwantia/resfs/storage"
	"github.com/mwantia/resfs/watch"
)

type Vault struct {
	root     string
	scheme   data.IDScheme
	deviceID string
	log      *log.Logger

	index      *index.Index
	tags       *storage.FileStorage
	scores     *storage.FileStorage
	properties *storage.FolderStorage
	artifacts  *cache.Cache

	watcher  *watch.Watcher
	provider watch.Provider
}

// Open provisions a vault over the given directory, creating the
// control directory on first use and bringing a previously stored index
// up to date. The reported changes are what happened to the tree since
// the vault was last open; a first open reports none.
func Open(root string, opts ...VaultOption) (*Vault, []index.Change, error) {
	options := newDefaultVaultOptions()
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, nil, err
		}
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", data.ErrIO, root, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %s", data.ErrNotFound, absRoot)
		}
		return nil, nil, fmt.Errorf("%w: %s: %v", data.ErrIO, absRoot, err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("%w: %s is not a directory", data.ErrIO, absRoot)
	}

	logger := log.NewLogger("resfs", options.LogLevel, options.LogFile, options.NoTerminalLog)

	for _, dir := range []string{
		filepath.Join(absRoot, data.ArkFolder, filepath.Dir(data.TagsFile)),
		filepath.Join(absRoot, data.ArkFolder, data.CacheFolder),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, nil, fmt.Errorf("%w: %s: %v", data.ErrIO, dir, err)
		}
	}

	deviceID, err := loadDeviceID(absRoot)
	if err != nil {
		return nil, nil, err
	}

	ix, changes, err := index.Provide(absRoot, options.Scheme, index.WithLogger(logger.Named("index")))
	if err != nil {
		return nil, nil, err
	}

	tags, err := storage.NewFileStorage("tags",
		filepath.Join(absRoot, data.ArkFolder, data.TagsFile),
		storage.WithLogger(logger.Named("tags")))
	if err != nil {
		return nil, nil, err
	}

	scores, err := storage.NewFileStorage("scores",
		filepath.Join(absRoot, data.ArkFolder, data.ScoresFile),
		storage.WithLogger(logger.Named("scores")),
		storage.WithMonoid(storage.MaxNumeric))
	if err != nil {
		return nil, nil, err
	}

	properties, err := storage.NewFolderStorage("properties",
		filepath.Join(absRoot, data.ArkFolder, data.PropertiesFolder),
		deviceID,
		storage.WithLogger(logger.Named("properties")))
	if err != nil {
		return nil, nil, err
	}

	artifacts, err := cache.Open(
		filepath.Join(absRoot, data.ArkFolder, data.CacheFile),
		cache.WithLogger(logger.Named("cache")),
		cache.WithLimit(options.CacheLimit))
	if err != nil {
		return nil, nil, err
	}

	logger.Info("vault open at %s: %d resources, device %s", absRoot, ix.Len(), deviceID)

	return &Vault{
		root:       absRoot,
		scheme:     options.Scheme,
		deviceID:   deviceID,
		log:        logger,
		index:      ix,
		tags:       tags,
		scores:     scores,
		properties: properties,
		artifacts:  artifacts,
	}, changes, nil
}

// loadDeviceID reads the per-device writer identity, minting one on
// first open. The id names this device's version lineage in folder
// storages and must stay stable across opens.
func loadDeviceID(root string) (string, error) {
	path := filepath.Join(root, data.ArkFolder, data.DeviceFile)

	raw, err := os.ReadFile(path)
	if err == nil {
		id := strings.TrimSpace(string(raw))
		if id != "" {
			return id, nil
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s: %v", data.ErrIO, path, err)
	}

	id := uuid.NewString()
	if err := os.WriteFile(path, []byte(id+"\n"), 0644); err != nil {
		return "", fmt.Errorf("%w: %s: %v", data.ErrIO, path, err)
	}
	return id, nil
}

func (v *Vault) Root() string {
	return v.root
}

func (v *Vault) DeviceID() string {
	return v.deviceID
}

func (v *Vault) Scheme() data.IDScheme {
	return v.scheme
}

func (v *Vault) Index() *index.Index {
	return v.index
}

// Tags maps resource ids to comma-separated tag lists.
func (v *Vault) Tags() *storage.FileStorage {
	return v.tags
}

// Scores maps resource ids to numeric scores; merges keep the maximum.
func (v *Vault) Scores() *storage.FileStorage {
	return v.scores
}

// Properties maps resource ids to structured values with per-device
// version history.
func (v *Vault) Properties() *storage.FolderStorage {
	return v.properties
}

// Cache stores derived artifacts keyed by resource id.
func (v *Vault) Cache() *cache.Cache {
	return v.artifacts
}

// Update rescans the tree, persists the refreshed index and returns
// what changed. Not allowed while a watcher is running.
func (v *Vault) Update() ([]index.Change, error) {
	if v.watcher != nil {
		return nil, fmt.Errorf("resfs: vault at %s is being watched", v.root)
	}

	changes, err := v.index.UpdateAll()
	if err != nil {
		return nil, err
	}
	if err := v.index.Store(); err != nil {
		return nil, err
	}
	return changes, nil
}

// Sync reconciles every metadata storage with its backing files.
func (v *Vault) Sync() error {
	return errors.Join(
		v.tags.Sync(),
		v.scores.Sync(),
		v.properties.Sync(),
	)
}

// Watch starts keeping the index current in the background and returns
// the stream of applied change batches. The index must not be mutated
// by the caller until Unwatch or Close.
func (v *Vault) Watch(opts ...watch.Option) (<-chan []index.Change, error) {
	if v.watcher != nil {
		return nil, fmt.Errorf("resfs: vault at %s is already being watched", v.root)
	}

	opts = append([]watch.Option{watch.WithLogger(v.log.Named("watch"))}, opts...)

	provider, err := watch.NewPollProvider(v.root, opts...)
	if err != nil {
		return nil, err
	}

	watcher := watch.New(v.index, provider, opts...)
	watcher.Start()

	v.watcher = watcher
	v.provider = provider
	return watcher.Changes(), nil
}

// Unwatch stops background watching and persists the index state the
// watcher accumulated.
func (v *Vault) Unwatch() error {
	if v.watcher == nil {
		return nil
	}

	err := v.provider.Close()
	v.watcher.Stop()
	v.watcher = nil
	v.provider = nil

	return errors.Join(err, v.index.Store())
}

// Close flushes all vault state: stops watching, syncs the metadata
// storages, stores the index and releases the cache.
func (v *Vault) Close() error {
	errs := []error{
		v.Unwatch(),
		v.Sync(),
		v.index.Store(),
		v.artifacts.Close(),
	}

	v.log.Debug("vault at %s closed", v.root)
	return errors.Join(errs...)
}

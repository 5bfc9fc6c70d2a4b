package watch

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/mwantia/resfs/data"
	"github.com/mwantia/resfs/log"
)

// Event is one raw path-level observation: something at this
// root-relative path may have changed. Events carry no change kind; the
// index decides what actually happened when it rescans the path.
type Event struct {
	Path string
}

// Provider is a source of raw filesystem events for one root. The
// channel is closed when the provider shuts down.
type Provider interface {
	Events() <-chan Event
	Close() error
}

type stamp struct {
	modified time.Time
	size     int64
}

// PollProvider detects changes by periodically walking the root and
// diffing modification times and sizes against the previous walk.
// Portable and dependency-free, at the cost of detection latency
// bounded by the polling interval.
type PollProvider struct {
	root     string
	interval time.Duration
	log      *log.Logger

	events chan Event
	stop   chan struct{}
	done   chan struct{}
}

// NewPollProvider takes the initial snapshot and starts polling.
func NewPollProvider(root string, opts ...Option) (*PollProvider, error) {
	options := newDefaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", data.ErrIO, root, err)
	}

	provider := &PollProvider{
		root:     absRoot,
		interval: options.Interval,
		log:      options.Logger,
		events:   make(chan Event, 64),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	prev, err := provider.snapshot()
	if err != nil {
		return nil, err
	}

	go provider.loop(prev)
	return provider, nil
}

func (p *PollProvider) Events() <-chan Event {
	return p.events
}

// Close stops polling and closes the event channel. Safe to call once.
func (p *PollProvider) Close() error {
	close(p.stop)
	<-p.done
	return nil
}

func (p *PollProvider) loop(prev map[string]stamp) {
	defer close(p.done)
	defer close(p.events)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			next, err := p.snapshot()
			if err != nil {
				p.log.Warn("poll failed: %v", err)
				continue
			}
			for _, path := range diff(prev, next) {
				select {
				case p.events <- Event{Path: path}:
				case <-p.stop:
					return
				}
			}
			prev = next
		}
	}
}

// snapshot stamps every visible regular file under the root. Hidden
// entries are skipped, matching the index walk.
func (p *PollProvider) snapshot() (map[string]stamp, error) {
	stamps := make(map[string]stamp)

	walkErr := filepath.WalkDir(p.root, func(path string, dirent fs.DirEntry, err error) error {
		if err != nil {
			if path == p.root {
				return fmt.Errorf("%w: %s: %v", data.ErrScan, p.root, err)
			}
			if dirent != nil && dirent.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		name := dirent.Name()
		if path != p.root && strings.HasPrefix(name, ".") {
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
			return nil
		}
		rel, err := filepath.Rel(p.root, path)
		if err != nil {
			return nil
		}

		stamps[rel] = stamp{modified: info.ModTime(), size: info.Size()}
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	return stamps, nil
}

// diff returns every path present in exactly one snapshot or stamped
// differently in the two.
func diff(prev, next map[string]stamp) []string {
	var paths []string
	for path, now := range next {
		old, ok := prev[path]
		if !ok || old != now {
			paths = append(paths, path)
		}
	}
	for path := range prev {
		if _, ok := next[path]; !ok {
			paths = append(paths, path)
		}
	}
	return paths
}

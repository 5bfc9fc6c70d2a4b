// Package watch keeps a resource index current while the underlying
// tree changes. A Provider turns filesystem activity into raw path
// events; the Watcher debounces them over a quiescence window, rescans
// each settled path exactly once, and emits the resulting change
// batches.
package watch

import (
	"sort"
	"time"

	"github.com/mwantia/resfs/index"
	"github.com/mwantia/resfs/log"
)

// Watcher drives targeted index updates from provider events.
//
// It runs a small state machine: idle until the first event arrives,
// then debouncing while events keep landing inside the quiescence
// window, then applying once the tree goes quiet. Applying rescans
// each distinct pending path once, in sorted order, so an editor that
// touches the same file twenty times costs one rehash.
//
// The watcher owns the index for its lifetime. Callers must not mutate
// the index between Start and Stop; reads are safe only after Stop
// returns.
type Watcher struct {
	index    *index.Index
	provider Provider
	log      *log.Logger
	quiesce  time.Duration

	out  chan []index.Change
	stop chan struct{}
	done chan struct{}
}

// New wires a watcher to an index and an event provider. The watcher
// does not start until Start is called and does not own the provider;
// closing the provider is the caller's job.
func New(ix *index.Index, provider Provider, opts ...Option) *Watcher {
	options := newDefaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	buffer := options.Buffer
	if buffer < 1 {
		buffer = 1
	}

	return &Watcher{
		index:    ix,
		provider: provider,
		log:      options.Logger,
		quiesce:  options.Quiesce,
		out:      make(chan []index.Change, buffer),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Changes returns the stream of applied change batches. The channel is
// closed after Stop returns; a closed channel therefore means no
// further index mutations will happen.
func (w *Watcher) Changes() <-chan []index.Change {
	return w.out
}

// Start begins consuming provider events.
func (w *Watcher) Start() {
	go w.loop()
}

// Stop halts the watcher and waits for the loop to exit. Pending
// not-yet-applied paths are discarded; nothing is emitted after Stop
// returns.
func (w *Watcher) Stop() {
	close(w.stop)
	<-w.done
	close(w.out)
}

func (w *Watcher) loop() {
	defer close(w.done)

	var timer *time.Timer
	var timerC <-chan time.Time
	pending := make(map[string]struct{})

	resetTimer := func() {
		if timer == nil {
			timer = time.NewTimer(w.quiesce)
			timerC = timer.C
			return
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(w.quiesce)
	}

	for {
		select {
		case <-w.stop:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.provider.Events():
			if !ok {
				// Provider shut down. Apply what already settled
				// and exit.
				if len(pending) > 0 {
					if changes := w.apply(pending); len(changes) > 0 {
						w.emit(changes)
					}
				}
				if timer != nil {
					timer.Stop()
				}
				return
			}
			pending[event.Path] = struct{}{}
			resetTimer()

		case <-timerC:
			timer = nil
			timerC = nil
			changes := w.apply(pending)
			pending = make(map[string]struct{})
			if len(changes) > 0 {
				w.emit(changes)
			}
		}
	}
}

// apply rescans every pending path once and collects the real changes.
// Paths that error are logged and skipped; the next event for them
// gets another chance.
func (w *Watcher) apply(pending map[string]struct{}) []index.Change {
	paths := make([]string, 0, len(pending))
	for path := range pending {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var changes []index.Change
	for _, path := range paths {
		change, err := w.index.UpdateOne(path)
		if err != nil {
			w.log.Warn("rescan %s failed: %v", path, err)
			continue
		}
		if change != nil {
			changes = append(changes, *change)
		}
	}

	if len(changes) > 0 {
		w.log.Debug("applied %d changes", len(changes))
	}
	return changes
}

// emit delivers a batch without ever blocking the loop. If the consumer
// lags and the buffer is full, the oldest undelivered batch is folded
// into this one, so a slow consumer sees coarser batches rather than
// stalling index maintenance.
func (w *Watcher) emit(changes []index.Change) {
	for {
		select {
		case w.out <- changes:
			return
		default:
			select {
			case old := <-w.out:
				changes = append(old, changes...)
			default:
			}
		}
	}
}

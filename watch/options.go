package watch

import (
	"time"

	"github.com/mwantia/resfs/log"
)

// Options configure providers and watchers.
type Options struct {
	Logger *log.Logger

	// Quiesce is how long the tree has to stay silent after the last
	// observed event before pending paths are applied to the index.
	Quiesce time.Duration

	// Interval is the polling period of PollProvider.
	Interval time.Duration

	// Buffer is the capacity of the emitted change-batch channel. When
	// a consumer falls behind, older batches are folded into newer ones
	// instead of blocking the watcher.
	Buffer int
}

type Option func(*Options)

func WithLogger(logger *log.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

func WithQuiesce(d time.Duration) Option {
	return func(o *Options) {
		o.Quiesce = d
	}
}

func WithInterval(d time.Duration) Option {
	return func(o *Options) {
		o.Interval = d
	}
}

func WithBuffer(n int) Option {
	return func(o *Options) {
		o.Buffer = n
	}
}

func newDefaultOptions() *Options {
	return &Options{
		Logger:   log.Discard(),
		Quiesce:  250 * time.Millisecond,
		Interval: 2 * time.Second,
		Buffer:   16,
	}
}

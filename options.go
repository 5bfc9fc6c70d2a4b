package resfs

import (
	"github.com/mwantia/resfs/data"
	"github.com/mwantia/resfs/log"
)

type VaultOptions struct {
	Scheme        data.IDScheme
	LogLevel      log.LogLevel
	LogFile       string
	NoTerminalLog bool

	// CacheLimit bounds the artifact cache in bytes. Zero disables
	// eviction.
	CacheLimit int64
}

type VaultOption func(*VaultOptions) error

func newDefaultVaultOptions() *VaultOptions {
	return &VaultOptions{
		Scheme:        data.CRC32Scheme{},
		LogLevel:      log.Info,
		NoTerminalLog: true,
	}
}

// WithScheme selects the id scheme used for new and updated resources.
// A vault must always be opened with the scheme it was indexed with;
// mixing schemes invalidates the stored index.
func WithScheme(scheme data.IDScheme) VaultOption {
	return func(opts *VaultOptions) error {
		opts.Scheme = scheme
		return nil
	}
}

func WithLogLevel(logLevel log.LogLevel) VaultOption {
	return func(opts *VaultOptions) error {
		opts.LogLevel = logLevel
		return nil
	}
}

func WithLogFile(logFile string) VaultOption {
	return func(opts *VaultOptions) error {
		opts.LogFile = logFile
		return nil
	}
}

func WithTerminalLog() VaultOption {
	return func(opts *VaultOptions) error {
		opts.NoTerminalLog = false
		return nil
	}
}

func WithCacheLimit(bytes int64) VaultOption {
	return func(opts *VaultOptions) error {
		opts.CacheLimit = bytes
		return nil
	}
}

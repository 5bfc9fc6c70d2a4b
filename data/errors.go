package data

import "errors"

// Standard resfs errors. Subsystems wrap these with fmt.Errorf("%w: ...")
// so callers can classify failures with errors.Is while still seeing the
// label or path that produced them.
var (
	// Filesystem-level failures: permission denied, missing parent
	// directory, target is a directory, and similar.
	ErrIO = errors.New("resfs: i/o failure")

	// A key, path or id was absent where presence was required.
	ErrNotFound = errors.New("resfs: not found")

	// On-disk content exists but could not be understood (invalid
	// JSON, version mismatch, malformed record).
	ErrStorage = errors.New("resfs: malformed storage")

	// In-memory and on-disk state changed independently and neither
	// side may be discarded without caller intervention.
	ErrDiverge = errors.New("resfs: storage diverged")

	// Unrecoverable directory traversal failure during an index scan.
	ErrScan = errors.New("resfs: scan failed")

	// Malformed resource identifier string.
	ErrInvalidID = errors.New("resfs: invalid resource id")

	// Lifecycle errors
	ErrClosed  = errors.New("resfs: already closed")
	ErrStopped = errors.New("resfs: watcher stopped")
)

package data

// ResourceID is the canonical, content-derived identifier of a resource.
// Two files with identical bytes always yield identical ids, regardless of
// their names or locations. The canonical string form defines equality,
// ordering and hashing, so ids from the same scheme can be used directly
// as map keys and compared with <.
type ResourceID string

func (id ResourceID) String() string {
	return string(id)
}

// IDScheme computes and parses resource identifiers. A scheme is a
// capability contract: any type that can derive an id deterministically
// from file bytes and round-trip it through the canonical string form is
// a valid scheme. The index is parameterized over this interface, never
// over a concrete hash function.
type IDScheme interface {
	// Name identifies the scheme (e.g. "crc32", "blake3"). Ids from
	// different schemes are never comparable.
	Name() string

	// ComputeBytes derives the id of the given content.
	ComputeBytes(b []byte) (ResourceID, error)

	// ComputeFile derives the id of the file's content. The file is
	// streamed, not loaded into memory.
	ComputeFile(path string) (ResourceID, error)

	// Parse validates a canonical string form and returns the id.
	// Returns ErrInvalidID if the string does not belong to this scheme.
	Parse(s string) (ResourceID, error)
}

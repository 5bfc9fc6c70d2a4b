package data

// Layout of the hidden control directory kept inside every indexed root.
// All durable state of a vault lives under <root>/.ark; the index walk
// skips it like any other dot-prefixed entry.
const (
	ArkFolder = ".ark"

	// Generated data, safe to rebuild. Derived artifacts of every kind
	// (extracted metadata, previews) share one cache database.
	IndexFile   = "index"
	CacheFolder = "cache"
	CacheFile   = "cache/metadata.db"

	// User-defined data, must not be lost.
	TagsFile         = "user/tags"
	ScoresFile       = "user/scores"
	PropertiesFolder = "user/properties"

	// Per-device writer identity.
	DeviceFile = "device"
)

package builtin

import (
	"fmt"

	"github.com/mwantia/resfs"
	"github.com/mwantia/resfs/data"
)

// resolveID maps a vault path to the id of the resource currently
// stored there.
func resolveID(vault *resfs.Vault, path string) (data.ResourceID, error) {
	id, ok := vault.Index().IDByPath(path)
	if !ok {
		return "", fmt.Errorf("%w: %s is not indexed", data.ErrNotFound, path)
	}
	return id, nil
}

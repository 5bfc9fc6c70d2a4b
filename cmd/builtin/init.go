package builtin

import (
	"errors"

	"github.com/mwantia/resfs/cmd"
)

// InitBuiltin registers every builtin command on the registry.
func InitBuiltin(registry *cmd.Registry) error {
	return errors.Join(
		registry.Register(&IndexCommand{}),
		registry.Register(&ListCommand{}),
		registry.Register(&TagCommand{}),
		registry.Register(&ScoreCommand{}),
		registry.Register(&PropCommand{}),
		registry.Register(&SyncCommand{}),
		registry.Register(&WatchCommand{}),
	)
}

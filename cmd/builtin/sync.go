package builtin

import (
	"context"
	"fmt"
	"io"

	"github.com/mwantia/resfs"
	"github.com/mwantia/resfs/cmd"
	"github.com/mwantia/resfs/storage"
)

// SyncCommand reconciles every metadata storage with its backing files
// and reports the state each one was in.
type SyncCommand struct {
}

func (sc *SyncCommand) Name() string {
	return "sync"
}

func (sc *SyncCommand) Description() string {
	return "Reconcile metadata storages with their backing files"
}

func (sc *SyncCommand) Usage() string {
	return "sync"
}

func (sc *SyncCommand) Execute(ctx context.Context, vault *resfs.Vault, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	storages := []storage.Storage{
		vault.Tags(),
		vault.Scores(),
		vault.Properties(),
	}

	code := 0
	for _, st := range storages {
		status, err := st.Status()
		if err != nil {
			return 1, err
		}

		if err := st.Sync(); err != nil {
			fmt.Fprintf(writer, "%-12s %-14s sync failed: %v\n", st.Label(), status, err)
			code = 1
			continue
		}
		fmt.Fprintf(writer, "%-12s %-14s ok\n", st.Label(), status)
	}

	return code, nil
}

func (sc *SyncCommand) GetFlags() *cmd.CommandFlagSet {
	return nil
}

package builtin

import (
	"context"
	"fmt"
	"io"

	"github.com/mwantia/resfs"
	"github.com/mwantia/resfs/cmd"
)

// IndexCommand rescans the vault and reports what changed.
type IndexCommand struct {
}

func (ic *IndexCommand) Name() string {
	return "index"
}

func (ic *IndexCommand) Description() string {
	return "Rescan the vault and update the resource index"
}

func (ic *IndexCommand) Usage() string {
	return "index"
}

func (ic *IndexCommand) Execute(ctx context.Context, vault *resfs.Vault, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	changes, err := vault.Update()
	if err != nil {
		return 1, err
	}

	for _, change := range changes {
		fmt.Fprintln(writer, change)
	}
	fmt.Fprintf(writer, "%d resources indexed, %d changes\n", vault.Index().Len(), len(changes))
	return 0, nil
}

func (ic *IndexCommand) GetFlags() *cmd.CommandFlagSet {
	return nil
}

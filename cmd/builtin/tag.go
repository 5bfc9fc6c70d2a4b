package builtin

import (
	"context"
	"fmt"
	"io"

	"github.com/mwantia/resfs"
	"github.com/mwantia/resfs/cmd"
)

// TagCommand reads or writes the tag list of one resource. Tags follow
// the content: retagging a file retags every path with the same bytes.
type TagCommand struct {
}

func (tc *TagCommand) Name() string {
	return "tag"
}

func (tc *TagCommand) Description() string {
	return "Show or set the tags of a resource"
}

func (tc *TagCommand) Usage() string {
	return "tag <path> [tags] [--remove]"
}

func (tc *TagCommand) Execute(ctx context.Context, vault *resfs.Vault, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	if len(args.Args) < 1 {
		return 1, fmt.Errorf("usage: %s", tc.Usage())
	}

	id, err := resolveID(vault, args.Args[0])
	if err != nil {
		return 1, err
	}

	if args.Bool("remove") {
		if err := vault.Tags().Remove(id.String()); err != nil {
			return 1, err
		}
		return 0, vault.Tags().Sync()
	}

	if len(args.Args) < 2 {
		tags, err := vault.Tags().Get(id.String())
		if err != nil {
			return 1, err
		}
		fmt.Fprintln(writer, tags)
		return 0, nil
	}

	vault.Tags().Set(id.String(), args.Args[1])
	return 0, vault.Tags().Sync()
}

func (tc *TagCommand) GetFlags() *cmd.CommandFlagSet {
	return &cmd.CommandFlagSet{
		Flags: map[string]*cmd.CommandFlag{
			"remove": {
				Name:        "remove",
				Short:       "r",
				Type:        "bool",
				Description: "Remove all tags from the resource",
			},
		},
	}
}

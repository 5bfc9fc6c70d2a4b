package builtin

import (
	"context"
	"fmt"
	"io"

	"github.com/mwantia/resfs"
	"github.com/mwantia/resfs/cmd"
)

// PropCommand reads or writes the structured properties of one
// resource. Properties live in versioned folder storage, so every write
// from every device stays recoverable.
type PropCommand struct {
}

func (pc *PropCommand) Name() string {
	return "prop"
}

func (pc *PropCommand) Description() string {
	return "Show or set the properties of a resource"
}

func (pc *PropCommand) Usage() string {
	return "prop <path> [value] [--history]"
}

func (pc *PropCommand) Execute(ctx context.Context, vault *resfs.Vault, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	if len(args.Args) < 1 {
		return 1, fmt.Errorf("usage: %s", pc.Usage())
	}

	id, err := resolveID(vault, args.Args[0])
	if err != nil {
		return 1, err
	}

	if args.Bool("history") {
		versions, err := vault.Properties().Versions(id.String())
		if err != nil {
			return 1, err
		}
		for _, version := range versions {
			fmt.Fprintf(writer, "v%d %s %s  %s\n",
				version.Number,
				version.Timestamp.Format("2006-01-02 15:04:05"),
				version.Writer,
				version.Value)
		}
		return 0, nil
	}

	if len(args.Args) < 2 {
		value, err := vault.Properties().Get(id.String())
		if err != nil {
			return 1, err
		}
		fmt.Fprintln(writer, value)
		return 0, nil
	}

	vault.Properties().Set(id.String(), args.Args[1])
	return 0, vault.Properties().Sync()
}

func (pc *PropCommand) GetFlags() *cmd.CommandFlagSet {
	return &cmd.CommandFlagSet{
		Flags: map[string]*cmd.CommandFlag{
			"history": {
				Name:        "history",
				Short:       "H",
				Type:        "bool",
				Description: "Show the full version history",
			},
		},
	}
}

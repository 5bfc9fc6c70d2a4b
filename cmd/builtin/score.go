package builtin

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/mwantia/resfs"
	"github.com/mwantia/resfs/cmd"
)

// ScoreCommand reads or writes the numeric score of one resource.
type ScoreCommand struct {
}

func (sc *ScoreCommand) Name() string {
	return "score"
}

func (sc *ScoreCommand) Description() string {
	return "Show or set the score of a resource"
}

func (sc *ScoreCommand) Usage() string {
	return "score <path> [value] [--remove]"
}

func (sc *ScoreCommand) Execute(ctx context.Context, vault *resfs.Vault, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	if len(args.Args) < 1 {
		return 1, fmt.Errorf("usage: %s", sc.Usage())
	}

	id, err := resolveID(vault, args.Args[0])
	if err != nil {
		return 1, err
	}

	if args.Bool("remove") {
		if err := vault.Scores().Remove(id.String()); err != nil {
			return 1, err
		}
		return 0, vault.Scores().Sync()
	}

	if len(args.Args) < 2 {
		score, err := vault.Scores().Get(id.String())
		if err != nil {
			return 1, err
		}
		fmt.Fprintln(writer, score)
		return 0, nil
	}

	value := args.Args[1]
	if _, err := strconv.ParseInt(value, 10, 64); err != nil {
		return 1, fmt.Errorf("score must be an integer, got %q", value)
	}

	vault.Scores().Set(id.String(), value)
	return 0, vault.Scores().Sync()
}

func (sc *ScoreCommand) GetFlags() *cmd.CommandFlagSet {
	return &cmd.CommandFlagSet{
		Flags: map[string]*cmd.CommandFlag{
			"remove": {
				Name:        "remove",
				Short:       "r",
				Type:        "bool",
				Description: "Remove the score from the resource",
			},
		},
	}
}

package builtin

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/mwantia/resfs"
	"github.com/mwantia/resfs/cmd"
	"github.com/mwantia/resfs/data"
)

// ListCommand prints the indexed resources, optionally with their
// metadata.
type ListCommand struct {
}

func (lc *ListCommand) Name() string {
	return "list"
}

func (lc *ListCommand) Description() string {
	return "List indexed resources and their ids"
}

func (lc *ListCommand) Usage() string {
	return "list [--tags] [--scores] [--collisions]"
}

func (lc *ListCommand) Execute(ctx context.Context, vault *resfs.Vault, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	if args.Bool("collisions") {
		for id, count := range vault.Index().Collisions() {
			fmt.Fprintf(writer, "%s held by %d paths:\n", id, count)
			for _, path := range vault.Index().PathsByID(id) {
				fmt.Fprintf(writer, "  %s\n", path)
			}
		}
		return 0, nil
	}

	for _, path := range vault.Index().Paths() {
		id, _ := vault.Index().IDByPath(path)
		line := fmt.Sprintf("%s  %s", id, path)

		if args.Bool("tags") {
			if tags, err := vault.Tags().Get(id.String()); err == nil {
				line += fmt.Sprintf("  [%s]", tags)
			} else if !errors.Is(err, data.ErrNotFound) {
				return 1, err
			}
		}
		if args.Bool("scores") {
			if score, err := vault.Scores().Get(id.String()); err == nil {
				line += fmt.Sprintf("  score=%s", score)
			} else if !errors.Is(err, data.ErrNotFound) {
				return 1, err
			}
		}

		fmt.Fprintln(writer, line)
	}
	return 0, nil
}

func (lc *ListCommand) GetFlags() *cmd.CommandFlagSet {
	return &cmd.CommandFlagSet{
		Flags: map[string]*cmd.CommandFlag{
			"tags": {
				Name:        "tags",
				Short:       "t",
				Type:        "bool",
				Description: "Show tags next to each resource",
			},
			"scores": {
				Name:        "scores",
				Short:       "s",
				Type:        "bool",
				Description: "Show scores next to each resource",
			},
			"collisions": {
				Name:        "collisions",
				Short:       "c",
				Type:        "bool",
				Description: "Show only ids held by multiple paths",
			},
		},
	}
}

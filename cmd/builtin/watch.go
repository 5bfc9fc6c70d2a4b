package builtin

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mwantia/resfs"
	"github.com/mwantia/resfs/cmd"
	"github.com/mwantia/resfs/watch"
)

// WatchCommand keeps the index current until interrupted, printing each
// applied change batch.
type WatchCommand struct {
}

func (wc *WatchCommand) Name() string {
	return "watch"
}

func (wc *WatchCommand) Description() string {
	return "Watch the vault and apply changes as they happen"
}

func (wc *WatchCommand) Usage() string {
	return "watch [--interval ms] [--quiesce ms]"
}

func (wc *WatchCommand) Execute(ctx context.Context, vault *resfs.Vault, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	interval := time.Duration(args.Int("interval", 2000)) * time.Millisecond
	quiesce := time.Duration(args.Int("quiesce", 250)) * time.Millisecond

	changes, err := vault.Watch(
		watch.WithInterval(interval),
		watch.WithQuiesce(quiesce))
	if err != nil {
		return 1, err
	}

	fmt.Fprintf(writer, "watching %s\n", vault.Root())

	for {
		select {
		case <-ctx.Done():
			return 0, vault.Unwatch()
		case batch, ok := <-changes:
			if !ok {
				return 0, nil
			}
			for _, change := range batch {
				fmt.Fprintln(writer, change)
			}
		}
	}
}

func (wc *WatchCommand) GetFlags() *cmd.CommandFlagSet {
	return &cmd.CommandFlagSet{
		Flags: map[string]*cmd.CommandFlag{
			"interval": {
				Name:        "interval",
				Short:       "i",
				Type:        "int",
				Default:     int64(2000),
				Description: "Polling interval in milliseconds",
			},
			"quiesce": {
				Name:        "quiesce",
				Short:       "q",
				Type:        "int",
				Default:     int64(250),
				Description: "Debounce window in milliseconds",
			},
		},
	}
}

package cmd

import (
	"context"
	"io"

	"github.com/mwantia/resfs"
)

// Command represents one executable vault operation.
type Command interface {
	// Name returns the command identifier
	Name() string

	// Description returns human-readable help text
	Description() string

	// Usage returns a usage string for help (e.g. "tag <path> [tags]")
	Usage() string

	// Execute runs the command against an open vault with parsed
	// arguments. Output goes to the writer.
	// Returns exit code (0 = success) and error message
	Execute(ctx context.Context, vault *resfs.Vault, args *CommandArgs, writer io.Writer) (int, error)

	// GetFlags returns the flag set for this command (this is optional)
	GetFlags() *CommandFlagSet
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mwantia/resfs"
	"github.com/mwantia/resfs/cmd"
	"github.com/mwantia/resfs/cmd/builtin"
	"github.com/mwantia/resfs/log"
)

func usage(registry *cmd.Registry) {
	fmt.Fprintln(os.Stderr, "Usage: resfs [--root <dir>] [--verbose] <command> [args]")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Commands:")
	for _, command := range registry.Commands() {
		fmt.Fprintf(os.Stderr, "  %-24s %s\n", command.Usage(), command.Description())
	}
}

func main() {
	registry := cmd.NewRegistry()
	if err := builtin.InitBuiltin(registry); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to register commands: %v\n", err)
		os.Exit(1)
	}

	root := "."
	level := log.Warn
	logFile := ""

	args := os.Args[1:]
loop:
	for len(args) > 0 {
		switch args[0] {
		case "--root":
			if len(args) < 2 {
				fmt.Fprintln(os.Stderr, "--root requires a value")
				os.Exit(1)
			}
			root = args[1]
			args = args[2:]
		case "--verbose", "-v":
			level = log.Debug
			args = args[1:]
		case "--log-file":
			if len(args) < 2 {
				fmt.Fprintln(os.Stderr, "--log-file requires a value")
				os.Exit(1)
			}
			logFile = args[1]
			args = args[2:]
		case "--help", "-h", "help":
			usage(registry)
			os.Exit(0)
		default:
			break loop
		}
	}

	if len(args) == 0 {
		usage(registry)
		os.Exit(1)
	}

	opts := []resfs.VaultOption{
		resfs.WithLogLevel(level),
		resfs.WithTerminalLog(),
	}
	if logFile != "" {
		opts = append(opts, resfs.WithLogFile(logFile))
	}

	vault, _, err := resfs.Open(root, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open vault at %s: %v\n", root, err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	code, err := registry.Execute(ctx, vault, args[0], args[1:], os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
	}

	if err := vault.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close vault: %v\n", err)
		if code == 0 {
			code = 1
		}
	}

	os.Exit(code)
}

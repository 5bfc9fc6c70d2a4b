package cmd

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/mwantia/resfs"
)

// Registry dispatches named commands against an open vault.
type Registry struct {
	commands map[string]Command
}

func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]Command),
	}
}

func (r *Registry) Register(command Command) error {
	name := command.Name()
	if _, exists := r.commands[name]; exists {
		return fmt.Errorf("command already registered: %s", name)
	}
	r.commands[name] = command
	return nil
}

func (r *Registry) Get(name string) (Command, bool) {
	command, ok := r.commands[name]
	return command, ok
}

// Commands returns every registered command, sorted by name.
func (r *Registry) Commands() []Command {
	commands := make([]Command, 0, len(r.commands))
	for _, command := range r.commands {
		commands = append(commands, command)
	}
	sort.Slice(commands, func(i, j int) bool {
		return commands[i].Name() < commands[j].Name()
	})
	return commands
}

// Execute parses raw arguments with the command's flag set and runs it.
func (r *Registry) Execute(ctx context.Context, vault *resfs.Vault, name string, raw []string, writer io.Writer) (int, error) {
	command, ok := r.commands[name]
	if !ok {
		return 1, fmt.Errorf("unknown command: %s", name)
	}

	args, err := NewParser(command.GetFlags()).Parse(raw)
	if err != nil {
		return 1, err
	}

	return command.Execute(ctx, vault, args, writer)
}

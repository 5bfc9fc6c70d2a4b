package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mwantia/resfs"
)

type echoCommand struct {
}

func (e *echoCommand) Name() string {
	return "echo"
}

func (e *echoCommand) Description() string {
	return "Echo positional arguments"
}

func (e *echoCommand) Usage() string {
	return "echo [args]"
}

func (e *echoCommand) Execute(ctx context.Context, vault *resfs.Vault, args *CommandArgs, writer io.Writer) (int, error) {
	for _, arg := range args.Args {
		if _, err := io.WriteString(writer, arg+"\n"); err != nil {
			return 1, err
		}
	}
	return 0, nil
}

func (e *echoCommand) GetFlags() *CommandFlagSet {
	return nil
}

func openTestVault(t *testing.T) *resfs.Vault {
	t.Helper()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "doc.txt"), []byte("content"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	vault, _, err := resfs.Open(root)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { vault.Close() })
	return vault
}

func TestRegistry_RegisterAndExecute(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(&echoCommand{}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	var out bytes.Buffer
	code, err := registry.Execute(context.Background(), openTestVault(t), "echo", []string{"hello"}, &out)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if code != 0 {
		t.Errorf("Expected exit code 0, got %d", code)
	}
	if !strings.Contains(out.String(), "hello") {
		t.Errorf("Expected echoed output, got %q", out.String())
	}
}

func TestRegistry_DuplicateRegistration(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(&echoCommand{}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := registry.Register(&echoCommand{}); err == nil {
		t.Error("Expected error for duplicate registration")
	}
}

func TestRegistry_UnknownCommand(t *testing.T) {
	registry := NewRegistry()

	code, err := registry.Execute(context.Background(), openTestVault(t), "nope", nil, io.Discard)
	if err == nil {
		t.Error("Expected error for unknown command")
	}
	if code == 0 {
		t.Error("Expected nonzero exit code")
	}
}

func TestRegistry_CommandsSorted(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(&echoCommand{}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	commands := registry.Commands()
	if len(commands) != 1 || commands[0].Name() != "echo" {
		t.Errorf("Unexpected command listing: %v", commands)
	}
}

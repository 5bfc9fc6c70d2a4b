package builtin

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mwantia/resfs"
	"github.com/mwantia/resfs/cmd"
)

func setup(t *testing.T) (*cmd.Registry, *resfs.Vault, string) {
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

	registry := cmd.NewRegistry()
	if err := InitBuiltin(registry); err != nil {
		t.Fatalf("InitBuiltin failed: %v", err)
	}
	return registry, vault, root
}

func run(t *testing.T, registry *cmd.Registry, vault *resfs.Vault, name string, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	code, err := registry.Execute(context.Background(), vault, name, args, &out)
	if err != nil {
		t.Fatalf("%s failed: %v", name, err)
	}
	if code != 0 {
		t.Fatalf("%s exited with %d: %s", name, code, out.String())
	}
	return out.String()
}

func TestTagCommand_SetAndGet(t *testing.T) {
	registry, vault, _ := setup(t)

	run(t, registry, vault, "tag", "doc.txt", "work,important")
	out := run(t, registry, vault, "tag", "doc.txt")

	if strings.TrimSpace(out) != "work,important" {
		t.Errorf("Expected tags back, got %q", out)
	}
}

func TestTagCommand_UnindexedPath(t *testing.T) {
	registry, vault, _ := setup(t)

	code, err := registry.Execute(context.Background(), vault, "tag", []string{"ghost.txt", "x"}, &bytes.Buffer{})
	if err == nil || code == 0 {
		t.Error("Expected failure for unindexed path")
	}
}

func TestScoreCommand_RejectsNonNumeric(t *testing.T) {
	registry, vault, _ := setup(t)

	code, err := registry.Execute(context.Background(), vault, "score", []string{"doc.txt", "high"}, &bytes.Buffer{})
	if err == nil || code == 0 {
		t.Error("Expected failure for non-numeric score")
	}

	run(t, registry, vault, "score", "doc.txt", "7")
	out := run(t, registry, vault, "score", "doc.txt")
	if strings.TrimSpace(out) != "7" {
		t.Errorf("Expected score 7, got %q", out)
	}
}

func TestPropCommand_History(t *testing.T) {
	registry, vault, _ := setup(t)

	run(t, registry, vault, "prop", "doc.txt", `{"title":"v1"}`)
	run(t, registry, vault, "prop", "doc.txt", `{"title":"v2"}`)

	out := run(t, registry, vault, "prop", "doc.txt", "--history")
	if !strings.Contains(out, "v1") || !strings.Contains(out, "v2") {
		t.Errorf("Expected both versions in history, got %q", out)
	}

	current := run(t, registry, vault, "prop", "doc.txt")
	if !strings.Contains(current, `"title":"v2"`) {
		t.Errorf("Expected latest value, got %q", current)
	}
}

func TestListCommand_ShowsTags(t *testing.T) {
	registry, vault, _ := setup(t)

	run(t, registry, vault, "tag", "doc.txt", "projects")
	out := run(t, registry, vault, "list", "--tags")

	if !strings.Contains(out, "doc.txt") || !strings.Contains(out, "projects") {
		t.Errorf("Expected listed resource with tags, got %q", out)
	}
}

func TestIndexCommand_ReportsChanges(t *testing.T) {
	registry, vault, root := setup(t)

	if err := os.WriteFile(filepath.Join(root, "extra.txt"), []byte("more"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	out := run(t, registry, vault, "index")
	if !strings.Contains(out, "added extra.txt") {
		t.Errorf("Expected added extra.txt in output, got %q", out)
	}
	if !strings.Contains(out, "2 resources indexed") {
		t.Errorf("Expected summary line, got %q", out)
	}
}

func TestSyncCommand_ReportsStorages(t *testing.T) {
	registry, vault, _ := setup(t)

	out := run(t, registry, vault, "sync")
	for _, label := range []string{"tags", "scores", "properties"} {
		if !strings.Contains(out, label) {
			t.Errorf("Expected %s in sync report, got %q", label, out)
		}
	}
}

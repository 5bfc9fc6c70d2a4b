package resfs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mwantia/resfs/data"
	"github.com/mwantia/resfs/index"
	"github.com/mwantia/resfs/watch"
)

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	full := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return full
}

func TestOpen_ProvisionsControlDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "doc.txt", "content")

	vault, changes, err := Open(root)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer vault.Close()

	if len(changes) != 0 {
		t.Errorf("First open should report no changes, got %v", changes)
	}
	if vault.Index().Len() != 1 {
		t.Errorf("Expected 1 indexed resource, got %d", vault.Index().Len())
	}
	if vault.DeviceID() == "" {
		t.Error("Expected a device id")
	}

	for _, rel := range []string{data.IndexFile, data.DeviceFile, data.CacheFile} {
		if _, err := os.Stat(filepath.Join(root, data.ArkFolder, rel)); err != nil {
			t.Errorf("Missing control file %s: %v", rel, err)
		}
	}
}

func TestOpen_MissingRoot(t *testing.T) {
	if _, _, err := Open(filepath.Join(t.TempDir(), "nope")); !errors.Is(err, data.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestOpen_DeviceIDStableAcrossOpens(t *testing.T) {
	root := t.TempDir()

	vault, _, err := Open(root)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	first := vault.DeviceID()
	if err := vault.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	vault, _, err = Open(root)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer vault.Close()

	if vault.DeviceID() != first {
		t.Errorf("Device id changed across opens: %s vs %s", first, vault.DeviceID())
	}
}

func TestOpen_ReportsChangesSinceLastOpen(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "old.txt", "content")

	vault, _, err := Open(root)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := vault.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	writeFile(t, root, "new.txt", "fresh")

	vault, changes, err := Open(root)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer vault.Close()

	if len(changes) != 1 || changes[0].Kind != index.Added || changes[0].Path != "new.txt" {
		t.Errorf("Expected Added new.txt since last open, got %v", changes)
	}
}

func TestVault_MetadataSurvivesReopen(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "doc.txt", "content")

	vault, _, err := Open(root)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	id, ok := vault.Index().IDByPath("doc.txt")
	if !ok {
		t.Fatal("doc.txt not indexed")
	}

	vault.Tags().Set(id.String(), "work,important")
	vault.Scores().Set(id.String(), "5")
	vault.Properties().Set(id.String(), `{"title":"Report"}`)

	// Close must flush everything without explicit Write calls.
	if err := vault.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	vault, _, err = Open(root)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer vault.Close()

	if got, err := vault.Tags().Get(id.String()); err != nil || got != "work,important" {
		t.Errorf("Tags lost: %q (%v)", got, err)
	}
	if got, err := vault.Scores().Get(id.String()); err != nil || got != "5" {
		t.Errorf("Scores lost: %q (%v)", got, err)
	}
	if got, err := vault.Properties().Get(id.String()); err != nil || got != `{"title":"Report"}` {
		t.Errorf("Properties lost: %q (%v)", got, err)
	}
}

func TestVault_MetadataKeyedByContentSurvivesRename(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "draft.txt", "the content")

	vault, _, err := Open(root)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer vault.Close()

	id, _ := vault.Index().IDByPath("draft.txt")
	vault.Tags().Set(id.String(), "wip")

	if err := os.Rename(filepath.Join(root, "draft.txt"), filepath.Join(root, "final.txt")); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	if _, err := vault.Update(); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	newID, ok := vault.Index().IDByPath("final.txt")
	if !ok || newID != id {
		t.Fatalf("Expected same id after rename, got %s ok=%v", newID, ok)
	}
	if got, err := vault.Tags().Get(newID.String()); err != nil || got != "wip" {
		t.Errorf("Tag did not follow the content: %q (%v)", got, err)
	}
}

func TestVault_CacheRoundTrip(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "doc.txt", "content")

	vault, _, err := Open(root, WithCacheLimit(1024*1024))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer vault.Close()

	id, _ := vault.Index().IDByPath("doc.txt")
	if err := vault.Cache().Put(id, "preview", []byte("thumbnail")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	value, err := vault.Cache().Get(id, "preview")
	if err != nil || string(value) != "thumbnail" {
		t.Errorf("Cache round trip failed: %q (%v)", value, err)
	}
}

func TestVault_WatchAppliesChanges(t *testing.T) {
	root := t.TempDir()

	vault, _, err := Open(root)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer vault.Close()

	changes, err := vault.Watch(
		watch.WithInterval(50*time.Millisecond),
		watch.WithQuiesce(50*time.Millisecond))
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	writeFile(t, root, "live.txt", "streamed in")

	select {
	case batch := <-changes:
		if len(batch) != 1 || batch[0].Kind != index.Added || batch[0].Path != "live.txt" {
			t.Errorf("Expected Added live.txt, got %v", batch)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Timed out waiting for watch batch")
	}

	if err := vault.Unwatch(); err != nil {
		t.Fatalf("Unwatch failed: %v", err)
	}
	if _, ok := vault.Index().IDByPath("live.txt"); !ok {
		t.Error("Watched file not indexed")
	}
}

func TestVault_UpdateRefusedWhileWatching(t *testing.T) {
	root := t.TempDir()

	vault, _, err := Open(root)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer vault.Close()

	if _, err := vault.Watch(watch.WithInterval(time.Hour)); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	if _, err := vault.Update(); err == nil {
		t.Error("Expected Update to be refused while watching")
	}
}

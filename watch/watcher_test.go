package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mwantia/resfs/data"
	"github.com/mwantia/resfs/index"
)

type fakeProvider struct {
	ch chan Event
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{ch: make(chan Event, 64)}
}

func (f *fakeProvider) Events() <-chan Event {
	return f.ch
}

func (f *fakeProvider) Close() error {
	close(f.ch)
	return nil
}

func (f *fakeProvider) send(path string) {
	f.ch <- Event{Path: path}
}

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

func receiveBatch(t *testing.T, watcher *Watcher) []index.Change {
	t.Helper()
	select {
	case batch, ok := <-watcher.Changes():
		if !ok {
			t.Fatal("Change channel closed unexpectedly")
		}
		return batch
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for change batch")
		return nil
	}
}

func TestWatcher_CoalescesEventsIntoOneBatch(t *testing.T) {
	root := t.TempDir()
	ix, err := index.Build(root, data.CRC32Scheme{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	provider := newFakeProvider()
	watcher := New(ix, provider, WithQuiesce(50*time.Millisecond))
	watcher.Start()
	defer watcher.Stop()

	writeFile(t, root, "a.txt", "alpha")
	writeFile(t, root, "b.txt", "beta")

	// Repeated events for the same path must collapse to one rescan.
	provider.send("a.txt")
	provider.send("b.txt")
	provider.send("a.txt")
	provider.send("a.txt")

	batch := receiveBatch(t, watcher)
	if len(batch) != 2 {
		t.Fatalf("Expected 2 changes in one batch, got %v", batch)
	}
	if batch[0].Kind != index.Added || batch[0].Path != "a.txt" {
		t.Errorf("Expected Added a.txt first, got %v", batch[0])
	}
	if batch[1].Kind != index.Added || batch[1].Path != "b.txt" {
		t.Errorf("Expected Added b.txt second, got %v", batch[1])
	}

	if ix.Len() != 2 {
		t.Errorf("Expected both paths indexed, got %d", ix.Len())
	}
}

func TestWatcher_NoBatchForNoopEvents(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "alpha")

	ix, err := index.Build(root, data.CRC32Scheme{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	provider := newFakeProvider()
	watcher := New(ix, provider, WithQuiesce(50*time.Millisecond))
	watcher.Start()
	defer watcher.Stop()

	// Already indexed and unchanged; the rescan finds nothing.
	provider.send("a.txt")

	select {
	case batch := <-watcher.Changes():
		t.Fatalf("Expected no batch for a no-op event, got %v", batch)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_DetectsModifyAndRemove(t *testing.T) {
	root := t.TempDir()
	full := writeFile(t, root, "doc.txt", "before")

	ix, err := index.Build(root, data.CRC32Scheme{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	provider := newFakeProvider()
	watcher := New(ix, provider, WithQuiesce(50*time.Millisecond))
	watcher.Start()
	defer watcher.Stop()

	writeFile(t, root, "doc.txt", "after!")
	provider.send("doc.txt")

	batch := receiveBatch(t, watcher)
	if len(batch) != 1 || batch[0].Kind != index.Modified {
		t.Fatalf("Expected Modified doc.txt, got %v", batch)
	}

	if err := os.Remove(full); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	provider.send("doc.txt")

	batch = receiveBatch(t, watcher)
	if len(batch) != 1 || batch[0].Kind != index.Removed {
		t.Fatalf("Expected Removed doc.txt, got %v", batch)
	}
	if ix.Len() != 0 {
		t.Errorf("Expected empty index, got %d paths", ix.Len())
	}
}

func TestWatcher_StopClosesChangeStream(t *testing.T) {
	root := t.TempDir()
	ix, err := index.Build(root, data.CRC32Scheme{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	provider := newFakeProvider()
	watcher := New(ix, provider, WithQuiesce(50*time.Millisecond))
	watcher.Start()
	watcher.Stop()

	if _, ok := <-watcher.Changes(); ok {
		t.Error("Expected closed change channel after Stop")
	}
}

func TestWatcher_ProviderCloseFlushesPending(t *testing.T) {
	root := t.TempDir()
	ix, err := index.Build(root, data.CRC32Scheme{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	provider := newFakeProvider()
	// Long quiescence: the flush must come from the provider closing,
	// not from the timer.
	watcher := New(ix, provider, WithQuiesce(time.Hour))
	watcher.Start()

	writeFile(t, root, "late.txt", "content")
	provider.send("late.txt")
	provider.Close()

	batch := receiveBatch(t, watcher)
	if len(batch) != 1 || batch[0].Kind != index.Added || batch[0].Path != "late.txt" {
		t.Fatalf("Expected flushed Added late.txt, got %v", batch)
	}

	watcher.Stop()
}

func TestWatcher_SlowConsumerGetsCoarserBatches(t *testing.T) {
	root := t.TempDir()
	ix, err := index.Build(root, data.CRC32Scheme{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	provider := newFakeProvider()
	watcher := New(ix, provider, WithQuiesce(20*time.Millisecond), WithBuffer(1))
	watcher.Start()
	defer watcher.Stop()

	// Two rounds of changes without the consumer reading in between.
	// With a buffer of one, the second batch folds into the first.
	writeFile(t, root, "one.txt", "1")
	provider.send("one.txt")
	time.Sleep(200 * time.Millisecond)

	writeFile(t, root, "two.txt", "2")
	provider.send("two.txt")
	time.Sleep(200 * time.Millisecond)

	batch := receiveBatch(t, watcher)
	if len(batch) != 2 {
		t.Fatalf("Expected folded batch with 2 changes, got %v", batch)
	}
	if batch[0].Path != "one.txt" || batch[1].Path != "two.txt" {
		t.Errorf("Expected fold to preserve order, got %v", batch)
	}
}

package storage

import (
	"path/filepath"
	"testing"
)

func TestIterator_AscendingAndRestartable(t *testing.T) {
	storage, err := NewFileStorage("tags", filepath.Join(t.TempDir(), "tags"))
	if err != nil {
		t.Fatalf("NewFileStorage failed: %v", err)
	}

	storage.Set("charlie", "3")
	storage.Set("alpha", "1")
	storage.Set("bravo", "2")

	it := storage.Iter()
	defer it.Close()

	want := []string{"alpha", "bravo", "charlie"}

	for pass := 0; pass < 2; pass++ {
		var got []string
		for it.Next() {
			got = append(got, it.Key())
		}
		if len(got) != len(want) {
			t.Fatalf("pass %d: expected %d keys, got %d", pass, len(want), len(got))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("pass %d: position %d: expected %s, got %s", pass, i, want[i], got[i])
			}
		}
		it.Reset()
	}
}

func TestIterator_SnapshotIgnoresLaterWrites(t *testing.T) {
	storage, err := NewFileStorage("tags", filepath.Join(t.TempDir(), "tags"))
	if err != nil {
		t.Fatalf("NewFileStorage failed: %v", err)
	}

	storage.Set("a", "1")

	it := storage.Iter()
	defer it.Close()

	// Mutations after snapshot creation must be invisible to it.
	storage.Set("b", "2")
	if err := storage.Remove("a"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	var keys []string
	for it.Next() {
		keys = append(keys, it.Key())
	}

	if len(keys) != 1 || keys[0] != "a" {
		t.Errorf("Expected snapshot to contain exactly [a], got %v", keys)
	}
}

func TestIterator_ClosedStops(t *testing.T) {
	storage, err := NewFileStorage("tags", filepath.Join(t.TempDir(), "tags"))
	if err != nil {
		t.Fatalf("NewFileStorage failed: %v", err)
	}
	storage.Set("a", "1")

	it := storage.Iter()
	it.Close()
	it.Close() // second close is a no-op

	if it.Next() {
		t.Error("Next after Close should return false")
	}
}

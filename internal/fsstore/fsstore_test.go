package fsstore

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestReadJSONMissingFile(t *testing.T) {
	t.Parallel()

	var out map[string]int
	found, err := ReadJSON(filepath.Join(t.TempDir(), "absent.json"), &out)
	if err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if found {
		t.Fatalf("ReadJSON() found = true, want false")
	}
}

func TestWriteJSONAtomicRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "state.json")
	in := map[string]int{"a": 1, "b": 2}
	if err := WriteJSONAtomic(path, in); err != nil {
		t.Fatalf("WriteJSONAtomic() error = %v", err)
	}

	var out map[string]int
	found, err := ReadJSON(path, &out)
	if err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if !found {
		t.Fatalf("ReadJSON() found = false, want true")
	}
	if out["a"] != 1 || out["b"] != 2 {
		t.Fatalf("ReadJSON() = %v, want %v", out, in)
	}

	// No temp files may survive a successful write.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("leftover files after write: %d entries", len(entries))
	}
}

func TestReadJSONEmptyFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "empty.json")
	if err := os.WriteFile(path, []byte("  \n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	var out map[string]int
	found, err := ReadJSON(path, &out)
	if err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if found {
		t.Fatalf("ReadJSON() found = true for empty file, want false")
	}
}

func TestWithLockSerializes(t *testing.T) {
	t.Parallel()

	lockPath, err := LockPathFor(filepath.Join(t.TempDir(), "counter.json"))
	if err != nil {
		t.Fatalf("LockPathFor() error = %v", err)
	}

	const workers = 8
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := WithLock(context.Background(), lockPath, func() error {
				counter++
				return nil
			})
			if err != nil {
				t.Errorf("WithLock() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if counter != workers {
		t.Fatalf("counter = %d, want %d", counter, workers)
	}
}

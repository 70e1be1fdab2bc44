package catalog

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestWatcher_DebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jobs.json")
	if err := os.WriteFile(path, []byte("[]"), 0644); err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int32
	w := NewWatcher(path, func(string) { calls.Add(1) }, WithDebounce(100*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte(`[{"job_id":"x"}]`), 0644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	// Unrelated files in the same directory are ignored.
	_ = os.WriteFile(filepath.Join(dir, "other.json"), []byte("[]"), 0644)

	deadline := time.Now().Add(3 * time.Second)
	for calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	time.Sleep(300 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("onChange called %d times, want 1", got)
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w := NewWatcher(filepath.Join(t.TempDir(), "jobs.json"), nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	w.Stop()
	w.Stop()
}

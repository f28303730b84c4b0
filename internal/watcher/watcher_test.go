package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestWatchCallsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "network.yaml")
	if err := os.WriteFile(path, []byte("stations: []\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	var calls atomic.Int32
	w := New(path, func(ctx context.Context) {
		calls.Add(1)
	}).WithDebounce(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()

	// The watch is registered asynchronously; keep writing until it fires
	deadline := time.Now().Add(5 * time.Second)
	for calls.Load() == 0 && time.Now().Before(deadline) {
		if err := os.WriteFile(path, []byte("stations: [A]\n"), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
		time.Sleep(100 * time.Millisecond)
	}
	if calls.Load() == 0 {
		t.Fatal("onChange was not called")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Watch() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatchIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "network.yaml")
	if err := os.WriteFile(path, []byte("stations: []\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	var calls atomic.Int32
	w := New(path, func(ctx context.Context) {
		calls.Add(1)
	}).WithDebounce(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Watch(ctx)

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
		time.Sleep(40 * time.Millisecond)
	}

	if n := calls.Load(); n != 0 {
		t.Errorf("onChange called %d times for unrelated file", n)
	}
}

func TestWatchMissingDirectory(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "nope", "network.yaml"), func(context.Context) {})
	if err := w.Watch(context.Background()); err == nil {
		t.Error("Watch() should fail when the directory does not exist")
	}
}

package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestIsQualifyingEvent(t *testing.T) {
	cases := []struct {
		name string
		op   fsnotify.Op
		path string
		want bool
	}{
		{"modify main db", fsnotify.Write, "/cfg/database.db", true},
		{"create wal sidecar", fsnotify.Create, "/cfg/database.db-wal", true},
		{"remove is ignored", fsnotify.Remove, "/cfg/database.db", false},
		{"unrelated file", fsnotify.Write, "/cfg/notes.txt", false},
		{"rename is ignored", fsnotify.Rename, "/cfg/database.db", false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := isQualifyingEvent(fsnotify.Event{Name: c.path, Op: c.op})
			if got != c.want {
				t.Errorf("isQualifyingEvent(%s, %s) = %v, want %v", c.op, c.path, got, c.want)
			}
		})
	}
}

func TestWatchFiresOnceAfterDebouncedBurst(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "database.db")
	if err := os.WriteFile(dbPath, []byte("v1"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	w, err := New(dir, 150*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	changes := make(chan ConfigChanged, 4)
	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		_ = w.Watch(stop, func(c ConfigChanged) { changes <- c })
	}()

	// Wait for the watch to attach before generating events.
	time.Sleep(50 * time.Millisecond)

	// Burst of writes within the debounce window should collapse to one callback.
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(dbPath, []byte("v2"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	select {
	case <-changes:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for debounced callback")
	}

	select {
	case <-changes:
		t.Fatal("received a second callback for a single burst")
	case <-time.After(300 * time.Millisecond):
	}

	close(stop)
	<-done
}

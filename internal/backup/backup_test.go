package backup

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestCreateOnlyCopiesDatabaseFiles(t *testing.T) {
	src := t.TempDir()
	writeFile(t, src, "database.db", "main")
	writeFile(t, src, "database.db-wal", "wal")
	writeFile(t, src, "notes.txt", "sibling")

	m := New(t.TempDir(), 20, nil)
	path, err := m.Create(src, "pre-pull")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}

	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "database.db") {
			t.Errorf("unexpected file in backup: %s", e.Name())
		}
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 files, got %d", len(entries))
	}
}

func TestListOrderingAndRetention(t *testing.T) {
	src := t.TempDir()
	writeFile(t, src, "database.db", "v1")

	m := New(t.TempDir(), 2, nil)

	for _, label := range []string{"one", "two", "three"} {
		if _, err := m.Create(src, label); err != nil {
			t.Fatalf("Create(%s): %v", label, err)
		}
		time.Sleep(50 * time.Millisecond)
	}

	entries, err := m.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("expected 2 retained entries, got %d", len(entries))
	}
	if !strings.HasPrefix(entries[0].Name, "three-") {
		t.Errorf("expected newest entry first, got %s", entries[0].Name)
	}
	if !strings.HasPrefix(entries[1].Name, "two-") {
		t.Errorf("expected second-newest entry second, got %s", entries[1].Name)
	}

	for i := 1; i < len(entries); i++ {
		if entries[i].Created.After(entries[i-1].Created) {
			t.Errorf("entries not sorted descending by created time")
		}
	}
}

func TestListOnMissingDirReturnsEmpty(t *testing.T) {
	m := New(filepath.Join(t.TempDir(), "does-not-exist"), 20, nil)
	entries, err := m.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty listing, got %d entries", len(entries))
	}
}

func TestRestoreIsLeftInverseOfCreate(t *testing.T) {
	src := t.TempDir()
	writeFile(t, src, "database.db", "original")
	writeFile(t, src, "database.db-wal", "original-wal")

	m := New(t.TempDir(), 20, nil)
	backupPath, err := m.Create(src, "pre-pull")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Mutate the source.
	writeFile(t, src, "database.db", "mutated")
	writeFile(t, src, "database.db-wal", "mutated-wal")

	if err := m.Restore(backupPath, src); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(src, "database.db"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "original" {
		t.Errorf("database.db: got %q, want %q", got, "original")
	}

	gotWal, err := os.ReadFile(filepath.Join(src, "database.db-wal"))
	if err != nil {
		t.Fatalf("ReadFile wal: %v", err)
	}
	if string(gotWal) != "original-wal" {
		t.Errorf("database.db-wal: got %q, want %q", gotWal, "original-wal")
	}
}

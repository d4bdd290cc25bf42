package engine

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hazyhaar/ggsync/internal/config"
	"github.com/hazyhaar/ggsync/internal/model"
)

func newTestEngine(t *testing.T) (*Engine, config.AppConfig) {
	t.Helper()

	root := t.TempDir()
	cfg := config.AppConfig{
		LocalDBDir: filepath.Join(root, "engine"),
		BackupDir:  filepath.Join(root, "backups"),
		MaxBackups: 5,
		DeviceName: "test-device",
		Provider: config.ProviderVariant{
			Type:    config.VariantFolder,
			SyncDir: filepath.Join(root, "remote"),
		},
	}

	store, err := config.NewStore(filepath.Join(root, "ggsync-config.json"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := store.Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	return New(store, nil), cfg
}

func writeLocalTriple(t *testing.T, dir string, db []byte) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, model.DBFileName), db, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

// genuineSQLiteBytes produces the bytes of a real, driver-created SQLite
// database file. The safety guard opens every candidate database.db
// through the actual driver and runs a PRAGMA against it, so fixtures
// need a genuinely valid file, not just the magic header.
func genuineSQLiteBytes(t *testing.T) []byte {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fixture.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open fixture db: %v", err)
	}
	if _, err := db.Exec("CREATE TABLE fixture (id INTEGER PRIMARY KEY)"); err != nil {
		t.Fatalf("create fixture table: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close fixture db: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture db: %v", err)
	}
	return data
}

func TestPullFromRemoteWithNoRemoteIsSkippedNoRemoteConfig(t *testing.T) {
	e, _ := newTestEngine(t)

	result, err := e.PullFromRemote(context.Background())
	if err != nil {
		t.Fatalf("PullFromRemote: %v", err)
	}
	if result.Kind != ResultSkipped || result.Reason != SkipNoRemoteConfig {
		t.Fatalf("got %+v, want Skipped(NoRemoteConfig)", result)
	}
}

func TestPullFromRemoteRejectsNonSQLiteRemote(t *testing.T) {
	e, cfg := newTestEngine(t)

	// Push a bogus non-SQLite file directly to the remote folder.
	if err := os.MkdirAll(cfg.Provider.SyncDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(cfg.Provider.SyncDir, model.DBFileName), []byte("not a sqlite file"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	metaJSON := `{"last_modified":"2026-01-01T00:00:00Z","device_name":"other"}`
	if err := os.WriteFile(filepath.Join(cfg.Provider.SyncDir, "sync_meta.json"), []byte(metaJSON), 0o644); err != nil {
		t.Fatalf("WriteFile meta: %v", err)
	}

	localBytes := genuineSQLiteBytes(t)
	writeLocalTriple(t, cfg.LocalDBDir, localBytes)

	result, err := e.PullFromRemote(context.Background())
	if err != nil {
		t.Fatalf("PullFromRemote: %v", err)
	}
	if result.Kind != ResultSkipped || result.Reason != SkipInvalidRemoteFile {
		t.Fatalf("got %+v, want Skipped(InvalidRemoteFile)", result)
	}

	// Local triple must be untouched.
	got, err := os.ReadFile(filepath.Join(cfg.LocalDBDir, model.DBFileName))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != string(localBytes) {
		t.Error("local database.db was modified by a rejected pull")
	}
}

func TestPullArmsSuppressionExactlyOnce(t *testing.T) {
	e, cfg := newTestEngine(t)

	ctx := context.Background()
	writeLocalTriple(t, cfg.LocalDBDir, genuineSQLiteBytes(t))
	if _, err := e.PushToRemote(ctx); err != nil {
		t.Fatalf("PushToRemote (seed remote): %v", err)
	}

	if e.ShouldSuppressPush() {
		t.Fatal("suppression flag armed before any pull")
	}

	result, err := e.PullFromRemote(ctx)
	if err != nil {
		t.Fatalf("PullFromRemote: %v", err)
	}
	if result.Kind != ResultPulled {
		t.Fatalf("got %+v, want Pulled", result)
	}

	if !e.ShouldSuppressPush() {
		t.Fatal("expected suppression flag to be armed after pull")
	}
	if e.ShouldSuppressPush() {
		t.Fatal("suppression flag should be single-shot")
	}
}

func TestSyncPushesWhenLocalIsNewer(t *testing.T) {
	e, cfg := newTestEngine(t)
	ctx := context.Background()

	writeLocalTriple(t, cfg.LocalDBDir, genuineSQLiteBytes(t))

	// Seed an older remote.
	if err := os.MkdirAll(cfg.Provider.SyncDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(cfg.Provider.SyncDir, model.DBFileName), genuineSQLiteBytes(t), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	oldMeta := `{"last_modified":"2020-01-01T00:00:00Z","device_name":"other"}`
	if err := os.WriteFile(filepath.Join(cfg.Provider.SyncDir, "sync_meta.json"), []byte(oldMeta), 0o644); err != nil {
		t.Fatalf("WriteFile meta: %v", err)
	}

	localDBPath := filepath.Join(cfg.LocalDBDir, model.DBFileName)
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(localDBPath, future, future); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	result, err := e.Sync(ctx)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if result.Kind != ResultPushed {
		t.Fatalf("got %+v, want Pushed", result)
	}

	backups, err := e.backupManager(cfg).List()
	if err != nil {
		t.Fatalf("List backups: %v", err)
	}
	if len(backups) != 1 {
		t.Fatalf("expected one pre-push backup, got %d", len(backups))
	}
}

func TestSyncPullsWhenRemoteIsNewer(t *testing.T) {
	e, cfg := newTestEngine(t)
	ctx := context.Background()

	writeLocalTriple(t, cfg.LocalDBDir, genuineSQLiteBytes(t))
	past := time.Now().Add(-time.Hour)
	localDBPath := filepath.Join(cfg.LocalDBDir, model.DBFileName)
	if err := os.Chtimes(localDBPath, past, past); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	if err := os.MkdirAll(cfg.Provider.SyncDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(cfg.Provider.SyncDir, model.DBFileName), genuineSQLiteBytes(t), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	newMeta := `{"last_modified":"2099-01-01T00:00:00Z","device_name":"laptop"}`
	if err := os.WriteFile(filepath.Join(cfg.Provider.SyncDir, "sync_meta.json"), []byte(newMeta), 0o644); err != nil {
		t.Fatalf("WriteFile meta: %v", err)
	}

	result, err := e.Sync(ctx)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if result.Kind != ResultPulled || result.FromDevice != "laptop" {
		t.Fatalf("got %+v, want Pulled{FromDevice: laptop}", result)
	}
}

func TestSyncWithNoLocalAndNoRemoteIsSkipped(t *testing.T) {
	e, _ := newTestEngine(t)

	result, err := e.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if result.Kind != ResultSkipped || result.Reason != SkipNoLocalConfig {
		t.Fatalf("got %+v, want Skipped(NoLocalConfig)", result)
	}
}

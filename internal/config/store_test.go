package config

import (
	"path/filepath"
	"testing"
)

func TestStoreCurrentReflectsLatestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")

	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if got := store.Current().MaxBackups; got != DefaultMaxBackups {
		t.Errorf("initial MaxBackups: got %d, want %d", got, DefaultMaxBackups)
	}

	cfg := store.Current()
	cfg.MaxBackups = 7
	cfg.Provider = ProviderVariant{Type: VariantFolder, SyncDir: "/mnt/remote"}

	if err := store.Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got := store.Current().MaxBackups; got != 7 {
		t.Errorf("MaxBackups after save: got %d, want 7", got)
	}

	// A second Store reading the same path observes the persisted value.
	reloaded, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore (reload): %v", err)
	}
	if got := reloaded.Current().MaxBackups; got != 7 {
		t.Errorf("reloaded MaxBackups: got %d, want 7", got)
	}
}

func TestStoreSaveRejectsInvalidConfigWithoutMutatingCurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	before := store.Current()

	bad := before
	bad.Provider = ProviderVariant{Type: "Carrier-Pigeon"}
	if err := store.Save(bad); err == nil {
		t.Fatal("expected Save to reject an unsupported provider variant")
	}

	if store.Current() != before {
		t.Error("Store.Current changed despite a rejected Save")
	}
}

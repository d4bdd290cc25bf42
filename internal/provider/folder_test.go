package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hazyhaar/ggsync/internal/model"
)

func TestFolderPushPullRoundTrip(t *testing.T) {
	p := NewFolder(t.TempDir())
	ctx := context.Background()

	sent := model.ConfigSnapshot{
		Db:    []byte("roundtrip-db"),
		DbShm: nil,
		DbWal: []byte("roundtrip-wal"),
		Meta: model.SyncMeta{
			LastModified: time.Now().UTC().Truncate(time.Second),
			DeviceName:   "my-pc",
		},
	}

	if err := p.Push(ctx, sent); err != nil {
		t.Fatalf("Push: %v", err)
	}

	got, err := p.Pull(ctx)
	if err != nil {
		t.Fatalf("Pull: %v", err)
	}

	if string(got.Db) != string(sent.Db) {
		t.Errorf("Db: got %q, want %q", got.Db, sent.Db)
	}
	if got.DbShm != nil {
		t.Errorf("DbShm: got %v, want nil", got.DbShm)
	}
	if string(got.DbWal) != string(sent.DbWal) {
		t.Errorf("DbWal: got %q, want %q", got.DbWal, sent.DbWal)
	}
	if got.Meta.DeviceName != sent.Meta.DeviceName {
		t.Errorf("DeviceName: got %q, want %q", got.Meta.DeviceName, sent.Meta.DeviceName)
	}
	if !got.Meta.LastModified.Equal(sent.Meta.LastModified) {
		t.Errorf("LastModified: got %v, want %v", got.Meta.LastModified, sent.Meta.LastModified)
	}
}

func TestFolderPullWithNoRemoteIsNotFound(t *testing.T) {
	p := NewFolder(t.TempDir())
	_, err := p.Pull(context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Pull: got %v, want ErrNotFound", err)
	}
}

func TestFolderRemoteMetaWithNoRemoteIsNotFound(t *testing.T) {
	p := NewFolder(t.TempDir())
	_, err := p.RemoteMeta(context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("RemoteMeta: got %v, want ErrNotFound", err)
	}
}

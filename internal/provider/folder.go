package provider

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/hazyhaar/ggsync/internal/model"
)

const syncMetaFileName = "sync_meta.json"

// FolderProvider represents the remote as a local filesystem path that the
// user's own cloud client (Dropbox, iCloud Drive, a NAS mount, ...)
// synchronizes externally. Push and pull are plain file copies; the
// provider itself does no network I/O.
type FolderProvider struct {
	Dir string
}

// NewFolder creates a FolderProvider rooted at dir.
func NewFolder(dir string) *FolderProvider {
	return &FolderProvider{Dir: dir}
}

func (p *FolderProvider) Push(_ context.Context, snapshot model.ConfigSnapshot) error {
	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return ioErr("create remote dir: %w", err)
	}

	if err := os.WriteFile(filepath.Join(p.Dir, model.DBFileName), snapshot.Db, 0o644); err != nil {
		return ioErr("write remote db: %w", err)
	}
	if err := writeOptionalSidecar(filepath.Join(p.Dir, model.DBShmFileName), snapshot.DbShm); err != nil {
		return ioErr("write remote shm: %w", err)
	}
	if err := writeOptionalSidecar(filepath.Join(p.Dir, model.DBWalFileName), snapshot.DbWal); err != nil {
		return ioErr("write remote wal: %w", err)
	}

	metaBytes, err := json.Marshal(snapshot.Meta)
	if err != nil {
		return ioErr("marshal remote meta: %w", err)
	}
	if err := os.WriteFile(filepath.Join(p.Dir, syncMetaFileName), metaBytes, 0o644); err != nil {
		return ioErr("write remote meta: %w", err)
	}

	return nil
}

func (p *FolderProvider) Pull(_ context.Context) (model.ConfigSnapshot, error) {
	dbPath := filepath.Join(p.Dir, model.DBFileName)
	db, err := os.ReadFile(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return model.ConfigSnapshot{}, notFoundErr()
		}
		return model.ConfigSnapshot{}, ioErr("read remote db: %w", err)
	}

	shm, err := readOptionalSidecar(filepath.Join(p.Dir, model.DBShmFileName))
	if err != nil {
		return model.ConfigSnapshot{}, ioErr("read remote shm: %w", err)
	}
	wal, err := readOptionalSidecar(filepath.Join(p.Dir, model.DBWalFileName))
	if err != nil {
		return model.ConfigSnapshot{}, ioErr("read remote wal: %w", err)
	}

	meta, err := p.readMeta()
	if err != nil {
		return model.ConfigSnapshot{}, err
	}

	return model.ConfigSnapshot{Db: db, DbShm: shm, DbWal: wal, Meta: meta}, nil
}

func (p *FolderProvider) RemoteMeta(_ context.Context) (model.SyncMeta, error) {
	return p.readMeta()
}

func (p *FolderProvider) readMeta() (model.SyncMeta, error) {
	raw, err := os.ReadFile(filepath.Join(p.Dir, syncMetaFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return model.SyncMeta{}, notFoundErr()
		}
		return model.SyncMeta{}, ioErr("read remote meta: %w", err)
	}

	var meta model.SyncMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return model.SyncMeta{}, ioErr("parse remote meta: %w", err)
	}
	return meta, nil
}

func writeOptionalSidecar(path string, data []byte) error {
	if data == nil {
		return os.RemoveAll(path)
	}
	return os.WriteFile(path, data, 0o644)
}

func readOptionalSidecar(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

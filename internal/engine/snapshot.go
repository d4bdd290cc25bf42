package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hazyhaar/ggsync/internal/model"
)

// readLocalSnapshot reads the on-disk triple from dir into an in-memory
// ConfigSnapshot, stamping fresh SyncMeta for the push about to carry it.
// The sidecar files are optional; their absence is not an error.
func readLocalSnapshot(dir, deviceName string) (model.ConfigSnapshot, error) {
	db, err := os.ReadFile(filepath.Join(dir, model.DBFileName))
	if err != nil {
		return model.ConfigSnapshot{}, fmt.Errorf("read %s: %w", model.DBFileName, err)
	}

	shm, err := readOptionalFile(filepath.Join(dir, model.DBShmFileName))
	if err != nil {
		return model.ConfigSnapshot{}, fmt.Errorf("read %s: %w", model.DBShmFileName, err)
	}
	wal, err := readOptionalFile(filepath.Join(dir, model.DBWalFileName))
	if err != nil {
		return model.ConfigSnapshot{}, fmt.Errorf("read %s: %w", model.DBWalFileName, err)
	}

	return model.ConfigSnapshot{
		Db:    db,
		DbShm: shm,
		DbWal: wal,
		Meta: model.SyncMeta{
			LastModified: time.Now().UTC(),
			DeviceName:   deviceName,
		},
	}, nil
}

// writeLocalSnapshot writes snapshot's triple into dir, main file first
// (see SPEC_FULL.md §9: no atomic whole-triple rename — the main file and
// its sidecars are independently meaningless to a closed connection, so
// partial failure here returns the first error rather than attempting to
// roll back prior writes).
func writeLocalSnapshot(dir string, snapshot model.ConfigSnapshot) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create local dir: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, model.DBFileName), snapshot.Db, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", model.DBFileName, err)
	}
	if err := writeOptionalFile(filepath.Join(dir, model.DBShmFileName), snapshot.DbShm); err != nil {
		return fmt.Errorf("write %s: %w", model.DBShmFileName, err)
	}
	if err := writeOptionalFile(filepath.Join(dir, model.DBWalFileName), snapshot.DbWal); err != nil {
		return fmt.Errorf("write %s: %w", model.DBWalFileName, err)
	}

	return nil
}

func readOptionalFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

func writeOptionalFile(path string, data []byte) error {
	if data == nil {
		return os.RemoveAll(path)
	}
	return os.WriteFile(path, data, 0o644)
}

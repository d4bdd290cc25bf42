// Package backup manages timestamped snapshots of the Engine's database
// triple: creation, listing, retention pruning, and restore. It applies no
// safety gating of its own — the caller (the sync engine) is responsible
// for deciding when a backup or restore is appropriate.
package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hazyhaar/ggsync/internal/logging"
	"github.com/hazyhaar/ggsync/internal/model"
)

// timestampLayout produces the "YYYY-MM-DDTHH-MM-SS" suffix used in backup
// directory names — ISO-8601-ish but with dashes in place of colons, since
// colons are awkward or illegal in filenames on several filesystems.
const timestampLayout = "2006-01-02T15-04-05"

// Entry describes one backup directory.
type Entry struct {
	Name    string
	Path    string
	Created time.Time

	// LargestFileSize is the size in bytes of the largest file directly
	// inside the backup directory (typically database.db itself), used
	// for the service façade's human-readable rendering.
	LargestFileSize int64
}

// Manager creates, lists, prunes, and restores backups under Dir.
type Manager struct {
	Dir         string
	MaxBackups  int
	log         *zap.Logger
}

// New creates a Manager rooted at dir, retaining at most maxBackups entries
// after each create.
func New(dir string, maxBackups int, log *zap.Logger) *Manager {
	return &Manager{Dir: dir, MaxBackups: maxBackups, log: logging.Or(log)}
}

// Create copies every database.db* file from sourceDir into a new
// "<label>-<timestamp>" subdirectory of Dir, then prunes to MaxBackups.
// Returns the new backup's path. Sibling files in sourceDir that don't
// match the database.db* prefix are left untouched.
func (m *Manager) Create(sourceDir, label string) (string, error) {
	name := fmt.Sprintf("%s-%s", label, time.Now().UTC().Format(timestampLayout))
	dest := filepath.Join(m.Dir, name)

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir %s: %w", dest, err)
	}

	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return "", fmt.Errorf("read source dir %s: %w", sourceDir, err)
	}

	copied := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), model.DBFileName) {
			continue
		}
		if err := copyFile(filepath.Join(sourceDir, e.Name()), filepath.Join(dest, e.Name())); err != nil {
			return "", fmt.Errorf("copy %s: %w", e.Name(), err)
		}
		copied++
	}

	m.log.Info("created backup", zap.String("label", label), zap.String("path", dest), zap.Int("files", copied))

	if err := m.prune(); err != nil {
		m.log.Warn("backup retention prune failed", zap.Error(err))
	}

	return dest, nil
}

// List enumerates the direct subdirectories of Dir, sorted by modification
// time descending. Returns an empty slice (not an error) if Dir doesn't
// exist yet.
func (m *Manager) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(m.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("read backup dir %s: %w", m.Dir, err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if !de.IsDir() {
			continue
		}
		info, err := de.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", de.Name(), err)
		}

		largest, err := largestFileSize(filepath.Join(m.Dir, de.Name()))
		if err != nil {
			return nil, fmt.Errorf("stat contents of %s: %w", de.Name(), err)
		}

		entries = append(entries, Entry{
			Name:            de.Name(),
			Path:            filepath.Join(m.Dir, de.Name()),
			Created:         info.ModTime(),
			LargestFileSize: largest,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Created.After(entries[j].Created)
	})

	return entries, nil
}

// Restore copies every file in backupPath into targetDir, overwriting any
// existing files of the same name.
func (m *Manager) Restore(backupPath, targetDir string) error {
	entries, err := os.ReadDir(backupPath)
	if err != nil {
		return fmt.Errorf("read backup %s: %w", backupPath, err)
	}

	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return fmt.Errorf("create target dir %s: %w", targetDir, err)
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := copyFile(filepath.Join(backupPath, e.Name()), filepath.Join(targetDir, e.Name())); err != nil {
			return fmt.Errorf("restore %s: %w", e.Name(), err)
		}
	}

	m.log.Info("restored backup", zap.String("from", backupPath), zap.String("to", targetDir))
	return nil
}

// prune removes every backup past index MaxBackups-1 in the
// modification-time-descending listing.
func (m *Manager) prune() error {
	if m.MaxBackups <= 0 {
		return nil
	}

	entries, err := m.List()
	if err != nil {
		return err
	}

	for _, e := range entries[min(len(entries), m.MaxBackups):] {
		if err := os.RemoveAll(e.Path); err != nil {
			return fmt.Errorf("prune %s: %w", e.Path, err)
		}
		m.log.Debug("pruned backup", zap.String("path", e.Path))
	}

	return nil
}

// largestFileSize returns the size in bytes of the largest regular file
// directly inside dir.
func largestFileSize(dir string) (int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	var largest int64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return 0, err
		}
		if info.Size() > largest {
			largest = info.Size()
		}
	}
	return largest, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

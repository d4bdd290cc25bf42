// Package guard implements the two preconditions the sync engine checks
// before touching either side of a sync: whether the local database can be
// safely read, and whether it can be safely overwritten. Process scanning
// and file probing both re-run on every call — none of it is cached,
// because the Engine can start or release its lock at any moment.
package guard

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/hazyhaar/ggsync/internal/logging"
	"github.com/hazyhaar/ggsync/internal/model"

	_ "modernc.org/sqlite"
)

// ReadState is the result of a safe-to-read check.
type ReadState int

const (
	ReadSafe ReadState = iota
	ReadNoConfig
	ReadFileLocked
)

func (s ReadState) String() string {
	switch s {
	case ReadSafe:
		return "Safe"
	case ReadNoConfig:
		return "NoConfig"
	case ReadFileLocked:
		return "FileLocked"
	default:
		return "Unknown"
	}
}

// WriteState is the result of a safe-to-write check.
type WriteState int

const (
	WriteSafe WriteState = iota
	WriteGGRunning
	WriteFileLocked
)

func (s WriteState) String() string {
	switch s {
	case WriteSafe:
		return "Safe"
	case WriteGGRunning:
		return "GGRunning"
	case WriteFileLocked:
		return "FileLocked"
	default:
		return "Unknown"
	}
}

// Guard serializes the OS-scanning object used for process detection. All
// callers acquire it for the duration of a single check and release it
// before any remote or slow I/O — holding it across a push or pull would
// serialize every concurrent sync operation for no benefit.
type Guard struct {
	mu      sync.Mutex
	lister  processLister
	log     *zap.Logger
}

// New creates a Guard backed by the platform's process listing tool.
func New(log *zap.Logger) *Guard {
	return &Guard{lister: osProcessLister{}, log: logging.Or(log)}
}

// SafeToRead reports whether database.db in dir exists and can be opened
// for reading. The Engine holding the file open is not a blocker: SQLite's
// WAL mode permits concurrent readers.
func (g *Guard) SafeToRead(dir string) ReadState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.probeRead(dir)
}

// SafeToWrite reports whether dir can be safely overwritten: the Engine
// must not be running, and (beyond that) the same conditions as
// SafeToRead apply, except that an absent database.db is treated as safe
// (a fresh pull into an empty directory is legal).
func (g *Guard) SafeToWrite(dir string) WriteState {
	g.mu.Lock()
	defer g.mu.Unlock()

	names, err := g.lister.ListProcessNames()
	if err != nil {
		g.log.Warn("process scan failed, assuming Engine is not running", zap.Error(err))
	} else if ggProcessRunning(names) {
		return WriteGGRunning
	}

	switch g.probeRead(dir) {
	case ReadNoConfig:
		return WriteSafe
	case ReadFileLocked:
		return WriteFileLocked
	default:
		return WriteSafe
	}
}

// probeRead performs the two-legged open probe described in
// SPEC_FULL.md §4.1: a non-blocking advisory lock, then a trivial SQLite
// statement through the registered driver. Must be called with mu held.
func (g *Guard) probeRead(dir string) ReadState {
	path := filepath.Join(dir, model.DBFileName)

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return ReadNoConfig
		}
		return ReadFileLocked
	}

	if !g.tryLock(path) {
		return ReadFileLocked
	}

	if err := g.probeOpen(path); err != nil {
		g.log.Debug("sqlite open probe failed", zap.String("path", path), zap.Error(err))
		return ReadFileLocked
	}

	return ReadSafe
}

// tryLock attempts a non-blocking shared advisory lock on path, releasing
// it immediately. A failure to acquire (not "file doesn't exist") means
// another process holds an incompatible lock.
func (g *Guard) tryLock(path string) bool {
	fl := flock.New(path)
	ok, err := fl.TryRLock()
	if err != nil || !ok {
		return false
	}
	defer fl.Unlock()
	return true
}

// probeOpen opens path read-only through the SQLite driver and runs a
// cheap statement, surfacing driver-level corruption the lock probe alone
// would miss.
func (g *Guard) probeOpen(path string) error {
	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(100)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer db.Close()

	db.SetConnMaxLifetime(time.Second)

	var schemaVersion int
	if err := db.QueryRow("PRAGMA schema_version").Scan(&schemaVersion); err != nil {
		return fmt.Errorf("schema probe %s: %w", path, err)
	}
	return nil
}

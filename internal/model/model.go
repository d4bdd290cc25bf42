// Package model defines the data shared by every layer of the sync core:
// the on-disk triple's naming convention, the in-memory snapshot bundle,
// and the SQLite header check used to validate pulled content.
package model

import (
	"bytes"
	"time"
)

const (
	// DBFileName is the SQLite main database file inside the Engine directory.
	DBFileName = "database.db"
	// DBShmFileName is the optional shared-memory sidecar.
	DBShmFileName = "database.db-shm"
	// DBWalFileName is the optional write-ahead-log sidecar.
	DBWalFileName = "database.db-wal"

	// SQLiteMagic is the 16-byte header every valid SQLite 3 file begins with.
	SQLiteMagic = "SQLite format 3\x00"
)

// TripleFiles lists the three files that make up one database triple, main
// file first. Callers that need to know which are optional should check
// against DBFileName directly rather than indexing this slice.
var TripleFiles = []string{DBFileName, DBShmFileName, DBWalFileName}

// SyncMeta is the metadata a device attaches to a pushed snapshot: when it
// was produced and by whom. Consumed for last-writer-wins comparisons and
// for human-readable "pulled from X" messages.
type SyncMeta struct {
	LastModified time.Time `json:"last_modified"`
	DeviceName   string    `json:"device_name"`
}

// ConfigSnapshot is the opaque, immutable unit of transfer between a local
// Engine directory and a remote provider. Db is required; the sidecars are
// optional and nil when absent.
type ConfigSnapshot struct {
	Db     []byte
	DbShm  []byte
	DbWal  []byte
	Meta   SyncMeta
}

// ValidateSQLiteHeader reports whether b is long enough to carry a SQLite 3
// header and begins with the literal magic bytes. Strictly longer than 16
// bytes is required — 16 bytes of magic with nothing after it is rejected,
// matching the boundary a real SQLite file (which always has more than a
// bare header) satisfies.
func ValidateSQLiteHeader(b []byte) bool {
	if len(b) <= len(SQLiteMagic) {
		return false
	}
	return bytes.Equal(b[:len(SQLiteMagic)], []byte(SQLiteMagic))
}

package store

import (
	"fmt"

	"github.com/praetorian-inc/overcol/pkg/types"
)

// Store provides persistence for scan results. Implementations are safe for
// concurrent use.
type Store interface {
	// AddBlob stores a blob record.
	AddBlob(id types.BlobID, size int64) error

	// AddProvenance associates provenance with a blob.
	AddProvenance(blobID types.BlobID, prov types.Provenance) error

	// AddFinding stores a finding (deduplicated by ID).
	AddFinding(f *types.Finding) error

	// ReplaceFindings drops every finding of path and stores findings in
	// their place.
	ReplaceFindings(path string, findings []*types.Finding) error

	// GetFindings retrieves all findings ordered by path and line.
	GetFindings() ([]*types.Finding, error)

	// GetProvenance retrieves every provenance recorded for a blob.
	GetProvenance(blobID types.BlobID) ([]types.Provenance, error)

	// BlobExists checks if a blob has been recorded.
	BlobExists(id types.BlobID) (bool, error)

	// MarkScanned records that the content blobID at path was checked with
	// settings identified by fingerprint.
	MarkScanned(path string, blobID types.BlobID, fingerprint string) error

	// Scanned reports whether path was last checked with the same content
	// and settings.
	Scanned(path string, blobID types.BlobID, fingerprint string) (bool, error)

	// Close closes the database connection.
	Close() error
}

// MemoryPath selects the in-memory store.
const MemoryPath = ":memory:"

// Config for store initialization.
type Config struct {
	// Path is the database file path.
	// Use ":memory:" for an in-memory store (useful for testing).
	Path string
}

// New creates a store: MemoryStore for ":memory:", SQLite otherwise.
func New(cfg Config) (Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	if cfg.Path == MemoryPath {
		return NewMemory(), nil
	}
	return NewSQLite(cfg.Path)
}

package store

import (
	"sort"
	"sync"

	"github.com/praetorian-inc/overcol/pkg/types"
)

// scanRecord is what a path was last checked with.
type scanRecord struct {
	blobID      types.BlobID
	fingerprint string
}

// MemoryStore implements Store using in-memory data structures.
type MemoryStore struct {
	mu         sync.RWMutex
	blobs      map[types.BlobID]int64
	findings   map[string]*types.Finding // keyed by ID
	provenance map[types.BlobID][]types.Provenance
	scans      map[string]scanRecord // keyed by path
}

// NewMemory creates a new in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		blobs:      make(map[types.BlobID]int64),
		findings:   make(map[string]*types.Finding),
		provenance: make(map[types.BlobID][]types.Provenance),
		scans:      make(map[string]scanRecord),
	}
}

// AddBlob stores a blob record.
func (m *MemoryStore) AddBlob(id types.BlobID, size int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.blobs[id]; !exists {
		m.blobs[id] = size
	}
	return nil
}

// AddProvenance associates provenance with a blob.
func (m *MemoryStore) AddProvenance(blobID types.BlobID, prov types.Provenance) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.provenance[blobID] {
		if sameProvenance(p, prov) {
			return nil
		}
	}
	m.provenance[blobID] = append(m.provenance[blobID], prov)
	return nil
}

// sameProvenance compares provenance the way the SQLite uniqueness
// constraint does: git provenance by commit id only.
func sameProvenance(a, b types.Provenance) bool {
	ga, okA := a.(types.GitProvenance)
	gb, okB := b.(types.GitProvenance)
	if okA && okB {
		return ga.RepoPath == gb.RepoPath && ga.BlobPath == gb.BlobPath && commitID(ga) == commitID(gb)
	}
	return a == b
}

func commitID(p types.GitProvenance) string {
	if p.Commit == nil {
		return ""
	}
	return p.Commit.CommitID
}

// GetProvenance retrieves every provenance recorded for a blob.
func (m *MemoryStore) GetProvenance(blobID types.BlobID) ([]types.Provenance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	provs := m.provenance[blobID]
	if len(provs) == 0 {
		return nil, nil
	}
	return append([]types.Provenance(nil), provs...), nil
}

// AddFinding stores a finding (deduplicated).
func (m *MemoryStore) AddFinding(f *types.Finding) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.findings[f.ID]; !exists {
		m.findings[f.ID] = f
	}
	return nil
}

// ReplaceFindings drops the findings of path and stores findings.
func (m *MemoryStore) ReplaceFindings(path string, findings []*types.Finding) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, f := range m.findings {
		if f.Path == path {
			delete(m.findings, id)
		}
	}
	for _, f := range findings {
		if _, exists := m.findings[f.ID]; !exists {
			m.findings[f.ID] = f
		}
	}
	return nil
}

// GetFindings retrieves all findings ordered by path and line.
func (m *MemoryStore) GetFindings() ([]*types.Finding, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*types.Finding, 0, len(m.findings))
	for _, f := range m.findings {
		result = append(result, f)
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Limit < b.Limit
	})
	return result, nil
}

// BlobExists checks if a blob has been recorded.
func (m *MemoryStore) BlobExists(id types.BlobID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.blobs[id]
	return exists, nil
}

// MarkScanned records the content and settings path was last checked with.
func (m *MemoryStore) MarkScanned(path string, blobID types.BlobID, fingerprint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.scans[path] = scanRecord{blobID: blobID, fingerprint: fingerprint}
	return nil
}

// Scanned reports whether path was last checked with the same content and
// settings.
func (m *MemoryStore) Scanned(path string, blobID types.BlobID, fingerprint string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.scans[path]
	return ok && rec.blobID == blobID && rec.fingerprint == fingerprint, nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}

package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/praetorian-inc/overcol/pkg/types"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a SQLite-based store.
// Use ":memory:" for an in-memory database.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// one connection: a single writer, and ":memory:" stays one database
	db.SetMaxOpenConns(1)

	if err := CreateSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// AddBlob stores a blob record.
func (s *SQLiteStore) AddBlob(id types.BlobID, size int64) error {
	_, err := s.db.Exec("INSERT OR IGNORE INTO blobs (id, size) VALUES (?, ?)", id.Hex(), size)
	if err != nil {
		return fmt.Errorf("inserting blob: %w", err)
	}
	return nil
}

// AddProvenance associates provenance with a blob.
func (s *SQLiteStore) AddProvenance(blobID types.BlobID, prov types.Provenance) error {
	var path, repoPath, commitHash string

	switch p := prov.(type) {
	case types.FileProvenance:
		path = p.FilePath
	case types.GitProvenance:
		repoPath = p.RepoPath
		path = p.BlobPath
		if p.Commit != nil {
			commitHash = p.Commit.CommitID
		}
	case types.DocumentProvenance:
		repoPath = p.DocumentID
		path = p.Name
	default:
		return fmt.Errorf("unknown provenance type: %T", prov)
	}

	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO provenance (blob_id, type, path, repo_path, commit_hash)
		VALUES (?, ?, ?, ?, ?)
	`,
		blobID.Hex(),
		prov.Kind(),
		path,
		repoPath,
		commitHash,
	)
	if err != nil {
		return fmt.Errorf("inserting provenance: %w", err)
	}
	return nil
}

// GetProvenance retrieves every provenance recorded for a blob.
func (s *SQLiteStore) GetProvenance(blobID types.BlobID) ([]types.Provenance, error) {
	rows, err := s.db.Query(`
		SELECT type, path, repo_path, commit_hash
		FROM provenance
		WHERE blob_id = ?
		ORDER BY id
	`, blobID.Hex())
	if err != nil {
		return nil, fmt.Errorf("querying provenance: %w", err)
	}
	defer rows.Close()

	var provs []types.Provenance
	for rows.Next() {
		var kind, path, repoPath, commitHash string
		if err := rows.Scan(&kind, &path, &repoPath, &commitHash); err != nil {
			return nil, fmt.Errorf("scanning provenance: %w", err)
		}
		switch kind {
		case "file":
			provs = append(provs, types.FileProvenance{FilePath: path})
		case "git":
			gp := types.GitProvenance{RepoPath: repoPath, BlobPath: path}
			if commitHash != "" {
				gp.Commit = &types.CommitMetadata{CommitID: commitHash}
			}
			provs = append(provs, gp)
		case "document":
			provs = append(provs, types.DocumentProvenance{DocumentID: repoPath, Name: path})
		default:
			return nil, fmt.Errorf("unknown provenance type %q", kind)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating provenance: %w", err)
	}
	return provs, nil
}

const insertFinding = `
	INSERT OR IGNORE INTO findings (
		id, blob_id, path, line, col_limit, width,
		offset_start, offset_end, start_line, start_column, end_line, end_column,
		snippet_within, snippet_overflow
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func addFinding(db execer, f *types.Finding) error {
	loc := f.Location
	_, err := db.Exec(insertFinding,
		f.ID,
		f.BlobID.Hex(),
		f.Path,
		f.Line,
		f.Limit,
		f.Width,
		loc.Offset.Start,
		loc.Offset.End,
		loc.Source.Start.Line,
		loc.Source.Start.Column,
		loc.Source.End.Line,
		loc.Source.End.Column,
		f.Snippet.Within,
		f.Snippet.Overflow,
	)
	if err != nil {
		return fmt.Errorf("inserting finding: %w", err)
	}
	return nil
}

// AddFinding stores a finding (deduplicated).
func (s *SQLiteStore) AddFinding(f *types.Finding) error {
	return addFinding(s.db, f)
}

// ReplaceFindings drops the findings of path and stores findings in one
// transaction.
func (s *SQLiteStore) ReplaceFindings(path string, findings []*types.Finding) (err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.Exec("DELETE FROM findings WHERE path = ?", path); err != nil {
		return fmt.Errorf("deleting findings of %s: %w", path, err)
	}
	for _, f := range findings {
		if err = addFinding(tx, f); err != nil {
			return err
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing findings: %w", err)
	}
	return nil
}

// GetFindings retrieves all findings ordered by path and line.
func (s *SQLiteStore) GetFindings() ([]*types.Finding, error) {
	rows, err := s.db.Query(`
		SELECT id, blob_id, path, line, col_limit, width,
			offset_start, offset_end, start_line, start_column, end_line, end_column,
			snippet_within, snippet_overflow
		FROM findings
		ORDER BY path, line, col_limit
	`)
	if err != nil {
		return nil, fmt.Errorf("querying findings: %w", err)
	}
	defer rows.Close()

	var findings []*types.Finding
	for rows.Next() {
		var f types.Finding
		var blobIDHex string
		loc := &f.Location
		err := rows.Scan(
			&f.ID,
			&blobIDHex,
			&f.Path,
			&f.Line,
			&f.Limit,
			&f.Width,
			&loc.Offset.Start,
			&loc.Offset.End,
			&loc.Source.Start.Line,
			&loc.Source.Start.Column,
			&loc.Source.End.Line,
			&loc.Source.End.Column,
			&f.Snippet.Within,
			&f.Snippet.Overflow,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning finding: %w", err)
		}

		f.BlobID, err = types.ParseBlobID(blobIDHex)
		if err != nil {
			return nil, fmt.Errorf("parsing blob ID: %w", err)
		}
		findings = append(findings, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating findings: %w", err)
	}
	return findings, nil
}

// BlobExists checks if a blob has been recorded.
func (s *SQLiteStore) BlobExists(id types.BlobID) (bool, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM blobs WHERE id = ?", id.Hex()).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking blob existence: %w", err)
	}
	return count > 0, nil
}

// MarkScanned records the content and settings path was last checked with.
func (s *SQLiteStore) MarkScanned(path string, blobID types.BlobID, fingerprint string) error {
	_, err := s.db.Exec(`
		INSERT INTO scans (path, blob_id, fingerprint) VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET blob_id = excluded.blob_id, fingerprint = excluded.fingerprint
	`, path, blobID.Hex(), fingerprint)
	if err != nil {
		return fmt.Errorf("recording scan of %s: %w", path, err)
	}
	return nil
}

// Scanned reports whether path was last checked with the same content and
// settings.
func (s *SQLiteStore) Scanned(path string, blobID types.BlobID, fingerprint string) (bool, error) {
	var blobHex, fp string
	err := s.db.QueryRow("SELECT blob_id, fingerprint FROM scans WHERE path = ?", path).Scan(&blobHex, &fp)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("looking up scan of %s: %w", path, err)
	}
	return blobHex == blobID.Hex() && fp == fingerprint, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

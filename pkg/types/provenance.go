package types

import "time"

// Provenance tracks where a scanned document came from.
type Provenance interface {
	Kind() string
	// Path returns displayable path (if applicable)
	Path() string
}

// FileProvenance for filesystem files.
type FileProvenance struct {
	FilePath string
}

// Kind returns "file".
func (f FileProvenance) Kind() string {
	return "file"
}

// Path returns the file path.
func (f FileProvenance) Path() string {
	return f.FilePath
}

// GitProvenance for blobs read from a git tree.
type GitProvenance struct {
	RepoPath string
	Commit   *CommitMetadata // nil if not tracking commit info
	BlobPath string          // path within repo at commit
}

// Kind returns "git".
func (g GitProvenance) Kind() string {
	return "git"
}

// Path returns the blob path within the repository.
func (g GitProvenance) Path() string {
	return g.BlobPath
}

// CommitMetadata holds the git commit a blob was read from.
type CommitMetadata struct {
	CommitID        string
	AuthorName      string
	AuthorEmail     string
	AuthorTimestamp time.Time
}

// DocumentProvenance for text handed over by an editor host, which may not
// exist on disk at all.
type DocumentProvenance struct {
	DocumentID string
	Name       string
}

// Kind returns "document".
func (d DocumentProvenance) Kind() string {
	return "document"
}

// Path returns the document name as reported by the host.
func (d DocumentProvenance) Path() string {
	return d.Name
}

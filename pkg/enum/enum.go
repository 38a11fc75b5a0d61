// Package enum discovers the text files to check for overflow.
package enum

import (
	"bytes"
	"context"
	"strings"
	"unicode/utf8"

	"github.com/praetorian-inc/overcol/pkg/types"
)

// Callback receives each enumerated blob.
type Callback func(content []byte, blobID types.BlobID, prov types.Provenance) error

// Enumerator discovers content to check from a source.
type Enumerator interface {
	// Enumerate yields text blobs from the source. Binary and oversized
	// files are skipped. The callback may be called from several
	// goroutines.
	Enumerate(ctx context.Context, callback Callback) error
}

// Config for enumeration.
type Config struct {
	// Root is the file or directory to enumerate.
	Root string

	// IncludeHidden includes hidden files and directories (starting with .).
	IncludeHidden bool

	// MaxFileSize is the maximum file size to process (0 = no limit).
	MaxFileSize int64

	// FollowSymlinks follows symbolic links to files.
	FollowSymlinks bool

	// Ignore holds extra gitignore-style patterns applied on top of the
	// root .gitignore.
	Ignore []string

	// Workers is the number of parallel file readers (0 = NumCPU).
	Workers int
}

// isHidden checks if a filename is hidden (starts with .).
// The special entries "." and ".." are NOT considered hidden.
func isHidden(name string) bool {
	if name == "." || name == ".." {
		return false
	}
	return strings.HasPrefix(name, ".")
}

// sniffSize is how much of a file is inspected to tell text from binary.
const sniffSize = 8192

// isText reports whether content looks like text: no NUL bytes and valid
// UTF-8 in the first sniffSize bytes.
func isText(content []byte) bool {
	head := content
	if len(head) > sniffSize {
		head = head[:sniffSize]
		// do not reject a rune cut at the sniff boundary
		for i := 0; i < utf8.UTFMax-1 && len(head) > 0 && !utf8.RuneStart(content[len(head)]); i++ {
			head = head[:len(head)-1]
		}
	}
	if bytes.IndexByte(head, 0) != -1 {
		return false
	}
	return utf8.Valid(head)
}

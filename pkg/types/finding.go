package types

import (
	"crypto/sha1"
	"encoding/hex"
	"strconv"
)

// Finding is a reported overflow: one line of one scanned document that is
// wider than the column limit it was checked against.
type Finding struct {
	ID       string   `json:"id"` // SHA-1(path + '\0' + blob_id + '\0' + line + '\0' + limit)
	BlobID   BlobID   `json:"blob_id"`
	Path     string   `json:"path"`
	Line     int      `json:"line"`
	Limit    int      `json:"limit"`
	Width    int      `json:"width"` // display width of the whole line
	Location Location `json:"location"`
	Snippet  Snippet  `json:"snippet"`
}

// ComputeFindingID computes the content-based finding ID. Rescanning the
// same content at the same path with the same limit yields the same ID.
func ComputeFindingID(path string, blobID BlobID, line, limit int) string {
	h := sha1.New()
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(blobID[:])
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(line)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(limit)))
	return hex.EncodeToString(h.Sum(nil))
}

// Excess returns how many display columns the line runs past its limit.
func (f *Finding) Excess() int {
	if f.Width <= f.Limit {
		return 0
	}
	return f.Width - f.Limit
}

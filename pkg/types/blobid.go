package types

import (
	"crypto/sha1"
	"database/sql/driver"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
)

// ErrInvalidBlobID is returned when decoding text that is not a 40-digit
// hex blob id.
var ErrInvalidBlobID = errors.New("invalid blob id")

// BlobID names file content by the hash git gives it, so the store can
// tell whether a file changed since its last scan. It is written as 40
// lowercase hex digits in JSON and SQL.
type BlobID [sha1.Size]byte

// ComputeBlobID hashes content the way `git hash-object` does.
func ComputeBlobID(content []byte) BlobID {
	buf := make([]byte, 0, len(content)+32)
	buf = append(buf, "blob "...)
	buf = strconv.AppendInt(buf, int64(len(content)), 10)
	buf = append(buf, 0)
	buf = append(buf, content...)
	return sha1.Sum(buf)
}

func (id BlobID) Hex() string { return hex.EncodeToString(id[:]) }

func (id BlobID) String() string { return id.Hex() }

// IsZero reports whether id is unset.
func (id BlobID) IsZero() bool { return id == BlobID{} }

// ParseBlobID decodes the Hex form of an id.
func ParseBlobID(s string) (BlobID, error) {
	var id BlobID
	if err := id.UnmarshalText([]byte(s)); err != nil {
		return BlobID{}, err
	}
	return id, nil
}

func (id BlobID) MarshalText() ([]byte, error) {
	out := make([]byte, hex.EncodedLen(len(id)))
	hex.Encode(out, id[:])
	return out, nil
}

func (id *BlobID) UnmarshalText(text []byte) error {
	if len(text) != hex.EncodedLen(len(id)) {
		return fmt.Errorf("%w: %d characters, want %d", ErrInvalidBlobID, len(text), hex.EncodedLen(len(id)))
	}
	var decoded BlobID
	if _, err := hex.Decode(decoded[:], text); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBlobID, err)
	}
	*id = decoded
	return nil
}

// Value stores the id as hex text.
func (id BlobID) Value() (driver.Value, error) {
	return id.Hex(), nil
}

// Scan reads an id stored by Value. Drivers may return TEXT columns as
// either string or []byte.
func (id *BlobID) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return id.UnmarshalText([]byte(v))
	case []byte:
		return id.UnmarshalText(v)
	default:
		return fmt.Errorf("%w: cannot scan %T", ErrInvalidBlobID, src)
	}
}

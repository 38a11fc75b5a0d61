package types

import "unicode/utf8"

// ComputeLineColumn computes line and column numbers from a byte offset in content.
// Lines and columns are 1-indexed and columns count runes, so a multi-byte
// character advances the column by one.
func ComputeLineColumn(content []byte, byteOffset int) (line, column int) {
	line = 1
	column = 1
	if byteOffset > len(content) {
		byteOffset = len(content)
	}
	for i := 0; i < byteOffset; {
		r, size := utf8.DecodeRune(content[i:])
		if r == '\n' {
			line++
			column = 1
		} else {
			column++
		}
		i += size
	}
	return line, column
}

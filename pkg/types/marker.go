package types

// Tag identifies the layer a Marker belongs to. Bulk operations on a marker
// set only ever touch markers carrying the set's own tag.
type Tag string

// TagOverflow is the tag carried by every marker the overflow scanner creates.
const TagOverflow Tag = "overcol"

// Marker is an annotation over the part of a line that lies beyond the column
// limit. All offsets are byte offsets into the document; LineEnd and
// OverflowEnd exclude the line terminator.
type Marker struct {
	Tag           Tag `json:"tag"`
	Line          int `json:"line"` // 1-based
	LineStart     int `json:"line_start"`
	LineEnd       int `json:"line_end"`
	OverflowStart int `json:"overflow_start"`
	OverflowEnd   int `json:"overflow_end"`
	Limit         int `json:"limit"` // column limit the line was checked against
}

// Overflow returns the highlighted byte range.
func (m Marker) Overflow() OffsetSpan {
	return OffsetSpan{Start: m.OverflowStart, End: m.OverflowEnd}
}

// LineSpan returns the byte range of the marked line.
func (m Marker) LineSpan() OffsetSpan {
	return OffsetSpan{Start: m.LineStart, End: m.LineEnd}
}

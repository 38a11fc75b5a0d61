// Package marker stores the annotations layered onto one document. A Set
// may hold markers of several tags; its bulk operations only ever touch
// markers carrying the set's own tag.
package marker

import (
	"slices"
	"sort"

	"github.com/praetorian-inc/overcol/pkg/document"
	"github.com/praetorian-inc/overcol/pkg/types"
)

// Set is the marker store of a single document. It is not safe for
// concurrent use.
//
// The set's own markers each cover one line, and lines do not overlap, so
// they are ordered by LineEnd as well as LineStart. Line range operations
// binary-search that order and only touch the markers in range.
type Set struct {
	tag     types.Tag
	own     []types.Marker // sorted by LineStart
	foreign []types.Marker // sorted by LineStart, then Tag
}

// NewSet creates an empty set owning markers tagged tag.
func NewSet(tag types.Tag) *Set {
	return &Set{tag: tag}
}

// Tag returns the tag the set owns.
func (s *Set) Tag() types.Tag {
	return s.tag
}

// Add inserts m. An untagged marker is given the set's tag.
func (s *Set) Add(m types.Marker) {
	if m.Tag == "" {
		m.Tag = s.tag
	}
	if m.Tag == s.tag {
		s.own = insert(s.own, m)
	} else {
		s.foreign = insert(s.foreign, m)
	}
}

func less(a, b types.Marker) bool {
	if a.LineStart != b.LineStart {
		return a.LineStart < b.LineStart
	}
	return a.Tag < b.Tag
}

// insert adds m after every marker not greater than it. Appending in
// document order never moves existing markers.
func insert(list []types.Marker, m types.Marker) []types.Marker {
	i := sort.Search(len(list), func(i int) bool { return less(m, list[i]) })
	list = append(list, types.Marker{})
	copy(list[i+1:], list[i:])
	list[i] = m
	return list
}

// window returns the bounds of the own markers whose line intersects
// [lineStart, lineEnd].
func (s *Set) window(lineStart, lineEnd int) (int, int) {
	hi := sort.Search(len(s.own), func(i int) bool { return s.own[i].LineStart > lineEnd })
	lo := sort.Search(hi, func(i int) bool { return s.own[i].LineEnd >= lineStart })
	return lo, hi
}

// RemoveInLineRange removes the set's own markers whose line intersects
// [lineStart, lineEnd]. It returns the number removed.
func (s *Set) RemoveInLineRange(lineStart, lineEnd int) int {
	lo, hi := s.window(lineStart, lineEnd)
	if lo == hi {
		return 0
	}
	n := len(s.own)
	s.own = append(s.own[:lo], s.own[hi:]...)
	clear(s.own[len(s.own):n])
	return hi - lo
}

// ReplaceInLineRange removes the set's own markers whose line intersects
// [lineStart, lineEnd] and puts ms in their place. ms must be in document
// order and lie within the range. Untagged markers are given the set's
// tag; markers of other tags are added as by Add. It returns the number
// removed.
func (s *Set) ReplaceInLineRange(lineStart, lineEnd int, ms []types.Marker) int {
	lo, hi := s.window(lineStart, lineEnd)
	own := make([]types.Marker, 0, len(ms))
	for _, m := range ms {
		switch m.Tag {
		case "", s.tag:
			m.Tag = s.tag
			own = append(own, m)
		default:
			s.foreign = insert(s.foreign, m)
		}
	}
	s.own = slices.Replace(s.own, lo, hi, own...)
	return hi - lo
}

// RemoveAll removes every marker carrying the set's tag and returns the
// number removed. Markers of other tags stay.
func (s *Set) RemoveAll() int {
	n := len(s.own)
	clear(s.own)
	s.own = s.own[:0]
	return n
}

// InRange returns copies of the markers of any tag whose line intersects
// [start, end], in document order.
func (s *Set) InRange(start, end int) []types.Marker {
	lo, hi := s.window(start, end)
	own := s.own[lo:hi]

	var foreign []types.Marker
	for _, m := range s.foreign {
		if m.LineStart > end {
			break
		}
		if start <= m.LineEnd {
			foreign = append(foreign, m)
		}
	}
	if len(own) == 0 && len(foreign) == 0 {
		return nil
	}
	return merge(own, foreign)
}

// merge returns a new slice holding a and b in document order.
func merge(a, b []types.Marker) []types.Marker {
	out := make([]types.Marker, 0, len(a)+len(b))
	for len(a) > 0 && len(b) > 0 {
		if less(b[0], a[0]) {
			out = append(out, b[0])
			b = b[1:]
		} else {
			out = append(out, a[0])
			a = a[1:]
		}
	}
	out = append(out, a...)
	return append(out, b...)
}

// Owned returns copies of the set's own markers in document order.
func (s *Set) Owned() []types.Marker {
	if len(s.own) == 0 {
		return nil
	}
	return append([]types.Marker(nil), s.own...)
}

// All returns copies of every marker in the set.
func (s *Set) All() []types.Marker {
	if len(s.own) == 0 && len(s.foreign) == 0 {
		return nil
	}
	return merge(s.own, s.foreign)
}

// Len returns the number of markers the set owns.
func (s *Set) Len() int {
	return len(s.own)
}

// ApplyEdit keeps markers attached to their text after an edit: markers
// entirely after the replaced region move by the edit delta, the set's own
// markers touching the region are dropped (the caller rescans those lines),
// and foreign markers touching it are clamped into the new text.
func (s *Set) ApplyEdit(e document.Edit) {
	s.own = applyEdit(s.own, e, true)
	s.foreign = applyEdit(s.foreign, e, false)
}

// applyEdit shifts list in place. The shift functions are monotonic, so
// the list stays sorted.
func applyEdit(list []types.Marker, e document.Edit, dropTouching bool) []types.Marker {
	delta := e.Delta()
	kept := list[:0]
	for _, m := range list {
		switch {
		case m.LineStart > e.OldEnd:
			m.Line += e.LineDelta
			m.LineStart += delta
			m.LineEnd += delta
			m.OverflowStart += delta
			m.OverflowEnd += delta
		case m.LineEnd < e.Start:
			// before the edit
		case dropTouching:
			continue
		default:
			m.LineStart = shiftStart(m.LineStart, e)
			m.LineEnd = shiftEnd(m.LineEnd, e)
			m.OverflowStart = shiftStart(m.OverflowStart, e)
			m.OverflowEnd = shiftEnd(m.OverflowEnd, e)
		}
		kept = append(kept, m)
	}
	clear(list[len(kept):])
	return kept
}

func shiftStart(off int, e document.Edit) int {
	switch {
	case off < e.Start:
		return off
	case off >= e.OldEnd:
		return off + e.Delta()
	default:
		return e.Start
	}
}

func shiftEnd(off int, e document.Edit) int {
	switch {
	case off <= e.Start:
		return off
	case off >= e.OldEnd:
		return off + e.Delta()
	default:
		return e.NewEnd
	}
}

// Package document holds the text of one open document together with a line
// index, and notifies observers about edits and render requests. It models
// the services an editor host provides to the overflow engine.
package document

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrOutOfRange is returned when an edit addresses offsets outside the text.
var ErrOutOfRange = errors.New("offset out of range")

// Line describes one line of a document. Start and End are byte offsets; End
// excludes the line terminator ("\n" or "\r\n").
type Line struct {
	Number int // 1-based
	Start  int
	End    int
}

// Edit describes a replacement that has been applied to a document: the
// bytes formerly in [Start, OldEnd) now occupy [Start, NewEnd).
type Edit struct {
	Start  int
	OldEnd int
	NewEnd int
	// LineDelta is the change in line count caused by the edit.
	LineDelta int
}

// Delta returns the change in document length caused by the edit.
func (e Edit) Delta() int {
	return (e.NewEnd - e.Start) - (e.OldEnd - e.Start)
}

// Observer is notified after every edit and whenever the host asks for a
// range to be redrawn.
type Observer interface {
	OnEdit(e Edit)
	OnRender(start, end int)
}

// Document is a mutable text buffer. It is not safe for concurrent use; the
// host drives it from a single goroutine.
type Document struct {
	name       string
	text       string
	lineStarts []int
	version    uint64

	observers map[int]Observer
	nextID    int
}

// New creates a document named name holding text.
func New(name, text string) *Document {
	d := &Document{
		name:      name,
		text:      text,
		observers: make(map[int]Observer),
	}
	d.reindex()
	return d
}

// Name returns the document name (usually a file path).
func (d *Document) Name() string { return d.name }

// Text returns the full document text.
func (d *Document) Text() string { return d.text }

// Len returns the document length in bytes.
func (d *Document) Len() int { return len(d.text) }

// Version increments on every applied edit.
func (d *Document) Version() uint64 { return d.version }

// LineCount returns the number of lines. An empty document has one empty
// line, and a trailing newline starts a final empty line.
func (d *Document) LineCount() int { return len(d.lineStarts) }

// Line returns the line with 0-based index i.
func (d *Document) Line(i int) Line {
	start := d.lineStarts[i]
	end := len(d.text)
	if i+1 < len(d.lineStarts) {
		end = d.lineStarts[i+1] - 1
		if end > start && d.text[end-1] == '\r' {
			end--
		}
	} else if end > start && d.text[end-1] == '\r' {
		end--
	}
	return Line{Number: i + 1, Start: start, End: end}
}

// LineIndexAt returns the 0-based index of the line containing offset.
// Offsets are clamped to the document.
func (d *Document) LineIndexAt(offset int) int {
	if offset <= 0 {
		return 0
	}
	if offset > len(d.text) {
		offset = len(d.text)
	}
	// first line starting after offset, minus one
	return sort.SearchInts(d.lineStarts, offset+1) - 1
}

// LineAt returns the line containing offset.
func (d *Document) LineAt(offset int) Line {
	return d.Line(d.LineIndexAt(offset))
}

// LineText returns the text of l without its terminator.
func (d *Document) LineText(l Line) string {
	return d.text[l.Start:l.End]
}

// Slice returns the text in [start, end), clamped to the document.
func (d *Document) Slice(start, end int) string {
	start, end = d.clamp(start, end)
	return d.text[start:end]
}

// Replace substitutes text for the bytes in [start, end) and notifies
// observers. It returns the applied edit.
func (d *Document) Replace(start, end int, text string) (Edit, error) {
	if start < 0 || end < start || end > len(d.text) {
		return Edit{}, fmt.Errorf("replace [%d,%d) in document of length %d: %w", start, end, len(d.text), ErrOutOfRange)
	}

	lineDelta := strings.Count(text, "\n") - strings.Count(d.text[start:end], "\n")

	var b strings.Builder
	b.Grow(len(d.text) - (end - start) + len(text))
	b.WriteString(d.text[:start])
	b.WriteString(text)
	b.WriteString(d.text[end:])
	d.text = b.String()
	d.version++
	d.reindex()

	e := Edit{Start: start, OldEnd: end, NewEnd: start + len(text), LineDelta: lineDelta}
	for _, id := range d.observerIDs() {
		d.observers[id].OnEdit(e)
	}
	return e, nil
}

// Insert inserts text at offset.
func (d *Document) Insert(offset int, text string) (Edit, error) {
	return d.Replace(offset, offset, text)
}

// Delete removes the bytes in [start, end).
func (d *Document) Delete(start, end int) (Edit, error) {
	return d.Replace(start, end, "")
}

// RequestRender tells observers that [start, end) is about to be displayed.
func (d *Document) RequestRender(start, end int) {
	start, end = d.clamp(start, end)
	for _, id := range d.observerIDs() {
		d.observers[id].OnRender(start, end)
	}
}

// AddObserver registers o and returns an id for RemoveObserver.
func (d *Document) AddObserver(o Observer) int {
	d.nextID++
	d.observers[d.nextID] = o
	return d.nextID
}

// RemoveObserver unregisters the observer with the given id.
func (d *Document) RemoveObserver(id int) {
	delete(d.observers, id)
}

// ObserverCount returns the number of registered observers.
func (d *Document) ObserverCount() int {
	return len(d.observers)
}

// observerIDs returns registration ids in ascending order so notification
// order is deterministic.
func (d *Document) observerIDs() []int {
	ids := make([]int, 0, len(d.observers))
	for id := range d.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (d *Document) clamp(start, end int) (int, int) {
	if start < 0 {
		start = 0
	}
	if end > len(d.text) {
		end = len(d.text)
	}
	if start > end {
		start = end
	}
	return start, end
}

func (d *Document) reindex() {
	d.lineStarts = d.lineStarts[:0]
	d.lineStarts = append(d.lineStarts, 0)
	for i := 0; i < len(d.text); i++ {
		if d.text[i] == '\n' {
			d.lineStarts = append(d.lineStarts, i+1)
		}
	}
}

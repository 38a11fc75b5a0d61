// Package display computes rendered (display) columns of text the way a
// terminal or fixed-width editor lays it out: tabs advance to the next tab
// stop, East Asian wide glyphs and most emoji take two cells, combining marks
// take none. Columns are 0-based.
package display

import (
	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

// DefaultTabWidth is the tab stop distance used when none is configured.
const DefaultTabWidth = 8

// Measurer computes display columns for single lines of text. The zero value
// uses DefaultTabWidth.
type Measurer struct {
	TabWidth int
}

// NewMeasurer returns a Measurer with the given tab width. Non-positive
// widths select DefaultTabWidth.
func NewMeasurer(tabWidth int) Measurer {
	return Measurer{TabWidth: tabWidth}
}

func (m Measurer) tabWidth() int {
	if m.TabWidth <= 0 {
		return DefaultTabWidth
	}
	return m.TabWidth
}

// Width returns the display width of line. line must not contain newlines.
func (m Measurer) Width(line string) int {
	col := 0
	g := uniseg.NewGraphemes(line)
	for g.Next() {
		col += m.cellWidth(g.Str(), col)
	}
	return col
}

// OffsetAtColumn returns the byte offset within line of the first grapheme
// cluster that starts at or after display column col. A cluster that straddles
// col (a tab or a wide glyph) is stepped over. When the line is narrower than
// col the result is len(line).
func (m Measurer) OffsetAtColumn(line string, col int) int {
	if col <= 0 {
		return 0
	}
	cur := 0
	g := uniseg.NewGraphemes(line)
	for g.Next() {
		if cur >= col {
			start, _ := g.Positions()
			return start
		}
		cur += m.cellWidth(g.Str(), cur)
	}
	return len(line)
}

// ColumnAtOffset returns the display column at which the byte offset off of
// line is rendered. Offsets inside a grapheme cluster resolve to the start of
// that cluster.
func (m Measurer) ColumnAtOffset(line string, off int) int {
	cur := 0
	g := uniseg.NewGraphemes(line)
	for g.Next() {
		_, end := g.Positions()
		if end > off {
			return cur
		}
		cur += m.cellWidth(g.Str(), cur)
	}
	return cur
}

// cellWidth returns the number of cells cluster occupies when it starts at
// display column col.
func (m Measurer) cellWidth(cluster string, col int) int {
	if cluster == "\t" {
		return tabAdvance(col, m.tabWidth())
	}
	w := runewidth.StringWidth(cluster)
	if w <= 0 {
		w = uniseg.StringWidth(cluster)
	}
	if w < 0 {
		w = 0
	}
	return w
}

func tabAdvance(col, tabWidth int) int {
	adv := tabWidth - col%tabWidth
	if adv < 1 {
		return 1
	}
	return adv
}

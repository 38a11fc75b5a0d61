// Package style describes how overflow text is highlighted and renders it
// for terminals.
package style

import (
	"errors"
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"

	"github.com/praetorian-inc/overcol/pkg/types"
)

// ErrUnknownFace is returned when a descriptor inherits from a face that
// does not exist.
var ErrUnknownFace = errors.New("unknown face")

// Descriptor is a visual style. Attributes set on the descriptor are added
// to those of the face it inherits from.
type Descriptor struct {
	Inherit    string `mapstructure:"inherit" yaml:"inherit,omitempty" json:"inherit,omitempty"`
	Foreground string `mapstructure:"foreground" yaml:"foreground,omitempty" json:"foreground,omitempty"`
	Background string `mapstructure:"background" yaml:"background,omitempty" json:"background,omitempty"`
	Bold       bool   `mapstructure:"bold" yaml:"bold,omitempty" json:"bold,omitempty"`
	Italic     bool   `mapstructure:"italic" yaml:"italic,omitempty" json:"italic,omitempty"`
	Underline  bool   `mapstructure:"underline" yaml:"underline,omitempty" json:"underline,omitempty"`
}

// Colors
var (
	colorWarning = "#FF8C00" // dark orange
	colorError   = "9"       // red
	colorMuted   = "8"       // gray
	colorAccent  = "#11C3DB" // cyan
)

// faces are the named base styles a descriptor can inherit from.
var faces = map[string]Descriptor{
	"default":   {},
	"warning":   {Foreground: colorWarning, Bold: true},
	"error":     {Foreground: colorError, Bold: true},
	"shadow":    {Foreground: colorMuted},
	"highlight": {Foreground: colorAccent, Underline: true},
}

// Default is the highlight used for overflow: the warning face underlined.
func Default() Descriptor {
	return Descriptor{Inherit: "warning", Underline: true}
}

// Faces returns the names of the built-in faces, sorted.
func Faces() []string {
	names := make([]string, 0, len(faces))
	for name := range faces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve flattens the inheritance chain of d.
func (d Descriptor) Resolve() (Descriptor, error) {
	seen := map[string]bool{}
	out := d
	for name := d.Inherit; name != ""; {
		if seen[name] {
			return Descriptor{}, fmt.Errorf("face %q inherits from itself", name)
		}
		seen[name] = true
		base, ok := faces[name]
		if !ok {
			return Descriptor{}, fmt.Errorf("%w: %q", ErrUnknownFace, name)
		}
		out = merge(base, out)
		name = base.Inherit
	}
	out.Inherit = ""
	return out, nil
}

// merge overlays the attributes set in top onto base.
func merge(base, top Descriptor) Descriptor {
	if top.Foreground != "" {
		base.Foreground = top.Foreground
	}
	if top.Background != "" {
		base.Background = top.Background
	}
	base.Bold = base.Bold || top.Bold
	base.Italic = base.Italic || top.Italic
	base.Underline = base.Underline || top.Underline
	return base
}

// Validate reports whether d resolves.
func (d Descriptor) Validate() error {
	_, err := d.Resolve()
	return err
}

// Lipgloss converts d into a lipgloss style. An unresolvable descriptor
// falls back to Default.
func (d Descriptor) Lipgloss() lipgloss.Style {
	r, err := d.Resolve()
	if err != nil {
		r, _ = Default().Resolve()
	}
	s := lipgloss.NewStyle().
		Bold(r.Bold).
		Italic(r.Italic).
		Underline(r.Underline)
	if r.Foreground != "" {
		s = s.Foreground(lipgloss.Color(r.Foreground))
	}
	if r.Background != "" {
		s = s.Background(lipgloss.Color(r.Background))
	}
	return s
}

// Highlighter renders lines with their overflow part styled.
type Highlighter struct {
	style lipgloss.Style
}

// NewHighlighter creates a Highlighter for d.
func NewHighlighter(d Descriptor) *Highlighter {
	return &Highlighter{style: d.Lipgloss()}
}

// Style returns the underlying lipgloss style.
func (h *Highlighter) Style() lipgloss.Style { return h.style }

// Render returns line with the bytes from overflowStart on styled.
// overflowStart is relative to the start of line.
func (h *Highlighter) Render(line string, overflowStart int) string {
	if overflowStart < 0 {
		overflowStart = 0
	}
	if overflowStart >= len(line) {
		return line
	}
	return line[:overflowStart] + h.style.Render(line[overflowStart:])
}

// RenderMarker renders the line of m taken from text, the full document
// text the marker was computed on.
func (h *Highlighter) RenderMarker(text string, m types.Marker) string {
	return h.Render(text[m.LineStart:m.LineEnd], m.OverflowStart-m.LineStart)
}

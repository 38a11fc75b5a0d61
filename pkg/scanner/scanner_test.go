package scanner

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praetorian-inc/overcol/pkg/document"
	"github.com/praetorian-inc/overcol/pkg/marker"
	"github.com/praetorian-inc/overcol/pkg/policy"
	"github.com/praetorian-inc/overcol/pkg/syntax"
	"github.com/praetorian-inc/overcol/pkg/types"
)

func newScanner(limit int) *Scanner {
	cfg := DefaultConfig()
	cfg.Policy = policy.Fixed(limit)
	return New(cfg)
}

func TestScan_Boundary(t *testing.T) {
	s := newScanner(10)

	tests := []struct {
		name string
		line string
		want []types.OffsetSpan
	}{
		{"exactly at boundary", "abcdefghij", nil},
		{"one past boundary", "abcdefghijk", []types.OffsetSpan{{Start: 10, End: 11}}},
		{"short", "short", nil},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := document.New("t.txt", tt.line)
			var got []types.OffsetSpan
			for _, m := range s.ScanAll(doc) {
				got = append(got, m.Overflow())
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScan_MarkerFields(t *testing.T) {
	doc := document.New("t.txt", "ok\nabcdefghijklmno\r\nfine\n")
	markers := newScanner(10).ScanAll(doc)

	require.Len(t, markers, 1)
	m := markers[0]
	assert.Equal(t, types.TagOverflow, m.Tag)
	assert.Equal(t, 2, m.Line)
	assert.Equal(t, 3, m.LineStart)
	assert.Equal(t, 18, m.LineEnd, "line end excludes CRLF")
	assert.Equal(t, 13, m.OverflowStart)
	assert.Equal(t, m.LineEnd, m.OverflowEnd)
	assert.Equal(t, 10, m.Limit)
}

func TestScan_DisplayColumns(t *testing.T) {
	s := newScanner(10)

	// a tab reaches column 8, so "\tab" is exactly 10 columns wide
	assert.Empty(t, s.ScanAll(document.New("", "\tab")))

	markers := s.ScanAll(document.New("", "\tabc"))
	require.Len(t, markers, 1)
	assert.Equal(t, 3, markers[0].OverflowStart)

	// five wide glyphs fill ten columns
	assert.Empty(t, s.ScanAll(document.New("", "日本語日本")))
	markers = s.ScanAll(document.New("", "日本語日本x"))
	require.Len(t, markers, 1)
	assert.Equal(t, 15, markers[0].OverflowStart)
}

func TestScan_SubRangeIsLineAligned(t *testing.T) {
	text := strings.Join([]string{
		strings.Repeat("a", 12),
		strings.Repeat("b", 12),
		strings.Repeat("c", 12),
	}, "\n")
	doc := document.New("", text)
	s := newScanner(10)

	// a single offset in the middle of line 2
	markers := s.Scan(doc, 15, 15)
	require.Len(t, markers, 1)
	assert.Equal(t, 2, markers[0].Line)

	// reversed ranges are accepted
	assert.Len(t, s.Scan(doc, 30, 0), 3)
}

func TestScan_FailingResolverUsesDefault(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Policy = policy.Policy{Resolver: func(policy.LineContext) (int, error) {
		return 0, errors.New("resolver exploded")
	}}
	s := New(cfg)

	doc := document.New("", strings.Repeat("x", 80)+"\n"+strings.Repeat("y", 81)+"\n"+strings.Repeat("z", 15))
	markers := s.ScanAll(doc)
	require.Len(t, markers, 1)
	assert.Equal(t, 2, markers[0].Line)
	assert.Equal(t, policy.DefaultLimit, markers[0].Limit)
}

func TestScan_ResolverSeesLineContext(t *testing.T) {
	var seen []policy.LineContext
	cfg := DefaultConfig()
	cfg.Language = "Go"
	cfg.Policy = policy.Policy{Resolver: func(ctx policy.LineContext) (int, error) {
		seen = append(seen, ctx)
		if ctx.Line == 1 {
			return 5, nil
		}
		return 50, nil
	}}
	s := New(cfg)

	doc := document.New("main.go", "package main\nfunc main() {}\n")
	markers := s.ScanAll(doc)
	require.Len(t, markers, 1)
	assert.Equal(t, 1, markers[0].Line)
	assert.Equal(t, 5, markers[0].OverflowStart)

	require.Len(t, seen, 2, "empty trailing line is not resolved")
	assert.Equal(t, "main.go", seen[0].DocumentName)
	assert.Equal(t, "Go", seen[1].Language)
	assert.Equal(t, 13, seen[1].LineStart)
}

func TestScan_Comments(t *testing.T) {
	src := "package main\n\n// " + strings.Repeat("c", 20) + "\nvar x = 1 // " + strings.Repeat("d", 20) + "\nvar yyyyyyyyyyyyyyyyyyyyy = 2\n"
	doc := document.New("main.go", src)
	classifier := syntax.NewClassifier(syntax.Detect(doc.Name(), src), nil)

	cfg := DefaultConfig()
	cfg.Policy = policy.Fixed(12)
	cfg.Classifier = classifier

	withComments := New(cfg).ScanAll(doc)
	assert.Len(t, withComments, 3)

	cfg.IncludeComments = false
	lines := []int{}
	for _, m := range New(cfg).ScanAll(doc) {
		lines = append(lines, m.Line)
	}
	assert.Equal(t, []int{5}, lines, "overflow starting inside a comment is ignored")
}

type brokenClassifier struct{}

func (brokenClassifier) InComment(*document.Document, int) (bool, error) {
	return true, errors.New("syntax state unavailable")
}

func TestScan_ClassificationFailureCountsAsCode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Policy = policy.Fixed(3)
	cfg.IncludeComments = false
	cfg.Classifier = brokenClassifier{}

	markers := New(cfg).ScanAll(document.New("", "abcdef"))
	assert.Len(t, markers, 1)
}

func TestScan_Exclude(t *testing.T) {
	excludes, err := CompileExcludes([]string{`https?://`, `^\s*//go:generate`})
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Policy = policy.Fixed(10)
	cfg.Exclude = excludes

	doc := document.New("", "see https://example.com/a/long/path\n//go:generate stringer -type=Kind\nplain long line here\n")
	markers := New(cfg).ScanAll(doc)
	require.Len(t, markers, 1)
	assert.Equal(t, 3, markers[0].Line)

	_, err = CompileExcludes([]string{"("})
	assert.Error(t, err)
}

func TestRescan_ReplacesLineMarkers(t *testing.T) {
	doc := document.New("", "abcdefghijkl\nabcdefghijkl\nabc")
	set := marker.NewSet(types.TagOverflow)
	s := newScanner(10)

	s.Rescan(doc, set, 0, doc.Len())
	require.Equal(t, 2, set.Len())
	first := set.Owned()

	s.Rescan(doc, set, 0, doc.Len())
	assert.Equal(t, first, set.Owned(), "rescanning an unchanged range is idempotent")

	s.SetPolicy(policy.Fixed(11))
	s.Rescan(doc, set, 0, 5)
	owned := set.Owned()
	require.Len(t, owned, 2)
	assert.Equal(t, 11, owned[0].OverflowStart, "rescanned line picks up the new limit")
	assert.Equal(t, first[1], owned[1], "untouched line keeps its marker")
}

func TestRescan_KeepsForeignMarkers(t *testing.T) {
	doc := document.New("", "abcdefghijkl")
	set := marker.NewSet(types.TagOverflow)
	spell := types.Marker{Tag: "spellcheck", Line: 1, LineStart: 0, LineEnd: 12, OverflowStart: 0, OverflowEnd: 3}
	set.Add(spell)

	s := newScanner(10)
	s.Rescan(doc, set, 0, doc.Len())
	s.Rescan(doc, set, 0, doc.Len())

	assert.Equal(t, 1, set.Len())
	assert.Len(t, set.All(), 2)
	assert.Contains(t, set.All(), spell)
}

// Package scanner finds lines whose display width exceeds the column limit
// and produces overflow markers for them.
package scanner

import (
	"errors"
	"fmt"
	"time"

	"github.com/dlclark/regexp2"
	"go.uber.org/zap"

	"github.com/praetorian-inc/overcol/pkg/display"
	"github.com/praetorian-inc/overcol/pkg/document"
	"github.com/praetorian-inc/overcol/pkg/marker"
	"github.com/praetorian-inc/overcol/pkg/policy"
	"github.com/praetorian-inc/overcol/pkg/syntax"
	"github.com/praetorian-inc/overcol/pkg/types"
)

// Classifier reports whether an offset of a document is inside a comment.
// *syntax.Classifier implements it.
type Classifier interface {
	InComment(doc *document.Document, offset int) (bool, error)
}

// Config configures a Scanner.
type Config struct {
	// Policy resolves the column limit per line.
	Policy policy.Policy

	// IncludeComments makes overflow that starts inside a comment count.
	IncludeComments bool

	// TabWidth is the tab stop distance (0 = display.DefaultTabWidth).
	TabWidth int

	// Classifier tells comments from code. Nil means nothing is a comment.
	Classifier Classifier

	// Language is passed to the policy in every LineContext.
	Language string

	// Exclude skips lines matching any of the patterns.
	Exclude []*regexp2.Regexp

	// Tag is put on every produced marker (default types.TagOverflow).
	Tag types.Tag

	Logger *zap.Logger
}

// DefaultConfig returns the default configuration: limit 80, comments
// included, tab width 8.
func DefaultConfig() Config {
	return Config{
		Policy:          policy.Fixed(policy.DefaultLimit),
		IncludeComments: true,
		TabWidth:        display.DefaultTabWidth,
		Tag:             types.TagOverflow,
	}
}

// Scanner checks document lines against a column policy. A Scanner keeps no
// markers itself; Rescan writes into a caller-owned marker.Set.
type Scanner struct {
	cfg     Config
	measure display.Measurer
	logger  *zap.Logger
}

// New creates a Scanner.
func New(cfg Config) *Scanner {
	if cfg.Tag == "" {
		cfg.Tag = types.TagOverflow
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.Policy = cfg.Policy.WithLogger(logger)
	return &Scanner{
		cfg:     cfg,
		measure: display.NewMeasurer(cfg.TabWidth),
		logger:  logger,
	}
}

// Policy returns the active column policy.
func (s *Scanner) Policy() policy.Policy {
	return s.cfg.Policy
}

// SetPolicy replaces the column policy used by subsequent scans.
func (s *Scanner) SetPolicy(p policy.Policy) {
	s.cfg.Policy = p.WithLogger(s.logger)
}

// Measurer returns the display-width measurer used for column computation.
func (s *Scanner) Measurer() display.Measurer {
	return s.measure
}

// Scan returns one marker for every overflowing line intersecting
// [start, end]. Lines cut by the range are checked whole.
func (s *Scanner) Scan(doc *document.Document, start, end int) []types.Marker {
	var out []types.Marker
	s.eachLine(doc, start, end, func(line document.Line) {
		if m, ok := s.checkLine(doc, line); ok {
			out = append(out, m)
		}
	})
	return out
}

// Rescan replaces the markers of every line intersecting [start, end] in set
// with freshly computed ones and returns the new markers. Calling it twice
// on an unchanged range leaves the set as it was after the first call.
func (s *Scanner) Rescan(doc *document.Document, set *marker.Set, start, end int) []types.Marker {
	if end < start {
		start, end = end, start
	}
	first := doc.LineAt(start)
	last := doc.LineAt(end)
	out := s.Scan(doc, start, end)
	set.ReplaceInLineRange(first.Start, last.End, out)
	return out
}

// ScanAll scans the whole document.
func (s *Scanner) ScanAll(doc *document.Document) []types.Marker {
	return s.Scan(doc, 0, doc.Len())
}

func (s *Scanner) eachLine(doc *document.Document, start, end int, fn func(document.Line)) {
	if end < start {
		start, end = end, start
	}
	first := doc.LineIndexAt(start)
	last := doc.LineIndexAt(end)
	for i := first; i <= last; i++ {
		fn(doc.Line(i))
	}
}

func (s *Scanner) checkLine(doc *document.Document, line document.Line) (types.Marker, bool) {
	text := doc.LineText(line)
	if text == "" {
		return types.Marker{}, false
	}

	limit := s.cfg.Policy.Resolve(policy.LineContext{
		Line:         line.Number,
		LineStart:    line.Start,
		LineEnd:      line.End,
		DocumentName: doc.Name(),
		Language:     s.cfg.Language,
	})

	at := line.Start + s.measure.OffsetAtColumn(text, limit)
	if at >= line.End {
		return types.Marker{}, false
	}
	if s.excluded(text) {
		return types.Marker{}, false
	}
	if !s.cfg.IncludeComments && s.inComment(doc, at) {
		return types.Marker{}, false
	}

	return types.Marker{
		Tag:           s.cfg.Tag,
		Line:          line.Number,
		LineStart:     line.Start,
		LineEnd:       line.End,
		OverflowStart: at,
		OverflowEnd:   line.End,
		Limit:         limit,
	}, true
}

// inComment treats any classification failure as code.
func (s *Scanner) inComment(doc *document.Document, offset int) bool {
	if s.cfg.Classifier == nil {
		return false
	}
	in, err := s.cfg.Classifier.InComment(doc, offset)
	if err != nil {
		if !errors.Is(err, syntax.ErrClassificationUnavailable) {
			err = errors.Join(syntax.ErrClassificationUnavailable, err)
		}
		s.logger.Debug("comment classification failed, treating as code",
			zap.String("document", doc.Name()),
			zap.Int("offset", offset),
			zap.Error(err))
		return false
	}
	return in
}

func (s *Scanner) excluded(text string) bool {
	for _, re := range s.cfg.Exclude {
		ok, err := re.MatchString(text)
		if err != nil {
			// regexp2 only fails on match timeouts
			s.logger.Debug("exclude pattern failed", zap.String("pattern", re.String()), zap.Error(err))
			continue
		}
		if ok {
			return true
		}
	}
	return false
}

// excludeTimeout bounds a single exclusion match.
const excludeTimeout = 100 * time.Millisecond

// CompileExcludes compiles exclusion patterns. regexp2 is used so patterns
// may use lookaround and backreferences.
func CompileExcludes(patterns []string) ([]*regexp2.Regexp, error) {
	out := make([]*regexp2.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp2.Compile(p, regexp2.None)
		if err != nil {
			return nil, fmt.Errorf("compiling exclude pattern %q: %w", p, err)
		}
		re.MatchTimeout = excludeTimeout
		out = append(out, re)
	}
	return out, nil
}

// Package overcol flags text that runs past a column limit.
//
// The engine measures every line in display columns (tabs advance to the
// next tab stop, wide glyphs take two cells) and marks the part of a line
// beyond the limit. It can check content once and report findings, or keep
// a live document's markers current as it is edited.
//
// # Basic Usage
//
// Check content against the default 80 column limit:
//
//	engine, err := overcol.NewEngine()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	findings, err := engine.CheckFile("main.go")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, f := range findings {
//	    fmt.Printf("%s:%d is %d columns wide\n", f.Path, f.Line, f.Width)
//	}
//
// # Live Documents
//
// Open a session to keep markers in sync with edits:
//
//	engine, _ := overcol.NewEngine(overcol.WithLimit(100))
//	session := engine.Open("main.go", text)
//	session.Mode.ToggleIfApplicable()
//
//	session.Doc.Insert(0, "// a new and rather long first line\n")
//	for _, m := range session.Markers() {
//	    fmt.Println(m.Line, m.OverflowStart, m.OverflowEnd)
//	}
package overcol

import (
	"fmt"
	"os"
	"time"

	"github.com/dlclark/regexp2"
	"go.uber.org/zap"

	"github.com/praetorian-inc/overcol/pkg/display"
	"github.com/praetorian-inc/overcol/pkg/document"
	"github.com/praetorian-inc/overcol/pkg/mode"
	"github.com/praetorian-inc/overcol/pkg/policy"
	"github.com/praetorian-inc/overcol/pkg/scanner"
	"github.com/praetorian-inc/overcol/pkg/syntax"
	"github.com/praetorian-inc/overcol/pkg/types"
)

// Re-export commonly used types for convenience.
type (
	// Marker is one overflow annotation.
	Marker = types.Marker

	// Finding is a reported overflow of checked content.
	Finding = types.Finding

	// Policy resolves the column limit of a line.
	Policy = policy.Policy

	// LineContext describes the line a limit is resolved for.
	LineContext = policy.LineContext

	// ResolverFunc computes a per-line limit.
	ResolverFunc = policy.ResolverFunc
)

// DefaultLimit is the column limit used when nothing else is configured.
const DefaultLimit = policy.DefaultLimit

// ErrInvalidLimit is returned for limits that are not positive.
var ErrInvalidLimit = policy.ErrInvalidLimit

// defaultCacheTTL bounds how long tokenised documents are kept.
const defaultCacheTTL = 10 * time.Minute

// engineConfig holds engine configuration.
type engineConfig struct {
	policy          policy.Policy
	limitSet        bool
	includeComments bool
	tabWidth        int
	exclude         []string
	logger          *zap.Logger
	cacheTTL        time.Duration
}

// Option configures an Engine.
type Option func(*engineConfig)

// WithLimit sets a fixed column limit. Default is 80.
func WithLimit(n int) Option {
	return func(c *engineConfig) {
		c.policy.Limit = n
		c.limitSet = true
	}
}

// WithFallbackWidth sets the limit used when no fixed limit is set.
func WithFallbackWidth(n int) Option {
	return func(c *engineConfig) {
		c.policy.FallbackWidth = n
	}
}

// WithResolver computes the limit per line. The resolver overrides the fixed
// limit; when it fails the line is checked against 80 columns. The resolver
// may be called from several goroutines when checking content concurrently.
func WithResolver(fn ResolverFunc) Option {
	return func(c *engineConfig) {
		c.policy.Resolver = fn
	}
}

// WithPolicy replaces the whole column policy.
func WithPolicy(p Policy) Option {
	return func(c *engineConfig) {
		c.policy = p
	}
}

// WithIncludeComments controls whether overflow starting inside a comment is
// reported. Default is true.
func WithIncludeComments(include bool) Option {
	return func(c *engineConfig) {
		c.includeComments = include
	}
}

// WithTabWidth sets the tab stop distance. Default is 8.
func WithTabWidth(n int) Option {
	return func(c *engineConfig) {
		c.tabWidth = n
	}
}

// WithExclude skips lines matching any of the given regular expressions.
func WithExclude(patterns ...string) Option {
	return func(c *engineConfig) {
		c.exclude = append(c.exclude, patterns...)
	}
}

// WithLogger sets the logger for diagnostics. Default discards output.
func WithLogger(l *zap.Logger) Option {
	return func(c *engineConfig) {
		c.logger = l
	}
}

// WithCacheTTL sets how long tokenised content is cached for comment
// classification.
func WithCacheTTL(d time.Duration) Option {
	return func(c *engineConfig) {
		c.cacheTTL = d
	}
}

// Engine checks content and opens live sessions. It is safe for concurrent
// use as long as a custom resolver is.
type Engine struct {
	config   *engineConfig
	excludes []*regexp2.Regexp
	cache    *syntax.Cache
	logger   *zap.Logger
}

// NewEngine creates an Engine with the given options.
//
// By default, the engine:
//   - Checks every line against an 80 column limit
//   - Reports overflow inside comments
//   - Uses a tab width of 8
func NewEngine(opts ...Option) (*Engine, error) {
	config := &engineConfig{
		includeComments: true,
		tabWidth:        display.DefaultTabWidth,
		cacheTTL:        defaultCacheTTL,
	}
	for _, opt := range opts {
		opt(config)
	}

	if config.limitSet {
		if err := policy.ValidateLimit(config.policy.Limit); err != nil {
			return nil, err
		}
	}
	if config.tabWidth <= 0 {
		return nil, fmt.Errorf("tab width must be positive, got %d", config.tabWidth)
	}
	excludes, err := scanner.CompileExcludes(config.exclude)
	if err != nil {
		return nil, err
	}

	logger := config.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		config:   config,
		excludes: excludes,
		cache:    syntax.NewCache(config.cacheTTL),
		logger:   logger,
	}, nil
}

// Policy returns the engine's column policy.
func (e *Engine) Policy() Policy {
	return e.config.policy
}

// ScannerConfig returns the scanner configuration used for documents in
// lang.
func (e *Engine) ScannerConfig(lang syntax.Language) scanner.Config {
	return scanner.Config{
		Policy:          e.config.policy,
		IncludeComments: e.config.includeComments,
		TabWidth:        e.config.tabWidth,
		Classifier:      syntax.NewClassifier(lang, e.cache),
		Language:        lang.Name,
		Exclude:         e.excludes,
		Tag:             types.TagOverflow,
		Logger:          e.logger,
	}
}

// Check scans content stored at path and returns one finding per
// overflowing line.
func (e *Engine) Check(path string, content []byte) []*Finding {
	text := string(content)
	doc := document.New(path, text)
	lang := syntax.Detect(path, text)
	s := scanner.New(e.ScannerConfig(lang))
	return NewFindings(path, content, s.ScanAll(doc), s.Measurer())
}

// CheckString is Check for string content.
func (e *Engine) CheckString(path, content string) []*Finding {
	return e.Check(path, []byte(content))
}

// CheckFile reads and checks a file.
func (e *Engine) CheckFile(path string) ([]*Finding, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return e.Check(path, content), nil
}

// NewFindings converts markers computed on content into findings.
func NewFindings(path string, content []byte, markers []Marker, m display.Measurer) []*Finding {
	if len(markers) == 0 {
		return nil
	}
	blobID := types.ComputeBlobID(content)
	findings := make([]*Finding, 0, len(markers))
	for _, mk := range markers {
		line := string(content[mk.LineStart:mk.LineEnd])
		startLine, startCol := types.ComputeLineColumn(content, mk.OverflowStart)
		endLine, endCol := types.ComputeLineColumn(content, mk.OverflowEnd)
		findings = append(findings, &Finding{
			ID:     types.ComputeFindingID(path, blobID, mk.Line, mk.Limit),
			BlobID: blobID,
			Path:   path,
			Line:   mk.Line,
			Limit:  mk.Limit,
			Width:  m.Width(line),
			Location: types.Location{
				Offset: mk.Overflow(),
				Source: types.SourceSpan{
					Start: types.SourcePoint{Line: startLine, Column: startCol},
					End:   types.SourcePoint{Line: endLine, Column: endCol},
				},
			},
			Snippet: types.Snippet{
				Within:   string(content[mk.LineStart:mk.OverflowStart]),
				Overflow: string(content[mk.OverflowStart:mk.LineEnd]),
			},
		})
	}
	return findings
}

// Session is one live document with its overflow mode.
type Session struct {
	Doc      *document.Document
	Mode     *mode.Controller
	Language syntax.Language
}

// Open creates a session for a document. The mode starts disabled; enable
// it directly or through ToggleIfApplicable.
func (e *Engine) Open(name, text string) *Session {
	doc := document.New(name, text)
	lang := syntax.Detect(name, text)
	ctrl := mode.New(doc, nil, mode.Config{
		Scanner:  e.ScannerConfig(lang),
		Category: lang.Category,
		Logger:   e.logger,
	})
	return &Session{Doc: doc, Mode: ctrl, Language: lang}
}

// Markers returns the session's overflow markers in document order.
func (s *Session) Markers() []Marker {
	return s.Mode.Markers().Owned()
}

// Close disables the mode, removing its markers and observers.
func (s *Session) Close() {
	s.Mode.Disable()
}

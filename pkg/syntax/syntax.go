// Package syntax detects the language of a document and classifies offsets
// as comment or code using chroma lexers.
package syntax

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
)

// ErrClassificationUnavailable is returned when no lexer is known for a
// document or tokenising it failed. Callers treat it as "not a comment".
var ErrClassificationUnavailable = errors.New("syntax classification unavailable")

// Category is the broad kind of content a document holds.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryProgramming
	CategoryProse
	CategoryData
)

func (c Category) String() string {
	switch c {
	case CategoryProgramming:
		return "programming"
	case CategoryProse:
		return "prose"
	case CategoryData:
		return "data"
	default:
		return "unknown"
	}
}

// Language is the result of language detection.
type Language struct {
	Name     string
	Category Category

	lexer chroma.Lexer
}

// Known reports whether a lexer was found.
func (l Language) Known() bool {
	return l.lexer != nil
}

// lexer names that are text rather than code
var proseLexers = map[string]bool{
	"plaintext":        true,
	"markdown":         true,
	"restructuredtext": true,
	"org mode":         true,
	"tex":              true,
	"groff":            true,
	"bibtex":           true,
}

var dataLexers = map[string]bool{
	"json": true,
	"yaml": true,
	"toml": true,
	"ini":  true,
	"xml":  true,
	"csv":  true,
	"diff": true,
}

// Detect picks a language for a document from its name, falling back to
// content analysis when the name is not conclusive.
func Detect(name, text string) Language {
	var lexer chroma.Lexer
	if name != "" {
		lexer = lexers.Match(filepath.Base(name))
	}
	if lexer == nil && text != "" {
		lexer = lexers.Analyse(text)
	}
	if lexer == nil {
		return Language{Category: CategoryUnknown}
	}
	return languageFor(lexer)
}

// Lookup returns the language registered under name or alias, e.g. "go".
func Lookup(name string) Language {
	lexer := lexers.Get(name)
	if lexer == nil {
		return Language{Category: CategoryUnknown}
	}
	return languageFor(lexer)
}

func languageFor(lexer chroma.Lexer) Language {
	name := lexer.Config().Name
	key := strings.ToLower(name)

	cat := CategoryProgramming
	switch {
	case proseLexers[key]:
		cat = CategoryProse
	case dataLexers[key]:
		cat = CategoryData
	}
	return Language{Name: name, Category: cat, lexer: chroma.Coalesce(lexer)}
}

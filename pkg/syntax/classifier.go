package syntax

import (
	"fmt"
	"sort"
	"time"

	"github.com/alecthomas/chroma/v2"
	"github.com/patrickmn/go-cache"

	"github.com/praetorian-inc/overcol/pkg/document"
	"github.com/praetorian-inc/overcol/pkg/types"
)

// span is a half-open byte range covered by a comment token.
type span struct {
	start, end int
}

// Classifier answers whether an offset of a document lies inside a comment.
// Comment spans are computed lazily per document version; results are shared
// across classifiers through an optional cache keyed by content hash.
type Classifier struct {
	lang  Language
	cache *Cache

	ready   bool
	doc     *document.Document
	version uint64
	spans   []span
	err     error
}

// NewClassifier returns a classifier for documents written in lang. cache
// may be nil.
func NewClassifier(lang Language, cache *Cache) *Classifier {
	return &Classifier{lang: lang, cache: cache}
}

// Language returns the language the classifier tokenises with.
func (c *Classifier) Language() Language {
	return c.lang
}

// InComment reports whether offset lies inside a comment token of doc.
// Preprocessor directives are code, not comments.
func (c *Classifier) InComment(doc *document.Document, offset int) (bool, error) {
	if !c.lang.Known() {
		return false, ErrClassificationUnavailable
	}
	if !c.ready || c.doc != doc || c.version != doc.Version() {
		c.ready = true
		c.doc = doc
		c.version = doc.Version()
		c.spans, c.err = c.commentSpans(doc.Text())
	}
	if c.err != nil {
		return false, c.err
	}

	i := sort.Search(len(c.spans), func(i int) bool { return c.spans[i].end > offset })
	return i < len(c.spans) && c.spans[i].start <= offset, nil
}

func (c *Classifier) commentSpans(text string) ([]span, error) {
	var key string
	if c.cache != nil {
		key = c.lang.Name + ":" + types.ComputeBlobID([]byte(text)).Hex()
		if spans, ok := c.cache.get(key); ok {
			return spans, nil
		}
	}

	// EnsureLF would rewrite CRLF and shift every offset after it
	it, err := c.lang.lexer.Tokenise(&chroma.TokeniseOptions{State: "root"}, text)
	if err != nil {
		return nil, fmt.Errorf("%w: tokenising as %s: %w", ErrClassificationUnavailable, c.lang.Name, err)
	}

	spans := []span{}
	pos := 0
	for _, tok := range it.Tokens() {
		end := pos + len(tok.Value)
		if isComment(tok.Type) {
			if n := len(spans); n > 0 && spans[n-1].end == pos {
				spans[n-1].end = end
			} else {
				spans = append(spans, span{start: pos, end: end})
			}
		}
		pos = end
	}

	if c.cache != nil {
		c.cache.set(key, spans)
	}
	return spans, nil
}

func isComment(t chroma.TokenType) bool {
	if t == chroma.CommentPreproc || t == chroma.CommentPreprocFile {
		return false
	}
	return t.InCategory(chroma.Comment)
}

// Cache memoises comment spans by language and content hash, so identical
// content seen again (a reverted edit, a duplicate file) is not re-lexed.
type Cache struct {
	c *cache.Cache
}

// NewCache creates a cache whose entries expire after ttl.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{c: cache.New(ttl, 2*ttl)}
}

func (c *Cache) get(key string) ([]span, bool) {
	v, ok := c.c.Get(key)
	if !ok {
		return nil, false
	}
	return v.([]span), true
}

func (c *Cache) set(key string, spans []span) {
	c.c.Set(key, spans, cache.DefaultExpiration)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return c.c.ItemCount()
}

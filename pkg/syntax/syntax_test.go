package syntax

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praetorian-inc/overcol/pkg/document"
)

func TestDetect_ByName(t *testing.T) {
	tests := []struct {
		name     string
		wantLang string
		wantCat  Category
	}{
		{"main.go", "Go", CategoryProgramming},
		{"src/app.py", "Python", CategoryProgramming},
		{"README.md", "markdown", CategoryProse},
		{"notes.txt", "plaintext", CategoryProse},
		{"config.yaml", "YAML", CategoryData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lang := Detect(tt.name, "")
			assert.True(t, lang.Known())
			assert.Equal(t, tt.wantLang, lang.Name)
			assert.Equal(t, tt.wantCat, lang.Category)
		})
	}
}

func TestDetect_Unknown(t *testing.T) {
	lang := Detect("", "")
	assert.False(t, lang.Known())
	assert.Equal(t, CategoryUnknown, lang.Category)
	assert.Equal(t, "unknown", lang.Category.String())
}

func TestLookup(t *testing.T) {
	assert.Equal(t, "Go", Lookup("go").Name)
	assert.False(t, Lookup("no-such-language").Known())
}

func TestClassifier_InComment(t *testing.T) {
	src := "package main\n\n// a comment\nvar x = 1 /* inline */\n"
	doc := document.New("main.go", src)
	c := NewClassifier(Detect(doc.Name(), doc.Text()), nil)

	in, err := c.InComment(doc, strings.Index(src, "a comment"))
	require.NoError(t, err)
	assert.True(t, in)

	in, err = c.InComment(doc, strings.Index(src, "var"))
	require.NoError(t, err)
	assert.False(t, in)

	in, err = c.InComment(doc, strings.Index(src, "inline"))
	require.NoError(t, err)
	assert.True(t, in)
}

func TestClassifier_FollowsEdits(t *testing.T) {
	doc := document.New("main.go", "var x = 1\n")
	c := NewClassifier(Lookup("go"), nil)

	in, err := c.InComment(doc, 4)
	require.NoError(t, err)
	assert.False(t, in)

	_, err = doc.Insert(0, "// ")
	require.NoError(t, err)

	in, err = c.InComment(doc, 7)
	require.NoError(t, err)
	assert.True(t, in, "classification is recomputed after an edit")
}

func TestClassifier_PreprocessorIsCode(t *testing.T) {
	src := "#include <stdio.h>\nint main(void) { return 0; }\n"
	doc := document.New("main.c", src)
	c := NewClassifier(Detect(doc.Name(), src), nil)

	in, err := c.InComment(doc, 2)
	require.NoError(t, err)
	assert.False(t, in)
}

func TestClassifier_UnknownLanguage(t *testing.T) {
	doc := document.New("", "")
	c := NewClassifier(Language{}, nil)

	_, err := c.InComment(doc, 0)
	assert.ErrorIs(t, err, ErrClassificationUnavailable)
}

func TestCache_SharesSpans(t *testing.T) {
	cache := NewCache(time.Minute)
	src := "// hello\nfunc f() {}\n"

	a := NewClassifier(Lookup("go"), cache)
	_, err := a.InComment(document.New("a.go", src), 3)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Len())

	b := NewClassifier(Lookup("go"), cache)
	in, err := b.InComment(document.New("b.go", src), 3)
	require.NoError(t, err)
	assert.True(t, in)
	assert.Equal(t, 1, cache.Len(), "identical content reuses the entry")
}

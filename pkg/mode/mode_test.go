package mode

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praetorian-inc/overcol/pkg/document"
	"github.com/praetorian-inc/overcol/pkg/marker"
	"github.com/praetorian-inc/overcol/pkg/policy"
	"github.com/praetorian-inc/overcol/pkg/scanner"
	"github.com/praetorian-inc/overcol/pkg/syntax"
	"github.com/praetorian-inc/overcol/pkg/types"
)

func newController(t *testing.T, text string, limit int) *Controller {
	t.Helper()
	cfg := Config{Scanner: scanner.DefaultConfig(), Category: syntax.CategoryProgramming}
	cfg.Scanner.Policy = policy.Fixed(limit)
	return New(document.New("main.go", text), nil, cfg)
}

func lines(widths ...int) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		parts[i] = strings.Repeat("x", w)
	}
	return strings.Join(parts, "\n")
}

func TestController_EnableScansAndRegisters(t *testing.T) {
	c := newController(t, lines(12, 5, 11), 10)

	assert.Equal(t, Disabled, c.State())
	assert.Equal(t, 0, c.Markers().Len())

	c.Enable()
	assert.Equal(t, Enabled, c.State())
	assert.Equal(t, 2, c.Markers().Len())
	assert.Equal(t, 1, c.Document().ObserverCount())

	// enabling again rescans without registering twice
	c.Enable()
	assert.Equal(t, 2, c.Markers().Len())
	assert.Equal(t, 1, c.Document().ObserverCount())
}

func TestController_DisableClearsMarkers(t *testing.T) {
	c := newController(t, lines(20, 20, 20), 10)
	c.Enable()
	require.Equal(t, 3, c.Markers().Len())

	c.Disable()
	assert.Equal(t, Disabled, c.State())
	assert.Equal(t, 0, c.Markers().Len())
	assert.Equal(t, 0, c.Document().ObserverCount())

	// changes after disabling do not produce markers
	_, err := c.Document().Insert(0, strings.Repeat("y", 30)+"\n")
	require.NoError(t, err)
	c.Document().RequestRender(0, c.Document().Len())
	assert.Equal(t, 0, c.Markers().Len())
}

func TestController_DisableKeepsForeignMarkers(t *testing.T) {
	set := marker.NewSet(types.TagOverflow)
	spell := types.Marker{Tag: "spellcheck", Line: 1, LineStart: 0, LineEnd: 20, OverflowStart: 2, OverflowEnd: 6}
	set.Add(spell)

	cfg := Config{Scanner: scanner.DefaultConfig()}
	cfg.Scanner.Policy = policy.Fixed(10)
	c := New(document.New("a.go", lines(20)), set, cfg)
	c.Enable()
	c.Disable()

	assert.Equal(t, []types.Marker{spell}, set.All())
}

func TestController_SetLimitRelabelsAndRescans(t *testing.T) {
	c := newController(t, lines(70, 50, 85), policy.DefaultLimit)
	c.Enable()
	assert.Equal(t, " 80col", c.Label())
	require.Equal(t, 1, c.Markers().Len())

	require.NoError(t, c.SetLimit(60))
	assert.Equal(t, " 60col", c.Label())
	assert.Equal(t, 60, c.Limit())

	owned := c.Markers().Owned()
	require.Len(t, owned, 2)
	assert.Equal(t, 1, owned[0].Line)
	assert.Equal(t, 3, owned[1].Line)
	assert.Equal(t, 60, owned[1].Limit)
}

func TestController_SetLimitWhileDisabled(t *testing.T) {
	c := newController(t, lines(70), 80)
	require.NoError(t, c.SetLimit(60))
	assert.Equal(t, " 60col", c.Label())
	assert.Equal(t, 0, c.Markers().Len(), "disabled controller does not scan")

	c.Enable()
	assert.Equal(t, 1, c.Markers().Len())
}

func TestController_SetLimitRejectsInvalid(t *testing.T) {
	c := newController(t, lines(70), 60)
	c.Enable()

	for _, n := range []int{0, -1} {
		err := c.SetLimit(n)
		require.ErrorIs(t, err, policy.ErrInvalidLimit)
	}
	assert.Equal(t, " 60col", c.Label())
	assert.Equal(t, 1, c.Markers().Len())
}

func TestController_ToggleIfApplicable(t *testing.T) {
	tests := []struct {
		name     string
		category syntax.Category
		want     State
	}{
		{"programming", syntax.CategoryProgramming, Enabled},
		{"prose", syntax.CategoryProse, Disabled},
		{"data", syntax.CategoryData, Disabled},
		{"unknown", syntax.CategoryUnknown, Disabled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Scanner: scanner.DefaultConfig(), Category: tt.category}
			c := New(document.New("f", lines(100)), nil, cfg)
			assert.Equal(t, tt.want, c.ToggleIfApplicable())
		})
	}

	// an enabled controller is disabled regardless of category
	cfg := Config{Scanner: scanner.DefaultConfig(), Category: syntax.CategoryProse}
	c := New(document.New("notes.md", lines(100)), nil, cfg)
	c.Enable()
	assert.Equal(t, Disabled, c.ToggleIfApplicable())
	assert.Equal(t, 0, c.Markers().Len())
}

func TestController_EditsRescanTouchedLines(t *testing.T) {
	c := newController(t, lines(5, 12, 5), 10)
	c.Enable()
	doc := c.Document()
	require.Equal(t, 1, c.Markers().Len())

	// lengthen line 1 past the limit
	_, err := doc.Insert(0, "abcdefgh")
	require.NoError(t, err)
	owned := c.Markers().Owned()
	require.Len(t, owned, 2)
	assert.Equal(t, 1, owned[0].Line)
	assert.Equal(t, 10, owned[0].OverflowStart)
	assert.Equal(t, 2, owned[1].Line)
	assert.Equal(t, 14, owned[1].LineStart, "marker after the edit moved with its text")

	// insert a line above line 2
	_, err = doc.Insert(14, "ok\n")
	require.NoError(t, err)
	owned = c.Markers().Owned()
	require.Len(t, owned, 2)
	assert.Equal(t, 3, owned[1].Line)
	assert.Equal(t, 17, owned[1].LineStart)

	// shorten it back under the limit
	_, err = doc.Delete(17, 19)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Markers().Len())

	fresh := scanner.New(scanner.Config{Policy: policy.Fixed(10), IncludeComments: true})
	assert.Equal(t, fresh.ScanAll(doc), c.Markers().Owned(), "incremental rescans match a full scan")
}

func TestController_RenderRescansRange(t *testing.T) {
	c := newController(t, lines(12, 12), 10)
	c.Enable()
	c.Markers().RemoveAll()

	c.Document().RequestRender(0, 3)
	owned := c.Markers().Owned()
	require.Len(t, owned, 1)
	assert.Equal(t, 1, owned[0].Line)

	// the same range again leaves the set unchanged
	c.OnRender(0, 3)
	assert.Equal(t, owned, c.Markers().Owned())
}

func TestController_PolicyFromResolver(t *testing.T) {
	c := newController(t, lines(50, 50), 80)
	c.SetPolicy(policy.Policy{Resolver: func(ctx policy.LineContext) (int, error) {
		if ctx.Line == 1 {
			return 40, nil
		}
		return 72, nil
	}})
	c.Enable()
	assert.Equal(t, " 80col", c.Label())
	owned := c.Markers().Owned()
	require.Len(t, owned, 1)
	assert.Equal(t, 40, owned[0].Limit)
}

// fullRescan times enabling, changing the limit and rendering the whole of
// an n-line document where every line overflows.
func fullRescan(t *testing.T, n int) time.Duration {
	widths := make([]int, n)
	for i := range widths {
		widths[i] = 30
	}
	text := lines(widths...)

	best := time.Duration(1<<63 - 1)
	for range 3 {
		c := newController(t, text, 10)
		start := time.Now()
		c.Enable()
		require.NoError(t, c.SetLimit(20))
		c.OnRender(0, c.Document().Len())
		best = min(best, time.Since(start))
		require.Equal(t, n, c.Markers().Len())
	}
	return best
}

func TestController_RescanScalesWithDocumentSize(t *testing.T) {
	if testing.Short() {
		t.Skip("timing test")
	}
	small := fullRescan(t, 12500)
	large := fullRescan(t, 50000)

	assert.Less(t, large, 10*small+20*time.Millisecond, "small=%v large=%v", small, large)
	assert.Less(t, large, 2*time.Second)
}

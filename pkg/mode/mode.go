// Package mode implements the per-document overflow mode: an Enabled or
// Disabled state machine that keeps a document's overflow markers in sync
// with its text and the active column limit.
package mode

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/praetorian-inc/overcol/pkg/document"
	"github.com/praetorian-inc/overcol/pkg/marker"
	"github.com/praetorian-inc/overcol/pkg/policy"
	"github.com/praetorian-inc/overcol/pkg/scanner"
	"github.com/praetorian-inc/overcol/pkg/syntax"
	"github.com/praetorian-inc/overcol/pkg/types"
)

// State is the mode state of one document.
type State int

const (
	Disabled State = iota
	Enabled
)

func (s State) String() string {
	if s == Enabled {
		return "enabled"
	}
	return "disabled"
}

// Config configures a Controller.
type Config struct {
	Scanner scanner.Config

	// Category decides whether ToggleIfApplicable may enable the mode.
	Category syntax.Category

	Logger *zap.Logger
}

// Controller drives overflow marking for one document. It registers itself
// as a document observer while enabled, so edits and render requests
// trigger rescans of the affected lines. Render requests and the edits that
// caused them usually cover the same lines; rescanning is idempotent.
type Controller struct {
	doc      *document.Document
	set      *marker.Set
	scanner  *scanner.Scanner
	category syntax.Category
	logger   *zap.Logger

	state      State
	observerID int
	limit      int
}

// New creates a disabled controller for doc that writes markers into set.
// A nil set gets a fresh one owning the scanner's tag.
func New(doc *document.Document, set *marker.Set, cfg Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Scanner.Logger == nil {
		cfg.Scanner.Logger = logger
	}
	if cfg.Scanner.Tag == "" {
		cfg.Scanner.Tag = types.TagOverflow
	}
	if set == nil {
		set = marker.NewSet(cfg.Scanner.Tag)
	}
	return &Controller{
		doc:      doc,
		set:      set,
		scanner:  scanner.New(cfg.Scanner),
		category: cfg.Category,
		logger:   logger.With(zap.String("document", doc.Name())),
		limit:    nominalLimit(cfg.Scanner.Policy),
	}
}

// nominalLimit is the limit shown in the label.
func nominalLimit(p policy.Policy) int {
	switch {
	case p.Limit > 0:
		return p.Limit
	case p.FallbackWidth > 0:
		return p.FallbackWidth
	default:
		return policy.DefaultLimit
	}
}

// State returns the current state.
func (c *Controller) State() State { return c.state }

// Enabled reports whether the mode is on.
func (c *Controller) Enabled() bool { return c.state == Enabled }

// Limit returns the configured column limit.
func (c *Controller) Limit() int { return c.limit }

// Label returns the mode-line label, e.g. " 80col".
func (c *Controller) Label() string {
	return fmt.Sprintf(" %dcol", c.limit)
}

// Category returns the document category used by ToggleIfApplicable.
func (c *Controller) Category() syntax.Category { return c.category }

// Document returns the controlled document.
func (c *Controller) Document() *document.Document { return c.doc }

// Markers returns the marker set the controller writes into.
func (c *Controller) Markers() *marker.Set { return c.set }

// Scanner returns the scanner used for rescans.
func (c *Controller) Scanner() *scanner.Scanner { return c.scanner }

// Enable turns the mode on and scans the whole document. Enabling an
// enabled controller only rescans.
func (c *Controller) Enable() {
	if c.state == Disabled {
		c.observerID = c.doc.AddObserver(c)
		c.state = Enabled
		c.logger.Debug("mode enabled", zap.Int("limit", c.limit))
	}
	c.rescanAll()
}

// Disable removes every marker the mode owns and stops listening for
// document changes.
func (c *Controller) Disable() {
	if c.state == Disabled {
		return
	}
	removed := c.set.RemoveAll()
	c.doc.RemoveObserver(c.observerID)
	c.observerID = 0
	c.state = Disabled
	c.logger.Debug("mode disabled", zap.Int("removed", removed))
}

// SetLimit replaces the column policy with a fixed limit of n and, when
// enabled, rescans the whole document. A non-positive n is rejected with
// policy.ErrInvalidLimit and nothing changes.
func (c *Controller) SetLimit(n int) error {
	if err := policy.ValidateLimit(n); err != nil {
		return err
	}
	c.limit = n
	c.scanner.SetPolicy(policy.Fixed(n))
	if c.state == Enabled {
		c.rescanAll()
	}
	return nil
}

// SetPolicy replaces the column policy and, when enabled, rescans.
func (c *Controller) SetPolicy(p policy.Policy) {
	c.limit = nominalLimit(p)
	c.scanner.SetPolicy(p)
	if c.state == Enabled {
		c.rescanAll()
	}
}

// ToggleIfApplicable disables an enabled controller, and enables a disabled
// one only when the document holds program code. It returns the new state.
func (c *Controller) ToggleIfApplicable() State {
	switch {
	case c.state == Enabled:
		c.Disable()
	case c.category == syntax.CategoryProgramming:
		c.Enable()
	default:
		c.logger.Debug("not enabling mode for non-programming document",
			zap.Stringer("category", c.category))
	}
	return c.state
}

// OnEdit rescans the lines touched by an edit. It is a no-op while
// disabled.
func (c *Controller) OnEdit(e document.Edit) {
	if c.state == Disabled {
		return
	}
	c.set.ApplyEdit(e)
	c.scanner.Rescan(c.doc, c.set, e.Start, e.NewEnd)
}

// OnRender rescans the lines of a range about to be displayed. It is a
// no-op while disabled.
func (c *Controller) OnRender(start, end int) {
	if c.state == Disabled {
		return
	}
	c.scanner.Rescan(c.doc, c.set, start, end)
}

// rescanAll replaces every owned marker. The set is empty after RemoveAll,
// so the fresh markers are added without per-line removal.
func (c *Controller) rescanAll() {
	c.set.RemoveAll()
	for _, m := range c.scanner.ScanAll(c.doc) {
		c.set.Add(m)
	}
}

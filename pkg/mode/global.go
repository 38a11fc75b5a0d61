package mode

// Global turns the mode on automatically for documents as they are opened.
// While enabled, every attached programming document gets an enabled
// controller; other documents are left alone.
type Global struct {
	enabled     bool
	controllers []*Controller
}

// NewGlobal returns a disabled global mode.
func NewGlobal() *Global {
	return &Global{}
}

// Enabled reports whether auto-enable is on.
func (g *Global) Enabled() bool { return g.enabled }

// Attach registers c, enabling it when the global mode is on.
func (g *Global) Attach(c *Controller) {
	g.controllers = append(g.controllers, c)
	if g.enabled && !c.Enabled() {
		c.ToggleIfApplicable()
	}
}

// Detach forgets c without changing its state.
func (g *Global) Detach(c *Controller) {
	for i, o := range g.controllers {
		if o == c {
			g.controllers = append(g.controllers[:i], g.controllers[i+1:]...)
			return
		}
	}
}

// SetEnabled switches auto-enable. Turning it on enables every attached
// programming document; turning it off disables every attached controller.
func (g *Global) SetEnabled(on bool) {
	if g.enabled == on {
		return
	}
	g.enabled = on
	for _, c := range g.controllers {
		switch {
		case on && !c.Enabled():
			c.ToggleIfApplicable()
		case !on:
			c.Disable()
		}
	}
}

// Len returns the number of attached controllers.
func (g *Global) Len() int { return len(g.controllers) }

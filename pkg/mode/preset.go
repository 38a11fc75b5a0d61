package mode

import (
	"fmt"
	"strconv"
	"strings"
)

// Presets are the limits offered as one-step "set limit and enable"
// commands.
var Presets = []int{60, 70, 80, 90, 100}

const presetPrefix = "enable_"

// PresetCommand returns the command name of a preset, e.g. "enable_60".
func PresetCommand(limit int) string {
	return presetPrefix + strconv.Itoa(limit)
}

// ParsePresetCommand returns the limit of a preset command name. Only
// names of limits in Presets are accepted.
func ParsePresetCommand(name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, presetPrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || !IsPreset(n) {
		return 0, false
	}
	return n, true
}

// IsPreset reports whether limit is one of Presets.
func IsPreset(limit int) bool {
	for _, p := range Presets {
		if p == limit {
			return true
		}
	}
	return false
}

// EnableAt sets the limit to n and enables the mode.
func (c *Controller) EnableAt(n int) error {
	if err := c.SetLimit(n); err != nil {
		return fmt.Errorf("enable at %d: %w", n, err)
	}
	c.Enable()
	return nil
}

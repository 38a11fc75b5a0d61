package mode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praetorian-inc/overcol/pkg/policy"
)

func TestPresetCommands(t *testing.T) {
	for _, p := range Presets {
		n, ok := ParsePresetCommand(PresetCommand(p))
		require.True(t, ok)
		assert.Equal(t, p, n)
	}

	for _, name := range []string{"enable_72", "enable_", "enable_x", "disable_80", "80"} {
		_, ok := ParsePresetCommand(name)
		assert.False(t, ok, name)
	}
}

func TestController_EnableAt(t *testing.T) {
	c := newController(t, lines(65, 75, 95), 80)

	require.NoError(t, c.EnableAt(70))
	assert.True(t, c.Enabled())
	assert.Equal(t, " 70col", c.Label())
	assert.Equal(t, 2, c.Markers().Len())

	require.NoError(t, c.EnableAt(90))
	assert.Equal(t, 1, c.Markers().Len())

	err := c.EnableAt(0)
	require.ErrorIs(t, err, policy.ErrInvalidLimit)
	assert.Equal(t, " 90col", c.Label())
}

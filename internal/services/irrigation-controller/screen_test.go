package irrigation_controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeonardoBeccarini/pot_irrigation/internal/hal/sim"
)

func TestShowRendersBothLines(t *testing.T) {
	d := sim.NewMemoryDisplay(16, 2)
	s := NewScreen(d, 16)

	require.NoError(t, s.Show("Soil:60000", "Soil Dry → Pump"))
	require.NoError(t, s.Show("Pump ON", ""))

	assert.Equal(t, [][]string{
		{"Soil:60000", "Soil Dry → Pump"},
		{"Pump ON", ""},
	}, d.Frames())
}

func TestShowTruncatesToWidth(t *testing.T) {
	d := sim.NewMemoryDisplay(16, 2)
	s := NewScreen(d, 16)
	require.NoError(t, s.Show("Pump MANUAL OFF plus more", "→→→→→→→→→→→→→→→→→→"))
	lines := d.Lines()
	assert.Equal(t, "Pump MANUAL OFF", lines[0])
	assert.Equal(t, 16, len([]rune(lines[1])))
}

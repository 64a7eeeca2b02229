package sensor_simulator

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeonardoBeccarini/pot_irrigation/internal/clock"
)

func TestMoistureDecaysWhilePumpOff(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	g := NewDataGenerator(clk, 0.01, 0.5, nil)

	clk.Advance(10 * time.Minute)
	assert.InDelta(t, 0.4, g.Moisture(), 1e-9)
}

func TestMoistureRisesWhilePumping(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	on := true
	g := NewDataGenerator(clk, 0.01, 0.2, func() bool { return on })

	clk.Advance(2 * time.Minute)
	assert.InDelta(t, 0.3, g.Moisture(), 1e-9)

	on = false
	clk.Advance(time.Minute)
	assert.InDelta(t, 0.29, g.Moisture(), 1e-9)
}

func TestProbeReadsInvertedCounts(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	wet := NewDataGenerator(clk, 0, 0.9, nil)
	dry := NewDataGenerator(clk, 0, 0.1, nil)

	w, err := wet.Probe(0).ReadU16()
	require.NoError(t, err)
	d, err := dry.Probe(0).ReadU16()
	require.NoError(t, err)

	assert.Less(t, w, d, "wet soil must read lower than dry soil")
	// samples are rounded to whole counts
	assert.InDelta(t, 0.1*65535, float64(w), noiseCounts+1)
	assert.InDelta(t, 0.9*65535, float64(d), noiseCounts+1)
}

func TestProbeNoiseStaysWithinBound(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	g := NewDataGenerator(clk, 0, 0.9, nil)
	p := g.Probe(0)

	base := math.Round((1 - g.Moisture()) * 65535)
	for i := 0; i < 500; i++ {
		v, err := p.ReadU16()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, float64(v), base-noiseCounts-1)
		assert.LessOrEqual(t, float64(v), base+noiseCounts+1)
	}
}

func TestProbeClampsAtFullScale(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	g := NewDataGenerator(clk, 1, 0.01, nil)
	clk.Advance(time.Hour)

	v, err := g.Probe(5000).ReadU16()
	require.NoError(t, err)
	assert.Equal(t, uint16(65535), v)
}

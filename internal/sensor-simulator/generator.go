package sensor_simulator

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/LeonardoBeccarini/pot_irrigation/internal/clock"
)

// ====== Tunables ======
const (
	// gainPerMin: volumetric moisture gained per minute of pumping (in [0..1]).
	gainPerMin = 0.05

	// defaultSeed: starting moisture when none is given.
	defaultSeed = 0.30

	// noiseCounts: peak ADC noise per probe, in 16-bit counts.
	noiseCounts = 400
)

// DataGenerator models the soil of one pot. Moisture rises while the pump
// runs and decays otherwise; probes translate it to inverted ADC counts
// (wet soil reads low, dry soil reads high).
type DataGenerator struct {
	mu          sync.Mutex
	clk         clock.Clock
	pumpOn      func() bool
	last        time.Time
	moisture    float64 // [0..1]
	decayPerMin float64
	rnd         *rand.Rand
}

// NewDataGenerator builds a generator; pumpOn reports the simulated relay state.
func NewDataGenerator(clk clock.Clock, decayPerMin, seed float64, pumpOn func() bool) *DataGenerator {
	if seed <= 0 {
		seed = defaultSeed
	}
	if pumpOn == nil {
		pumpOn = func() bool { return false }
	}
	return &DataGenerator{
		clk:         clk,
		pumpOn:      pumpOn,
		last:        clk.Now(),
		moisture:    clamp01(seed),
		decayPerMin: math.Max(0, decayPerMin),
		rnd:         rand.New(rand.NewSource(clk.Now().UnixNano())),
	}
}

// Moisture advances the model to now and returns the volumetric moisture.
func (g *DataGenerator) Moisture() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.advanceLocked()
	return g.moisture
}

// Probe returns a raw sensor bound to this soil, with a fixed calibration offset.
func (g *DataGenerator) Probe(offset int) *Probe {
	return &Probe{gen: g, offset: offset}
}

func (g *DataGenerator) advanceLocked() {
	now := g.clk.Now()
	dtMin := now.Sub(g.last).Minutes()
	if dtMin < 0 {
		dtMin = 0
	}
	if g.pumpOn() {
		g.moisture = clamp01(g.moisture + gainPerMin*dtMin)
	} else {
		g.moisture = clamp01(g.moisture - g.decayPerMin*dtMin)
	}
	g.last = now
}

func (g *DataGenerator) sample(offset int) uint16 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.advanceLocked()
	counts := (1-g.moisture)*65535 + float64(offset) + float64(g.rnd.Intn(2*noiseCounts+1)-noiseCounts)
	return uint16(math.Round(math.Max(0, math.Min(65535, counts))))
}

// Probe is one simulated capacitive sensor.
type Probe struct {
	gen    *DataGenerator
	offset int
}

func (p *Probe) ReadU16() (uint16, error) {
	return p.gen.sample(p.offset), nil
}

// ===== Helpers =====

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

package aggregator

import (
	"fmt"

	"github.com/LeonardoBeccarini/pot_irrigation/internal/hal"
	"github.com/LeonardoBeccarini/pot_irrigation/internal/model"
)

// Sampler combines the two soil probes into one reading per call.
// No retries and no smoothing across calls: every Read is a fresh estimate.
type Sampler struct {
	a, b hal.RawSensor
}

func NewSampler(a, b hal.RawSensor) *Sampler {
	return &Sampler{a: a, b: b}
}

// Read samples both probes back to back and returns their integer mean.
func (s *Sampler) Read() (model.MoistureReading, error) {
	ra, errA := s.a.ReadU16()
	rb, errB := s.b.ReadU16()
	if errA != nil {
		return 0, fmt.Errorf("sensor A: %w", errA)
	}
	if errB != nil {
		return 0, fmt.Errorf("sensor B: %w", errB)
	}
	return model.MeanReading(ra, rb), nil
}

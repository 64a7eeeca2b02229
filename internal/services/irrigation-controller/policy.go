package irrigation_controller

import "github.com/LeonardoBeccarini/pot_irrigation/internal/model"

// Policy turns readings into irrigation decisions. It has no side effects.
type Policy struct {
	th model.Thresholds
}

func NewPolicy(th model.Thresholds) Policy { return Policy{th: th} }

// SoilDry reports whether m reads as dry soil. Under DryHigh (the default) a
// reading at or above the threshold is dry; DryLow flips the comparison.
func (p Policy) SoilDry(m model.MoistureReading) bool {
	if p.th.Polarity == model.DryLow {
		return m < p.th.MoistureThreshold
	}
	return m >= p.th.MoistureThreshold
}

// IrrigationWarranted is the BothMode rule: dry soil and a known rain
// probability below the threshold. An unavailable forecast never irrigates.
func (p Policy) IrrigationWarranted(m model.MoistureReading, r model.RainForecast) bool {
	pct, ok := r.Percent()
	if !ok {
		return false
	}
	return p.SoilDry(m) && pct < p.th.RainThresholdPercent
}

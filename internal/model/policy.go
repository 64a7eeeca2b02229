package model

import "time"

// Polarity tells how a raw moisture reading maps to dry soil.
type Polarity string

const (
	// DryHigh: a higher reading means drier soil (capacitive probes on a 16-bit ADC).
	DryHigh Polarity = "dry_high"
	// DryLow: a higher reading means wetter soil.
	DryLow Polarity = "dry_low"
)

// Thresholds holds the irrigation thresholds. Loaded once at startup, never mutated.
type Thresholds struct {
	MoistureThreshold     MoistureReading `json:"moisture_threshold"`
	RainThresholdPercent  int             `json:"rain_threshold_percent"`
	AutoIrrigationRuntime time.Duration   `json:"auto_irrigation_runtime"` // pump pulse length in BothMode
	Polarity              Polarity        `json:"polarity"`
}

package model

import "time"

// PumpState is the pump status as reported by the actuator.
type PumpState struct {
	Running bool          `json:"running"`
	Since   time.Time     `json:"since"`   // start of the current run, zero when off
	Elapsed time.Duration `json:"elapsed"` // continuous run time so far
}

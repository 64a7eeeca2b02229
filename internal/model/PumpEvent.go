package model

import "time"

// PumpEventKind classifies pump transitions.
type PumpEventKind string

const (
	PumpOn       PumpEventKind = "on"
	PumpOff      PumpEventKind = "off"
	SafetyCutoff PumpEventKind = "safety_cutoff"
	PumpRefused  PumpEventKind = "refused"
)

// PumpEvent is emitted by the actuator on every accepted transition and on refusals.
type PumpEvent struct {
	ID        string        `json:"id"` // run id, shared by the on/off pair of one run
	Kind      PumpEventKind `json:"kind"`
	Reason    string        `json:"reason,omitempty"`
	RunTime   time.Duration `json:"run_time"` // length of the run that just ended
	Timestamp time.Time     `json:"timestamp"`
}

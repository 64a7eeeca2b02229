package model

// Mode is the controller state.
type Mode int

const (
	SelectMode Mode = iota
	SoilMode
	RainMode
	BothMode
	ManualOn
	ManualOff
	Reconnect
	Idle
)

var modeNames = [...]string{
	SelectMode: "select",
	SoilMode:   "soil",
	RainMode:   "rain",
	BothMode:   "both",
	ManualOn:   "manual_on",
	ManualOff:  "manual_off",
	Reconnect:  "reconnect",
	Idle:       "idle",
}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return "unknown"
	}
	return modeNames[m]
}

// Modes lists every mode, in menu order.
func Modes() []Mode {
	return []Mode{SelectMode, SoilMode, RainMode, BothMode, ManualOn, ManualOff, Reconnect, Idle}
}

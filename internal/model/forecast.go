package model

import "strconv"

// RainForecast is either a known rain probability or Unavailable.
type RainForecast struct {
	known   bool
	percent int
}

// Unavailable is the forecast produced by any fetch or parse failure.
var Unavailable = RainForecast{}

// Known builds a forecast with the given rain probability (0..100).
func Known(percent int) RainForecast {
	return RainForecast{known: true, percent: percent}
}

// Percent returns the rain probability and whether it is known.
func (r RainForecast) Percent() (int, bool) {
	return r.percent, r.known
}

func (r RainForecast) String() string {
	if !r.known {
		return "unavailable"
	}
	return strconv.Itoa(r.percent) + "%"
}

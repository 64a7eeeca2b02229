package periph

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
)

// Relay drives the pump relay from one GPIO line.
type Relay struct {
	pin       gpio.PinOut
	activeLow bool
}

// NewRelay takes the line and immediately switches the relay off.
func NewRelay(pin gpio.PinOut, activeLow bool) (*Relay, error) {
	r := &Relay{pin: pin, activeLow: activeLow}
	if err := r.Write(false); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Relay) Write(on bool) error {
	level := gpio.Level(on != r.activeLow)
	if err := r.pin.Out(level); err != nil {
		return fmt.Errorf("relay %s: %w", r.pin, err)
	}
	return nil
}

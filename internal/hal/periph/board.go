// Package periph drives the real pot hardware through periph.io: the pump
// relay and the keypad matrix on GPIO, the character LCD on I2C, and the
// soil probes on the SoC ADC.
package periph

import (
	"errors"
	"fmt"
	"log"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/LeonardoBeccarini/pot_irrigation/internal/config"
)

type Board struct {
	Relay   *Relay
	SensorA *IIOChannel
	SensorB *IIOChannel
	LCD     *LCD
	Keypad  *Keypad

	bus i2c.BusCloser
}

// Open initialises the host drivers and claims every device named in cfg.
// The relay is switched off before Open returns.
func Open(cfg config.Hardware) (*Board, error) {
	state, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	log.Printf("periph: %d drivers loaded", len(state.Loaded))

	b := &Board{}
	relayPin, err := pin(cfg.RelayPin)
	if err != nil {
		return nil, err
	}
	if b.Relay, err = NewRelay(relayPin, cfg.RelayActiveLow); err != nil {
		return nil, err
	}

	if b.SensorA, err = NewIIOChannel(cfg.SensorA, cfg.ADCBits); err != nil {
		return nil, fmt.Errorf("sensor A: %w", err)
	}
	if b.SensorB, err = NewIIOChannel(cfg.SensorB, cfg.ADCBits); err != nil {
		return nil, fmt.Errorf("sensor B: %w", err)
	}

	if b.bus, err = i2creg.Open(cfg.I2CBus); err != nil {
		return nil, fmt.Errorf("i2c bus %q: %w", cfg.I2CBus, err)
	}
	dev := &i2c.Dev{Bus: b.bus, Addr: cfg.LCDAddr}
	if b.LCD, err = NewLCD(dev, cfg.LCDCols, cfg.LCDRows); err != nil {
		b.Close()
		return nil, err
	}

	rows := make([]gpio.PinOut, 0, len(cfg.KeypadRows))
	for _, name := range cfg.KeypadRows {
		p, err := pin(name)
		if err != nil {
			b.Close()
			return nil, err
		}
		rows = append(rows, p)
	}
	cols := make([]gpio.PinIn, 0, len(cfg.KeypadCols))
	for _, name := range cfg.KeypadCols {
		p, err := pin(name)
		if err != nil {
			b.Close()
			return nil, err
		}
		cols = append(cols, p)
	}
	if b.Keypad, err = NewKeypad(rows, cols, cfg.KeyDebounce.D()); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

// Close switches the relay off and releases the I2C bus.
func (b *Board) Close() error {
	var errs []error
	if b.Relay != nil {
		errs = append(errs, b.Relay.Write(false))
	}
	if b.bus != nil {
		errs = append(errs, b.bus.Close())
	}
	return errors.Join(errs...)
}

func pin(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("gpio %q not found", name)
	}
	return p, nil
}

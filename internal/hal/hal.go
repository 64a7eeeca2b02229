package hal

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/LeonardoBeccarini/pot_irrigation/internal/clock"
	"github.com/LeonardoBeccarini/pot_irrigation/internal/config"
	"github.com/LeonardoBeccarini/pot_irrigation/internal/hal/mqttpanel"
	"github.com/LeonardoBeccarini/pot_irrigation/internal/hal/periph"
	"github.com/LeonardoBeccarini/pot_irrigation/internal/hal/sim"
	sensor_simulator "github.com/LeonardoBeccarini/pot_irrigation/internal/sensor-simulator"
	"github.com/LeonardoBeccarini/pot_irrigation/pkg/broker"
)

// Simulated soil: dries 1% of full scale per minute; the two probes disagree slightly.
const (
	simDecayPerMin = 0.01
	simOffsetA     = 0
	simOffsetB     = 900
)

// Devices is the set of device handles the controller is built from.
type Devices struct {
	SensorA RawSensor
	SensorB RawSensor
	Relay   Relay
	Display Display
	Keypad  Keypad

	closers []func() error
}

// Open builds the devices selected by cfg.Hardware.Driver and, when a panel
// broker is configured, mirrors the display and keypad over MQTT.
func Open(ctx context.Context, cfg config.Config, clk clock.Clock) (*Devices, error) {
	d := &Devices{}
	switch cfg.Hardware.Driver {
	case "periph":
		board, err := periph.Open(cfg.Hardware)
		if err != nil {
			return nil, fmt.Errorf("open hardware: %w", err)
		}
		d.SensorA, d.SensorB = board.SensorA, board.SensorB
		d.Relay, d.Display, d.Keypad = board.Relay, board.LCD, board.Keypad
		d.closers = append(d.closers, board.Close)
	case "sim":
		relay := &sim.Relay{}
		gen := sensor_simulator.NewDataGenerator(clk, simDecayPerMin, 0, relay.On)
		d.SensorA, d.SensorB = gen.Probe(simOffsetA), gen.Probe(simOffsetB)
		d.Relay = relay
		d.Display = sim.NewConsoleDisplay(os.Stdout, cfg.Hardware.LCDCols, cfg.Hardware.LCDRows)
		d.Keypad = sim.NewReaderKeypad(ctx, os.Stdin)
	default:
		return nil, fmt.Errorf("unknown hardware driver %q", cfg.Hardware.Driver)
	}
	log.Printf("hal: %s driver ready", cfg.Hardware.Driver)

	if cfg.Panel.Host != "" {
		if err := d.attachPanel(ctx, cfg); err != nil {
			d.Close()
			return nil, err
		}
	}
	return d, nil
}

func (d *Devices) attachPanel(ctx context.Context, cfg config.Config) error {
	client, err := broker.NewConn(ctx, &broker.Config{
		Host:     cfg.Panel.Host,
		Port:     cfg.Panel.Port,
		User:     cfg.Panel.User,
		Password: cfg.Panel.Password,
		ClientID: cfg.Panel.ClientID,
	})
	if err != nil {
		return fmt.Errorf("panel broker: %w", err)
	}
	keys := mqttpanel.NewKeypad()
	if err := keys.Subscribe(ctx, client, cfg.Panel.TopicPrefix); err != nil {
		broker.Close(client)
		return fmt.Errorf("panel keys: %w", err)
	}
	screen := mqttpanel.NewDisplay(broker.NewPublisher(client), cfg.Panel.TopicPrefix, cfg.Hardware.LCDCols, cfg.Hardware.LCDRows)

	d.Display = TeeDisplay{d.Display, screen}
	d.Keypad = AnyKeypad{d.Keypad, keys}
	d.closers = append(d.closers, func() error { broker.Close(client); return nil })
	log.Printf("hal: virtual panel on %s:%d prefix %q", cfg.Panel.Host, cfg.Panel.Port, cfg.Panel.TopicPrefix)
	return nil
}

// Close releases every device, last opened first.
func (d *Devices) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = append(errs, d.closers[i]())
	}
	d.closers = nil
	return errors.Join(errs...)
}

// TeeDisplay repeats every call on all displays. The first error wins but
// every display still receives the call.
type TeeDisplay []Display

func (t TeeDisplay) Clear() error {
	return t.each(func(d Display) error { return d.Clear() })
}

func (t TeeDisplay) Write(text string) error {
	return t.each(func(d Display) error { return d.Write(text) })
}

func (t TeeDisplay) MoveTo(col, row int) error {
	return t.each(func(d Display) error { return d.MoveTo(col, row) })
}

func (t TeeDisplay) Flush() error {
	return t.each(func(d Display) error {
		if f, ok := d.(Flusher); ok {
			return f.Flush()
		}
		return nil
	})
}

func (t TeeDisplay) each(f func(Display) error) error {
	var first error
	for _, d := range t {
		if err := f(d); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// AnyKeypad returns the first pending key of any keypad, in order.
type AnyKeypad []Keypad

func (a AnyKeypad) Poll() (rune, bool) {
	for _, k := range a {
		if r, ok := k.Poll(); ok {
			return r, true
		}
	}
	return 0, false
}

func (a AnyKeypad) Flush() {
	for _, k := range a {
		if f, ok := k.(KeyFlusher); ok {
			f.Flush()
		}
	}
}

package irrigation_controller

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/LeonardoBeccarini/pot_irrigation/internal/model"
	"github.com/LeonardoBeccarini/pot_irrigation/internal/services/device"
)

var menu = map[rune]model.Mode{
	'1': model.SoilMode,
	'2': model.RainMode,
	'3': model.BothMode,
	'4': model.ManualOn,
	'5': model.ManualOff,
	'6': model.Reconnect,
	'#': model.Idle,
}

// runMode executes one visit of mode and returns the next mode.
func (c *Controller) runMode(ctx context.Context, mode model.Mode) model.Mode {
	switch mode {
	case model.SelectMode:
		return c.selectMode(ctx)
	case model.SoilMode:
		c.soilMode(ctx)
	case model.RainMode:
		c.rainMode(ctx)
	case model.BothMode:
		c.bothMode(ctx)
	case model.ManualOn, model.ManualOff:
		c.manual(ctx, mode == model.ManualOn)
	case model.Reconnect:
		c.reconnect(ctx)
	case model.Idle:
		c.show("Returning...", "")
		c.pause(ctx, c.timing.Returning.D())
	}
	return model.SelectMode
}

func (c *Controller) selectMode(ctx context.Context) model.Mode {
	keys := c.keys.Acquire(model.SelectMode)
	defer keys.Release()

	c.show("Select Mode:", "1-S 2-R 3-B")
	if !c.pause(ctx, c.timing.MenuSettle.D()) {
		return model.SelectMode
	}
	for {
		c.tick()
		if k, ok := keys.Poll(); ok {
			if next, valid := menu[k]; valid {
				log.Printf("controller: key %q selects %s", k, next)
				c.show("Mode: "+string(k), "")
				c.pause(ctx, c.timing.ModeBanner.D())
				return next
			}
			log.Printf("controller: key %q ignored", k)
		}
		if !c.pause(ctx, c.timing.SelectPoll.D()) {
			return model.SelectMode
		}
	}
}

// soilMode is level control: each tick the pump follows the current reading.
// '#' is checked first so the exit tick issues only the off command.
func (c *Controller) soilMode(ctx context.Context) {
	keys := c.keys.Acquire(model.SoilMode)
	defer keys.Release()

	c.show("Soil Mode Active", "")
	if !c.pause(ctx, c.timing.SoilBanner.D()) {
		return
	}
	for {
		c.tick()
		if k, ok := keys.Poll(); ok && k == '#' {
			c.command(false)
			c.show("Exiting SoilMode", "")
			c.pause(ctx, c.timing.SoilExit.D())
			return
		}

		m, err := c.sample()
		if err != nil {
			c.command(false)
			c.show("Soil:--", "Sensor Error")
		} else {
			dry := c.policy.SoilDry(m)
			status := "Soil Wet"
			if dry {
				status = "Soil Dry → Pump"
			}
			if err := c.command(dry); errors.Is(err, device.ErrPumpResting) {
				status = "Pump Resting"
			}
			c.show(fmt.Sprintf("Soil:%d", m), status)
		}

		if !c.pause(ctx, c.timing.SoilTick.D()) {
			return
		}
	}
}

func (c *Controller) rainMode(ctx context.Context) {
	c.tick()
	r := c.fetchForecast(ctx)
	if pct, ok := r.Percent(); ok {
		c.show(fmt.Sprintf("Rain:%d%%", pct), fmt.Sprintf("Th:%d%%", c.th.RainThresholdPercent))
	} else {
		c.show("Rain:Error", "")
	}
	c.pause(ctx, c.timing.RainResult.D())
}

// bothMode decides once and, if warranted, runs a single bounded pulse.
func (c *Controller) bothMode(ctx context.Context) {
	c.tick()
	m, err := c.sample()
	if err != nil {
		c.command(false)
		c.show("Sensor Error", "Skip Irrigation")
		c.pause(ctx, c.timing.BothResult.D())
		return
	}
	r := c.fetchForecast(ctx)
	pct, known := r.Percent()

	switch {
	case !known:
		c.show("Rain:Error", "Skip Irrigation")
	case !c.policy.IrrigationWarranted(m, r):
		log.Printf("controller: soil %d rain %d%%: skip", m, pct)
		c.show(fmt.Sprintf("Soil:%d", m), "Skip Irrigation")
	default:
		log.Printf("controller: soil %d rain %d%%: irrigate %s", m, pct, c.th.AutoIrrigationRuntime)
		c.show(fmt.Sprintf("Soil:%d", m), fmt.Sprintf("Rain:%d%%", pct))
		c.show("Pump ON", "")
		err := c.pump.IrrigatePulse(ctx, c.th.AutoIrrigationRuntime)
		switch {
		case errors.Is(err, device.ErrPumpResting):
			c.show("Pump Resting", "Skip Irrigation")
		case err != nil:
			log.Printf("controller: pulse: %v", err)
			c.show("Pump OFF", "")
		default:
			c.show("Pump OFF", "")
		}
	}
	c.pause(ctx, c.timing.BothResult.D())
}

func (c *Controller) manual(ctx context.Context, on bool) {
	c.tick()
	line := "Pump MANUAL OFF"
	if on {
		line = "Pump MANUAL ON"
	}
	if err := c.command(on); errors.Is(err, device.ErrPumpResting) {
		line = "Pump Resting"
	}
	c.show(line, "")
	c.pause(ctx, c.timing.ManualResult.D())
}

func (c *Controller) reconnect(ctx context.Context) {
	c.tick()
	c.show("Reconnecting...", "")
	if err := c.net.Establish(ctx); err != nil {
		c.metrics.ConnectivityFailure()
		log.Printf("controller: %v", err)
		c.show("WiFi Failed", "")
	} else {
		c.show("WiFi Connected", "")
	}
	c.pause(ctx, c.timing.Connected.D())
}

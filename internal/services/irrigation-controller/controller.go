package irrigation_controller

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/LeonardoBeccarini/pot_irrigation/internal/clock"
	"github.com/LeonardoBeccarini/pot_irrigation/internal/config"
	"github.com/LeonardoBeccarini/pot_irrigation/internal/metrics"
	"github.com/LeonardoBeccarini/pot_irrigation/internal/model"
)

// ===================== Collaborators =====================

// Sampler yields one moisture estimate per call.
type Sampler interface {
	Read() (model.MoistureReading, error)
}

// Forecaster never fails: any problem comes back as model.Unavailable.
type Forecaster interface {
	Fetch(ctx context.Context, loc model.Location) model.RainForecast
}

// Actuator is the pump. Tick must be called on every loop iteration.
type Actuator interface {
	Set(on bool) error
	Tick()
	IrrigatePulse(ctx context.Context, d time.Duration) error
	State() model.PumpState
}

// Connector brings the network up.
type Connector interface {
	Establish(ctx context.Context) error
	WaitOnline(ctx context.Context, onFailure func(error)) error
}

// ===================== Controller =====================

type Deps struct {
	Sampler    Sampler
	Forecaster Forecaster
	Pump       Actuator
	Screen     *Screen
	Keys       *KeyOwner
	Network    Connector
	Clock      clock.Clock
	Metrics    *metrics.Metrics // optional
	Health     *metrics.Health  // optional
}

// Controller runs the mode state machine on a single goroutine.
type Controller struct {
	sampler  Sampler
	forecast Forecaster
	pump     Actuator
	screen   *Screen
	keys     *KeyOwner
	net      Connector
	clk      clock.Clock
	metrics  *metrics.Metrics
	health   *metrics.Health

	policy   Policy
	th       model.Thresholds
	location model.Location
	timing   config.Timing

	mode model.Mode
}

func NewController(d Deps, th model.Thresholds, loc model.Location, timing config.Timing) (*Controller, error) {
	switch {
	case d.Sampler == nil:
		return nil, errors.New("sampler is nil")
	case d.Forecaster == nil:
		return nil, errors.New("forecast client is nil")
	case d.Pump == nil:
		return nil, errors.New("pump is nil")
	case d.Screen == nil:
		return nil, errors.New("screen is nil")
	case d.Keys == nil:
		return nil, errors.New("keypad is nil")
	case d.Network == nil:
		return nil, errors.New("network connector is nil")
	}
	clk := d.Clock
	if clk == nil {
		clk = clock.Real()
	}
	return &Controller{
		sampler:  d.Sampler,
		forecast: d.Forecaster,
		pump:     d.Pump,
		screen:   d.Screen,
		keys:     d.Keys,
		net:      d.Network,
		clk:      clk,
		metrics:  d.Metrics,
		health:   d.Health,
		policy:   NewPolicy(th),
		th:       th,
		location: loc,
		timing:   timing,
		mode:     model.SelectMode,
	}, nil
}

// Run waits for the network, then cycles through modes until ctx is done.
// The pump is always off when Run returns.
func (c *Controller) Run(ctx context.Context) {
	defer func() {
		if err := c.pump.Set(false); err != nil {
			log.Printf("controller: pump off on shutdown: %v", err)
		}
	}()

	if !c.connect(ctx) {
		return
	}
	mode := model.SelectMode
	for ctx.Err() == nil {
		c.enter(mode)
		mode = c.runMode(ctx, mode)
	}
	log.Printf("controller: stopping")
}

// Mode is the mode currently running.
func (c *Controller) Mode() model.Mode { return c.mode }

// connect blocks until the network is up, repeating bounded rounds. It
// returns false only when ctx ends first.
func (c *Controller) connect(ctx context.Context) bool {
	c.show("Connecting WiFi", "")
	err := c.net.WaitOnline(ctx, func(err error) {
		c.tick()
		c.metrics.ConnectivityFailure()
		log.Printf("controller: %v", err)
		c.show("WiFi Failed", "Retrying...")
	})
	if err != nil {
		return false
	}
	c.show("WiFi Connected", "")
	c.pause(ctx, c.timing.Connected.D())
	return true
}

func (c *Controller) enter(mode model.Mode) {
	c.mode = mode
	c.metrics.EnterMode(mode)
	log.Printf("controller: mode %s", mode)
}

// ===================== Helpers =====================

// tick runs the per-iteration housekeeping: pump safety check and heartbeat.
func (c *Controller) tick() {
	c.pump.Tick()
	c.health.Beat(c.mode)
}

// pause sleeps d and reports whether the controller should keep going.
func (c *Controller) pause(ctx context.Context, d time.Duration) bool {
	if err := c.clk.Sleep(ctx, d); err != nil {
		return false
	}
	c.tick()
	return true
}

func (c *Controller) show(line1, line2 string) {
	if err := c.screen.Show(line1, line2); err != nil {
		log.Printf("controller: display: %v", err)
	}
}

// command sets the pump, logging failures. The error is returned so callers
// can render a refusal.
func (c *Controller) command(on bool) error {
	err := c.pump.Set(on)
	if err != nil {
		log.Printf("controller: pump set(%t): %v", on, err)
	}
	return err
}

// sample reads the soil, recording the result.
func (c *Controller) sample() (model.MoistureReading, error) {
	m, err := c.sampler.Read()
	if err != nil {
		c.metrics.SensorError()
		log.Printf("controller: soil read: %v", err)
		return 0, err
	}
	c.metrics.Moisture(m)
	return m, nil
}

func (c *Controller) fetchForecast(ctx context.Context) model.RainForecast {
	r := c.forecast.Fetch(ctx, c.location)
	c.metrics.Forecast(r)
	return r
}

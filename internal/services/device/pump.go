package device

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/LeonardoBeccarini/pot_irrigation/internal/clock"
	"github.com/LeonardoBeccarini/pot_irrigation/internal/hal"
	"github.com/LeonardoBeccarini/pot_irrigation/internal/model"
)

// ErrPumpResting is returned by Set(true) while the pump recovers from a
// safety cutoff.
var ErrPumpResting = errors.New("pump resting after safety cutoff")

// Pump is the only owner of the relay. Every command is applied immediately;
// nothing is queued.
type Pump struct {
	relay   hal.Relay
	clk     clock.Clock
	maxRun  time.Duration
	rest    time.Duration
	onEvent func(model.PumpEvent)

	mu        sync.Mutex
	running   bool
	since     time.Time
	runID     string
	pulse     bool
	gen       uint64
	watchdog  clock.Timer
	restUntil time.Time
}

// NewPump builds the actuator. maxRun bounds any continuous run; rest is the
// lockout after a cutoff (0 disables it). onEvent may be nil.
func NewPump(relay hal.Relay, clk clock.Clock, maxRun, rest time.Duration, onEvent func(model.PumpEvent)) *Pump {
	return &Pump{relay: relay, clk: clk, maxRun: maxRun, rest: rest, onEvent: onEvent}
}

// Set commands the pump. Repeating the current state is a no-op.
func (p *Pump) Set(on bool) error {
	if on {
		return p.start(p.maxRun, false, "")
	}
	p.mu.Lock()
	ev, err := p.stopLocked(model.PumpOff, "")
	p.mu.Unlock()
	p.emit(ev)
	return err
}

// Tick enforces the continuous-run limit. It is called on every loop
// iteration; the watchdog covers the time the loop spends blocked.
func (p *Pump) Tick() {
	p.mu.Lock()
	var ev *model.PumpEvent
	var err error
	if p.running && p.clk.Now().Sub(p.since) >= p.maxRun {
		ev, err = p.cutoffLocked()
	}
	p.mu.Unlock()
	if err != nil {
		log.Printf("pump: safety cutoff failed: %v", err)
	}
	p.emit(ev)
}

// IrrigatePulse runs the pump for min(d, max run) and always leaves it off.
// The stop is owned by the watchdog, so the pulse ends on time even if the
// caller is slow to return from the wait.
func (p *Pump) IrrigatePulse(ctx context.Context, d time.Duration) error {
	if d > p.maxRun {
		d = p.maxRun
	}
	if err := p.start(d, true, "pulse"); err != nil {
		return err
	}
	waitErr := p.clk.Sleep(ctx, d)
	if err := p.Set(false); err != nil {
		return err
	}
	return waitErr
}

// State reports the current run.
func (p *Pump) State() model.PumpState {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return model.PumpState{}
	}
	return model.PumpState{Running: true, Since: p.since, Elapsed: p.clk.Now().Sub(p.since)}
}

func (p *Pump) start(limit time.Duration, pulse bool, reason string) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	now := p.clk.Now()
	if now.Before(p.restUntil) {
		until := p.restUntil
		p.mu.Unlock()
		p.emit(&model.PumpEvent{
			Kind:      model.PumpRefused,
			Reason:    fmt.Sprintf("resting until %s", until.Format(time.TimeOnly)),
			Timestamp: now,
		})
		return ErrPumpResting
	}
	if err := p.relay.Write(true); err != nil {
		p.mu.Unlock()
		return fmt.Errorf("pump: relay on: %w", err)
	}
	p.running = true
	p.since = now
	p.pulse = pulse
	p.runID = uuid.New().String()
	p.gen++
	gen, id := p.gen, p.runID
	p.mu.Unlock()

	log.Printf("pump: ON (run %s)", id)
	p.emit(&model.PumpEvent{ID: id, Kind: model.PumpOn, Reason: reason, Timestamp: now})

	// armed outside the lock: a fake clock may fire a zero-length timer inline
	t := p.clk.AfterFunc(limit, func() { p.expire(gen) })
	p.mu.Lock()
	if p.gen == gen {
		p.watchdog = t
	} else {
		t.Stop()
	}
	p.mu.Unlock()
	return nil
}

func (p *Pump) expire(gen uint64) {
	p.mu.Lock()
	if !p.running || p.gen != gen {
		p.mu.Unlock()
		return
	}
	var ev *model.PumpEvent
	var err error
	if p.pulse {
		ev, err = p.stopLocked(model.PumpOff, "pulse complete")
	} else {
		ev, err = p.cutoffLocked()
	}
	p.mu.Unlock()
	if err != nil {
		// Tick retries on the next loop iteration.
		log.Printf("pump: watchdog stop failed: %v", err)
	}
	p.emit(ev)
}

func (p *Pump) cutoffLocked() (*model.PumpEvent, error) {
	ran := p.clk.Now().Sub(p.since)
	ev, err := p.stopLocked(model.SafetyCutoff, fmt.Sprintf("ran %s, limit %s", ran, p.maxRun))
	if err != nil {
		return nil, err
	}
	if p.rest > 0 {
		p.restUntil = ev.Timestamp.Add(p.rest)
	}
	return ev, nil
}

// stopLocked turns the relay off. On a write error the run stays recorded
// as running, since the relay is still in its last accepted state.
func (p *Pump) stopLocked(kind model.PumpEventKind, reason string) (*model.PumpEvent, error) {
	if !p.running {
		return nil, nil
	}
	if err := p.relay.Write(false); err != nil {
		return nil, fmt.Errorf("pump: relay off: %w", err)
	}
	if p.watchdog != nil {
		p.watchdog.Stop()
		p.watchdog = nil
	}
	now := p.clk.Now()
	ev := &model.PumpEvent{
		ID:        p.runID,
		Kind:      kind,
		Reason:    reason,
		RunTime:   now.Sub(p.since),
		Timestamp: now,
	}
	p.running = false
	p.pulse = false
	p.since = time.Time{}
	p.gen++
	if kind == model.SafetyCutoff {
		log.Printf("pump: SAFETY CUTOFF after %s (run %s)", ev.RunTime, ev.ID)
	} else {
		log.Printf("pump: OFF after %s (run %s)", ev.RunTime, ev.ID)
	}
	return ev, nil
}

func (p *Pump) emit(ev *model.PumpEvent) {
	if ev != nil && p.onEvent != nil {
		p.onEvent(*ev)
	}
}

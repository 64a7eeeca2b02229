package device

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeonardoBeccarini/pot_irrigation/internal/clock"
	"github.com/LeonardoBeccarini/pot_irrigation/internal/model"
)

var t0 = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

type recordingRelay struct {
	writes  []bool
	failOff int
	failOn  error
}

func (r *recordingRelay) Write(on bool) error {
	if on && r.failOn != nil {
		return r.failOn
	}
	if !on && r.failOff > 0 {
		r.failOff--
		return errors.New("i2c: nack")
	}
	r.writes = append(r.writes, on)
	return nil
}

type harness struct {
	clk    *clock.Fake
	relay  *recordingRelay
	pump   *Pump
	events []model.PumpEvent
}

func newHarness(maxRun, rest time.Duration) *harness {
	h := &harness{clk: clock.NewFake(t0), relay: &recordingRelay{}}
	h.pump = NewPump(h.relay, h.clk, maxRun, rest, func(ev model.PumpEvent) {
		h.events = append(h.events, ev)
	})
	return h
}

func (h *harness) kinds() []model.PumpEventKind {
	out := make([]model.PumpEventKind, 0, len(h.events))
	for _, ev := range h.events {
		out = append(out, ev.Kind)
	}
	return out
}

func TestSetIsIdempotent(t *testing.T) {
	h := newHarness(10*time.Minute, time.Minute)

	require.NoError(t, h.pump.Set(false))
	require.NoError(t, h.pump.Set(true))
	require.NoError(t, h.pump.Set(true))
	h.clk.Advance(2 * time.Second)
	require.NoError(t, h.pump.Set(false))
	require.NoError(t, h.pump.Set(false))

	assert.Equal(t, []bool{true, false}, h.relay.writes)
	assert.Equal(t, []model.PumpEventKind{model.PumpOn, model.PumpOff}, h.kinds())
	assert.Equal(t, 2*time.Second, h.events[1].RunTime)
	assert.Equal(t, h.events[0].ID, h.events[1].ID)
	assert.NotEmpty(t, h.events[0].ID)
	assert.False(t, h.pump.State().Running)
}

func TestStateReportsElapsed(t *testing.T) {
	h := newHarness(10*time.Minute, 0)
	require.NoError(t, h.pump.Set(true))
	h.clk.Advance(90 * time.Second)

	st := h.pump.State()
	assert.True(t, st.Running)
	assert.Equal(t, t0, st.Since)
	assert.Equal(t, 90*time.Second, st.Elapsed)
}

func TestWatchdogCutsOffWhileLoopIsBlocked(t *testing.T) {
	h := newHarness(10*time.Minute, 0)
	require.NoError(t, h.pump.Set(true))

	// the control loop is stuck in a long pause
	require.NoError(t, h.clk.Sleep(context.Background(), 25*time.Minute))

	assert.False(t, h.pump.State().Running)
	assert.Equal(t, []bool{true, false}, h.relay.writes)
	require.Equal(t, []model.PumpEventKind{model.PumpOn, model.SafetyCutoff}, h.kinds())
	assert.Equal(t, 10*time.Minute, h.events[1].RunTime)
	assert.Equal(t, t0.Add(10*time.Minute), h.events[1].Timestamp)
}

func TestTickRetriesFailedCutoff(t *testing.T) {
	h := newHarness(10*time.Minute, 0)
	h.relay.failOff = 1
	require.NoError(t, h.pump.Set(true))

	h.clk.Advance(10 * time.Minute)
	assert.True(t, h.pump.State().Running, "relay refused the off write")

	h.pump.Tick()
	assert.False(t, h.pump.State().Running)
	assert.Equal(t, []model.PumpEventKind{model.PumpOn, model.SafetyCutoff}, h.kinds())
}

func TestTickLeavesShortRunAlone(t *testing.T) {
	h := newHarness(10*time.Minute, 0)
	require.NoError(t, h.pump.Set(true))
	h.clk.Advance(9 * time.Minute)
	h.pump.Tick()
	assert.True(t, h.pump.State().Running)
}

func TestRestRefusesRestartAfterCutoff(t *testing.T) {
	h := newHarness(10*time.Minute, time.Minute)
	require.NoError(t, h.pump.Set(true))
	h.clk.Advance(10*time.Minute + 30*time.Second)

	err := h.pump.Set(true)
	assert.ErrorIs(t, err, ErrPumpResting)
	assert.False(t, h.pump.State().Running)
	assert.Equal(t, model.PumpRefused, h.events[len(h.events)-1].Kind)

	h.clk.Advance(30 * time.Second)
	require.NoError(t, h.pump.Set(true))
	assert.True(t, h.pump.State().Running)
}

func TestZeroRestAllowsImmediateRestart(t *testing.T) {
	h := newHarness(time.Minute, 0)
	require.NoError(t, h.pump.Set(true))
	h.clk.Advance(time.Minute)
	require.NoError(t, h.pump.Set(true))
	assert.True(t, h.pump.State().Running)
}

func TestStaleWatchdogDoesNotCutNewRun(t *testing.T) {
	h := newHarness(10*time.Minute, 0)
	require.NoError(t, h.pump.Set(true))
	h.clk.Advance(5 * time.Minute)
	require.NoError(t, h.pump.Set(false))
	require.NoError(t, h.pump.Set(true))

	h.clk.Advance(6 * time.Minute)
	assert.True(t, h.pump.State().Running, "first run's deadline must not stop the second run")

	h.clk.Advance(4 * time.Minute)
	assert.False(t, h.pump.State().Running)
	assert.Equal(t, model.SafetyCutoff, h.events[len(h.events)-1].Kind)
}

func TestIrrigatePulse(t *testing.T) {
	h := newHarness(10*time.Minute, time.Minute)

	require.NoError(t, h.pump.IrrigatePulse(context.Background(), 3*time.Second))

	assert.False(t, h.pump.State().Running)
	assert.Equal(t, []bool{true, false}, h.relay.writes)
	assert.Equal(t, 3*time.Second, h.clk.Slept())
	require.Equal(t, []model.PumpEventKind{model.PumpOn, model.PumpOff}, h.kinds())
	assert.Equal(t, 3*time.Second, h.events[1].RunTime)
}

func TestIrrigatePulseIsClampedToMaxRun(t *testing.T) {
	h := newHarness(10*time.Minute, time.Minute)

	require.NoError(t, h.pump.IrrigatePulse(context.Background(), time.Hour))

	assert.Equal(t, 10*time.Minute, h.clk.Slept())
	assert.Equal(t, []model.PumpEventKind{model.PumpOn, model.PumpOff}, h.kinds())
	// a clamped pulse is not a cutoff, so no rest applies
	require.NoError(t, h.pump.Set(true))
}

func TestIrrigatePulseLeavesPumpOffOnCancel(t *testing.T) {
	h := newHarness(10*time.Minute, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.pump.IrrigatePulse(ctx, 3*time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, h.pump.State().Running)
	assert.Equal(t, []bool{true, false}, h.relay.writes)
}

func TestRelayErrorOnStartLeavesPumpOff(t *testing.T) {
	h := newHarness(10*time.Minute, 0)
	h.relay.failOn = errors.New("gpio busy")

	err := h.pump.Set(true)
	assert.ErrorContains(t, err, "gpio busy")
	assert.False(t, h.pump.State().Running)
	assert.Empty(t, h.events)
}

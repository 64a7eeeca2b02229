package hal_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeonardoBeccarini/pot_irrigation/internal/clock"
	"github.com/LeonardoBeccarini/pot_irrigation/internal/config"
	"github.com/LeonardoBeccarini/pot_irrigation/internal/hal"
	"github.com/LeonardoBeccarini/pot_irrigation/internal/hal/sim"
)

type brokenDisplay struct{ *sim.MemoryDisplay }

func (*brokenDisplay) Write(string) error { return errors.New("bus error") }

func TestTeeDisplayReachesEveryDisplay(t *testing.T) {
	a := sim.NewMemoryDisplay(16, 2)
	b := sim.NewMemoryDisplay(16, 2)
	tee := hal.TeeDisplay{a, b}

	require.NoError(t, tee.Clear())
	require.NoError(t, tee.Write("Pump ON"))
	require.NoError(t, tee.Flush())

	assert.Equal(t, [][]string{{"Pump ON", ""}}, a.Frames())
	assert.Equal(t, a.Frames(), b.Frames())
}

func TestTeeDisplayKeepsGoingAfterError(t *testing.T) {
	good := sim.NewMemoryDisplay(16, 2)
	tee := hal.TeeDisplay{&brokenDisplay{sim.NewMemoryDisplay(16, 2)}, good}
	assert.Error(t, tee.Write("x"))
	assert.Equal(t, "x", good.Lines()[0])
}

func TestAnyKeypadPollsInOrder(t *testing.T) {
	clk := clock.NewFake(time.Now())
	a := sim.NewScriptKeypad(clk, sim.KeyStep{Key: '1'})
	b := sim.NewScriptKeypad(clk, sim.KeyStep{Key: '2'}, sim.KeyStep{Key: '3'})
	keys := hal.AnyKeypad{a, b}

	var got []rune
	for {
		r, ok := keys.Poll()
		if !ok {
			break
		}
		got = append(got, r)
	}
	assert.Equal(t, []rune{'1', '2', '3'}, got)
}

func TestAnyKeypadFlushesAll(t *testing.T) {
	clk := clock.NewFake(time.Now())
	a := sim.NewScriptKeypad(clk, sim.KeyStep{Key: '1'})
	b := sim.NewScriptKeypad(clk, sim.KeyStep{Key: '2'})
	hal.AnyKeypad{a, b}.Flush()
	assert.Zero(t, a.Remaining()+b.Remaining())
}

func TestOpenSimDriver(t *testing.T) {
	cfg := config.Default()
	cfg.Hardware.Driver = "sim"
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d, err := hal.Open(ctx, cfg, clock.NewFake(time.Now()))
	require.NoError(t, err)
	defer d.Close()

	a, err := d.SensorA.ReadU16()
	require.NoError(t, err)
	b, err := d.SensorB.ReadU16()
	require.NoError(t, err)
	assert.NotZero(t, a)
	assert.NotZero(t, b)
	require.NoError(t, d.Relay.Write(false))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	cfg := config.Default()
	cfg.Hardware.Driver = "gpiozero"
	_, err := hal.Open(context.Background(), cfg, clock.Real())
	assert.Error(t, err)
}

package network

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeonardoBeccarini/pot_irrigation/internal/clock"
	"github.com/LeonardoBeccarini/pot_irrigation/internal/model"
)

type flakyLink struct {
	failures  int
	joins     int
	connected bool
}

func (l *flakyLink) Join(context.Context, string, string) error {
	l.joins++
	if l.joins <= l.failures {
		return errors.New("association rejected")
	}
	l.connected = true
	return nil
}

func (l *flakyLink) Connected(context.Context) bool { return l.connected }

func fastConnector(link Link, attempts int) *Connector {
	c := NewConnector(link, "garden", "secret", attempts, time.Minute, time.Second, 20*time.Second, clock.NewFake(time.Unix(0, 0)))
	c.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return c
}

func TestEstablishSkipsJoinWhenAlreadyConnected(t *testing.T) {
	link := &flakyLink{connected: true}
	require.NoError(t, fastConnector(link, 3).Establish(context.Background()))
	assert.Zero(t, link.joins)
}

func TestEstablishRetriesUntilJoined(t *testing.T) {
	link := &flakyLink{failures: 2}
	require.NoError(t, fastConnector(link, 5).Establish(context.Background()))
	assert.Equal(t, 3, link.joins)
}

func TestEstablishGivesUpAfterMaxAttempts(t *testing.T) {
	link := &flakyLink{failures: 100}
	err := fastConnector(link, 4).Establish(context.Background())

	var cerr *model.ConnectivityError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, 4, cerr.Attempts)
	assert.Equal(t, "garden", cerr.SSID)
	assert.Equal(t, 4, link.joins)
	assert.ErrorContains(t, err, "association rejected")
}

func TestEstablishStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := fastConnector(&flakyLink{failures: 100}, 5).Establish(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWaitOnlineRepeatsRounds(t *testing.T) {
	link := &flakyLink{failures: 5}
	var rounds int
	err := fastConnector(link, 2).WaitOnline(context.Background(), func(err error) {
		rounds++
		var cerr *model.ConnectivityError
		assert.ErrorAs(t, err, &cerr)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, rounds)
	assert.Equal(t, 6, link.joins)
}

// stampedLink fails every join until failures is used up, recording when each join ran.
type stampedLink struct {
	clk      clock.Clock
	failures int
	joins    []time.Time
}

func (l *stampedLink) Join(context.Context, string, string) error {
	l.joins = append(l.joins, l.clk.Now())
	if len(l.joins) <= l.failures {
		return errors.New("association rejected")
	}
	return nil
}

func (l *stampedLink) Connected(context.Context) bool { return len(l.joins) > l.failures }

func TestWaitOnlinePausesBetweenRounds(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	link := &stampedLink{clk: clk, failures: 6}
	c := NewConnector(link, "garden", "secret", 1, time.Minute, time.Second, 20*time.Second, clk)

	var rounds int
	require.NoError(t, c.WaitOnline(context.Background(), func(error) { rounds++ }))
	assert.Equal(t, 6, rounds)
	require.Len(t, link.joins, 7)

	var gaps []time.Duration
	for i := 1; i < len(link.joins); i++ {
		gaps = append(gaps, link.joins[i].Sub(link.joins[i-1]))
	}
	assert.Equal(t, 5*time.Second, gaps[0])
	for i, g := range gaps {
		assert.LessOrEqual(t, g, 20*time.Second)
		if i > 0 {
			assert.GreaterOrEqual(t, g, gaps[i-1])
		}
	}
	assert.Equal(t, 20*time.Second, gaps[len(gaps)-1])
}

func TestWaitOnlineStopsSleepingOnCancel(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	link := &stampedLink{clk: clk, failures: 1000}
	c := NewConnector(link, "garden", "secret", 1, time.Minute, time.Second, 20*time.Second, clk)

	ctx, cancel := context.WithCancel(context.Background())
	var rounds int
	err := c.WaitOnline(ctx, func(error) {
		rounds++
		if rounds == 3 {
			cancel()
		}
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, link.joins, 3)
	assert.Equal(t, 5*time.Second+7500*time.Millisecond, clk.Slept())
}

func TestNMCLILinkCommands(t *testing.T) {
	var calls []string
	l := NewNMCLILink("wlan0")
	l.run = func(_ context.Context, name string, args ...string) ([]byte, error) {
		calls = append(calls, name+" "+strings.Join(args, " "))
		if args[0] == "-t" {
			return []byte("connected\n"), nil
		}
		return []byte("Device 'wlan0' successfully activated"), nil
	}

	require.NoError(t, l.Join(context.Background(), "garden", "secret"))
	assert.True(t, l.Connected(context.Background()))
	assert.Equal(t, []string{
		"nmcli dev wifi connect garden password secret ifname wlan0",
		"nmcli -t -f STATE general",
	}, calls)
}

func TestNMCLILinkReportsFailureOutput(t *testing.T) {
	l := NewNMCLILink("")
	l.run = func(context.Context, string, ...string) ([]byte, error) {
		return []byte("Error: No network with SSID 'garden' found."), errors.New("exit status 10")
	}
	err := l.Join(context.Background(), "garden", "")
	assert.ErrorContains(t, err, "No network with SSID")
	assert.False(t, l.Connected(context.Background()))

	assert.Error(t, l.Join(context.Background(), "", ""))
}

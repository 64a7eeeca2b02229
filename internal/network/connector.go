// Package network brings the device online with bounded retries.
package network

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/LeonardoBeccarini/pot_irrigation/internal/clock"
	"github.com/LeonardoBeccarini/pot_irrigation/internal/model"
)

type Connector struct {
	link        Link
	ssid        string
	password    string
	maxAttempts int
	maxElapsed  time.Duration
	joinTimeout time.Duration
	roundGap    time.Duration
	clk         clock.Clock

	// newBackOff builds the retry schedule of one Establish round.
	newBackOff func() backoff.BackOff
	// newRoundBackOff spaces failed rounds in WaitOnline.
	newRoundBackOff func() backoff.BackOff
}

// NewConnector builds a connector. roundGap caps the pause between failed
// WaitOnline rounds.
func NewConnector(link Link, ssid, password string, maxAttempts int, maxElapsed, joinTimeout, roundGap time.Duration, clk clock.Clock) *Connector {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if roundGap <= 0 {
		roundGap = 30 * time.Second
	}
	c := &Connector{
		link:        link,
		ssid:        ssid,
		password:    password,
		maxAttempts: maxAttempts,
		maxElapsed:  maxElapsed,
		joinTimeout: joinTimeout,
		roundGap:    roundGap,
		clk:         clk,
	}
	if c.clk == nil {
		c.clk = clock.Real()
	}
	c.newBackOff = func() backoff.BackOff {
		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = time.Second
		bo.MaxElapsedTime = c.maxElapsed
		return bo
	}
	c.newRoundBackOff = func() backoff.BackOff {
		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = 5 * time.Second
		bo.MaxInterval = c.roundGap
		if bo.InitialInterval > bo.MaxInterval {
			bo.InitialInterval = bo.MaxInterval
		}
		bo.RandomizationFactor = 0
		bo.MaxElapsedTime = 0
		return bo
	}
	return c
}

// Establish joins the network, retrying with exponential backoff for at most
// maxAttempts joins. Failure is reported as a *model.ConnectivityError.
func (c *Connector) Establish(ctx context.Context) error {
	if c.link.Connected(ctx) {
		return nil
	}
	attempts := 0
	op := func() error {
		attempts++
		joinCtx, cancel := c.joinContext(ctx)
		defer cancel()
		if err := c.link.Join(joinCtx, c.ssid, c.password); err != nil {
			return err
		}
		if !c.link.Connected(ctx) {
			return errors.New("joined but link not connected")
		}
		return nil
	}
	notify := func(err error, next time.Duration) {
		log.Printf("network: join %q attempt %d/%d failed: %v (retry in %s)", c.ssid, attempts, c.maxAttempts, err, next)
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), uint64(c.maxAttempts-1)), ctx)
	if err := backoff.RetryNotify(op, bo, notify); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return &model.ConnectivityError{SSID: c.ssid, Attempts: attempts, Err: err}
	}
	log.Printf("network: connected to %q after %d attempt(s)", c.ssid, attempts)
	return nil
}

// WaitOnline repeats Establish rounds until one succeeds or ctx is done,
// pausing between failed rounds on an exponential schedule capped at roundGap.
// onFailure, when set, sees every failed round.
func (c *Connector) WaitOnline(ctx context.Context, onFailure func(error)) error {
	rounds := c.newRoundBackOff()
	rounds.Reset()
	for {
		err := c.Establish(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if onFailure != nil {
			onFailure(err)
		}
		wait := rounds.NextBackOff()
		if wait == backoff.Stop {
			wait = c.roundGap
		}
		log.Printf("network: next round in %s", wait)
		if err := c.clk.Sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func (c *Connector) joinContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.joinTimeout > 0 {
		return context.WithTimeout(ctx, c.joinTimeout)
	}
	return context.WithCancel(ctx)
}

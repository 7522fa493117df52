package session

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/storyforge/credential"
	"github.com/rs/zerolog/log"
)

const (
	DefaultCheckInterval  = 30 * time.Second
	DefaultRenewThreshold = 60 * time.Second
)

// Renewable is what the clock watches and renews. *Controller satisfies it.
type Renewable interface {
	SecondsUntilExpiry() (int64, bool)
	RequestRenewal(ctx context.Context) (*credential.Credential, error)
}

// Clock renews the credential ahead of its expiry so that request traffic
// rarely sees a rejected token.
type Clock struct {
	target    Renewable
	interval  time.Duration
	threshold time.Duration
}

type ClockOption func(*Clock)

func WithInterval(d time.Duration) ClockOption {
	return func(c *Clock) {
		if d > 0 {
			c.interval = d
		}
	}
}

func WithThreshold(d time.Duration) ClockOption {
	return func(c *Clock) {
		if d >= 0 {
			c.threshold = d
		}
	}
}

func NewClock(target Renewable, options ...ClockOption) *Clock {
	c := &Clock{
		target:    target,
		interval:  DefaultCheckInterval,
		threshold: DefaultRenewThreshold,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Run ticks until ctx is done. A tick completes before the next one can
// start. Cancelling ctx stops scheduling; a renewal already in flight runs
// to completion in the controller.
func (c *Clock) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.Tick(ctx); err != nil && ctx.Err() == nil {
				log.Warn().Err(err).Msg("scheduled credential renewal failed")
			}
		}
	}
}

// Start runs the clock in its own goroutine. stop cancels it and waits for
// the loop to exit.
func (c *Clock) Start(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.Run(ctx)
	}()
	return func() {
		cancel()
		wg.Wait()
	}
}

// Tick performs one check. It reports whether a renewal was requested.
func (c *Clock) Tick(ctx context.Context) (bool, error) {
	remaining, ok := c.target.SecondsUntilExpiry()
	if !ok {
		return false, nil
	}
	if remaining > int64(c.threshold/time.Second) {
		return false, nil
	}
	log.Debug().Int64("seconds_left", remaining).Msg("access token near expiry, renewing")
	_, err := c.target.RequestRenewal(ctx)
	return true, err
}

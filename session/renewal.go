package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/storyforge/backend"
	"github.com/jrsteele09/storyforge/credential"
	errs "github.com/jrsteele09/storyforge/internal/errors"
	"github.com/rs/zerolog/log"
)

// pendingRefresh is the one renewal in flight. It exists exactly while the
// controller is Renewing. Until it is detached from the controller it is
// only touched under the controller's lock.
type pendingRefresh struct {
	id      string
	started time.Time
	waiters []chan renewalResult
}

type renewalResult struct {
	cred *credential.Credential
	err  error
}

func newPendingRefresh() *pendingRefresh {
	return &pendingRefresh{
		id:      uuid.NewString(),
		started: time.Now(),
	}
}

// join adds a waiter at the back of the queue.
func (p *pendingRefresh) join() <-chan renewalResult {
	ch := make(chan renewalResult, 1)
	p.waiters = append(p.waiters, ch)
	return ch
}

// release hands the outcome to every waiter in join order. Channels are
// buffered, so a waiter that already gave up never blocks the others.
func (p *pendingRefresh) release(cred *credential.Credential, err error) {
	for _, ch := range p.waiters {
		ch <- renewalResult{cred: cred, err: err}
	}
	p.waiters = nil
}

// RequestRenewal renews the credential, joining a renewal already in flight
// instead of starting a second one. Every caller of one renewal sees the
// same credential or the same *errs.RenewalError. ctx only bounds how long
// this caller waits; the renewal itself is not cancelled with it.
func (c *Controller) RequestRenewal(ctx context.Context) (*credential.Credential, error) {
	return c.renew(ctx, "")
}

// RenewStale is RequestRenewal for a caller whose request was rejected with
// failedAccessToken. If a different token has already been installed, that
// token is returned without calling the backend.
func (c *Controller) RenewStale(ctx context.Context, failedAccessToken string) (*credential.Credential, error) {
	return c.renew(ctx, failedAccessToken)
}

func (c *Controller) renew(ctx context.Context, staleToken string) (*credential.Credential, error) {
	c.mu.Lock()
	var (
		p     *pendingRefresh
		wait  <-chan renewalResult
		first bool
	)
	switch c.state {
	case Renewing:
		p = c.pending
		wait = p.join()
	case Authenticated:
		cur := c.store.Get()
		if cur == nil {
			c.mu.Unlock()
			return nil, &errs.RenewalError{Cause: errs.ErrNoSession}
		}
		if staleToken != "" && cur.AccessToken != staleToken {
			c.mu.Unlock()
			return cur, nil
		}
		p = newPendingRefresh()
		c.pending = p
		c.state = Renewing
		wait = p.join()
		first = true
		go c.runRenewal(p, cur.RefreshToken)
	default:
		state := c.state
		c.mu.Unlock()
		return nil, &errs.RenewalError{Cause: fmt.Errorf("%w: state is %s", errs.ErrNoSession, state)}
	}
	position := len(p.waiters)
	c.mu.Unlock()

	log.Debug().Str("renewal_id", p.id).Bool("initiator", first).Int("position", position).Msg("waiting for credential renewal")

	select {
	case res := <-wait:
		return res.cred, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// runRenewal makes the single backend refresh call for p. The call gets its
// own timeout, so a backend that never answers still settles p.
func (c *Controller) runRenewal(p *pendingRefresh, refreshToken string) {
	log.Info().Str("renewal_id", p.id).Msg("credential renewal started")

	ctx, cancel := context.WithTimeout(context.Background(), c.refreshTimeout)
	defer cancel()

	type outcome struct {
		pair *backend.TokenPair
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		pair, err := c.authenticator.Refresh(ctx, refreshToken)
		done <- outcome{pair: pair, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out.err = fmt.Errorf("refresh timed out after %s: %w", c.refreshTimeout, ctx.Err())
	}
	if out.err == nil && (out.pair == nil || out.pair.AccessToken == "") {
		out.err = fmt.Errorf("%w: refresh returned an empty token pair", errs.ErrServer)
	}

	if out.err != nil {
		c.settleFailure(p, out.err)
		return
	}
	next := out.pair.RefreshToken
	if next == "" {
		next = refreshToken
	}
	c.settleSuccess(p, credential.New(out.pair.AccessToken, next))
}

// settleSuccess installs cred and only then releases the waiters.
func (c *Controller) settleSuccess(p *pendingRefresh, cred *credential.Credential) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending != p {
		log.Debug().Str("renewal_id", p.id).Msg("late renewal result discarded")
		return
	}
	c.pending = nil
	c.applyCredentialLocked(cred)
	p.release(cred, nil)

	log.Info().Str("renewal_id", p.id).Dur("took", time.Since(p.started)).Int64("expires_at", cred.AccessExpiryUnix()).Msg("credential renewed")
}

// settleFailure ends the session. A failed renewal is never retried: the
// refresh token that produced it is gone with the session. Listeners hear
// about the ended session before any waiter sees the error.
func (c *Controller) settleFailure(p *pendingRefresh, cause error) {
	c.mu.Lock()
	if c.pending != p {
		c.mu.Unlock()
		log.Debug().Str("renewal_id", p.id).Err(cause).Msg("late renewal failure discarded")
		return
	}
	c.pending = nil
	c.state = Expired
	if err := c.clearCredentialLocked(); err != nil {
		log.Error().Err(err).Msg("credential not removed from storage")
	}
	c.mu.Unlock()

	log.Warn().Str("renewal_id", p.id).Err(cause).Msg("credential renewal failed")
	c.emitSessionEnded(EndReasonRenewalFailed)
	p.release(nil, &errs.RenewalError{Cause: cause})
}

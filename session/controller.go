package session

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/jrsteele09/storyforge/backend"
	"github.com/jrsteele09/storyforge/credential"
	errs "github.com/jrsteele09/storyforge/internal/errors"
	"github.com/rs/zerolog/log"
)

const DefaultRefreshTimeout = 5 * time.Second

// CredentialStore is the storage the controller drives. *credential.Store
// satisfies it.
type CredentialStore interface {
	Restore() (*credential.Credential, error)
	Get() *credential.Credential
	Set(c *credential.Credential) error
	Clear() error
	SecondsUntilExpiry() (int64, bool)
}

// Controller owns the session. It is the only writer of the credential
// store, and one mutex guards the state together with any pending renewal.
type Controller struct {
	store          CredentialStore
	authenticator  backend.Authenticator
	refreshTimeout time.Duration

	mu      sync.Mutex
	state   State
	pending *pendingRefresh
	// epoch advances on every logout so a login that straddles one is dropped.
	epoch     uint64
	listeners []func(EndReason)
}

type ControllerOption func(*Controller)

// WithRefreshTimeout bounds each backend refresh call.
func WithRefreshTimeout(d time.Duration) ControllerOption {
	return func(c *Controller) {
		if d > 0 {
			c.refreshTimeout = d
		}
	}
}

func NewController(store CredentialStore, authenticator backend.Authenticator, options ...ControllerOption) *Controller {
	c := &Controller{
		store:          store,
		authenticator:  authenticator,
		refreshTimeout: DefaultRefreshTimeout,
		state:          Anonymous,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// OnSessionEnded registers fn to run each time a session ends. Listeners run
// outside the controller's lock, in registration order.
func (c *Controller) OnSessionEnded(fn func(EndReason)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CurrentCredential returns the installed credential, or nil when anonymous.
func (c *Controller) CurrentCredential() *credential.Credential {
	return c.store.Get()
}

// SecondsUntilExpiry reports the installed access token's remaining lifetime.
func (c *Controller) SecondsUntilExpiry() (int64, bool) {
	return c.store.SecondsUntilExpiry()
}

// Restore picks up a credential persisted by an earlier process. It is only
// valid while anonymous; an expired access token is left for the first
// renewal to replace.
func (c *Controller) Restore() (*credential.Credential, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Anonymous {
		return nil, fmt.Errorf("[Controller Restore] %w: state is %s", errs.ErrAlreadyLoggedIn, c.state)
	}
	cred, err := c.store.Restore()
	if err != nil {
		return nil, errs.Wrapf(err, "[Controller Restore]")
	}
	if cred == nil {
		return nil, nil
	}
	c.state = Authenticated
	log.Info().Int64("expires_at", cred.AccessExpiryUnix()).Msg("session restored")
	return cred, nil
}

// Login authenticates and installs the resulting credential. A failed login
// leaves the controller anonymous and does not count as a session ending.
func (c *Controller) Login(ctx context.Context, req backend.LoginRequest) (*credential.Credential, error) {
	c.mu.Lock()
	switch c.state {
	case Authenticating:
		c.mu.Unlock()
		return nil, errs.ErrLoginInProgress
	case Authenticated, Renewing:
		c.mu.Unlock()
		return nil, errs.ErrAlreadyLoggedIn
	}
	c.state = Authenticating
	epoch := c.epoch
	c.mu.Unlock()

	pair, err := c.authenticator.Login(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		log.Debug().Msg("login result dropped, session was reset while it was in flight")
		return nil, errs.ErrSessionSuperseded
	}
	if err != nil {
		c.state = Anonymous
		return nil, errs.Wrapf(err, "[Controller Login]")
	}
	if pair == nil || pair.AccessToken == "" {
		c.state = Anonymous
		return nil, fmt.Errorf("[Controller Login] %w: empty token pair", errs.ErrServer)
	}

	cred := credential.New(pair.AccessToken, pair.RefreshToken)
	c.applyCredentialLocked(cred)
	log.Info().Int64("expires_at", cred.AccessExpiryUnix()).Msg("logged in")
	return cred, nil
}

// Logout ends the session from any state. A pending renewal is abandoned: its
// waiters are rejected and its eventual result ignored. The returned error
// only reports a storage failure; the controller is anonymous either way.
func (c *Controller) Logout() error {
	c.mu.Lock()
	prev := c.state
	c.epoch++
	if p := c.pending; p != nil {
		c.pending = nil
		p.release(nil, &errs.RenewalError{Cause: errs.ErrSessionSuperseded})
		log.Debug().Str("renewal_id", p.id).Msg("pending renewal abandoned by logout")
	}
	err := c.clearCredentialLocked()
	c.mu.Unlock()

	if prev.holdsCredential() {
		c.emitSessionEnded(EndReasonLogout)
	}
	if err != nil {
		return errs.Wrapf(err, "[Controller Logout]")
	}
	return nil
}

// applyCredentialLocked installs cred and marks the session authenticated.
// A persistence failure is logged: the credential is live in memory and the
// session carries on.
func (c *Controller) applyCredentialLocked(cred *credential.Credential) {
	if err := c.store.Set(cred); err != nil {
		log.Error().Err(err).Msg("credential not persisted")
	}
	c.state = Authenticated
}

func (c *Controller) clearCredentialLocked() error {
	c.state = Anonymous
	return c.store.Clear()
}

func (c *Controller) emitSessionEnded(reason EndReason) {
	c.mu.Lock()
	listeners := slices.Clone(c.listeners)
	c.mu.Unlock()

	log.Info().Str("reason", reason.String()).Msg("session ended")
	for _, fn := range listeners {
		fn(reason)
	}
}

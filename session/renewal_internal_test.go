package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/storyforge/backend"
	"github.com/jrsteele09/storyforge/backend/backendfake"
	"github.com/jrsteele09/storyforge/credential"
	credentialrepofake "github.com/jrsteele09/storyforge/credential/repofake"
	errs "github.com/jrsteele09/storyforge/internal/errors"
	"github.com/stretchr/testify/require"
)

func (c *Controller) waiterCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return 0
	}
	return len(c.pending.waiters)
}

type gatedSetup struct {
	fake       *backendfake.FakeBackend
	store      *credential.Store
	controller *Controller
	gate       chan struct{}
}

// newGatedSetup logs in and then holds every refresh until gate is closed.
func newGatedSetup(t *testing.T) *gatedSetup {
	t.Helper()
	fake := backendfake.NewFakeBackend()
	fake.AddUser("ada@example.com", "Secret123")
	store := credential.NewStore(credentialrepofake.NewFakeCredentialRepo())
	c := NewController(store, fake)
	_, err := c.Login(context.Background(), backend.LoginRequest{Email: "ada@example.com", Password: "Secret123"})
	require.NoError(t, err)

	gate := make(chan struct{})
	fake.RefreshHook = func(ctx context.Context) error {
		<-gate
		return nil
	}
	return &gatedSetup{fake: fake, store: store, controller: c, gate: gate}
}

type waiterOutcome struct {
	cred *credential.Credential
	err  error
	// installed is the store's credential at the moment the waiter woke.
	installed *credential.Credential
}

func (s *gatedSetup) startWaiter(results chan<- waiterOutcome) {
	go func() {
		cred, err := s.controller.RequestRenewal(context.Background())
		results <- waiterOutcome{cred: cred, err: err, installed: s.store.Get()}
	}()
}

func TestRenewal_SingleFlight(t *testing.T) {
	s := newGatedSetup(t)
	const callers = 12
	results := make(chan waiterOutcome, callers)

	for i := 0; i < callers; i++ {
		s.startWaiter(results)
	}
	require.Eventually(t, func() bool { return s.controller.waiterCount() == callers }, time.Second, time.Millisecond)
	require.Equal(t, Renewing, s.controller.State())
	// The refresh is issued from its own goroutine.
	require.Eventually(t, func() bool { return s.fake.RefreshCalls() == 1 }, time.Second, time.Millisecond)

	close(s.gate)

	var first *credential.Credential
	for i := 0; i < callers; i++ {
		out := <-results
		require.NoError(t, out.err)
		if first == nil {
			first = out.cred
		}
		require.Same(t, first, out.cred)
	}
	require.Equal(t, 1, s.fake.RefreshCalls())
	require.Equal(t, Authenticated, s.controller.State())
	require.Zero(t, s.controller.waiterCount())
}

func TestRenewal_SingleFlightFailureIsShared(t *testing.T) {
	s := newGatedSetup(t)
	s.fake.RevokeRefresh()
	const callers = 5
	results := make(chan waiterOutcome, callers)

	for i := 0; i < callers; i++ {
		s.startWaiter(results)
	}
	require.Eventually(t, func() bool { return s.controller.waiterCount() == callers }, time.Second, time.Millisecond)
	close(s.gate)

	var first error
	for i := 0; i < callers; i++ {
		out := <-results
		require.ErrorIs(t, out.err, errs.ErrRenewalFailure)
		if first == nil {
			first = out.err
		}
		require.Same(t, first, out.err)
	}
	require.Equal(t, 1, s.fake.RefreshCalls())
	require.Equal(t, Anonymous, s.controller.State())
}

func TestRenewal_WaitersReleasedAfterInstall(t *testing.T) {
	s := newGatedSetup(t)
	results := make(chan waiterOutcome, 2)

	s.startWaiter(results)
	require.Eventually(t, func() bool { return s.controller.waiterCount() == 1 }, time.Second, time.Millisecond)
	s.startWaiter(results)
	require.Eventually(t, func() bool { return s.controller.waiterCount() == 2 }, time.Second, time.Millisecond)

	select {
	case <-results:
		t.Fatal("waiter released before the refresh settled")
	case <-time.After(20 * time.Millisecond):
	}

	close(s.gate)
	for i := 0; i < 2; i++ {
		out := <-results
		require.NoError(t, out.err)
		require.NotNil(t, out.installed)
		require.Equal(t, out.cred.AccessToken, out.installed.AccessToken)
	}
}

func TestPendingRefresh_ReleaseInJoinOrder(t *testing.T) {
	p := newPendingRefresh()
	require.NotEmpty(t, p.id)

	waiters := []<-chan renewalResult{p.join(), p.join(), p.join()}
	require.Len(t, p.waiters, 3)
	for i, w := range waiters {
		require.Equal(t, (<-chan renewalResult)(p.waiters[i]), w)
	}

	cred := credential.New("access", "refresh")
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		// Nobody reads the middle waiter; release must still return.
		p.release(cred, nil)
	}()
	wg.Wait()

	require.Nil(t, p.waiters)
	require.Same(t, cred, (<-waiters[0]).cred)
	require.Same(t, cred, (<-waiters[2]).cred)
}

func TestClock_TickJoinsRenewalInFlight(t *testing.T) {
	s := newGatedSetup(t)
	results := make(chan waiterOutcome, 1)
	s.startWaiter(results)
	require.Eventually(t, func() bool { return s.controller.waiterCount() == 1 }, time.Second, time.Millisecond)

	// A fresh login token is far from expiry; a threshold above its lifetime
	// makes the tick fire anyway.
	clock := NewClock(s.controller, WithThreshold(time.Hour))
	ticked := make(chan error, 1)
	go func() {
		_, err := clock.Tick(context.Background())
		ticked <- err
	}()
	require.Eventually(t, func() bool { return s.controller.waiterCount() == 2 }, time.Second, time.Millisecond)

	close(s.gate)
	require.NoError(t, (<-results).err)
	require.NoError(t, <-ticked)
	require.Equal(t, 1, s.fake.RefreshCalls())
}

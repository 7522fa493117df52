package session_test

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
	"github.com/jrsteele09/storyforge/session"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "ada@example.com"
	testPassword = "Secret123"
)

var testLogin = backend.LoginRequest{Email: testEmail, Password: testPassword}

// endRecorder collects session-ended events.
type endRecorder struct {
	mu      sync.Mutex
	reasons []session.EndReason
}

func (r *endRecorder) record(reason session.EndReason) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reasons = append(r.reasons, reason)
}

func (r *endRecorder) Reasons() []session.EndReason {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]session.EndReason(nil), r.reasons...)
}

type harness struct {
	fake       *backendfake.FakeBackend
	repo       *credentialrepofake.FakeCredentialRepo
	store      *credential.Store
	controller *session.Controller
	ended      *endRecorder
}

func newHarness(t *testing.T, repo *credentialrepofake.FakeCredentialRepo, options ...session.ControllerOption) *harness {
	t.Helper()
	if repo == nil {
		repo = credentialrepofake.NewFakeCredentialRepo()
	}
	fake := backendfake.NewFakeBackend()
	fake.AddUser(testEmail, testPassword)
	store := credential.NewStore(repo)
	h := &harness{
		fake:       fake,
		repo:       repo,
		store:      store,
		controller: session.NewController(store, fake, options...),
		ended:      &endRecorder{},
	}
	h.controller.OnSessionEnded(h.ended.record)
	return h
}

func (h *harness) login(t *testing.T) *credential.Credential {
	t.Helper()
	cred, err := h.controller.Login(context.Background(), testLogin)
	require.NoError(t, err)
	return cred
}

// blockingAuthenticator holds Login until release is closed.
type blockingAuthenticator struct {
	backend.Authenticator
	release chan struct{}
}

func (b *blockingAuthenticator) Login(ctx context.Context, req backend.LoginRequest) (*backend.TokenPair, error) {
	<-b.release
	return b.Authenticator.Login(ctx, req)
}

func TestController_LoginLogout(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	require.Equal(t, session.Anonymous, h.controller.State())
	require.Nil(t, h.controller.CurrentCredential())

	_, err := h.controller.Login(ctx, backend.LoginRequest{Email: testEmail, Password: "wrong"})
	require.ErrorIs(t, err, errs.ErrAuthFailure)
	require.Equal(t, session.Anonymous, h.controller.State())
	require.Empty(t, h.ended.Reasons(), "a failed login is not a session ending")

	cred := h.login(t)
	require.Equal(t, session.Authenticated, h.controller.State())
	require.Same(t, cred, h.controller.CurrentCredential())
	require.Same(t, cred, h.repo.Stored())
	secs, ok := h.controller.SecondsUntilExpiry()
	require.True(t, ok)
	require.Greater(t, secs, int64(800))

	_, err = h.controller.Login(ctx, testLogin)
	require.ErrorIs(t, err, errs.ErrAlreadyLoggedIn)

	require.NoError(t, h.controller.Logout())
	require.Equal(t, session.Anonymous, h.controller.State())
	require.Nil(t, h.controller.CurrentCredential())
	require.Nil(t, h.repo.Stored())
	require.Equal(t, []session.EndReason{session.EndReasonLogout}, h.ended.Reasons())

	// Logging out while anonymous is harmless and silent.
	require.NoError(t, h.controller.Logout())
	require.Len(t, h.ended.Reasons(), 1)

	h.login(t)
	require.Equal(t, session.Authenticated, h.controller.State())
}

func TestController_LoginInFlight(t *testing.T) {
	fake := backendfake.NewFakeBackend()
	fake.AddUser(testEmail, testPassword)
	auth := &blockingAuthenticator{Authenticator: fake, release: make(chan struct{})}
	store := credential.NewStore(credentialrepofake.NewFakeCredentialRepo())
	c := session.NewController(store, auth)
	ended := &endRecorder{}
	c.OnSessionEnded(ended.record)

	result := make(chan error, 1)
	go func() {
		_, err := c.Login(context.Background(), testLogin)
		result <- err
	}()
	require.Eventually(t, func() bool { return c.State() == session.Authenticating }, time.Second, time.Millisecond)

	_, err := c.Login(context.Background(), testLogin)
	require.ErrorIs(t, err, errs.ErrLoginInProgress)

	require.NoError(t, c.Logout())
	require.Equal(t, session.Anonymous, c.State())
	close(auth.release)

	require.ErrorIs(t, <-result, errs.ErrSessionSuperseded)
	require.Equal(t, session.Anonymous, c.State())
	require.Nil(t, store.Get())
	// No credential was ever held, so no session ended.
	require.Empty(t, ended.Reasons())
}

func TestController_Restore(t *testing.T) {
	t.Run("empty storage", func(t *testing.T) {
		h := newHarness(t, nil)
		cred, err := h.controller.Restore()
		require.NoError(t, err)
		require.Nil(t, cred)
		require.Equal(t, session.Anonymous, h.controller.State())
	})

	t.Run("persisted credential", func(t *testing.T) {
		pair := backendfake.NewFakeBackend().Issue()
		saved := credential.New(pair.AccessToken, pair.RefreshToken)
		h := newHarness(t, credentialrepofake.NewFakeCredentialRepoWith(saved))

		cred, err := h.controller.Restore()
		require.NoError(t, err)
		require.Equal(t, saved.AccessToken, cred.AccessToken)
		require.Equal(t, session.Authenticated, h.controller.State())

		_, err = h.controller.Restore()
		require.ErrorIs(t, err, errs.ErrAlreadyLoggedIn)
	})
}

func TestController_PersistenceFailureKeepsSession(t *testing.T) {
	repo := credentialrepofake.NewFakeCredentialRepo()
	repo.SaveErr = errs.New("disk full")
	h := newHarness(t, repo)

	cred := h.login(t)
	require.Equal(t, session.Authenticated, h.controller.State())
	require.Same(t, cred, h.controller.CurrentCredential())
}

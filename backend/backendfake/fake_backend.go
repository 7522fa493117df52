package backendfake

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/storyforge/backend"
	errs "github.com/jrsteele09/storyforge/internal/errors"
)

var _ backend.Authenticator = (*FakeBackend)(nil)

const signingSecret = "backendfake-secret"

// ErrNotHandled tells Call that a CallHook declined the request.
var ErrNotHandled = errors.New("backendfake: not handled")

// FakeBackend is an in-memory story API. Access tokens are real HS256 JWTs so
// expiry decoding works against them; refresh tokens rotate on every use.
type FakeBackend struct {
	lock sync.Mutex

	accessTTL     time.Duration
	nowFunc       func() time.Time
	users         map[string]string
	refreshTokens map[string]bool
	validAccess   map[string]bool
	responses     map[string][]byte

	refreshCalls int
	loginCalls   int
	calls        []Recorded

	// RefreshHook runs at the start of every Refresh, outside the lock. It may
	// block (to hold a renewal open) or return an error to fail it.
	RefreshHook func(ctx context.Context) error

	// CallHook, when set, can override Call for a request. Returning
	// ErrNotHandled falls through to the normal behaviour.
	CallHook func(req backend.Request, accessToken string) (*backend.Response, error)
}

// Recorded is one Call the fake received.
type Recorded struct {
	Request     backend.Request
	AccessToken string
	Status      int
}

type Option func(*FakeBackend)

func WithAccessTTL(ttl time.Duration) Option {
	return func(f *FakeBackend) {
		f.accessTTL = ttl
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(f *FakeBackend) {
		f.nowFunc = now
	}
}

func NewFakeBackend(options ...Option) *FakeBackend {
	f := &FakeBackend{
		accessTTL:     15 * time.Minute,
		users:         make(map[string]string),
		refreshTokens: make(map[string]bool),
		validAccess:   make(map[string]bool),
		responses:     make(map[string][]byte),
	}
	for _, opt := range options {
		opt(f)
	}
	if f.nowFunc == nil {
		f.nowFunc = time.Now
	}
	return f
}

func (f *FakeBackend) AddUser(email, password string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.users[email] = password
}

// SetResponse sets the body returned for successful calls to path.
func (f *FakeBackend) SetResponse(path string, body []byte) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.responses[path] = body
}

// Issue mints a valid pair without a login call.
func (f *FakeBackend) Issue() *backend.TokenPair {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.issueLocked(f.accessTTL)
}

// IssueExpiringIn mints a pair whose access token expires after ttl (which
// may be negative for an already-expired token). The access token is still
// accepted by Call until it expires.
func (f *FakeBackend) IssueExpiringIn(ttl time.Duration) *backend.TokenPair {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.issueLocked(ttl)
}

// RevokeAccess makes Call reject every access token issued so far.
func (f *FakeBackend) RevokeAccess() {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.validAccess = make(map[string]bool)
}

// RevokeRefresh makes every outstanding refresh token invalid.
func (f *FakeBackend) RevokeRefresh() {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.refreshTokens = make(map[string]bool)
}

func (f *FakeBackend) RefreshCalls() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.refreshCalls
}

func (f *FakeBackend) LoginCalls() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.loginCalls
}

func (f *FakeBackend) Calls() []Recorded {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]Recorded(nil), f.calls...)
}

func (f *FakeBackend) Login(ctx context.Context, req backend.LoginRequest) (*backend.TokenPair, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.loginCalls++

	if pw, ok := f.users[req.Email]; !ok || pw != req.Password {
		return nil, &errs.HTTPError{StatusCode: http.StatusUnauthorized, Kind: errs.ErrAuthFailure, Body: []byte(`{"message":"invalid credentials"}`)}
	}
	return f.issueLocked(f.accessTTL), nil
}

func (f *FakeBackend) Refresh(ctx context.Context, refreshToken string) (*backend.TokenPair, error) {
	f.lock.Lock()
	f.refreshCalls++
	hook := f.RefreshHook
	f.lock.Unlock()

	if hook != nil {
		if err := hook(ctx); err != nil {
			return nil, err
		}
	}

	f.lock.Lock()
	defer f.lock.Unlock()
	if !f.refreshTokens[refreshToken] {
		return nil, &errs.HTTPError{StatusCode: http.StatusUnauthorized, Kind: errs.ErrAuthFailure, Body: []byte(`{"message":"invalid refresh token"}`)}
	}
	delete(f.refreshTokens, refreshToken)
	return f.issueLocked(f.accessTTL), nil
}

// Call accepts a request when accessToken was issued by this fake, has not
// been revoked and has not expired.
func (f *FakeBackend) Call(ctx context.Context, req backend.Request, accessToken string) (*backend.Response, error) {
	f.lock.Lock()
	hook := f.CallHook
	f.lock.Unlock()
	if hook != nil {
		resp, err := hook(req, accessToken)
		if !errors.Is(err, ErrNotHandled) {
			f.record(req, accessToken, statusOf(resp, err))
			return resp, err
		}
	}

	f.lock.Lock()
	defer f.lock.Unlock()

	if !f.validAccess[accessToken] || f.expiredLocked(accessToken) {
		f.calls = append(f.calls, Recorded{Request: req, AccessToken: accessToken, Status: http.StatusUnauthorized})
		return nil, &errs.HTTPError{StatusCode: http.StatusUnauthorized, Kind: errs.ErrAuthFailure}
	}

	body, ok := f.responses[req.Path]
	if !ok {
		body = []byte(`{"ok":true}`)
	}
	f.calls = append(f.calls, Recorded{Request: req, AccessToken: accessToken, Status: http.StatusOK})
	return &backend.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: body}, nil
}

func (f *FakeBackend) record(req backend.Request, accessToken string, status int) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.calls = append(f.calls, Recorded{Request: req, AccessToken: accessToken, Status: status})
}

func (f *FakeBackend) issueLocked(ttl time.Duration) *backend.TokenPair {
	now := f.nowFunc()
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "fake-user",
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
		"jti": uuid.NewString(),
	}).SignedString([]byte(signingSecret))
	if err != nil {
		panic("backendfake: sign access token: " + err.Error())
	}
	refresh := uuid.NewString()

	f.validAccess[access] = true
	f.refreshTokens[refresh] = true
	return &backend.TokenPair{AccessToken: access, RefreshToken: refresh}
}

func (f *FakeBackend) expiredLocked(accessToken string) bool {
	token, _, err := jwt.NewParser().ParseUnverified(accessToken, jwt.MapClaims{})
	if err != nil {
		return true
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return !f.nowFunc().Before(exp.Time)
}

func statusOf(resp *backend.Response, err error) int {
	var httpErr *errs.HTTPError
	if errs.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	if resp != nil {
		return resp.StatusCode
	}
	return 0
}

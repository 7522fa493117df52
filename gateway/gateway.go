package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jrsteele09/storyforge/backend"
	"github.com/jrsteele09/storyforge/credential"
	errs "github.com/jrsteele09/storyforge/internal/errors"
	"github.com/rs/zerolog/log"
)

// Call is one domain API request. Its body is held in memory so it can be
// sent a second time after a renewal.
type Call = backend.Request

type Response = backend.Response

// Caller sends a call with an access token. An invalid or expired token is
// reported as an error matching errs.ErrAuthFailure.
type Caller interface {
	Call(ctx context.Context, req backend.Request, accessToken string) (*backend.Response, error)
}

// Session supplies credentials and coalesced renewal. *session.Controller
// satisfies it.
type Session interface {
	CurrentCredential() *credential.Credential
	RenewStale(ctx context.Context, failedAccessToken string) (*credential.Credential, error)
}

// Gateway attaches the session credential to every call and absorbs a
// single auth failure per call by renewing and retrying once.
type Gateway struct {
	caller  Caller
	session Session
}

func New(caller Caller, session Session) *Gateway {
	return &Gateway{caller: caller, session: session}
}

// Do runs call. Callers never see errs.ErrAuthFailure: it becomes a retried
// success, errs.ErrSessionExpired when renewal fails, or errs.ErrAuthRejected
// when the renewed credential is rejected too. Every other error is returned
// unchanged.
func (g *Gateway) Do(ctx context.Context, call Call) (*Response, error) {
	resp, retry, err := firstAttempt{gateway: g, call: call}.run(ctx)
	if retry == nil {
		return resp, err
	}
	return retry.run(ctx)
}

// firstAttempt may hand over to a retryAttempt. retryAttempt has no renewal
// path, so a call is sent at most twice.
type firstAttempt struct {
	gateway *Gateway
	call    Call
}

type retryAttempt struct {
	gateway *Gateway
	call    Call
	cred    *credential.Credential
}

func (a firstAttempt) run(ctx context.Context) (*Response, *retryAttempt, error) {
	cred := a.gateway.session.CurrentCredential()
	if cred == nil {
		return nil, nil, fmt.Errorf("%w: %s %s", errs.ErrNoSession, a.call.Method, a.call.Path)
	}

	resp, err := a.gateway.caller.Call(ctx, a.call, cred.AccessToken)
	if err == nil || !errs.Is(err, errs.ErrAuthFailure) {
		return resp, nil, err
	}

	log.Debug().Str("method", a.call.Method).Str("path", a.call.Path).Msg("access token rejected, renewing")
	renewed, rerr := a.gateway.session.RenewStale(ctx, cred.AccessToken)
	if rerr != nil {
		if ctx.Err() != nil && errs.Is(rerr, ctx.Err()) {
			return nil, nil, rerr
		}
		return nil, nil, fmt.Errorf("%w: %w", errs.ErrSessionExpired, rerr)
	}
	return nil, &retryAttempt{gateway: a.gateway, call: a.call, cred: renewed}, nil
}

func (a *retryAttempt) run(ctx context.Context) (*Response, error) {
	resp, err := a.gateway.caller.Call(ctx, a.call, a.cred.AccessToken)
	if err != nil && errs.Is(err, errs.ErrAuthFailure) {
		log.Warn().Str("method", a.call.Method).Str("path", a.call.Path).Msg("renewed access token rejected")
		return nil, fmt.Errorf("%w: %s %s: %v", errs.ErrAuthRejected, a.call.Method, a.call.Path, err)
	}
	return resp, err
}

func (g *Gateway) GetJSON(ctx context.Context, path string, out any) error {
	return g.sendJSON(ctx, http.MethodGet, path, nil, out)
}

func (g *Gateway) PutJSON(ctx context.Context, path string, in, out any) error {
	return g.sendJSON(ctx, http.MethodPut, path, in, out)
}

func (g *Gateway) PostJSON(ctx context.Context, path string, in, out any) error {
	return g.sendJSON(ctx, http.MethodPost, path, in, out)
}

func (g *Gateway) DeleteJSON(ctx context.Context, path string, out any) error {
	return g.sendJSON(ctx, http.MethodDelete, path, nil, out)
}

func (g *Gateway) sendJSON(ctx context.Context, method, path string, in, out any) error {
	call := Call{Method: method, Path: path}
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("[Gateway %s %s] encode: %w", method, path, err)
		}
		call.Body = body
		call.Header = http.Header{"Content-Type": []string{"application/json"}}
	}

	resp, err := g.Do(ctx, call)
	if err != nil {
		return err
	}
	if out == nil || resp == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("[Gateway %s %s] decode: %w: %w", method, path, errs.ErrServer, err)
	}
	return nil
}

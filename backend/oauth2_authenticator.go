package backend

import (
	"context"
	"fmt"
	"net/http"

	errs "github.com/jrsteele09/storyforge/internal/errors"
	"golang.org/x/oauth2"
)

var _ Authenticator = (*OAuth2Authenticator)(nil)

// OAuth2Authenticator logs in and refreshes against a standard OAuth2 token
// endpoint (password and refresh_token grants) instead of the story API's
// own /auth routes.
type OAuth2Authenticator struct {
	config     *oauth2.Config
	httpClient *http.Client
}

func NewOAuth2Authenticator(tokenURL, clientID, clientSecret string, httpClient *http.Client, scopes ...string) *OAuth2Authenticator {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OAuth2Authenticator{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: httpClient,
	}
}

func (a *OAuth2Authenticator) Login(ctx context.Context, req LoginRequest) (*TokenPair, error) {
	tok, err := a.config.PasswordCredentialsToken(a.withClient(ctx), req.Email, req.Password)
	if err != nil {
		return nil, classifyOAuth2Error("login", err)
	}
	return &TokenPair{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}, nil
}

// Refresh runs the refresh_token grant. A server that does not rotate keeps
// the old refresh token, which oauth2 carries over for us.
func (a *OAuth2Authenticator) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	src := a.config.TokenSource(a.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, classifyOAuth2Error("refresh", err)
	}
	return &TokenPair{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}, nil
}

func (a *OAuth2Authenticator) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
}

func classifyOAuth2Error(op string, err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errs.As(err, &retrieveErr) && retrieveErr.Response != nil {
		status := retrieveErr.Response.StatusCode
		kind := errs.KindForStatus(status)
		if kind == nil {
			kind = errs.ErrServer
		}
		// Token endpoints answer a bad grant with 400 invalid_grant.
		if retrieveErr.ErrorCode == "invalid_grant" {
			kind = errs.ErrAuthFailure
		}
		return fmt.Errorf("[oauth2 %s] %w", op, &errs.HTTPError{StatusCode: status, Body: retrieveErr.Body, Kind: kind})
	}
	return fmt.Errorf("[oauth2 %s] %w: %w", op, errs.ErrNetwork, err)
}

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"

	"github.com/jrsteele09/storyforge/backend"
	"github.com/jrsteele09/storyforge/credential"
	"github.com/jrsteele09/storyforge/credential/filerepo"
	"github.com/jrsteele09/storyforge/credential/vaultrepo"
	"github.com/jrsteele09/storyforge/gateway"
	"github.com/jrsteele09/storyforge/internal/config"
	"github.com/jrsteele09/storyforge/session"
	"github.com/jrsteele09/storyforge/stories"
)

// app is the client pipeline for one storyctl invocation.
type app struct {
	config     config.Config
	out        io.Writer
	controller *session.Controller
	gateway    *gateway.Gateway
	stories    *stories.Client
}

func newApp(c config.Config, out io.Writer) (*app, error) {
	repo, err := newCredentialRepo(c)
	if err != nil {
		return nil, err
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	mirror, err := credential.NewCookieMirror(jar, c.GetAPIURL())
	if err != nil {
		return nil, err
	}
	httpClient := &http.Client{Timeout: c.GetRequestTimeout(), Jar: jar}

	client := backend.NewClient(c.GetAPIURL(),
		backend.WithHTTPClient(httpClient),
		backend.WithRateLimit(c.GetRateLimit(), c.GetRateBurst()),
		backend.WithCircuitBreaker(uint32(max(c.GetBreakerThreshold(), 0)), c.GetBreakerCooldown()),
	)

	var authenticator backend.Authenticator = client
	if c.GetAuthMode() == config.AuthModeOAuth2 {
		if c.GetTokenURL() == "" {
			return nil, fmt.Errorf("STORYFORGE_TOKEN_URL is required in oauth2 mode")
		}
		authenticator = backend.NewOAuth2Authenticator(c.GetTokenURL(), c.GetClientID(), c.GetClientSecret(), httpClient)
	}

	store := credential.NewStore(repo, credential.WithCookieMirror(mirror))
	controller := session.NewController(store, authenticator, session.WithRefreshTimeout(c.GetRefreshTimeout()))
	controller.OnSessionEnded(func(reason session.EndReason) {
		if reason == session.EndReasonRenewalFailed {
			fmt.Fprintln(out, "session expired, please log in again")
		}
	})

	gw := gateway.New(client, controller)
	return &app{
		config:     c,
		out:        out,
		controller: controller,
		gateway:    gw,
		stories:    stories.NewClient(gw),
	}, nil
}

func newCredentialRepo(c config.Config) (credential.Repo, error) {
	if c.GetCredentialStore() == config.CredentialStoreVault {
		repo, err := vaultrepo.New(c.GetVaultAddr(), c.GetVaultToken(), c.GetVaultPath())
		if err != nil {
			return nil, err
		}
		return repo, nil
	}
	repo, err := filerepo.New(c.GetDataFolder(), c.GetCredentialFile())
	if err != nil {
		return nil, err
	}
	return repo, nil
}

// startClock renews the credential in the background until the returned
// stop is called.
func (a *app) startClock(ctx context.Context) (stop func()) {
	clock := session.NewClock(a.controller,
		session.WithInterval(a.config.GetCheckInterval()),
		session.WithThreshold(a.config.GetRenewThreshold()),
	)
	return clock.Start(ctx)
}

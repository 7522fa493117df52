package credential

import (
	"encoding/json"
	"time"

	"github.com/golang-jwt/jwt/v5"
	errs "github.com/jrsteele09/storyforge/internal/errors"
)

// Credential is the access/refresh token pair a session holds.
// A Credential is immutable once built; replace it rather than editing it.
type Credential struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`

	// accessExpiry is the access token's exp claim in unix seconds.
	// 0 means the token could not be decoded and counts as expired.
	accessExpiry int64
}

// New builds a Credential and derives its expiry from the access token.
func New(accessToken, refreshToken string) *Credential {
	exp, _ := DecodeExpiry(accessToken)
	return &Credential{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		accessExpiry: exp,
	}
}

// AccessExpiryUnix returns the access token's exp claim in unix seconds.
func (c *Credential) AccessExpiryUnix() int64 {
	return c.accessExpiry
}

// SecondsUntilExpiry is the remaining access token lifetime at now.
// It is zero or negative for expired or undecodable tokens.
func (c *Credential) SecondsUntilExpiry(now time.Time) int64 {
	return c.accessExpiry - now.Unix()
}

// UnmarshalJSON re-derives the expiry so a persisted credential can never
// disagree with the token it carries.
func (c *Credential) UnmarshalJSON(b []byte) error {
	var raw struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*c = *New(raw.AccessToken, raw.RefreshToken)
	return nil
}

// DecodeExpiry reads the exp claim from a JWT without verifying its signature.
// Verification is the backend's job; the client only needs to know when to renew.
func DecodeExpiry(accessToken string) (int64, error) {
	if accessToken == "" {
		return 0, errs.ErrInvalidToken
	}
	token, _, err := jwt.NewParser().ParseUnverified(accessToken, jwt.MapClaims{})
	if err != nil {
		return 0, errs.Wrapf(errs.ErrInvalidToken, "parse access token: %v", err)
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil {
		return 0, errs.Wrapf(errs.ErrInvalidToken, "read exp claim: %v", err)
	}
	if exp == nil {
		return 0, errs.Wrapf(errs.ErrInvalidToken, "missing exp claim")
	}
	return exp.Unix(), nil
}

package token

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	errs "github.com/jrsteele09/storyforge/internal/errors"
	"github.com/jrsteele09/storyforge/users"
	"github.com/pkg/errors"
)

// Claims is what a verified access token says about its bearer.
type Claims struct {
	UserID    string
	Email     string
	ID        string // jti
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Manager mints and verifies the dev backend's access tokens.
type Manager struct {
	signer            Signer
	issuer            string
	audience          string
	revokedCache      RevokedTokenCache
	accessTokenExpiry time.Duration
	nowFunc           func() time.Time
}

type ManagerOption func(*Manager)

func WithAccessTokenExpiry(expiry time.Duration) ManagerOption {
	return func(m *Manager) {
		m.accessTokenExpiry = expiry
	}
}

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func WithIssuer(issuer string) ManagerOption {
	return func(m *Manager) {
		m.issuer = issuer
	}
}

func WithAudience(audience string) ManagerOption {
	return func(m *Manager) {
		m.audience = audience
	}
}

func WithRevokedTokenCache(cache RevokedTokenCache) ManagerOption {
	return func(m *Manager) {
		m.revokedCache = cache
	}
}

func New(signer Signer, options ...ManagerOption) *Manager {
	m := &Manager{
		signer: signer,
	}
	for _, opt := range options {
		opt(m)
	}

	if m.revokedCache == nil {
		m.revokedCache = NewInMemoryRevokedTokenCache()
	}
	if m.accessTokenExpiry == 0 {
		m.accessTokenExpiry = 15 * time.Minute
	}
	if m.nowFunc == nil {
		m.nowFunc = time.Now
	}
	return m
}

// AccessTokenExpiry is the lifetime of tokens minted by CreateAccessToken.
func (m *Manager) AccessTokenExpiry() time.Duration {
	return m.accessTokenExpiry
}

func (m *Manager) CreateAccessToken(user *users.User) (string, error) {
	now := m.nowFunc()
	claims := jwt.MapClaims{
		"sub":   user.ID,                             // The subject: the user's unique ID
		"email": user.Email,                          // Convenience for logs and the UI
		"iat":   now.Unix(),                          // Issued At
		"exp":   now.Add(m.accessTokenExpiry).Unix(), // Expiry: what clients schedule renewal from
		"jti":   uuid.New().String(),                 // Unique token ID for revocation
	}
	if m.issuer != "" {
		claims["iss"] = m.issuer
	}
	if m.audience != "" {
		claims["aud"] = m.audience
	}

	signed, err := m.signer.Sign(claims)
	if err != nil {
		return "", errors.Wrap(err, "Manager.CreateAccessToken Sign")
	}
	return signed, nil
}

// Verify checks signature, expiry, issuer and revocation. An expired token
// fails with errs.ErrTokenExpired, anything else with errs.ErrInvalidToken.
func (m *Manager) Verify(rawToken string) (*Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, errs.ErrInvalidToken
	}

	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.signer.GetSigningMethod().Alg()}),
		jwt.WithTimeFunc(m.nowFunc),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(m.issuer))
	}
	if m.audience != "" {
		parserOptions = append(parserOptions, jwt.WithAudience(m.audience))
	}

	token, err := jwt.Parse(rawToken, m.signer.GetVerificationKey, parserOptions...)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, errs.ErrTokenExpired
	}
	if err != nil || !token.Valid {
		return nil, errs.Wrapf(errs.ErrInvalidToken, "Manager.Verify: %v", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errs.Wrapf(errs.ErrInvalidToken, "Manager.Verify: unexpected claims type")
	}
	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	jti, _ := claims["jti"].(string)
	if sub == "" {
		return nil, errs.Wrapf(errs.ErrInvalidToken, "Manager.Verify: missing sub")
	}
	if jti != "" && m.revokedCache.IsRevoked(jti) {
		return nil, errs.Wrapf(errs.ErrInvalidToken, "Manager.Verify: revoked")
	}

	out := &Claims{UserID: sub, Email: email, ID: jti}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		out.IssuedAt = iat.Time
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}

// RevokeAccessToken makes a still-valid token fail Verify until it expires.
func (m *Manager) RevokeAccessToken(rawToken string) error {
	claims, err := m.Verify(rawToken)
	if err != nil {
		return errors.Wrap(err, "Manager.RevokeAccessToken Verify")
	}
	if claims.ID == "" {
		return errors.New("token missing jti claim")
	}
	return m.revokedCache.Add(claims.ID, claims.ExpiresAt)
}

// CleanupRevokedTokens removes expired tokens from the revocation cache
func (m *Manager) CleanupRevokedTokens() {
	m.revokedCache.Cleanup(m.nowFunc())
}

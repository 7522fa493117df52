// Package auth is the dev backend's account service: registration, password
// login and refresh-token rotation.
package auth

import (
	"time"

	errs "github.com/jrsteele09/storyforge/internal/errors"
	"github.com/jrsteele09/storyforge/token"
	"github.com/jrsteele09/storyforge/token/refresh"
	"github.com/jrsteele09/storyforge/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// TokenResponse is the body of a successful login or refresh.
type TokenResponse struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	ExpiresIn    int         `json:"expiresIn"`
	User         *users.User `json:"user,omitempty"`
}

// AccountService issues and rotates the credentials the story API accepts.
type AccountService struct {
	users     users.UserRepo   // Repository for user data
	tokens    *token.Manager   // Access token minting and verification
	refresh   *refresh.Manager // Rotating refresh tokens
	validator *Validator
	nowTime   func() time.Time // nowTime function (injectable for testing)
}

// AccountServiceOption defines a function type to modify the AccountService instance.
type AccountServiceOption func(*AccountService)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) AccountServiceOption {
	return func(as *AccountService) {
		as.nowTime = nowFunc
	}
}

// NewAccountService initializes a new AccountService with required dependencies.
func NewAccountService(
	userRepo users.UserRepo,
	tokens *token.Manager,
	refreshTokens *refresh.Manager,
	options ...AccountServiceOption,
) (*AccountService, error) {
	if userRepo == nil {
		return nil, errors.New("[NewAccountService] Users repo is required")
	}
	if tokens == nil {
		return nil, errors.New("[NewAccountService] token manager is required")
	}
	if refreshTokens == nil {
		return nil, errors.New("[NewAccountService] refresh token manager is required")
	}

	as := &AccountService{
		users:     userRepo,
		tokens:    tokens,
		refresh:   refreshTokens,
		validator: NewValidator(),
		nowTime:   time.Now,
	}
	for _, opt := range options {
		opt(as)
	}
	return as, nil
}

// Register creates an account. It does not log the account in.
func (as *AccountService) Register(email, password, name string) (*users.User, error) {
	email = users.NormaliseEmail(email)
	if err := as.validator.ValidateRegistration(email, password); err != nil {
		return nil, err
	}
	if _, err := as.users.GetByEmail(email); err == nil {
		return nil, errs.ErrUserExists
	}

	hash, err := users.HashPassword(password)
	if err != nil {
		return nil, errors.Wrap(err, "[AccountService.Register] HashPassword")
	}
	user := &users.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		DateJoined:   as.nowTime(),
	}
	if err := as.users.Upsert(user); err != nil {
		if errs.Is(err, errs.ErrUserExists) {
			return nil, err
		}
		return nil, errors.Wrap(err, "[AccountService.Register] Upsert")
	}
	return user, nil
}

// Login checks email and password and issues a fresh token pair. An unknown
// email and a wrong password are indistinguishable to the caller.
func (as *AccountService) Login(email, password string) (*TokenResponse, error) {
	if err := as.validator.ValidateUserCredentials(email, password); err != nil {
		return nil, errs.ErrInvalidCredentials
	}
	user, err := as.users.GetByEmail(email)
	if err != nil || !user.CheckPassword(password) {
		return nil, errs.ErrInvalidCredentials
	}
	if err := as.validator.ValidateUserState(user); err != nil {
		return nil, err
	}

	if err := as.users.SetLastLogin(user.ID, as.nowTime()); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to record last login")
	}
	resp, err := as.issue(user)
	if err != nil {
		return nil, errors.Wrap(err, "[AccountService.Login] issue")
	}
	resp.User = user
	log.Info().Str("user_id", user.ID).Msg("user logged in")
	return resp, nil
}

// Refresh redeems a refresh token for a new pair. The presented token is
// dead afterwards whatever the outcome.
func (as *AccountService) Refresh(refreshToken string) (*TokenResponse, error) {
	userID, next, err := as.refresh.Rotate(refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := as.users.GetByID(userID)
	if err == nil {
		err = as.validator.ValidateUserState(user)
	}
	if err != nil {
		_ = as.refresh.Delete(next)
		return nil, errs.ErrInvalidRefreshToken
	}

	access, err := as.tokens.CreateAccessToken(user)
	if err != nil {
		return nil, errors.Wrap(err, "[AccountService.Refresh] CreateAccessToken")
	}
	return &TokenResponse{
		AccessToken:  access,
		RefreshToken: next,
		ExpiresIn:    as.expiresIn(),
	}, nil
}

// Verify checks a bearer access token.
func (as *AccountService) Verify(rawToken string) (*token.Claims, error) {
	return as.tokens.Verify(rawToken)
}

// RevokeToken makes a still-valid access token fail Verify.
func (as *AccountService) RevokeToken(rawToken string) error {
	return as.tokens.RevokeAccessToken(rawToken)
}

// CleanupRevokedTokens removes expired tokens from the revocation cache
func (as *AccountService) CleanupRevokedTokens() {
	as.tokens.CleanupRevokedTokens()
}

func (as *AccountService) issue(user *users.User) (*TokenResponse, error) {
	access, err := as.tokens.CreateAccessToken(user)
	if err != nil {
		return nil, err
	}
	refreshToken, err := as.refresh.Create(user.ID)
	if err != nil {
		return nil, err
	}
	return &TokenResponse{
		AccessToken:  access,
		RefreshToken: refreshToken,
		ExpiresIn:    as.expiresIn(),
	}, nil
}

func (as *AccountService) expiresIn() int {
	return int(as.tokens.AccessTokenExpiry().Seconds())
}

package server

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	errs "github.com/jrsteele09/storyforge/internal/errors"
	"github.com/jrsteele09/storyforge/users"
	"github.com/rs/zerolog/log"
)

// InitialiseSystem seeds the dev account named by DEV_USER_EMAIL, if any.
// Without DEV_USER_PASSWORD a password is generated and logged once.
func (s *Server) InitialiseSystem() error {
	email := users.NormaliseEmail(s.config.GetDevUserEmail())
	if email == "" {
		return nil
	}
	if _, err := s.repos.Users.GetByEmail(email); err == nil {
		return nil
	} else if !errs.Is(err, errs.ErrNotFound) {
		return fmt.Errorf("failed to look up dev user: %w", err)
	}

	password := s.config.GetDevUserPassword()
	generated := password == ""
	if generated {
		var err error
		if password, err = generatePassword(); err != nil {
			return err
		}
	}
	if _, err := s.accounts.Register(email, password, "Dev User"); err != nil {
		return fmt.Errorf("failed to seed dev user: %w", err)
	}

	event := log.Info().Str("email", email)
	if generated {
		event = event.Str("password", password)
	}
	event.Msg("dev user created")
	return nil
}

// generatePassword returns a random password that passes
// users.ValidatePasswordStrength.
func generatePassword() (string, error) {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate password: %w", err)
	}
	return "Sf1" + base64.RawURLEncoding.EncodeToString(b), nil
}

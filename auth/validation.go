package auth

import (
	"fmt"
	"strings"

	errs "github.com/jrsteele09/storyforge/internal/errors"
	"github.com/jrsteele09/storyforge/users"
)

// Validator holds the account rules shared by registration and login.
type Validator struct{}

// NewValidator creates a new Validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateUserCredentials validates login credentials
func (v *Validator) ValidateUserCredentials(email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", errs.ErrValidation)
	}

	// Basic email format validation
	if !strings.Contains(email, "@") || !strings.Contains(email, ".") {
		return fmt.Errorf("%w: invalid email format", errs.ErrValidation)
	}

	if password == "" {
		return fmt.Errorf("%w: password is required", errs.ErrValidation)
	}
	return nil
}

// ValidateRegistration applies the login rules plus password strength.
func (v *Validator) ValidateRegistration(email, password string) error {
	if err := v.ValidateUserCredentials(email, password); err != nil {
		return err
	}
	if err := users.ValidatePasswordStrength(password); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrValidation, err)
	}
	return nil
}

// ValidateUserState validates user account state
func (v *Validator) ValidateUserState(user *users.User) error {
	if user == nil {
		return errs.ErrNotFound
	}
	if user.Blocked {
		return errs.ErrUserBlocked
	}
	return nil
}

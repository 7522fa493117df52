package auth_test

import (
	"testing"

	"github.com/jrsteele09/storyforge/auth"
	errs "github.com/jrsteele09/storyforge/internal/errors"
	"github.com/jrsteele09/storyforge/users"
	"github.com/stretchr/testify/require"
)

func TestValidator_ValidateUserCredentials(t *testing.T) {
	v := auth.NewValidator()

	t.Run("valid credentials", func(t *testing.T) {
		err := v.ValidateUserCredentials("user@example.com", "password123")
		require.NoError(t, err)
	})

	t.Run("empty email", func(t *testing.T) {
		err := v.ValidateUserCredentials("", "password123")
		require.ErrorIs(t, err, errs.ErrValidation)
		require.Contains(t, err.Error(), "email is required")
	})

	t.Run("invalid email format", func(t *testing.T) {
		err := v.ValidateUserCredentials("userexample.com", "password123")
		require.ErrorIs(t, err, errs.ErrValidation)
		require.Contains(t, err.Error(), "invalid email format")
	})

	t.Run("empty password", func(t *testing.T) {
		err := v.ValidateUserCredentials("user@example.com", "")
		require.ErrorIs(t, err, errs.ErrValidation)
		require.Contains(t, err.Error(), "password is required")
	})
}

func TestValidator_ValidateRegistration(t *testing.T) {
	v := auth.NewValidator()

	require.NoError(t, v.ValidateRegistration("user@example.com", "Password123"))

	err := v.ValidateRegistration("user@example.com", "password123")
	require.ErrorIs(t, err, errs.ErrValidation)
	require.Contains(t, err.Error(), "uppercase")
}

func TestValidator_ValidateUserState(t *testing.T) {
	v := auth.NewValidator()

	t.Run("valid user", func(t *testing.T) {
		require.NoError(t, v.ValidateUserState(&users.User{ID: "user-1"}))
	})

	t.Run("nil user", func(t *testing.T) {
		require.ErrorIs(t, v.ValidateUserState(nil), errs.ErrNotFound)
	})

	t.Run("blocked user", func(t *testing.T) {
		require.ErrorIs(t, v.ValidateUserState(&users.User{ID: "user-1", Blocked: true}), errs.ErrUserBlocked)
	})
}

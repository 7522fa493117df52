package config_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/storyforge/internal/config"
	"github.com/stretchr/testify/require"
)

func TestSessionDefaults(t *testing.T) {
	c := config.New()
	require.Equal(t, 30*time.Second, c.GetCheckInterval())
	require.Equal(t, 60*time.Second, c.GetRenewThreshold())
	require.Equal(t, 5*time.Second, c.GetRefreshTimeout())
}

func TestDurationOverrides(t *testing.T) {
	t.Setenv("STORYFORGE_CHECK_INTERVAL", "10s")
	t.Setenv("STORYFORGE_REFRESH_TIMEOUT", "not-a-duration")
	t.Setenv("STORYFORGE_RENEW_THRESHOLD", "-5s")

	c := config.New()
	require.Equal(t, 10*time.Second, c.GetCheckInterval())
	require.Equal(t, 5*time.Second, c.GetRefreshTimeout())
	require.Equal(t, 60*time.Second, c.GetRenewThreshold())
}

func TestGetPort(t *testing.T) {
	t.Setenv("PORT", "9090")
	require.Equal(t, ":9090", config.New().GetPort())

	t.Setenv("PORT", ":7070")
	require.Equal(t, ":7070", config.New().GetPort())
}

func TestBackendModes(t *testing.T) {
	c := config.New()
	require.Equal(t, config.AuthModeJSON, c.GetAuthMode())

	t.Setenv("STORYFORGE_AUTH_MODE", "OAuth2")
	require.Equal(t, config.AuthModeOAuth2, c.GetAuthMode())

	t.Setenv("STORYFORGE_AUTH_MODE", "something-else")
	require.Equal(t, config.AuthModeJSON, c.GetAuthMode())

	t.Setenv("STORYFORGE_API_URL", "https://api.example.com/api/")
	require.Equal(t, "https://api.example.com/api", c.GetAPIURL())
}

func TestAllowedOrigins(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	origins := config.New().GetAllowedOrigins()
	require.True(t, origins.IsAllowedOrigin("https://a.example"))
	require.True(t, origins.IsAllowedOrigin("https://b.example"))
	require.False(t, origins.IsAllowedOrigin("https://c.example"))
}

func TestCredentialStoreSelection(t *testing.T) {
	c := config.New()
	require.Equal(t, config.CredentialStoreFile, c.GetCredentialStore())

	t.Setenv("STORYFORGE_CREDENTIAL_STORE", "vault")
	require.Equal(t, config.CredentialStoreVault, c.GetCredentialStore())
}

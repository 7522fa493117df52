package config

import (
	"strings"
	"time"
)

const (
	AuthModeJSON   = "json"
	AuthModeOAuth2 = "oauth2"
)

type BackendConfig interface {
	GetAPIURL() string
	GetAuthMode() string
	GetTokenURL() string
	GetClientID() string
	GetClientSecret() string
	GetRequestTimeout() time.Duration
	GetRateLimit() float64
	GetRateBurst() int
	GetBreakerThreshold() int
	GetBreakerCooldown() time.Duration
}

type Backend struct{}

var _ BackendConfig = Backend{}

// GetAPIURL returns the backend API base, e.g. "https://api.example.com/api".
func (Backend) GetAPIURL() string {
	return strings.TrimSuffix(GetEnv("STORYFORGE_API_URL", "http://localhost:8080/api"), "/")
}

// GetAuthMode selects how login and refresh talk to the backend: "json" for the
// story API's own /auth endpoints, "oauth2" for a standard token endpoint.
func (Backend) GetAuthMode() string {
	mode := strings.ToLower(GetEnv("STORYFORGE_AUTH_MODE", AuthModeJSON))
	if mode != AuthModeOAuth2 {
		return AuthModeJSON
	}
	return mode
}

func (Backend) GetTokenURL() string {
	return GetEnv("STORYFORGE_TOKEN_URL", "")
}

func (Backend) GetClientID() string {
	return GetEnv("STORYFORGE_CLIENT_ID", "storyforge-cli")
}

func (Backend) GetClientSecret() string {
	return GetEnv("STORYFORGE_CLIENT_SECRET", "")
}

func (Backend) GetRequestTimeout() time.Duration {
	return GetEnvDuration("STORYFORGE_REQUEST_TIMEOUT", 15*time.Second)
}

// GetRateLimit is requests per second for outbound calls; 0 disables limiting.
func (Backend) GetRateLimit() float64 {
	return GetEnvFloat("STORYFORGE_RATE_LIMIT", 0)
}

func (Backend) GetRateBurst() int {
	return GetEnvInt("STORYFORGE_RATE_BURST", 10)
}

// GetBreakerThreshold is consecutive network/server failures before the
// breaker opens; 0 disables the breaker.
func (Backend) GetBreakerThreshold() int {
	return GetEnvInt("STORYFORGE_BREAKER_THRESHOLD", 0)
}

func (Backend) GetBreakerCooldown() time.Duration {
	return GetEnvDuration("STORYFORGE_BREAKER_COOLDOWN", 30*time.Second)
}

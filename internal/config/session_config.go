package config

import "time"

// SessionConfig tunes the client-side session pipeline.
type SessionConfig interface {
	GetCheckInterval() time.Duration
	GetRenewThreshold() time.Duration
	GetRefreshTimeout() time.Duration
}

type Session struct{}

var _ SessionConfig = Session{}

// GetCheckInterval is how often the session clock looks at the access token expiry.
func (Session) GetCheckInterval() time.Duration {
	return GetEnvDuration("STORYFORGE_CHECK_INTERVAL", 30*time.Second)
}

// GetRenewThreshold is the remaining lifetime at or below which the clock renews.
func (Session) GetRenewThreshold() time.Duration {
	return GetEnvDuration("STORYFORGE_RENEW_THRESHOLD", 60*time.Second)
}

// GetRefreshTimeout bounds a single backend refresh call.
func (Session) GetRefreshTimeout() time.Duration {
	return GetEnvDuration("STORYFORGE_REFRESH_TIMEOUT", 5*time.Second)
}

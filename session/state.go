package session

// State is where a session is in its lifecycle.
type State int

const (
	// Anonymous holds no credential. Every other state can reach it.
	Anonymous State = iota
	// Authenticating has a login call in flight.
	Authenticating
	// Authenticated holds a credential believed to be usable.
	Authenticated
	// Renewing has exactly one refresh call in flight.
	Renewing
	// Expired is passed through on the way to Anonymous after a failed renewal.
	Expired
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case Renewing:
		return "renewing"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

// holdsCredential reports whether leaving s for Anonymous ends a session.
func (s State) holdsCredential() bool {
	return s == Authenticated || s == Renewing || s == Expired
}

// EndReason says why a session ended.
type EndReason int

const (
	EndReasonLogout EndReason = iota
	EndReasonRenewalFailed
)

func (r EndReason) String() string {
	switch r {
	case EndReasonLogout:
		return "logout"
	case EndReasonRenewalFailed:
		return "renewal_failed"
	default:
		return "unknown"
	}
}

package auth

import (
	"time"

	"seller-center/internal/model"
)

// DefaultLeeway is how close to expiry an access token may get before it is
// renewed.
const DefaultLeeway = 60 * time.Second

type State int

const (
	StateValid State = iota
	StateNeedsRefresh
	StateRefreshInFlight
	StateRefreshed
	StateUnrecoverable
)

func (s State) String() string {
	switch s {
	case StateValid:
		return "valid"
	case StateNeedsRefresh:
		return "needs_refresh"
	case StateRefreshInFlight:
		return "refresh_in_flight"
	case StateRefreshed:
		return "refreshed"
	case StateUnrecoverable:
		return "unrecoverable"
	default:
		return "unknown"
	}
}

// Assess places identity in the refresh state machine. A missing expiry is
// treated as already expired.
func Assess(identity *model.Identity, now time.Time, leeway time.Duration) State {
	if !identity.Valid() {
		return StateUnrecoverable
	}

	remaining, ok := identity.ExpiresIn(now)
	if ok && remaining > leeway {
		return StateValid
	}
	return StateNeedsRefresh
}

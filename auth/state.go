package auth

import (
	"github.com/jrsteele09/budget-tracker-client/users"
)

// State is the externally visible session state.
type State int

const (
	// StateInitializing lasts until the mount-time refresh decision has finished.
	StateInitializing State = iota
	// StateUnauthenticated means the user must log in.
	StateUnauthenticated
	// StateAuthenticated means a valid local token that the server also accepts.
	StateAuthenticated
	// StateLoading means a valid local token whose server status is not known yet.
	StateLoading
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateLoading:
		return "loading"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time view of the session for UI or CLI consumers.
type Snapshot struct {
	State         State
	Authenticated bool
	Loading       bool
	Username      string          // local identity name, falling back to the status username
	User          *users.Identity // locally known identity
	Token         string
	Err           error // last status check error while a valid token is held
}

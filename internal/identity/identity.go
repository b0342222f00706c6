package identity

import "context"

// Identity is the current user as seen by the core. An empty UserID is the
// anonymous user.
type Identity struct {
	UserID           string `json:"user_id" yaml:"user_id"`
	BackendReachable bool   `json:"backend_reachable" yaml:"backend_reachable"`
}

// Anonymous reports whether no user is signed in.
func (i Identity) Anonymous() bool {
	return i.UserID == ""
}

// EventKind names an auth state transition.
type EventKind string

const (
	SessionRestored EventKind = "session_restored"
	SignedIn        EventKind = "signed_in"
	SignedOut       EventKind = "signed_out"
	UserUpdated     EventKind = "user_updated"

	// Initial is the Watcher's first report when no session was restored.
	Initial EventKind = "initial"
)

// Event is one notification from a Feed.
type Event struct {
	Kind      EventKind
	UserID    string
	SessionID string
}

// Session is a persisted sign-in.
type Session struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

// Feed is an auth provider.
//
// Current fails only when the provider cannot be reached; "nobody signed in"
// is a zero Session and a nil error. Subscribe returns an unsubscribe func.
type Feed interface {
	Current(ctx context.Context) (Session, error)
	Subscribe(fn func(Event)) (unsubscribe func())
}

// Change is what Watcher listeners receive.
type Change struct {
	Kind      EventKind
	SessionID string
	Identity  Identity
	Previous  Identity
}

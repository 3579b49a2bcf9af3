package auth

// State is where the session state machine currently sits.
type State int

const (
	StateUnknown         State = iota // initial, probe not finished
	StateAuthenticated                // identity known
	StateUnauthenticated              // no usable identity
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Source records how far an authenticated identity can be trusted.
type Source int

const (
	SourceNone   Source = iota
	SourceServer        // confirmed by the backend during this run
	SourceCache         // restored from the local record without confirmation
)

func (s Source) String() string {
	switch s {
	case SourceServer:
		return "server-confirmed"
	case SourceCache:
		return "locally-cached"
	default:
		return "none"
	}
}

// Identity is the user identity the backend reports and the client caches.
type Identity struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// Session is a snapshot of the session state. Identity is non-nil exactly
// when State is StateAuthenticated.
type Session struct {
	State    State
	Source   Source
	Identity *Identity
}

func authenticated(id Identity, src Source) Session {
	return Session{State: StateAuthenticated, Source: src, Identity: &id}
}

func unauthenticated() Session {
	return Session{State: StateUnauthenticated, Source: SourceNone}
}

// Authenticated reports whether the snapshot carries a usable identity.
func (s Session) Authenticated() bool {
	return s.State == StateAuthenticated && s.Identity != nil
}

// UserID returns the opaque user id, or "" when unauthenticated.
func (s Session) UserID() string {
	if s.Identity == nil {
		return ""
	}
	return s.Identity.UserID
}

// DisplayName returns the name to show for the user, or "" when unauthenticated.
func (s Session) DisplayName() string {
	if s.Identity == nil {
		return ""
	}
	return s.Identity.Username
}

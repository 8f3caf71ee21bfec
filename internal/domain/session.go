package domain

import "fmt"

// SessionStatus is the state of the session state machine.
type SessionStatus int

const (
	SessionLoggedOut SessionStatus = iota
	SessionAuthenticating
	SessionLoggedIn
)

// String returns the status name.
func (s SessionStatus) String() string {
	switch s {
	case SessionLoggedOut:
		return "LOGGED_OUT"
	case SessionAuthenticating:
		return "AUTHENTICATING"
	case SessionLoggedIn:
		return "LOGGED_IN"
	default:
		return fmt.Sprintf("SessionStatus(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s SessionStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// SessionState is a snapshot of the session. Identity is present iff
// Credential is non-empty. Credential is never serialized.
type SessionState struct {
	Status     SessionStatus `json:"status"`
	Identity   *Identity     `json:"user,omitempty"`
	Credential string        `json:"-"`
	Loading    bool          `json:"isLoading"`
	LastError  string        `json:"error,omitempty"`
}

// IsAuthenticated reports whether the session holds an identity and credential.
func (s SessionState) IsAuthenticated() bool {
	return s.Status == SessionLoggedIn && s.Identity != nil && s.Credential != ""
}

// LoginResult reports the outcome of a login to the caller, which uses
// Role for role-based navigation.
type LoginResult struct {
	Success    bool   `json:"success"`
	Role       Role   `json:"rol,omitempty"`
	Message    string `json:"message,omitempty"`
	Superseded bool   `json:"-"`
}

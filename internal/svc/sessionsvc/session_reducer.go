package sessionsvc

import (
	"github.com/mkrupp/storefront/internal/domain"
)

type actionKind int

const (
	actionRestore actionKind = iota
	actionLoginStart
	actionLoginSuccess
	actionLoginFailure
	actionLogout
	actionClearError
)

func (k actionKind) String() string {
	switch k {
	case actionRestore:
		return "restore"
	case actionLoginStart:
		return "login_start"
	case actionLoginSuccess:
		return "login_success"
	case actionLoginFailure:
		return "login_failure"
	case actionLogout:
		return "logout"
	case actionClearError:
		return "clear_error"
	default:
		return "unknown"
	}
}

type action struct {
	kind       actionKind
	identity   domain.Identity // actionRestore, actionLoginSuccess
	credential string          // actionRestore, actionLoginSuccess
	message    string          // actionLoginFailure, actionLogout
}

// reduce computes the next session state. Identity and Credential are
// always set or cleared together.
func reduce(state domain.SessionState, a action) domain.SessionState {
	switch a.kind {
	case actionRestore, actionLoginSuccess:
		identity := a.identity

		return domain.SessionState{
			Status:     domain.SessionLoggedIn,
			Identity:   &identity,
			Credential: a.credential,
		}
	case actionLoginStart:
		return domain.SessionState{
			Status:  domain.SessionAuthenticating,
			Loading: true,
		}
	case actionLoginFailure, actionLogout:
		return domain.SessionState{
			Status:    domain.SessionLoggedOut,
			LastError: a.message,
		}
	case actionClearError:
		state.LastError = ""
	}

	return state
}

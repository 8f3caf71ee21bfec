package sessionsvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mkrupp/storefront/internal/domain"
	"github.com/mkrupp/storefront/internal/infra/events"
	"github.com/mkrupp/storefront/internal/infra/logging"
	"github.com/mkrupp/storefront/internal/repo/kv"
	"github.com/mkrupp/storefront/internal/svc/authsvc/authclient"
)

// TopicSessionChanged is published with the new domain.SessionState after every transition.
const TopicSessionChanged = "session:changed"

// Messages reported to the view layer.
const (
	MsgInvalidCredentials = "Credenciales incorrectas"
	MsgConnectionError    = "Error de conexión"
	MsgEmailTaken         = "El email ya está registrado"
	MsgRegistered         = "Usuario registrado correctamente"
	MsgSessionExpired     = "Tu sesión ha expirado"
)

var errMalformedSession = errors.New("malformed session")

// SessionService owns the authenticated identity and its bearer credential.
// Logins go through the Auth API; the credential and identity are kept in
// the kv repository so a restart resumes the session without the network.
type SessionService struct {
	Config SessionConfig
	Repo   kv.Repository
	Auth   authclient.AuthClient
	Log    logging.Logger

	bus   *events.Bus
	now   func() time.Time
	mu    sync.Mutex
	state domain.SessionState
	seq   uint64 // bumped by every Login, Logout and Invalidate
}

// NewSessionService creates the session store and rehydrates a persisted
// session. Partial or malformed data is removed and the store starts
// logged out. If bus is nil a private bus is created.
func NewSessionService(
	ctx context.Context,
	repo kv.Repository,
	auth authclient.AuthClient,
	cfg SessionConfig,
	bus *events.Bus,
) *SessionService {
	if bus == nil {
		bus = events.NewBus()
	}

	svc := &SessionService{
		Config: cfg,
		Repo:   repo,
		Auth:   auth,
		Log:    logging.GetLogger("svc.sessionsvc.session_service"),
		bus:    bus,
		now:    time.Now,
	}

	svc.restore(ctx)

	return svc
}

func (s *SessionService) restore(ctx context.Context) {
	identity, credential, found, err := s.readPersisted(ctx)
	if err != nil {
		s.Log.WarnContext(ctx, "discarding persisted session", "error", err)

		s.mu.Lock()
		s.removePersistedLocked(ctx)
		s.mu.Unlock()

		return
	}

	if !found {
		s.Log.DebugContext(ctx, "no persisted session")

		return
	}

	s.mu.Lock()
	s.dispatchLocked(action{kind: actionRestore, identity: identity, credential: credential})
	s.mu.Unlock()

	s.Log.InfoContext(ctx, "session restored", logging.Group("user", "email", identity.Email, "role", identity.Role))

	s.bus.Deliver()
}

// readPersisted returns found=false with a nil error only when neither key exists.
func (s *SessionService) readPersisted(ctx context.Context) (domain.Identity, string, bool, error) {
	token, hasToken, err := s.Repo.Get(ctx, s.Config.TokenKey)
	if err != nil {
		return domain.Identity{}, "", false, fmt.Errorf("get %s: %w", s.Config.TokenKey, err)
	}

	userData, hasUser, err := s.Repo.Get(ctx, s.Config.UserKey)
	if err != nil {
		return domain.Identity{}, "", false, fmt.Errorf("get %s: %w", s.Config.UserKey, err)
	}

	if !hasToken && !hasUser {
		return domain.Identity{}, "", false, nil
	}

	if !hasToken || !hasUser {
		return domain.Identity{}, "", false, fmt.Errorf("%w: partial session", errMalformedSession)
	}

	credential := strings.TrimSpace(string(token))
	if credential == "" {
		return domain.Identity{}, "", false, fmt.Errorf("%w: empty credential", errMalformedSession)
	}

	identity, err := decodeIdentity(userData)
	if err != nil {
		return domain.Identity{}, "", false, err
	}

	if credentialExpired(credential, s.now()) {
		return domain.Identity{}, "", false, fmt.Errorf("%w: credential expired", domain.ErrInvalidAuthToken)
	}

	return identity, credential, true, nil
}

func decodeIdentity(data []byte) (domain.Identity, error) {
	var persisted struct {
		DisplayName string       `json:"nombre"`
		Email       string       `json:"email"`
		Role        *domain.Role `json:"rol"`
	}

	if err := json.Unmarshal(data, &persisted); err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %w", errMalformedSession, err)
	}

	if persisted.Role == nil {
		return domain.Identity{}, fmt.Errorf("%w: missing role", errMalformedSession)
	}

	return domain.Identity{
		DisplayName: persisted.DisplayName,
		Email:       persisted.Email,
		Role:        *persisted.Role,
	}, nil
}

// credentialExpired reports whether credential is a JWT whose exp lies
// before now. Opaque credentials never expire on the client.
func credentialExpired(credential string, now time.Time) bool {
	var claims jwt.RegisteredClaims

	if _, _, err := jwt.NewParser().ParseUnverified(credential, &claims); err != nil {
		return false
	}

	return claims.ExpiresAt != nil && !now.Before(claims.ExpiresAt.Time)
}

// dispatchLocked applies a and posts the new snapshot. Callers deliver it
// with s.bus.Deliver once s.mu is released.
func (s *SessionService) dispatchLocked(a action) {
	s.state = reduce(s.state, a)
	s.bus.Post(TopicSessionChanged, s.snapshotLocked())
}

func (s *SessionService) snapshotLocked() domain.SessionState {
	snapshot := s.state

	if s.state.Identity != nil {
		identity := *s.state.Identity
		snapshot.Identity = &identity
	}

	return snapshot
}

func (s *SessionService) persistLocked(ctx context.Context, identity domain.Identity, credential string) error {
	userData, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}

	if err := s.Repo.Set(ctx, s.Config.TokenKey, []byte(credential)); err != nil {
		return fmt.Errorf("set %s: %w", s.Config.TokenKey, err)
	}

	if err := s.Repo.Set(ctx, s.Config.UserKey, userData); err != nil {
		return fmt.Errorf("set %s: %w", s.Config.UserKey, err)
	}

	return nil
}

func (s *SessionService) removePersistedLocked(ctx context.Context) {
	for _, key := range []string{s.Config.TokenKey, s.Config.UserKey} {
		if err := s.Repo.Remove(ctx, key); err != nil {
			s.Log.ErrorContext(ctx, "remove persisted session failed", "key", key, "error", err)
		}
	}
}

// Login exchanges the credentials with the Auth API. It never returns an
// error: failures are reported through the result and LastError. When a
// newer Login, Logout or Invalidate happens while the call is in flight,
// the response is dropped and the result is marked Superseded.
func (s *SessionService) Login(ctx context.Context, email, password string) (result domain.LoginResult) {
	log := s.Log.With(logging.Group("login", "email", email))

	defer func() {
		switch {
		case result.Superseded:
			log.InfoContext(ctx, "login superseded")
		case !result.Success:
			log.WarnContext(ctx, "login failed", "message", result.Message)
		default:
			log.InfoContext(ctx, "login successful", "role", result.Role)
		}
	}()

	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.dispatchLocked(action{kind: actionLoginStart})
	s.mu.Unlock()

	s.bus.Deliver()

	resp, err := s.Auth.Login(ctx, email, password)

	s.mu.Lock()

	if seq != s.seq {
		s.mu.Unlock()

		return domain.LoginResult{Superseded: true}
	}

	if err != nil {
		msg := MsgConnectionError
		if errors.Is(err, domain.ErrInvalidCredentials) {
			msg = MsgInvalidCredentials
		}

		log.DebugContext(ctx, "auth api error", "error", err)

		s.removePersistedLocked(ctx)
		s.dispatchLocked(action{kind: actionLoginFailure, message: msg})
		s.mu.Unlock()

		s.bus.Deliver()

		return domain.LoginResult{Success: false, Message: msg}
	}

	identity := resp.Identity()

	if err := s.persistLocked(ctx, identity, resp.Token); err != nil {
		log.ErrorContext(ctx, "persist session failed", "error", err)
	}

	s.dispatchLocked(action{kind: actionLoginSuccess, identity: identity, credential: resp.Token})
	s.mu.Unlock()

	s.bus.Deliver()

	return domain.LoginResult{Success: true, Role: identity.Role}
}

// Logout clears the identity, the credential and the persisted keys.
// It is local only and always succeeds.
func (s *SessionService) Logout(ctx context.Context) {
	s.mu.Lock()
	s.endSessionLocked(ctx, "")
	s.mu.Unlock()

	s.bus.Deliver()

	s.Log.InfoContext(ctx, "logged out")
}

// Invalidate ends the current session, reporting reason through LastError
// (MsgSessionExpired when empty). It is a no-op when nobody is logged in.
func (s *SessionService) Invalidate(ctx context.Context, reason string) {
	s.invalidate(ctx, "", reason)
}

// InvalidateCredential ends the session only while it still holds
// credential, so a late rejection of an earlier credential leaves a newer
// session alone. An empty credential is ignored.
func (s *SessionService) InvalidateCredential(ctx context.Context, credential, reason string) {
	if strings.TrimSpace(credential) == "" {
		return
	}

	s.invalidate(ctx, credential, reason)
}

func (s *SessionService) invalidate(ctx context.Context, credential, reason string) {
	if reason == "" {
		reason = MsgSessionExpired
	}

	s.mu.Lock()

	if s.state.Status != domain.SessionLoggedIn {
		s.mu.Unlock()

		return
	}

	if credential != "" && strings.TrimSpace(credential) != strings.TrimSpace(s.state.Credential) {
		s.mu.Unlock()
		s.Log.DebugContext(ctx, "ignoring rejection of a replaced credential")

		return
	}

	s.endSessionLocked(ctx, reason)
	s.mu.Unlock()

	s.bus.Deliver()

	s.Log.WarnContext(ctx, "session invalidated", "reason", reason)
}

func (s *SessionService) endSessionLocked(ctx context.Context, message string) {
	s.seq++
	s.removePersistedLocked(ctx)
	s.dispatchLocked(action{kind: actionLogout, message: message})
}

// ClearError resets LastError.
func (s *SessionService) ClearError() {
	s.mu.Lock()
	s.dispatchLocked(action{kind: actionClearError})
	s.mu.Unlock()

	s.bus.Deliver()
}

// Register creates an account through the Auth API. It does not log the
// new user in.
func (s *SessionService) Register(
	ctx context.Context,
	name, email, password string,
) (user domain.RegisteredUser, result domain.OperationResult) {
	log := s.Log.With(logging.Group("register", "email", email))

	user, err := s.Auth.Register(ctx, domain.RegisterRequest{
		Name:     name,
		Email:    email,
		Password: password,
	})
	if err != nil {
		log.WarnContext(ctx, "register failed", "error", err)

		if errors.Is(err, domain.ErrUserAlreadyExists) {
			return domain.RegisteredUser{}, domain.OperationResult{Success: false, Message: MsgEmailTaken}
		}

		return domain.RegisteredUser{}, domain.OperationResult{Success: false, Message: MsgConnectionError}
	}

	log.InfoContext(ctx, "user registered", "id", user.ID)

	return user, domain.OperationResult{Success: true, Message: MsgRegistered}
}

// State returns a snapshot of the session.
func (s *SessionService) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshotLocked()
}

// Identity returns the logged-in identity.
func (s *SessionService) Identity() (domain.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Status != domain.SessionLoggedIn || s.state.Identity == nil {
		return domain.Identity{}, false
	}

	return *s.state.Identity, true
}

// IsAuthenticated reports whether a user is logged in.
func (s *SessionService) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state.IsAuthenticated()
}

// HasRole reports whether the logged-in user has exactly role.
func (s *SessionService) HasRole(role domain.Role) bool {
	identity, ok := s.Identity()

	return ok && identity.Role == role
}

// Subscribe registers fn to receive every new state, in order. fn may
// mutate the session or any other store on the same bus; those changes are
// delivered after fn returns. fn must not call Subscribe or Unsubscribe.
func (s *SessionService) Subscribe(fn func(domain.SessionState)) error {
	if err := s.bus.Subscribe(TopicSessionChanged, fn); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	return nil
}

// Unsubscribe removes a function previously passed to Subscribe. Functions
// are matched by code pointer, so closures created by the same function
// literal cannot be told apart.
func (s *SessionService) Unsubscribe(fn func(domain.SessionState)) error {
	if err := s.bus.Unsubscribe(TopicSessionChanged, fn); err != nil {
		return fmt.Errorf("unsubscribe: %w", err)
	}

	return nil
}

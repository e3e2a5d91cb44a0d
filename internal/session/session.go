// Package session owns the client's authenticated identity: the bearer
// token and user record, persisted across restarts in a storage.Storage.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/me/coursebook/internal/logging"
	"github.com/me/coursebook/internal/storage"
	"github.com/me/coursebook/pkg/model"
)

// ErrMissingCredentials is returned by Login when email or password is empty.
var ErrMissingCredentials = errors.New("email and password are required")

// MinPasswordLength is the shortest password Register accepts.
const MinPasswordLength = 6

// TokenReadTimeout bounds the storage read behind Token.
const TokenReadTimeout = 2 * time.Second

// Authenticator calls the remote authentication endpoints.
type Authenticator interface {
	Login(ctx context.Context, creds model.Credentials) (*model.AuthResult, error)
	Register(ctx context.Context, reg model.Registration) (*model.AuthResult, error)
}

// RegisterInput is the registration form.
type RegisterInput struct {
	FirstName       string
	LastName        string
	Email           string
	Password        string
	ConfirmPassword string
}

// Store is the single source of truth for who is logged in. Token and user
// are either both set or both empty.
type Store struct {
	storage storage.Storage
	auth    Authenticator
	logger  *slog.Logger

	mu    sync.RWMutex
	token string
	user  *model.User
}

// NewStore creates an empty (anonymous) store. Call Restore to load
// persisted state. auth may be nil when the store is only used for reading.
func NewStore(st storage.Storage, auth Authenticator, logger *slog.Logger) *Store {
	return &Store{
		storage: st,
		auth:    auth,
		logger:  logging.OrDiscard(logger).With("component", "session"),
	}
}

// SetAuthenticator wires the authenticator after construction. The API
// client needs the store as its token source, so the two are built in
// sequence.
func (s *Store) SetAuthenticator(auth Authenticator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth = auth
}

func (s *Store) authenticator() (Authenticator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.auth == nil {
		return nil, errors.New("session: no authenticator configured")
	}
	return s.auth, nil
}

// Restore loads the persisted token and user record. Missing, unreadable,
// invalid or expired state is cleared and the store stays anonymous; this
// never fails.
func (s *Store) Restore(ctx context.Context) {
	token, user, reason := s.readPersisted(ctx)
	if reason != "" {
		if reason != "empty" {
			s.logger.Info("discarding persisted session", "reason", reason)
		}
		s.clearPersisted(ctx)
		s.setState("", nil)
		return
	}

	s.setState(token, user)
	s.logger.Debug("session restored", "user_id", user.ID, "role", user.Role)
}

// readPersisted returns the stored session, or a non-empty reason why it
// cannot be used.
func (s *Store) readPersisted(ctx context.Context) (string, *model.User, string) {
	token, hasToken, err := s.storage.Get(ctx, storage.KeyToken)
	if err != nil {
		return "", nil, "read token: " + err.Error()
	}
	raw, hasUser, err := s.storage.Get(ctx, storage.KeyUser)
	if err != nil {
		return "", nil, "read user: " + err.Error()
	}
	if !hasToken && !hasUser {
		return "", nil, "empty"
	}
	if !hasToken || token == "" {
		return "", nil, "user without token"
	}
	if !hasUser {
		return "", nil, "token without user"
	}

	user, err := decodeUser(raw)
	if err != nil {
		return "", nil, err.Error()
	}
	if tokenExpired(token) {
		return "", nil, "token expired"
	}
	return token, user, ""
}

func decodeUser(raw string) (*model.User, error) {
	var u model.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, fmt.Errorf("parse user: %w", err)
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return &u, nil
}

// Login authenticates against the API and persists the session. On
// failure the session is unchanged and the error is returned as is.
func (s *Store) Login(ctx context.Context, email, password string) (model.Destination, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "", ErrMissingCredentials
	}
	auth, err := s.authenticator()
	if err != nil {
		return "", err
	}

	res, err := auth.Login(ctx, model.Credentials{Email: email, Password: password})
	if err != nil {
		s.logger.Info("login failed", "email", email, "error", err)
		return "", err
	}
	if err := s.establish(ctx, res); err != nil {
		return "", err
	}

	s.logger.Info("login successful", "user_id", res.User.ID, "admin", res.User.IsAdmin())
	return model.HomeFor(&res.User), nil
}

// Register validates the form locally, creates the account and logs the
// new user in.
func (s *Store) Register(ctx context.Context, in RegisterInput) (model.Destination, error) {
	if err := in.Validate(); err != nil {
		return "", err
	}
	auth, err := s.authenticator()
	if err != nil {
		return "", err
	}

	res, err := auth.Register(ctx, model.Registration{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Email:     strings.TrimSpace(in.Email),
		Password:  in.Password,
	})
	if err != nil {
		s.logger.Info("registration failed", "email", in.Email, "error", err)
		return "", err
	}
	if err := s.establish(ctx, res); err != nil {
		return "", err
	}

	s.logger.Info("registration successful", "user_id", res.User.ID)
	return model.DestDashboard, nil
}

// Validate checks the registration form.
func (in RegisterInput) Validate() error {
	var details []model.FieldError
	for _, f := range []struct{ name, value string }{
		{"firstName", in.FirstName},
		{"lastName", in.LastName},
		{"email", in.Email},
	} {
		if strings.TrimSpace(f.value) == "" {
			details = append(details, model.FieldError{Field: f.name, Message: "required"})
		}
	}
	switch {
	case len(in.Password) < MinPasswordLength:
		details = append(details, model.FieldError{
			Field:   "password",
			Message: fmt.Sprintf("must be at least %d characters", MinPasswordLength),
		})
	case in.Password != in.ConfirmPassword:
		details = append(details, model.FieldError{Field: "confirmPassword", Message: "does not match password"})
	}
	if len(details) > 0 {
		return model.NewValidationError("invalid registration", details...)
	}
	return nil
}

// establish persists an auth result and makes it the current session.
func (s *Store) establish(ctx context.Context, res *model.AuthResult) error {
	if res.Token == "" {
		return errors.New("session: auth response carried no token")
	}
	if err := res.User.Validate(); err != nil {
		return fmt.Errorf("session: auth response: %w", err)
	}
	raw, err := json.Marshal(res.User)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}

	if err := s.storage.Set(ctx, storage.KeyToken, res.Token); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	if err := s.storage.Set(ctx, storage.KeyUser, string(raw)); err != nil {
		s.clearPersisted(ctx)
		return fmt.Errorf("persist user: %w", err)
	}

	user := res.User
	s.setState(res.Token, &user)
	return nil
}

// Logout clears the session locally. It is idempotent and always succeeds.
func (s *Store) Logout(ctx context.Context) model.Destination {
	wasAuthenticated := s.IsAuthenticated()
	s.clearPersisted(ctx)
	s.setState("", nil)
	if wasAuthenticated {
		s.logger.Info("logout successful")
	}
	return model.DestLanding
}

func (s *Store) clearPersisted(ctx context.Context) {
	for _, key := range []string{storage.KeyToken, storage.KeyUser} {
		if err := s.storage.Delete(ctx, key); err != nil {
			s.logger.Warn("clear persisted session", "key", key, "error", err)
		}
	}
}

func (s *Store) setState(token string, user *model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token == "" || user == nil {
		s.token, s.user = "", nil
		return
	}
	s.token, s.user = token, user
}

// Token returns the persisted bearer token, read on every call so that a
// login in another process is picked up. The read is bounded by ctx and
// TokenReadTimeout; if storage cannot be read in time it falls back to the
// in-memory token.
func (s *Store) Token(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, TokenReadTimeout)
	defer cancel()

	tok, found, err := s.storage.Get(ctx, storage.KeyToken)
	if err == nil {
		if found {
			return tok
		}
		return ""
	}
	s.logger.Debug("token read failed, using cached token", "error", err)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// IsAuthenticated reports whether a user is logged in.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

// IsAdmin reports whether the logged-in user has the admin role.
func (s *Store) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.IsAdmin()
}

// CurrentUser returns a copy of the logged-in user, or nil.
func (s *Store) CurrentUser() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// State returns StateAuthenticated or StateAnonymous.
func (s *Store) State() model.SessionState {
	if s.IsAuthenticated() {
		return model.StateAuthenticated
	}
	return model.StateAnonymous
}

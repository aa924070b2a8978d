// Package session owns the identity of the running client.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/existflow/taskcore/internal/broadcast"
	"github.com/existflow/taskcore/internal/logger"
	"github.com/existflow/taskcore/internal/model"
)

// Store holds the single active session. Change handlers receive the new
// session, or nil after logout.
type Store struct {
	auth    Authenticator
	persist Persister
	log     *logger.Logger

	mu      sync.RWMutex
	current *model.Session

	changes broadcast.Hub[*model.Session]
}

// NewStore creates a store and restores any persisted session
func NewStore(auth Authenticator, persist Persister, log *logger.Logger) *Store {
	if persist == nil {
		persist = &MemoryPersister{}
	}
	s := &Store{auth: auth, persist: persist, log: log.Named("session")}

	restored, err := persist.Load()
	if err != nil {
		s.log.Warn("discarding unreadable session", logger.F("error", err))
		_ = persist.Clear()
	}
	if restored.Valid() {
		s.current = restored
		s.log.Info("session restored", logger.F("user_id", restored.UserID))
	}
	return s
}

// Login authenticates and makes the result the active session
func (s *Store) Login(ctx context.Context, username, password string) (*model.Session, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, model.NewValidationError("username", "username is required")
	}
	if password == "" {
		return nil, model.NewValidationError("password", "password is required")
	}

	resp, err := s.auth.Login(ctx, username, password)
	if err != nil {
		s.log.Warn("login failed", logger.F("username", username), logger.F("error", err))
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("%w: %s", model.ErrUnauthorized, resp.Reason())
	}

	sess := resp.Session()
	if sess.Username == "" {
		sess.Username = username
	}
	if !sess.Valid() {
		return nil, fmt.Errorf("%w: incomplete login response", model.ErrUnauthorized)
	}

	if err := s.persist.Save(sess); err != nil {
		s.log.Warn("failed to persist session", logger.F("error", err))
	}

	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()

	s.log.Info("logged in", logger.F("user_id", sess.UserID), logger.F("username", sess.Username))
	s.publish()
	return s.Current(), nil
}

// Register creates an account. It does not log in.
func (s *Store) Register(ctx context.Context, reg model.Registration) (*model.AuthResponse, error) {
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	resp, err := s.auth.Register(ctx, reg)
	if err != nil {
		return resp, err
	}
	if !resp.Success {
		return resp, fmt.Errorf("%w: %s", model.ErrValidation, resp.Reason())
	}
	return resp, nil
}

// Logout clears the session. Logging out twice is a no-op.
func (s *Store) Logout() {
	s.mu.Lock()
	prev := s.current
	s.current = nil
	s.mu.Unlock()

	if err := s.persist.Clear(); err != nil {
		s.log.Warn("failed to clear persisted session", logger.F("error", err))
	}
	if prev == nil {
		return
	}

	s.log.Info("logged out", logger.F("user_id", prev.UserID))
	s.publish()
}

// IsAuthenticated reports whether a session is active
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil
}

// Current returns a copy of the active session, or nil
func (s *Store) Current() *model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	c := *s.current
	return &c
}

// UserID returns the active user id, or 0 when logged out
func (s *Store) UserID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return 0
	}
	return s.current.UserID
}

// Token returns the bearer token, or "" when logged out
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return ""
	}
	return s.current.Token
}

// AuthorizationHeader returns "Bearer <token>", or "" when logged out
func (s *Store) AuthorizationHeader() string {
	if tok := s.Token(); tok != "" {
		return "Bearer " + tok
	}
	return ""
}

// OnChange subscribes to identity changes
func (s *Store) OnChange(fn func(*model.Session)) broadcast.Handle {
	return s.changes.Subscribe(fn)
}

// Unsubscribe removes a change handler
func (s *Store) Unsubscribe(h broadcast.Handle) bool {
	return s.changes.Unsubscribe(h)
}

func (s *Store) publish() {
	s.changes.Publish(s.Current())
}

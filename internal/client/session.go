package client

import (
	"context"
	"sync"

	"github.com/stemsi/tooltrack-backend/internal/model"
)

// Session is the signed-in state of one client. It replaces a process-wide
// user cache: whoever owns the Session owns the identity, and dropping it
// drops the identity.
type Session struct {
	store UserStore

	mu    sync.RWMutex
	token string
	user  *model.User
	ready chan struct{}
}

// NewSession creates an empty session backed by store.
func NewSession(store UserStore) *Session {
	return &Session{store: store, ready: make(chan struct{})}
}

// Establish persists token and user and only then marks the session ready.
func (s *Session) Establish(ctx context.Context, token string, user model.User) error {
	if s.store != nil {
		if err := s.store.Save(ctx, StoredSession{Token: token, User: user}); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.user = &user
	select {
	case <-s.ready:
	default:
		close(s.ready)
	}
	return nil
}

// Restore loads a previously persisted session. It reports whether one was found.
func (s *Session) Restore(ctx context.Context) (bool, error) {
	if s.store == nil {
		return false, nil
	}
	stored, err := s.store.Load(ctx)
	if err != nil || stored == nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = stored.Token
	user := stored.User
	s.user = &user
	select {
	case <-s.ready:
	default:
		close(s.ready)
	}
	return true, nil
}

// Ready is closed once credentials are durably stored.
func (s *Session) Ready() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Token returns the bearer token, or "" when signed out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the signed-in user, or nil.
func (s *Session) User() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// End forgets the identity and clears the store. A later Establish starts a
// fresh readiness cycle.
func (s *Session) End(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.ready = make(chan struct{})
	s.mu.Unlock()

	if s.store != nil {
		return s.store.Clear(ctx)
	}
	return nil
}

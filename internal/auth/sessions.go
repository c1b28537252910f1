package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/frahmantamala/clinical-records/internal/rbac"
)

// Session is process-lifetime state: a restart logs everyone out. The
// role is snapshotted at login so authorization stays consistent for the
// session even if an admin edits the account mid-session.
type Session struct {
	ID           string
	UserID       int64
	Username     string
	Role         rbac.Role
	CreatedAt    time.Time
	LastActivity time.Time
}

// SessionStore keeps live sessions in memory, expiring them lazily on
// use. Tokens are single-use in the sense that an invalidated session id
// can never validate again.
type SessionStore struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	idleTimeout time.Duration
	now         func() time.Time
}

func NewSessionStore(idleTimeout time.Duration) *SessionStore {
	return &SessionStore{
		sessions:    make(map[string]*Session),
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

// Create registers a fresh session for the user.
func (s *SessionStore) Create(userID int64, username string, role rbac.Role) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sess := &Session{
		ID:           uuid.NewString(),
		UserID:       userID,
		Username:     username,
		Role:         role,
		CreatedAt:    now,
		LastActivity: now,
	}
	s.sessions[sess.ID] = sess
	return sess
}

// Touch validates a session id and refreshes its activity time. When
// the session sat idle past the timeout it reports expired=true and
// still returns the stale session, so the caller can attribute the
// expiry; the entry itself is removed so it can never resurrect.
func (s *SessionStore) Touch(id string) (sess *Session, expired bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[id]
	if !ok {
		return nil, false
	}

	now := s.now()
	if now.Sub(entry.LastActivity) > s.idleTimeout {
		delete(s.sessions, id)
		stale := *entry
		return &stale, true
	}

	entry.LastActivity = now
	copy := *entry
	return &copy, false
}

// Delete invalidates a session. Returns the removed session, if any.
func (s *SessionStore) Delete(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[id]
	if !ok {
		return nil
	}
	delete(s.sessions, id)
	return entry
}

package web

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/pmobuilder/internal/core"
)

// ErrSessionNotFound is returned for unknown or expired sessions.
var ErrSessionNotFound = errors.New("session not found")

// Session holds the sections one user has built so far. Assembly only ever
// reads the sections stored here.
type Session struct {
	ID       string        `json:"session_id"`
	Sections core.Sections `json:"-"`
	Created  time.Time     `json:"created_at"`
	lastUsed time.Time
}

// SessionInfo summarises a session for clients.
type SessionInfo struct {
	ID      string    `json:"session_id"`
	Created time.Time `json:"created_at"`
	Present []string  `json:"present"`
	Missing []string  `json:"missing"`
}

// SessionStore keeps sessions in memory and expires them after ttl of
// inactivity.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionStore creates an empty store.
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create starts a new, empty session.
func (s *SessionStore) Create() *Session {
	now := s.now()
	sess := &Session{ID: uuid.NewString(), Created: now, lastUsed: now}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

// lookup returns a live session and refreshes its expiry. Callers hold s.mu.
func (s *SessionStore) lookup(id string) (*Session, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	now := s.now()
	if now.Sub(sess.lastUsed) > s.ttl {
		delete(s.sessions, id)
		return nil, ErrSessionNotFound
	}
	sess.lastUsed = now
	return sess, nil
}

// Info describes a session.
func (s *SessionStore) Info(id string) (SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.lookup(id)
	if err != nil {
		return SessionInfo{}, err
	}
	return SessionInfo{
		ID:      sess.ID,
		Created: sess.Created,
		Present: nonNil(sess.Sections.Present()),
		Missing: nonNil(sess.Sections.Missing()),
	}, nil
}

// Sections returns a copy of the session's sections.
func (s *SessionStore) Sections(id string) (core.Sections, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.lookup(id)
	if err != nil {
		return core.Sections{}, err
	}
	return sess.Sections, nil
}

// Update applies fn to the session's sections.
func (s *SessionStore) Update(id string, fn func(*core.Sections)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.lookup(id)
	if err != nil {
		return err
	}
	fn(&sess.Sections)
	return nil
}

// Exists reports whether id names a live session.
func (s *SessionStore) Exists(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.lookup(id)
	return err == nil
}

// Delete ends a session.
func (s *SessionStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

// Len returns the number of sessions, expired ones included until swept.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep removes expired sessions and returns how many it removed.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.lastUsed) > s.ttl {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps expired sessions every interval until ctx is done.
func (s *SessionStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

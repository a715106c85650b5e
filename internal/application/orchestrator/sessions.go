package orchestrator

import (
	"sync"

	"github.com/doeshing/shellgate/internal/domain"
)

// session is one user's mutable state. It is only read or written while the
// caller holds mu, which sessionStore.acquire takes for it.
type session struct {
	mu          sync.Mutex
	pending     *domain.PendingConfirmation
	target      domain.Target
	lastCommand string
	lastError   string
}

func (s *session) state() domain.SessionState {
	if s.pending != nil {
		return domain.StateAwaitingConfirmation
	}
	return domain.StateIdle
}

// sessionStore hands out per-user sessions. Messages from different users
// proceed concurrently; messages from the same user are serialized.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*session)}
}

// acquire returns the user's session with its lock held. The caller must
// call release when done.
func (s *sessionStore) acquire(userID string) *session {
	s.mu.Lock()
	sess, ok := s.sessions[userID]
	if !ok {
		sess = &session{target: domain.LocalTarget()}
		s.sessions[userID] = sess
	}
	s.mu.Unlock()

	sess.mu.Lock()
	return sess
}

// lookup returns the user's existing session with its lock held, or nil
// without creating one.
func (s *sessionStore) lookup(userID string) *session {
	s.mu.Lock()
	sess, ok := s.sessions[userID]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	sess.mu.Lock()
	return sess
}

// size reports how many users have a session.
func (s *sessionStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *sessionStore) release(sess *session) {
	sess.mu.Unlock()
}

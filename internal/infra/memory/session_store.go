package memory

import (
	"sync"

	"event-feedback-service/internal/app"
)

// SessionStore keeps live event sessions in process; it implements app.SessionRepository.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) GetOrCreate(eventID string) *app.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[eventID]; ok {
		return session
	}
	session := app.NewSession(eventID)
	s.sessions[eventID] = session
	return session
}

func (s *SessionStore) Get(eventID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[eventID]
	return session, ok
}

// DeleteIfEmpty forgets the session once it has no connections or pending generation state.
func (s *SessionStore) DeleteIfEmpty(eventID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[eventID]; ok && session.IsEmpty() {
		delete(s.sessions, eventID)
	}
}

// Len is the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

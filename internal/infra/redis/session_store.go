package redis

import (
	"context"
	"sync"
	"time"

	"event-feedback-service/internal/app"
	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis-aware app.SessionRepository. Sessions still live in
// process so broadcast stays local; Redis only carries a liveness marker per
// event, refreshed on every lookup, so other instances can see which events are live.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) GetOrCreate(eventID string) *app.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[eventID]
	if !ok {
		session = app.NewSession(eventID)
		s.sessions[eventID] = session
	}
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(eventID), "1", s.ttl).Err()
	return session
}

func (s *SessionStore) Get(eventID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[eventID]
	return session, ok
}

func (s *SessionStore) DeleteIfEmpty(eventID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[eventID]
	if !ok || !session.IsEmpty() {
		return
	}
	delete(s.sessions, eventID)
	_ = s.client.Del(context.Background(), s.key(eventID)).Err()
}

// Live reports whether any instance holds a session for the event.
func (s *SessionStore) Live(ctx context.Context, eventID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(eventID)).Result()
	return n > 0, err
}

func (s *SessionStore) key(eventID string) string {
	return "feedback:session:" + eventID
}

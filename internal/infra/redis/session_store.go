package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/manhtruong03/real-time-quiz-sub002/internal/app"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - It still keeps a local in-memory map of sessions to reuse the
//     in-process coordinator and broadcast logic.
//   - Redis marks session liveness per PIN (and could be extended to
//     route cross-instance pub/sub).
//   - For true distribution you'd pair this with a pub/sub projector
//     that fans out session events.
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

func (s *SessionStore) Put(session *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.Pin()] = session
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(session.Pin()), session.ID(), s.ttl).Err()
}

func (s *SessionStore) GetByPin(pin string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[pin]
	return session, ok
}

func (s *SessionStore) Delete(pin string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, pin)
	_ = s.client.Del(context.Background(), s.key(pin)).Err()
}

func (s *SessionStore) key(pin string) string {
	return "game:session:" + pin
}

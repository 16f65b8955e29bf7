package memory

import (
	"context"
	"sync"

	"github.com/manhtruong03/real-time-quiz-sub002/internal/domain"
)

// ResultStore keeps finalized session results in memory. It backs the
// no-database dev mode and the service tests.
type ResultStore struct {
	mu      sync.RWMutex
	results map[string]domain.FinalizationPayload
}

func NewResultStore() *ResultStore {
	return &ResultStore{results: make(map[string]domain.FinalizationPayload)}
}

func (s *ResultStore) SaveResult(_ context.Context, payload domain.FinalizationPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[payload.SessionID] = payload
	return nil
}

// Get returns the stored payload for a session, if present.
func (s *ResultStore) Get(sessionID string) (domain.FinalizationPayload, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	payload, ok := s.results[sessionID]
	return payload, ok
}

// Len reports how many sessions have been persisted.
func (s *ResultStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}

package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/manhtruong03/real-time-quiz-sub002/internal/domain"
)

// ResultStore persists finalization payloads as JSON in Redis. It backs
// deployments that run without Postgres; results live under
// game:result:{sessionID} with a retention TTL.
type ResultStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewResultStore(client *redis.Client, ttl time.Duration) *ResultStore {
	return &ResultStore{client: client, ttl: ttl}
}

func (s *ResultStore) SaveResult(ctx context.Context, payload domain.FinalizationPayload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal session result: %w", err)
	}
	if err := s.client.Set(ctx, s.key(payload.SessionID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("store session result: %w", err)
	}
	return nil
}

// Get loads a stored payload, mainly for tests and manual inspection.
func (s *ResultStore) Get(ctx context.Context, sessionID string) (domain.FinalizationPayload, error) {
	raw, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		return domain.FinalizationPayload{}, fmt.Errorf("load session result: %w", err)
	}
	var payload domain.FinalizationPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.FinalizationPayload{}, fmt.Errorf("unmarshal session result: %w", err)
	}
	return payload, nil
}

func (s *ResultStore) key(sessionID string) string {
	return "game:result:" + sessionID
}

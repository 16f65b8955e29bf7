package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/manhtruong03/real-time-quiz-sub002/internal/domain"
)

// ResultWriter persists finalization payloads into the game_results
// table. The upsert keeps manual retries safe: re-submitting the same
// session overwrites rather than duplicates.
type ResultWriter struct {
	pool *pgxpool.Pool
}

func NewResultWriter(pool *pgxpool.Pool) *ResultWriter {
	return &ResultWriter{pool: pool}
}

func (w *ResultWriter) SaveResult(ctx context.Context, payload domain.FinalizationPayload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal session result: %w", err)
	}
	_, err = w.pool.Exec(ctx,
		`INSERT INTO game_results (session_id, quiz_id, data)
		 VALUES ($1, $2, $3::jsonb)
		 ON CONFLICT (session_id) DO UPDATE SET data=EXCLUDED.data`,
		payload.SessionID, payload.QuizID, raw)
	if err != nil {
		return fmt.Errorf("insert session result: %w", err)
	}
	return nil
}

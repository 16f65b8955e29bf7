package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/manhtruong03/real-time-quiz-sub002/internal/app"
	"github.com/manhtruong03/real-time-quiz-sub002/internal/domain"
	"github.com/manhtruong03/real-time-quiz-sub002/internal/infra/memory"
)

func newGameService(results app.ResultRepository) *app.GameService {
	sessions := memory.NewSessionStore()
	quizzes := memory.NewQuizRepository(memory.NewStaticQuizLoader(map[string]domain.Quiz{
		"quiz-1": testQuiz(),
	}), 5*time.Minute)
	return app.NewGameService(sessions, quizzes, results, 1000)
}

func TestCreateSessionAllocatesPin(t *testing.T) {
	ctx := context.Background()
	service := newGameService(memory.NewResultStore())

	session, err := service.CreateSession(ctx, "quiz-1", "host-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(session.Pin()) != 6 {
		t.Fatalf("expected 6-digit pin, got %q", session.Pin())
	}
	if session.Status() != domain.StatusLobby {
		t.Fatalf("new session must start in LOBBY, got %s", session.Status())
	}

	if _, ok := service.Session(session.Pin()); !ok {
		t.Fatalf("session must be reachable by pin")
	}
}

func TestCreateSessionUnknownQuiz(t *testing.T) {
	service := newGameService(memory.NewResultStore())
	if _, err := service.CreateSession(context.Background(), "quiz-missing", "host-1"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz not found, got %v", err)
	}
}

func TestHostOnlyCommands(t *testing.T) {
	ctx := context.Background()
	service := newGameService(memory.NewResultStore())
	session, err := service.CreateSession(ctx, "quiz-1", "host-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := service.StartGame(ctx, session.Pin(), "impostor"); !errors.Is(err, domain.ErrNotHost) {
		t.Fatalf("expected host check, got %v", err)
	}
	if err := service.Kick(ctx, session.Pin(), "impostor", "p1"); !errors.Is(err, domain.ErrNotHost) {
		t.Fatalf("expected host check on kick, got %v", err)
	}
}

func TestSubmitAnswerThroughService(t *testing.T) {
	ctx := context.Background()
	service := newGameService(memory.NewResultStore())
	session, err := service.CreateSession(ctx, "quiz-1", "host-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	pin := session.Pin()

	if _, err := service.Join(ctx, pin, "p1", "Alice", "a1"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := service.Join(ctx, "000000", "p2", "Bob", ""); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected unknown pin rejection, got %v", err)
	}

	if _, err := service.StartGame(ctx, pin, "host-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := service.RevealQuestion(ctx, pin, "host-1"); err != nil {
		t.Fatalf("reveal: %v", err)
	}

	record, err := service.SubmitAnswer(ctx, pin, "p1", domain.AnswerSubmission{
		Type: domain.QuestionQuiz, QuestionIndex: 0, Choice: 1, ReactionTimeMs: 1000,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !record.IsCorrect {
		t.Fatalf("expected correct answer, got %+v", record)
	}

	// With one eligible player the question closed on their answer.
	result, err := service.PlayerResult(ctx, pin, "p1", 0)
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if result.Rank != 1 || !result.HasAnswer {
		t.Fatalf("expected rank 1 with answer, got %+v", result)
	}
}

type flakyResultStore struct {
	inner    *memory.ResultStore
	failures int
	calls    int
}

func (f *flakyResultStore) SaveResult(ctx context.Context, payload domain.FinalizationPayload) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("backend unavailable")
	}
	return f.inner.SaveResult(ctx, payload)
}

func TestFinalizeExactlyOnce(t *testing.T) {
	ctx := context.Background()
	store := memory.NewResultStore()
	service := newGameService(store)
	session, err := service.CreateSession(ctx, "quiz-1", "host-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	pin := session.Pin()
	_, _ = service.Join(ctx, pin, "p1", "Alice", "")

	if err := service.Finalize(ctx, pin, "host-1"); !errors.Is(err, domain.ErrGameEnded) {
		t.Fatalf("finalize before terminal state must fail, got %v", err)
	}

	if err := service.EndGame(ctx, pin, "host-1"); err != nil {
		t.Fatalf("end: %v", err)
	}
	if err := service.Finalize(ctx, pin, "host-1"); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if err := service.Finalize(ctx, pin, "host-1"); !errors.Is(err, domain.ErrAlreadyFinalized) {
		t.Fatalf("second finalize must be rejected, got %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("expected exactly one persisted result, got %d", store.Len())
	}
}

func TestFinalizeFailureAllowsRetry(t *testing.T) {
	ctx := context.Background()
	flaky := &flakyResultStore{inner: memory.NewResultStore(), failures: 1}
	service := newGameService(flaky)
	session, err := service.CreateSession(ctx, "quiz-1", "host-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	pin := session.Pin()
	_, _ = service.Join(ctx, pin, "p1", "Alice", "")
	if err := service.EndGame(ctx, pin, "host-1"); err != nil {
		t.Fatalf("end: %v", err)
	}

	if err := service.Finalize(ctx, pin, "host-1"); err == nil {
		t.Fatalf("first finalize should surface the backend error")
	}
	// The failed attempt released the slot; a manual retry succeeds.
	if err := service.Finalize(ctx, pin, "host-1"); err != nil {
		t.Fatalf("retry should succeed, got %v", err)
	}
	if flaky.inner.Len() != 1 {
		t.Fatalf("expected one persisted result after retry, got %d", flaky.inner.Len())
	}
}

func TestSubscribeReceivesLeaderboardUpdates(t *testing.T) {
	ctx := context.Background()
	service := newGameService(memory.NewResultStore())
	session, err := service.CreateSession(ctx, "quiz-1", "host-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	pin := session.Pin()

	ch, cancel, err := service.Subscribe(ctx, pin)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	<-ch // initial snapshot

	if _, err := service.Join(ctx, pin, "p1", "Alice", ""); err != nil {
		t.Fatalf("join: %v", err)
	}
	ev := <-ch
	if ev.Type != app.EventLobby {
		t.Fatalf("expected lobby event after join, got %s", ev.Type)
	}
}

func TestLeaveDropsEndedEmptySession(t *testing.T) {
	ctx := context.Background()
	service := newGameService(memory.NewResultStore())
	session, err := service.CreateSession(ctx, "quiz-1", "host-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	pin := session.Pin()
	_, _ = service.Join(ctx, pin, "p1", "Alice", "")

	if err := service.EndGame(ctx, pin, "host-1"); err != nil {
		t.Fatalf("end: %v", err)
	}
	service.Leave(ctx, pin, "p1")

	if _, ok := service.Session(pin); ok {
		t.Fatalf("ended empty session must be dropped")
	}
}

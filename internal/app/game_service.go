package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/manhtruong03/real-time-quiz-sub002/internal/domain"
)

// SessionRepository abstracts how live sessions are stored and looked
// up by game PIN (in-memory, Redis-backed, etc).
type SessionRepository interface {
	Put(session *Session)
	GetByPin(pin string) (*Session, bool)
	Delete(pin string)
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// ResultRepository persists finalized session results. Called at most
// once per session; a returned error is recoverable and leaves the
// finalize slot open for a manual retry.
type ResultRepository interface {
	SaveResult(ctx context.Context, payload domain.FinalizationPayload) error
}

// GameService contains the host-side game use cases.
type GameService struct {
	sessions      SessionRepository
	quizzes       QuizRepository
	results       ResultRepository
	basePointsMax int
}

func NewGameService(sessions SessionRepository, quizzes QuizRepository, results ResultRepository, basePointsMax int) *GameService {
	if basePointsMax <= 0 {
		basePointsMax = DefaultBasePointsMax
	}
	return &GameService{sessions: sessions, quizzes: quizzes, results: results, basePointsMax: basePointsMax}
}

// NewSessionForTest builds a detached session with an injectable clock.
func NewSessionForTest(id, pin string, quiz domain.Quiz, hostUserID string, basePointsMax int, now func() time.Time) *Session {
	return newSessionWithClock(id, pin, quiz, hostUserID, basePointsMax, now)
}

// CreateSession loads the quiz and opens a lobby under a fresh game PIN.
func (g *GameService) CreateSession(ctx context.Context, quizID, hostUserID string) (*Session, error) {
	quiz, err := g.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}

	var pin string
	for attempt := 0; attempt < 10; attempt++ {
		candidate, err := GeneratePin()
		if err != nil {
			return nil, fmt.Errorf("generate pin: %w", err)
		}
		if _, taken := g.sessions.GetByPin(candidate); !taken {
			pin = candidate
			break
		}
	}
	if pin == "" {
		return nil, fmt.Errorf("could not allocate a free game pin")
	}

	session := newSession(uuid.NewString(), pin, quiz, hostUserID, g.basePointsMax)
	g.sessions.Put(session)
	return session, nil
}

// Join registers a player in the session identified by pin.
func (g *GameService) Join(_ context.Context, pin, cid, nickname, avatarID string) (*Session, error) {
	session, ok := g.sessions.GetByPin(pin)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if err := session.Join(cid, nickname, avatarID); err != nil {
		return nil, err
	}
	return session, nil
}

// SubmitAnswer applies a player answer event.
func (g *GameService) SubmitAnswer(_ context.Context, pin, cid string, sub domain.AnswerSubmission) (domain.AnswerRecord, error) {
	session, ok := g.sessions.GetByPin(pin)
	if !ok {
		return domain.AnswerRecord{}, domain.ErrSessionNotFound
	}
	return session.SubmitAnswer(cid, sub)
}

// StartGame advances a lobby to the first block. Host only.
func (g *GameService) StartGame(_ context.Context, pin, userID string) (*domain.GameBlock, error) {
	session, err := g.hostSession(pin, userID)
	if err != nil {
		return nil, err
	}
	return session.AdvanceToBlock(0)
}

// NextBlock stages the block after the current one, or the podium when
// the quiz is exhausted.
func (g *GameService) NextBlock(_ context.Context, pin, userID string) (*domain.GameBlock, error) {
	session, err := g.hostSession(pin, userID)
	if err != nil {
		return nil, err
	}
	return session.AdvanceToBlock(session.CurrentIndex() + 1)
}

// SkipToBlock jumps directly to block index. Host only.
func (g *GameService) SkipToBlock(_ context.Context, pin, userID string, index int) (*domain.GameBlock, error) {
	session, err := g.hostSession(pin, userID)
	if err != nil {
		return nil, err
	}
	return session.AdvanceToBlock(index)
}

// RevealQuestion opens the staged block for answers. Host only.
func (g *GameService) RevealQuestion(_ context.Context, pin, userID string) (*domain.GameBlock, error) {
	session, err := g.hostSession(pin, userID)
	if err != nil {
		return nil, err
	}
	return session.RevealQuestion()
}

// TimeUp closes the current question on the host timer. Host only.
func (g *GameService) TimeUp(_ context.Context, pin, userID string) error {
	session, err := g.hostSession(pin, userID)
	if err != nil {
		return err
	}
	return session.TimeUp()
}

// Kick removes a player. Host only.
func (g *GameService) Kick(_ context.Context, pin, userID, cid string) error {
	session, err := g.hostSession(pin, userID)
	if err != nil {
		return err
	}
	return session.Kick(cid)
}

// ShowPodium moves the session to the podium screen. Host only.
func (g *GameService) ShowPodium(_ context.Context, pin, userID string) error {
	session, err := g.hostSession(pin, userID)
	if err != nil {
		return err
	}
	return session.ShowPodium()
}

// EndGame terminates the session. Host only.
func (g *GameService) EndGame(_ context.Context, pin, userID string) error {
	session, err := g.hostSession(pin, userID)
	if err != nil {
		return err
	}
	session.End()
	return nil
}

// Finalize persists the session results exactly once. It may only run
// against a terminal session and only for the host. Persistence failure
// is surfaced to the caller and releases the finalize slot so a manual
// retry can succeed; the in-memory state is never corrupted.
func (g *GameService) Finalize(ctx context.Context, pin, userID string) error {
	session, err := g.hostSession(pin, userID)
	if err != nil {
		return err
	}

	state, endedAt, err := session.BeginFinalize()
	if err != nil {
		return err
	}

	payload := BuildFinalizationPayload(state, session.Quiz(), endedAt)
	if err := g.results.SaveResult(ctx, payload); err != nil {
		session.FinishFinalize(false)
		return fmt.Errorf("save session results: %w", err)
	}
	session.FinishFinalize(true)
	return nil
}

// PlayerResult returns one player's outcome for a question.
func (g *GameService) PlayerResult(_ context.Context, pin, cid string, questionIndex int) (domain.PlayerResult, error) {
	session, ok := g.sessions.GetByPin(pin)
	if !ok {
		return domain.PlayerResult{}, domain.ErrSessionNotFound
	}
	return session.PlayerResult(cid, questionIndex)
}

// Leave marks a player as departed and drops the session once it is
// both terminal and empty.
func (g *GameService) Leave(_ context.Context, pin, cid string) {
	session, ok := g.sessions.GetByPin(pin)
	if !ok {
		return
	}
	session.Leave(cid)
	if session.Status() == domain.StatusEnded && session.IsEmpty() {
		g.sessions.Delete(pin)
	}
}

// Subscribe returns a channel receiving session events for a game.
// The caller must invoke the returned cancel function to avoid leaks.
func (g *GameService) Subscribe(_ context.Context, pin string) (<-chan SessionEvent, func(), error) {
	session, ok := g.sessions.GetByPin(pin)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}

// Session exposes a live session by PIN for transport-layer lookups.
func (g *GameService) Session(pin string) (*Session, bool) {
	return g.sessions.GetByPin(pin)
}

func (g *GameService) hostSession(pin, userID string) (*Session, error) {
	session, ok := g.sessions.GetByPin(pin)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if userID != session.HostUserID() {
		return nil, domain.ErrNotHost
	}
	return session, nil
}

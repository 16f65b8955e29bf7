package app

import (
	"sync"
	"time"

	"github.com/manhtruong03/real-time-quiz-sub002/internal/domain"
)

// Event types pushed to session subscribers.
const (
	EventLobby       = "lobby"       // player roster changed
	EventBlock       = "block"       // new block staged (get ready)
	EventQuestion    = "question"    // block revealed, answers open
	EventLeaderboard = "leaderboard" // scores or ranks changed
	EventQuestionEnd = "questionEnd" // question closed (all answered or time up)
	EventPodium      = "podium"      // final standings
	EventEnded       = "ended"       // session over
	EventKicked      = "kicked"      // a player was removed by the host
)

// SessionEvent is the envelope broadcast to subscribers whenever the
// session state changes. Payload is JSON-marshalable.
type SessionEvent struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// ScoreboardPayload accompanies EventLobby, EventLeaderboard and
// EventPodium.
type ScoreboardPayload struct {
	Entries []domain.LeaderboardEntry `json:"entries"`
}

// QuestionEndPayload accompanies EventQuestionEnd.
type QuestionEndPayload struct {
	GameBlockIndex int                      `json:"gameBlockIndex"`
	Leaderboard    []domain.LeaderboardEntry `json:"leaderboard"`
}

// KickedPayload accompanies EventKicked.
type KickedPayload struct {
	CID string `json:"cid"`
}

type finalizePhase int

const (
	finalizePending finalizePhase = iota
	finalizeInFlight
	finalizeDone
)

// Session is the live game-session coordinator. It owns the canonical
// state of one running game and is the only writer: every mutation goes
// through a transition method under the session mutex, so inbound
// events (joins, answers, host commands, timeouts) are serialized.
type Session struct {
	id            string
	pin           string
	quiz          domain.Quiz
	hostUserID    string
	basePointsMax int
	createdAt     time.Time
	now           func() time.Time

	mu                sync.RWMutex
	status            domain.GameStatus
	currentIndex      int
	players           map[string]*domain.LivePlayerState
	questionStartedAt time.Time
	questionClosed    bool // per-question latch, reset on advance
	finalize          finalizePhase
	endedAt           time.Time
	subscribers       map[chan SessionEvent]struct{}
}

func newSession(id, pin string, quiz domain.Quiz, hostUserID string, basePointsMax int) *Session {
	return newSessionWithClock(id, pin, quiz, hostUserID, basePointsMax, time.Now)
}

// newSessionWithClock allows deterministic timestamps in tests.
func newSessionWithClock(id, pin string, quiz domain.Quiz, hostUserID string, basePointsMax int, now func() time.Time) *Session {
	if basePointsMax <= 0 {
		basePointsMax = DefaultBasePointsMax
	}
	return &Session{
		id:            id,
		pin:           pin,
		quiz:          quiz,
		hostUserID:    hostUserID,
		basePointsMax: basePointsMax,
		createdAt:     now(),
		now:           now,
		status:        domain.StatusLobby,
		currentIndex:  -1,
		players:       make(map[string]*domain.LivePlayerState),
		subscribers:   make(map[chan SessionEvent]struct{}),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Pin returns the game PIN players join with.
func (s *Session) Pin() string { return s.pin }

// Quiz returns the authoritative quiz definition for this session.
func (s *Session) Quiz() domain.Quiz { return s.quiz }

// HostUserID returns the user that started the session.
func (s *Session) HostUserID() string { return s.hostUserID }

// Status returns the current state-machine tag.
func (s *Session) Status() domain.GameStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Snapshot returns a detached copy of the live state, safe to read
// without holding the session lock.
func (s *Session) Snapshot() domain.LiveGameState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() domain.LiveGameState {
	players := make(map[string]*domain.LivePlayerState, len(s.players))
	for cid, p := range s.players {
		players[cid] = p.Clone()
	}
	return domain.LiveGameState{
		SessionID:            s.id,
		GamePin:              s.pin,
		QuizID:               s.quiz.ID,
		HostUserID:           s.hostUserID,
		Status:               s.status,
		CurrentQuestionIndex: s.currentIndex,
		Players:              players,
		StartedAt:            s.createdAt,
	}
}

// Join adds a player or reconnects a returning one. Joining never moves
// the state machine; players may arrive mid-game. Kicked players cannot
// rejoin under the same cid.
func (s *Session) Join(cid, nickname, avatarID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == domain.StatusEnded {
		return domain.ErrGameEnded
	}
	now := s.now()
	if p, ok := s.players[cid]; ok {
		if p.PlayerStatus == domain.PlayerKicked {
			return domain.ErrPlayerNotFound
		}
		p.Nickname = nickname
		if avatarID != "" {
			p.AvatarID = avatarID
		}
		p.IsConnected = true
		p.PlayerStatus = domain.PlayerActive
		p.LastActivityAt = now
	} else {
		s.players[cid] = &domain.LivePlayerState{
			CID:            cid,
			Nickname:       nickname,
			AvatarID:       avatarID,
			IsConnected:    true,
			PlayerStatus:   domain.PlayerActive,
			Answers:        []domain.AnswerRecord{},
			LastActivityAt: now,
		}
	}
	s.applyRankingsLocked()
	s.broadcastLocked(SessionEvent{Type: EventLobby, Payload: ScoreboardPayload{Entries: BuildLeaderboard(s.players)}})
	return nil
}

// Leave marks a player as departed. The entry is retained for final
// reporting but no longer counts toward rankings or early-advance.
func (s *Session) Leave(cid string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[cid]
	if !ok || p.PlayerStatus == domain.PlayerKicked {
		return
	}
	p.IsConnected = false
	p.PlayerStatus = domain.PlayerLeft
	p.LastActivityAt = s.now()
	s.applyRankingsLocked()
	s.broadcastLocked(SessionEvent{Type: EventLobby, Payload: ScoreboardPayload{Entries: BuildLeaderboard(s.players)}})

	// The departing player may have been the last one holding up the
	// question; re-check the early-advance condition.
	if s.status == domain.StatusQuestionShow && s.allEligibleAnsweredLocked() {
		s.closeQuestionLocked()
	}
}

// Kick removes a player at the host's request. Idempotent: re-kicking
// an already kicked, disconnected player is a no-op.
func (s *Session) Kick(cid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[cid]
	if !ok {
		return domain.ErrPlayerNotFound
	}
	if p.PlayerStatus == domain.PlayerKicked && !p.IsConnected {
		return nil
	}
	p.IsConnected = false
	p.PlayerStatus = domain.PlayerKicked
	p.LastActivityAt = s.now()
	s.applyRankingsLocked()
	s.broadcastLocked(SessionEvent{Type: EventKicked, Payload: KickedPayload{CID: cid}})
	s.broadcastLocked(SessionEvent{Type: EventLobby, Payload: ScoreboardPayload{Entries: BuildLeaderboard(s.players)}})

	// A departing player may have been the last one holding up the
	// question; re-check the early-advance condition.
	if s.status == domain.StatusQuestionShow && s.allEligibleAnsweredLocked() {
		s.closeQuestionLocked()
	}
	return nil
}

// AdvanceToBlock stages block index: stamps the new current question,
// resets the per-question latch, and broadcasts the answer-free block.
// Advancing past the last question moves the session to the podium.
func (s *Session) AdvanceToBlock(index int) (*domain.GameBlock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status.Terminal() {
		return nil, domain.ErrGameEnded
	}
	if index >= len(s.quiz.Questions) {
		s.showPodiumLocked()
		return nil, nil
	}
	q := CurrentHostQuestion(s.quiz, index)
	if q == nil {
		return nil, domain.ErrQuestionNotFound
	}

	s.currentIndex = index
	s.questionClosed = false
	s.status = domain.StatusGetReady
	block := FormatQuestionForPlayer(q, index, len(s.quiz.Questions))
	s.broadcastLocked(SessionEvent{Type: EventBlock, Payload: block})
	return block, nil
}

// RevealQuestion opens the staged block for answers.
func (s *Session) RevealQuestion() (*domain.GameBlock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.StatusGetReady {
		return nil, domain.ErrNotAcceptingAnswers
	}
	q := CurrentHostQuestion(s.quiz, s.currentIndex)
	if q == nil {
		return nil, domain.ErrQuestionNotFound
	}
	s.status = domain.StatusQuestionShow
	s.questionStartedAt = s.now()
	block := FormatQuestionForPlayer(q, s.currentIndex, len(s.quiz.Questions))
	s.broadcastLocked(SessionEvent{Type: EventQuestion, Payload: block})

	// Content slides take no answers; they sit open until the host
	// advances, so nothing to arm here.
	return block, nil
}

// SubmitAnswer applies one player-answer event. Rejections (duplicate
// answer, wrong state, unknown or kicked player) leave the state
// untouched. On acceptance the answer is scored, the streak and total
// updated, the record appended, and rankings recomputed. When the last
// eligible player answers, the question closes early exactly once.
func (s *Session) SubmitAnswer(cid string, sub domain.AnswerSubmission) (domain.AnswerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.StatusQuestionShow || s.questionClosed {
		return domain.AnswerRecord{}, domain.ErrNotAcceptingAnswers
	}
	if sub.QuestionIndex != s.currentIndex {
		return domain.AnswerRecord{}, domain.ErrNotAcceptingAnswers
	}
	p, ok := s.players[cid]
	if !ok || p.PlayerStatus == domain.PlayerKicked {
		return domain.AnswerRecord{}, domain.ErrPlayerNotFound
	}
	if _, dup := p.AnswerFor(sub.QuestionIndex); dup {
		return domain.AnswerRecord{}, domain.ErrDuplicateAnswer
	}
	q := CurrentHostQuestion(s.quiz, s.currentIndex)
	if q == nil {
		return domain.AnswerRecord{}, domain.ErrQuestionNotFound
	}

	now := s.now()
	reaction := sub.ReactionTimeMs
	if reaction <= 0 {
		reaction = now.Sub(s.questionStartedAt).Milliseconds()
	}

	correct := CheckAnswerCorrectness(*q, sub)
	points := 0
	if correct {
		points = ApplyPointsMultiplier(CalculateBasePoints(reaction, q.TimeAvailableMs, s.basePointsMax), q.PointsMultiplier)
	}

	prevStreak := 0
	if n := len(p.Answers); n > 0 {
		prevStreak = p.Answers[n-1].StreakLevel
	}
	streak := 0
	if correct {
		streak = prevStreak + 1
	}

	record := domain.AnswerRecord{
		QuestionIndex:       sub.QuestionIndex,
		Status:              domain.AnswerSubmitted,
		Choice:              sub.Choice,
		Choices:             sub.Choices,
		Text:                sub.Text,
		ReactionTimeMs:      reaction,
		PointsAwarded:       points,
		IsCorrect:           correct,
		StreakLevel:         streak,
		PreviousStreakLevel: prevStreak,
	}
	p.Answers = append(p.Answers, record)
	p.TotalScore += points
	p.LastActivityAt = now

	s.applyRankingsLocked()
	s.broadcastLocked(SessionEvent{Type: EventLeaderboard, Payload: ScoreboardPayload{Entries: BuildLeaderboard(s.players)}})

	if s.allEligibleAnsweredLocked() {
		s.closeQuestionLocked()
	}
	return record, nil
}

// TimeUp closes the current question at the host timer's request. The
// per-question latch makes it race-free against early-advance: whichever
// fires first wins and the second call is a no-op.
func (s *Session) TimeUp() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.StatusQuestionShow {
		return domain.ErrNotAcceptingAnswers
	}
	s.closeQuestionLocked()
	return nil
}

// allEligibleAnsweredLocked reports the early-advance condition: every
// connected, non-kicked player has a non-timeout record for the current
// question. Zero answers never advances, so an empty lobby cannot fire.
func (s *Session) allEligibleAnsweredLocked() bool {
	eligible := 0
	answered := 0
	for _, p := range s.players {
		if !p.Eligible() {
			continue
		}
		eligible++
		if a, ok := p.AnswerFor(s.currentIndex); ok && a.Status == domain.AnswerSubmitted {
			answered++
		}
	}
	return eligible > 0 && answered == eligible
}

// closeQuestionLocked fires the time-up transition once per question:
// players without a record get a TIMEOUT entry (streak reset), rankings
// are recomputed, and the session moves to the result screen.
func (s *Session) closeQuestionLocked() {
	if s.questionClosed {
		return
	}
	s.questionClosed = true

	now := s.now()
	for _, p := range s.players {
		if !p.Eligible() {
			continue
		}
		if _, ok := p.AnswerFor(s.currentIndex); ok {
			continue
		}
		prevStreak := 0
		if n := len(p.Answers); n > 0 {
			prevStreak = p.Answers[n-1].StreakLevel
		}
		p.Answers = append(p.Answers, domain.AnswerRecord{
			QuestionIndex:       s.currentIndex,
			Status:              domain.AnswerTimeout,
			Choice:              -1,
			ReactionTimeMs:      0,
			PointsAwarded:       0,
			IsCorrect:           false,
			StreakLevel:         0,
			PreviousStreakLevel: prevStreak,
		})
		p.LastActivityAt = now
	}

	s.applyRankingsLocked()
	s.status = domain.StatusShowResult
	s.broadcastLocked(SessionEvent{Type: EventQuestionEnd, Payload: QuestionEndPayload{
		GameBlockIndex: s.currentIndex,
		Leaderboard:    BuildLeaderboard(s.players),
	}})
}

// ShowPodium moves the session to the podium screen.
func (s *Session) ShowPodium() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == domain.StatusEnded {
		return domain.ErrGameEnded
	}
	s.showPodiumLocked()
	return nil
}

func (s *Session) showPodiumLocked() {
	if s.status == domain.StatusPodium {
		return
	}
	s.applyRankingsLocked()
	s.status = domain.StatusPodium
	if s.endedAt.IsZero() {
		s.endedAt = s.now()
	}
	s.broadcastLocked(SessionEvent{Type: EventPodium, Payload: ScoreboardPayload{Entries: BuildLeaderboard(s.players)}})
}

// End terminates the session. Idempotent.
func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == domain.StatusEnded {
		return
	}
	s.applyRankingsLocked()
	s.status = domain.StatusEnded
	if s.endedAt.IsZero() {
		s.endedAt = s.now()
	}
	s.broadcastLocked(SessionEvent{Type: EventEnded, Payload: struct{}{}})
}

// PlayerResult builds the per-question result for one player against
// the question at questionIndex.
func (s *Session) PlayerResult(cid string, questionIndex int) (domain.PlayerResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.players[cid]
	if !ok {
		return domain.PlayerResult{}, domain.ErrPlayerNotFound
	}
	q := CurrentHostQuestion(s.quiz, questionIndex)
	if q == nil {
		return domain.PlayerResult{}, domain.ErrQuestionNotFound
	}
	return BuildPlayerResult(*q, questionIndex, p), nil
}

// CurrentBlock returns the staged block, or nil while in the lobby.
func (s *Session) CurrentBlock() *domain.GameBlock {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q := CurrentHostQuestion(s.quiz, s.currentIndex)
	return FormatQuestionForPlayer(q, s.currentIndex, len(s.quiz.Questions))
}

// CurrentIndex returns the current question index (-1 in the lobby).
func (s *Session) CurrentIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentIndex
}

// BeginFinalize claims the one-shot finalization slot. It fails when
// the session is still in play, when a finalize attempt is running, or
// when results were already persisted. On success it returns the
// snapshot to persist and the session end time; the caller must report
// the outcome through FinishFinalize.
func (s *Session) BeginFinalize() (domain.LiveGameState, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.status.Terminal() {
		return domain.LiveGameState{}, time.Time{}, domain.ErrGameEnded
	}
	switch s.finalize {
	case finalizeDone:
		return domain.LiveGameState{}, time.Time{}, domain.ErrAlreadyFinalized
	case finalizeInFlight:
		return domain.LiveGameState{}, time.Time{}, domain.ErrFinalizeInFlight
	}
	s.finalize = finalizeInFlight
	endedAt := s.endedAt
	if endedAt.IsZero() {
		endedAt = s.now()
	}
	return s.snapshotLocked(), endedAt, nil
}

// FinishFinalize records the persistence outcome. A failure releases
// the slot so the caller can retry manually; success closes it for good.
func (s *Session) FinishFinalize(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finalize != finalizeInFlight {
		return
	}
	if ok {
		s.finalize = finalizeDone
	} else {
		s.finalize = finalizePending
	}
}

// IsEmpty reports whether no connected players remain.
func (s *Session) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.players {
		if p.IsConnected {
			return false
		}
	}
	return true
}

func (s *Session) applyRankingsLocked() {
	for cid, rank := range CalculateUpdatedRankings(s.players) {
		s.players[cid].Rank = rank
	}
}

func (s *Session) subscribe() (<-chan SessionEvent, func()) {
	ch := make(chan SessionEvent, 16)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := SessionEvent{Type: EventLobby, Payload: ScoreboardPayload{Entries: BuildLeaderboard(s.players)}}
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked(ev SessionEvent) {
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			// Drop the oldest update so a slow subscriber cannot block
			// the transition path.
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}

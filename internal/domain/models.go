package domain

import "time"

// QuestionType discriminates the block kinds a quiz can contain.
type QuestionType string

const (
	QuestionContent   QuestionType = "content"
	QuestionQuiz      QuestionType = "quiz"
	QuestionJumble    QuestionType = "jumble"
	QuestionSurvey    QuestionType = "survey"
	QuestionOpenEnded QuestionType = "open_ended"
)

// Scorable reports whether answers of this type can earn points.
// Content slides and surveys collect no score.
func (t QuestionType) Scorable() bool {
	switch t {
	case QuestionQuiz, QuestionJumble, QuestionOpenEnded:
		return true
	case QuestionContent, QuestionSurvey:
		return false
	}
	return false
}

// Valid reports whether t is one of the known block kinds.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionContent, QuestionQuiz, QuestionJumble, QuestionSurvey, QuestionOpenEnded:
		return true
	}
	return false
}

// Choice is one answer option in the host's authoritative copy.
// The Correct flag never leaves the host: it is stripped before a
// block is sent to players.
type Choice struct {
	Answer  string `json:"answer,omitempty"`
	Image   string `json:"image,omitempty"`
	Correct bool   `json:"correct"`
}

// Question is one block of a quiz as the host sees it.
type Question struct {
	Type                   QuestionType `json:"type"`
	Title                  string       `json:"title"`
	Media                  string       `json:"media,omitempty"`
	TimeAvailableMs        int64        `json:"timeAvailable"`
	PointsMultiplier       *float64     `json:"pointsMultiplier,omitempty"` // nil means 1; explicit 0 zeroes points
	NumberOfAnswersAllowed int          `json:"numberOfAnswersAllowed,omitempty"`
	Choices                []Choice     `json:"choices"`
}

// Quiz is the ordered sequence of questions the host runs a session from.
type Quiz struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	CreatorID string     `json:"creatorId,omitempty"`
	Questions []Question `json:"questions"`
}

// BlockChoice is an answer option with correctness omitted.
type BlockChoice struct {
	Answer string `json:"answer,omitempty"`
	Image  string `json:"image,omitempty"`
}

// GameBlock is the answer-free projection of a question broadcast to
// players. Invariant: it never carries correctness information.
type GameBlock struct {
	GameBlockIndex         int           `json:"gameBlockIndex"`
	TotalGameBlockCount    int           `json:"totalGameBlockCount"`
	Type                   QuestionType  `json:"gameBlockType"`
	Title                  string        `json:"title"`
	Media                  string        `json:"media,omitempty"`
	TimeAvailableMs        int64         `json:"timeAvailable"`
	TimeRemainingMs        int64         `json:"timeRemaining"`
	NumberOfAnswersAllowed int           `json:"numberOfAnswersAllowed"`
	PointsMultiplier       float64       `json:"pointsMultiplier"`
	Choices                []BlockChoice `json:"choices"`
}

// GameStatus tags the session state machine.
type GameStatus string

const (
	StatusLobby        GameStatus = "LOBBY"
	StatusGetReady     GameStatus = "QUESTION_GET_READY"
	StatusQuestionShow GameStatus = "QUESTION_SHOW"
	StatusShowResult   GameStatus = "QUESTION_RESULT"
	StatusPodium       GameStatus = "PODIUM"
	StatusEnded        GameStatus = "ENDED"
)

// Terminal reports whether gameplay is over for this status. The
// finalizer still runs once against terminal sessions.
func (s GameStatus) Terminal() bool {
	return s == StatusPodium || s == StatusEnded
}

// PlayerStatus tracks a player's standing in the session.
type PlayerStatus string

const (
	PlayerActive PlayerStatus = "ACTIVE"
	PlayerKicked PlayerStatus = "KICKED"
	PlayerLeft   PlayerStatus = "LEFT"
)

// AnswerStatus distinguishes submitted answers from timeouts.
type AnswerStatus string

const (
	AnswerSubmitted AnswerStatus = "ANSWERED"
	AnswerTimeout   AnswerStatus = "TIMEOUT"
)

// AnswerRecord is the scored outcome of one player on one question.
// At most one record exists per (player, questionIndex).
type AnswerRecord struct {
	QuestionIndex       int          `json:"questionIndex"`
	Status              AnswerStatus `json:"status"`
	Choice              int          `json:"choice"`
	Choices             []int        `json:"choices,omitempty"`
	Text                string       `json:"text,omitempty"`
	ReactionTimeMs      int64        `json:"reactionTimeMs"`
	PointsAwarded       int          `json:"pointsAwarded"`
	IsCorrect           bool         `json:"isCorrect"`
	StreakLevel         int          `json:"streakLevel"`
	PreviousStreakLevel int          `json:"previousStreakLevel"`
}

// LivePlayerState is the per-player record inside a running session.
// Kicked and departed players keep their entry for final reporting but
// drop out of active-player counts.
type LivePlayerState struct {
	CID            string         `json:"cid"`
	Nickname       string         `json:"nickname"`
	AvatarID       string         `json:"avatarId,omitempty"`
	IsConnected    bool           `json:"isConnected"`
	PlayerStatus   PlayerStatus   `json:"playerStatus"`
	TotalScore     int            `json:"totalScore"`
	Rank           int            `json:"rank"` // 0 means unranked
	Answers        []AnswerRecord `json:"answers"`
	LastActivityAt time.Time      `json:"lastActivityAt"`
}

// AnswerFor returns the player's record for questionIndex, if any.
func (p *LivePlayerState) AnswerFor(questionIndex int) (AnswerRecord, bool) {
	for _, a := range p.Answers {
		if a.QuestionIndex == questionIndex {
			return a, true
		}
	}
	return AnswerRecord{}, false
}

// Eligible reports whether the player counts toward rankings and the
// all-answered check.
func (p *LivePlayerState) Eligible() bool {
	return p.PlayerStatus != PlayerKicked && p.IsConnected
}

// Clone returns a deep copy safe to hand outside the coordinator lock.
func (p *LivePlayerState) Clone() *LivePlayerState {
	cp := *p
	cp.Answers = make([]AnswerRecord, len(p.Answers))
	copy(cp.Answers, p.Answers)
	return &cp
}

// LiveGameState is a point-in-time snapshot of a session. The
// coordinator owns the canonical copy; snapshots handed out are
// detached and safe to read without locking.
type LiveGameState struct {
	SessionID            string                      `json:"sessionId"`
	GamePin              string                      `json:"gamePin"`
	QuizID               string                      `json:"quizId"`
	HostUserID           string                      `json:"hostUserId"`
	Status               GameStatus                  `json:"status"`
	CurrentQuestionIndex int                         `json:"currentQuestionIndex"` // -1 while in LOBBY
	Players              map[string]*LivePlayerState `json:"players"`
	StartedAt            time.Time                   `json:"startedAt"`
}

// AnswerSubmission is the inbound player answer event.
type AnswerSubmission struct {
	Type           QuestionType `json:"type"`
	QuestionIndex  int          `json:"questionIndex"`
	Choice         int          `json:"choice"`
	Choices        []int        `json:"choices,omitempty"`
	Text           string       `json:"text,omitempty"`
	ReactionTimeMs int64        `json:"reactionTimeMs,omitempty"`
}

// StreakPoints mirrors the answerStreakPoints wire shape.
type StreakPoints struct {
	StreakLevel         int `json:"streakLevel"`
	PreviousStreakLevel int `json:"previousStreakLevel"`
}

// PointsData is the scoring breakdown attached to a player result.
type PointsData struct {
	TotalPointsWithBonuses int          `json:"totalPointsWithBonuses"`
	QuestionPoints         int          `json:"questionPoints"`
	AnswerStreakPoints     StreakPoints `json:"answerStreakPoints"`
	LastGameBlockIndex     int          `json:"lastGameBlockIndex"`
}

// PlayerResult is the per-question outcome sent back to a player after
// a question closes. Points, IsCorrect and CorrectChoices are omitted
// for survey blocks.
type PlayerResult struct {
	Rank           int          `json:"rank"`
	TotalScore     int          `json:"totalScore"`
	PointsData     PointsData   `json:"pointsData"`
	HasAnswer      bool         `json:"hasAnswer"`
	Choice         *int         `json:"choice,omitempty"`
	Choices        []int        `json:"choices,omitempty"`
	Text           string       `json:"text,omitempty"`
	Points         *int         `json:"points,omitempty"`
	CorrectChoices []int        `json:"correctChoices,omitempty"`
	IsCorrect      *bool        `json:"isCorrect,omitempty"`
	Type           QuestionType `json:"type"`
}

// LeaderboardEntry is one row of the live scoreboard broadcast to the host.
type LeaderboardEntry struct {
	CID        string `json:"cid"`
	Nickname   string `json:"nickname"`
	TotalScore int    `json:"totalScore"`
	Rank       int    `json:"rank"`
}

// PlayerReport is the persisted per-player summary of a finished session.
type PlayerReport struct {
	CID                   string       `json:"cid"`
	Nickname              string       `json:"nickname"`
	PlayerStatus          PlayerStatus `json:"playerStatus"`
	Rank                  int          `json:"rank"`
	TotalScore            int          `json:"totalScore"`
	CorrectCount          int          `json:"correctCount"`
	IncorrectCount        int          `json:"incorrectCount"`
	UnansweredCount       int          `json:"unansweredCount"`
	Accuracy              float64      `json:"accuracy"`
	AverageReactionTimeMs int64        `json:"averageReactionTimeMs"`
	FinalStreak           int          `json:"finalStreak"`
}

// FinalizationPayload is the persistence DTO submitted exactly once per
// session when it reaches a terminal status.
type FinalizationPayload struct {
	SessionID     string         `json:"sessionId"`
	GamePin       string         `json:"gamePin"`
	QuizID        string         `json:"quizId"`
	QuizTitle     string         `json:"quizTitle"`
	HostUserID    string         `json:"hostUserId"`
	PlayerCount   int            `json:"playerCount"`
	QuestionCount int            `json:"questionCount"`
	StartedAt     time.Time      `json:"startedAt"`
	EndedAt       time.Time      `json:"endedAt"`
	Players       []PlayerReport `json:"players"`
}

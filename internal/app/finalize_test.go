package app_test

import (
	"testing"
	"time"

	"github.com/manhtruong03/real-time-quiz-sub002/internal/app"
	"github.com/manhtruong03/real-time-quiz-sub002/internal/domain"
)

func TestBuildFinalizationPayload(t *testing.T) {
	started := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ended := started.Add(10 * time.Minute)
	state := domain.LiveGameState{
		SessionID:  "sess-1",
		GamePin:    "123456",
		HostUserID: "host-1",
		Status:     domain.StatusEnded,
		StartedAt:  started,
		Players: map[string]*domain.LivePlayerState{
			"p1": {
				CID: "p1", Nickname: "Alice", PlayerStatus: domain.PlayerActive, IsConnected: true,
				TotalScore: 1500, Rank: 1,
				Answers: []domain.AnswerRecord{
					{QuestionIndex: 0, Status: domain.AnswerSubmitted, IsCorrect: true, PointsAwarded: 800, ReactionTimeMs: 4000, StreakLevel: 1},
					{QuestionIndex: 1, Status: domain.AnswerSubmitted, IsCorrect: true, PointsAwarded: 700, ReactionTimeMs: 6000, StreakLevel: 2},
					{QuestionIndex: 2, Status: domain.AnswerTimeout, StreakLevel: 0, PreviousStreakLevel: 2},
				},
			},
			"p2": {
				CID: "p2", Nickname: "Bob", PlayerStatus: domain.PlayerActive, IsConnected: true,
				TotalScore: 200, Rank: 2,
				Answers: []domain.AnswerRecord{
					{QuestionIndex: 0, Status: domain.AnswerSubmitted, IsCorrect: false, ReactionTimeMs: 2000},
					{QuestionIndex: 1, Status: domain.AnswerSubmitted, IsCorrect: true, PointsAwarded: 200, ReactionTimeMs: 8000, StreakLevel: 1},
					{QuestionIndex: 2, Status: domain.AnswerTimeout},
				},
			},
		},
	}
	quiz := testQuiz()

	payload := app.BuildFinalizationPayload(state, quiz, ended)

	if payload.SessionID != "sess-1" || payload.GamePin != "123456" {
		t.Fatalf("session meta lost: %+v", payload)
	}
	if payload.QuizID != quiz.ID || payload.QuizTitle != quiz.Title {
		t.Fatalf("quiz meta lost: %+v", payload)
	}
	if payload.PlayerCount != 2 || payload.QuestionCount != 3 {
		t.Fatalf("counts wrong: players=%d questions=%d", payload.PlayerCount, payload.QuestionCount)
	}
	if !payload.EndedAt.Equal(ended) || !payload.StartedAt.Equal(started) {
		t.Fatalf("timestamps wrong: %+v", payload)
	}

	if payload.Players[0].CID != "p1" || payload.Players[1].CID != "p2" {
		t.Fatalf("reports must be ordered by rank, got %s,%s", payload.Players[0].CID, payload.Players[1].CID)
	}

	alice := payload.Players[0]
	if alice.CorrectCount != 2 || alice.IncorrectCount != 0 || alice.UnansweredCount != 1 {
		t.Fatalf("alice counts wrong: %+v", alice)
	}
	if alice.Accuracy < 0.66 || alice.Accuracy > 0.67 {
		t.Fatalf("alice accuracy expected 2/3, got %v", alice.Accuracy)
	}
	if alice.AverageReactionTimeMs != 5000 {
		t.Fatalf("alice avg reaction expected 5000, got %d", alice.AverageReactionTimeMs)
	}
	if alice.FinalStreak != 0 {
		t.Fatalf("final streak is the last record's level, got %d", alice.FinalStreak)
	}
}

func TestBuildPlayerResultQuiz(t *testing.T) {
	q := testQuiz().Questions[0]
	p := &domain.LivePlayerState{
		CID: "p1", Rank: 1, TotalScore: 500,
		Answers: []domain.AnswerRecord{{
			QuestionIndex: 0, Status: domain.AnswerSubmitted, Choice: 1,
			PointsAwarded: 500, IsCorrect: true, StreakLevel: 1,
		}},
	}

	result := app.BuildPlayerResult(q, 0, p)
	if !result.HasAnswer {
		t.Fatalf("expected hasAnswer")
	}
	if result.Choice == nil || *result.Choice != 1 {
		t.Fatalf("expected choice 1, got %v", result.Choice)
	}
	if result.Points == nil || *result.Points != 500 {
		t.Fatalf("expected points 500, got %v", result.Points)
	}
	if result.IsCorrect == nil || !*result.IsCorrect {
		t.Fatalf("expected isCorrect true")
	}
	if len(result.CorrectChoices) != 1 || result.CorrectChoices[0] != 1 {
		t.Fatalf("expected correctChoices [1], got %v", result.CorrectChoices)
	}
	if result.PointsData.TotalPointsWithBonuses != 500 || result.PointsData.LastGameBlockIndex != 0 {
		t.Fatalf("points data wrong: %+v", result.PointsData)
	}
}

func TestBuildPlayerResultSurveyOmitsScoringFields(t *testing.T) {
	q := testQuiz().Questions[2]
	p := &domain.LivePlayerState{
		CID: "p1", Rank: 2, TotalScore: 500,
		Answers: []domain.AnswerRecord{{
			QuestionIndex: 2, Status: domain.AnswerSubmitted, Choice: 1,
		}},
	}

	result := app.BuildPlayerResult(q, 2, p)
	if !result.HasAnswer {
		t.Fatalf("expected hasAnswer")
	}
	if result.Points != nil || result.IsCorrect != nil || result.CorrectChoices != nil {
		t.Fatalf("survey result must omit points/isCorrect/correctChoices: %+v", result)
	}
	if result.Type != domain.QuestionSurvey {
		t.Fatalf("type must mirror the block, got %s", result.Type)
	}
}

func TestBuildPlayerResultTimeout(t *testing.T) {
	q := testQuiz().Questions[0]
	p := &domain.LivePlayerState{
		CID: "p1", Rank: 3, TotalScore: 0,
		Answers: []domain.AnswerRecord{{
			QuestionIndex: 0, Status: domain.AnswerTimeout, Choice: -1,
		}},
	}

	result := app.BuildPlayerResult(q, 0, p)
	if result.HasAnswer {
		t.Fatalf("timeout must report hasAnswer=false")
	}
	if result.Choice != nil {
		t.Fatalf("timeout must not echo a choice, got %v", result.Choice)
	}
	if result.IsCorrect == nil || *result.IsCorrect {
		t.Fatalf("timeout reports isCorrect=false")
	}
}

package app

import (
	"sort"
	"time"

	"github.com/manhtruong03/real-time-quiz-sub002/internal/domain"
)

// BuildFinalizationPayload maps a terminal session snapshot into the
// persistence DTO. Pure: it reads the snapshot and quiz only. The
// caller guards invocation so persistence happens exactly once.
func BuildFinalizationPayload(state domain.LiveGameState, quiz domain.Quiz, endedAt time.Time) domain.FinalizationPayload {
	players := make([]domain.PlayerReport, 0, len(state.Players))
	for _, p := range state.Players {
		players = append(players, buildPlayerReport(p))
	}
	sort.Slice(players, func(i, j int) bool {
		ri, rj := players[i].Rank, players[j].Rank
		if ri == 0 {
			ri = len(players) + 1
		}
		if rj == 0 {
			rj = len(players) + 1
		}
		if ri != rj {
			return ri < rj
		}
		return players[i].CID < players[j].CID
	})

	return domain.FinalizationPayload{
		SessionID:     state.SessionID,
		GamePin:       state.GamePin,
		QuizID:        quiz.ID,
		QuizTitle:     quiz.Title,
		HostUserID:    state.HostUserID,
		PlayerCount:   len(state.Players),
		QuestionCount: len(quiz.Questions),
		StartedAt:     state.StartedAt,
		EndedAt:       endedAt,
		Players:       players,
	}
}

func buildPlayerReport(p *domain.LivePlayerState) domain.PlayerReport {
	var correct, incorrect, unanswered int
	var reactionSum int64
	var answered int64
	finalStreak := 0
	for _, a := range p.Answers {
		switch {
		case a.Status == domain.AnswerTimeout:
			unanswered++
		case a.IsCorrect:
			correct++
		default:
			incorrect++
		}
		if a.Status == domain.AnswerSubmitted {
			reactionSum += a.ReactionTimeMs
			answered++
		}
		finalStreak = a.StreakLevel
	}

	accuracy := 0.0
	if total := correct + incorrect + unanswered; total > 0 {
		accuracy = float64(correct) / float64(total)
	}
	var avgReaction int64
	if answered > 0 {
		avgReaction = reactionSum / answered
	}

	return domain.PlayerReport{
		CID:                   p.CID,
		Nickname:              p.Nickname,
		PlayerStatus:          p.PlayerStatus,
		Rank:                  p.Rank,
		TotalScore:            p.TotalScore,
		CorrectCount:          correct,
		IncorrectCount:        incorrect,
		UnansweredCount:       unanswered,
		Accuracy:              accuracy,
		AverageReactionTimeMs: avgReaction,
		FinalStreak:           finalStreak,
	}
}

// BuildPlayerResult builds the per-question result payload returned to
// one player after a question closes. Survey blocks report the choice
// made but carry no points, correctness, or correct-choice reveal.
func BuildPlayerResult(q domain.Question, questionIndex int, player *domain.LivePlayerState) domain.PlayerResult {
	record, hasRecord := player.AnswerFor(questionIndex)
	hasAnswer := hasRecord && record.Status == domain.AnswerSubmitted

	result := domain.PlayerResult{
		Rank:       player.Rank,
		TotalScore: player.TotalScore,
		PointsData: domain.PointsData{
			TotalPointsWithBonuses: player.TotalScore,
			QuestionPoints:         record.PointsAwarded,
			AnswerStreakPoints: domain.StreakPoints{
				StreakLevel:         record.StreakLevel,
				PreviousStreakLevel: record.PreviousStreakLevel,
			},
			LastGameBlockIndex: questionIndex,
		},
		HasAnswer: hasAnswer,
		Type:      q.Type,
	}

	if hasAnswer {
		switch q.Type {
		case domain.QuestionOpenEnded:
			result.Text = record.Text
		case domain.QuestionJumble:
			result.Choices = record.Choices
		default:
			choice := record.Choice
			result.Choice = &choice
		}
	}

	if q.Type == domain.QuestionSurvey {
		return result
	}

	points := record.PointsAwarded
	isCorrect := record.IsCorrect
	result.Points = &points
	result.IsCorrect = &isCorrect
	result.CorrectChoices = CorrectChoiceIndices(q)
	return result
}

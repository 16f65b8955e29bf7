package app

import (
	"github.com/manhtruong03/real-time-quiz-sub002/internal/domain"
)

// CurrentHostQuestion returns the authoritative question at index, or
// nil when the index is out of range (lobby, pre-game, past the end).
func CurrentHostQuestion(quiz domain.Quiz, index int) *domain.Question {
	if index < 0 || index >= len(quiz.Questions) {
		return nil
	}
	return &quiz.Questions[index]
}

// FormatQuestionForPlayer builds the answer-free block broadcast to
// players. Correct flags are stripped from every choice. A nil question
// yields a nil block, which callers render as the lobby/waiting state.
func FormatQuestionForPlayer(q *domain.Question, index, totalCount int) *domain.GameBlock {
	if q == nil {
		return nil
	}
	choices := make([]domain.BlockChoice, len(q.Choices))
	for i, c := range q.Choices {
		choices[i] = domain.BlockChoice{Answer: c.Answer, Image: c.Image}
	}
	answersAllowed := q.NumberOfAnswersAllowed
	if answersAllowed == 0 {
		answersAllowed = 1
	}
	return &domain.GameBlock{
		GameBlockIndex:         index,
		TotalGameBlockCount:    totalCount,
		Type:                   q.Type,
		Title:                  q.Title,
		Media:                  q.Media,
		TimeAvailableMs:        q.TimeAvailableMs,
		TimeRemainingMs:        q.TimeAvailableMs,
		NumberOfAnswersAllowed: answersAllowed,
		PointsMultiplier:       multiplierOrDefault(q.PointsMultiplier),
		Choices:                choices,
	}
}

func multiplierOrDefault(m *float64) float64 {
	if m == nil {
		return 1
	}
	return *m
}

// CorrectChoiceIndices lists the choice indices revealed to players
// after a question closes. For jumble blocks the canonical order is the
// original index sequence; for open-ended blocks every non-empty
// accepted text counts.
func CorrectChoiceIndices(q domain.Question) []int {
	switch q.Type {
	case domain.QuestionJumble:
		indices := make([]int, len(q.Choices))
		for i := range q.Choices {
			indices[i] = i
		}
		return indices
	case domain.QuestionQuiz:
		var indices []int
		for i, c := range q.Choices {
			if c.Correct {
				indices = append(indices, i)
			}
		}
		return indices
	case domain.QuestionOpenEnded:
		var indices []int
		for i, c := range q.Choices {
			if c.Answer != "" {
				indices = append(indices, i)
			}
		}
		return indices
	}
	return nil
}

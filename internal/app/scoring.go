package app

import (
	"math"
	"strings"

	"github.com/manhtruong03/real-time-quiz-sub002/internal/domain"
)

// DefaultBasePointsMax is the maximum base score for an instant correct answer.
const DefaultBasePointsMax = 1000

// CalculateBasePoints computes the time-decayed base score for a correct
// answer. Answering instantly earns basePointsMax, answering at the
// deadline earns 0, and the decay in between is linear. Untimed blocks
// and negative reaction times never score.
func CalculateBasePoints(reactionTimeMs, timeAvailableMs int64, basePointsMax int) int {
	if timeAvailableMs <= 0 || reactionTimeMs < 0 {
		return 0
	}
	clamped := reactionTimeMs
	if clamped > timeAvailableMs {
		clamped = timeAvailableMs
	}
	timeFactor := 1 - float64(clamped)/float64(timeAvailableMs)
	points := int(math.Round(float64(basePointsMax) * timeFactor))
	if points < 0 {
		return 0
	}
	return points
}

// ApplyPointsMultiplier scales base points by the question multiplier.
// A nil multiplier means 1; an explicit 0 is honored and zeroes the
// score (used by survey and content blocks).
func ApplyPointsMultiplier(basePoints int, multiplier *float64) int {
	m := 1.0
	if multiplier != nil {
		m = *multiplier
	}
	return int(math.Round(float64(basePoints) * m))
}

// CheckAnswerCorrectness decides whether a submission answers the
// question correctly. The switch is exhaustive over the question-type
// union; unknown types never score.
//
// Jumble submissions must already be expressed in original-index space:
// the client remaps from the shuffled order it received before sending,
// so a correct ordering is exactly [0..n-1].
func CheckAnswerCorrectness(q domain.Question, sub domain.AnswerSubmission) bool {
	switch q.Type {
	case domain.QuestionContent, domain.QuestionSurvey:
		return false
	case domain.QuestionQuiz:
		if sub.Choice < 0 || sub.Choice >= len(q.Choices) {
			return false
		}
		return q.Choices[sub.Choice].Correct
	case domain.QuestionJumble:
		if len(sub.Choices) != len(q.Choices) {
			return false
		}
		for i, idx := range sub.Choices {
			if idx != i {
				return false
			}
		}
		return true
	case domain.QuestionOpenEnded:
		submitted := strings.TrimSpace(sub.Text)
		for _, c := range q.Choices {
			accepted := strings.TrimSpace(c.Answer)
			if accepted == "" {
				continue
			}
			if strings.EqualFold(submitted, accepted) {
				return true
			}
		}
		return false
	}
	return false
}

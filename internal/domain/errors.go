package domain

import "errors"

var (
	// ErrSessionNotFound is returned when no session exists for a game PIN.
	ErrSessionNotFound = errors.New("game session not found")
	// ErrPlayerNotFound is returned when an event references an unknown player.
	ErrPlayerNotFound = errors.New("player not found in session")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates the requested block index has no definition.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrDuplicateAnswer indicates the player already answered this question.
	ErrDuplicateAnswer = errors.New("answer already recorded for question")
	// ErrNotAcceptingAnswers indicates the session is not showing a question.
	ErrNotAcceptingAnswers = errors.New("session is not accepting answers")
	// ErrNotHost indicates a host-only command came from a non-host client.
	ErrNotHost = errors.New("command restricted to session host")
	// ErrGameEnded indicates a transition was requested on a terminal session.
	ErrGameEnded = errors.New("game session already ended")
	// ErrAlreadyFinalized indicates results were already persisted.
	ErrAlreadyFinalized = errors.New("session results already persisted")
	// ErrFinalizeInFlight indicates a finalize attempt is currently running.
	ErrFinalizeInFlight = errors.New("finalization already in progress")
)
